// Copyright 2025 Fluxpoint Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package escrow implements custody of locked campaign funds and all
// balance-changing arithmetic: per-contribution reward release with the
// platform fee split, and end-of-campaign refund.
package escrow

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/bits"
	"time"

	"github.com/fluxpoint-io/corral/database"
	"github.com/fluxpoint-io/corral/database/models"
	"github.com/fluxpoint-io/corral/event"
	"github.com/fluxpoint-io/corral/internal/keyedlock"
	"github.com/fluxpoint-io/corral/ledger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BpsDenominator is the basis-point scale: 10000 bps = 100%
const BpsDenominator = 10000

// Common errors returned by Vault operations
var (
	ErrEscrowNotFound      = errors.New("escrow not found")
	ErrEscrowExists        = errors.New("escrow already exists")
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrCampaignExpired     = errors.New("campaign expired")
	ErrInsufficientBalance = errors.New("insufficient escrow balance")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrInvalidState        = errors.New("invalid escrow state")
	ErrInvalidArgument     = errors.New("invalid argument")
)

type VaultConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	Database     *database.Database
	Currency     ledger.Currency
	EventBus     *event.EventBus
	Locks        *keyedlock.KeyedLock
	// PlatformWallet receives the fee cut of every released reward
	PlatformWallet string
}

type Vault struct {
	config  VaultConfig
	logger  *slog.Logger
	db      *database.Database
	metrics struct {
		lockedTotal   prometheus.Counter
		releasedTotal prometheus.Counter
		refundedTotal prometheus.Counter
		feesTotal     prometheus.Counter
	}
}

func NewVault(cfg VaultConfig) *Vault {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Locks == nil {
		cfg.Locks = keyedlock.New()
	}
	v := &Vault{
		config: cfg,
		logger: cfg.Logger.With("component", "escrow"),
		db:     cfg.Database,
	}
	promRegistry := cfg.PromRegistry
	if promRegistry == nil {
		promRegistry = prometheus.NewRegistry()
	}
	factory := promauto.With(promRegistry)
	v.metrics.lockedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "corral_escrow_locked_total",
		Help: "total funds locked into escrow",
	})
	v.metrics.releasedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "corral_escrow_released_total",
		Help: "total funds released from escrow as rewards",
	})
	v.metrics.refundedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "corral_escrow_refunded_total",
		Help: "total funds refunded to campaign owners",
	})
	v.metrics.feesTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "corral_platform_fees_total",
		Help: "total platform fees collected",
	})
	return v
}

// EscrowAccount returns the internal ledger account that holds the given
// campaign's locked funds
func EscrowAccount(campaignID string) string {
	return "escrow:" + campaignID
}

// Fee returns the truncating basis-point fee for a reward amount. Rounding
// loss, if any, favors the platform: the contributor always receives
// amount minus this fee. The intermediate product is computed in 128 bits
// so large amounts cannot wrap.
func Fee(amount uint64, feeBps uint32) uint64 {
	if feeBps >= BpsDenominator {
		return amount
	}
	hi, lo := bits.Mul64(amount, uint64(feeBps))
	fee, _ := bits.Div64(hi, lo, BpsDenominator)
	return fee
}

// Create locks funds for a new campaign inside the caller's transaction.
// The campaign must exist and be inside its active window, and the owner's
// account must cover the total amount.
func (v *Vault) Create(
	owner string,
	campaignID string,
	totalAmount uint64,
	unitReward uint64,
	platformFeeBps uint32,
	txn *database.Txn,
) error {
	if unitReward == 0 || totalAmount < unitReward {
		return fmt.Errorf(
			"unit reward %d of total %d: %w",
			unitReward,
			totalAmount,
			ErrInvalidArgument,
		)
	}
	if platformFeeBps > BpsDenominator {
		return fmt.Errorf(
			"platform fee %d bps: %w",
			platformFeeBps,
			ErrInvalidArgument,
		)
	}
	campaign, err := v.db.GetCampaign(campaignID, txn)
	if err != nil {
		return err
	}
	if campaign == nil {
		return fmt.Errorf("%s: %w", campaignID, ErrCampaignNotFound)
	}
	if !campaign.InWindow(time.Now().Unix()) {
		return fmt.Errorf("%s: %w", campaignID, ErrCampaignExpired)
	}
	if campaign.Owner != owner {
		return fmt.Errorf("%s: %w", owner, ErrPermissionDenied)
	}
	existing, err := v.db.GetEscrow(campaignID, txn)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%s: %w", campaignID, ErrEscrowExists)
	}
	// Pull funds from the owner into vault custody. Insufficient funds
	// propagates from the currency ledger.
	if err := v.config.Currency.Transfer(
		owner,
		EscrowAccount(campaignID),
		totalAmount,
		txn,
	); err != nil {
		return err
	}
	if err := v.db.CreateEscrow(
		&models.Escrow{
			CampaignID:     campaignID,
			Owner:          owner,
			TotalLocked:    totalAmount,
			UnitReward:     unitReward,
			PlatformFeeBps: platformFeeBps,
			Active:         true,
		},
		txn,
	); err != nil {
		return err
	}
	campaign.EscrowSetup = true
	if err := v.db.UpdateCampaign(campaign, txn); err != nil {
		return err
	}
	txn.AppendAudit(database.AuditRecord{
		EntryID:    uuid.NewString(),
		Kind:       "escrow.locked",
		CampaignID: campaignID,
		Account:    owner,
		Amount:     totalAmount,
		Timestamp:  time.Now().Unix(),
	})
	v.metrics.lockedTotal.Add(float64(totalAmount))
	v.logger.Info(
		"locked campaign funds",
		"campaign_id", campaignID,
		"amount", totalAmount,
	)
	return nil
}

// Release pays out one contribution's reward inside the caller's
// transaction: the unit reward minus the platform fee to the contributor,
// the fee to the platform wallet. The balance check happens before any
// funds move. Exactly-once semantics are the caller's responsibility via
// the contribution's RewardReleased flag; Release does not re-check
// contribution state.
func (v *Vault) Release(
	campaignID string,
	contributionID string,
	contributor string,
	txn *database.Txn,
) (uint64, uint64, error) {
	escrowRec, err := v.db.GetEscrow(campaignID, txn)
	if err != nil {
		return 0, 0, err
	}
	if escrowRec == nil {
		return 0, 0, fmt.Errorf("%s: %w", campaignID, ErrEscrowNotFound)
	}
	if !escrowRec.Active {
		return 0, 0, fmt.Errorf("%s: %w", campaignID, ErrCampaignExpired)
	}
	unitReward := escrowRec.UnitReward
	if escrowRec.Available() < unitReward {
		return 0, 0, fmt.Errorf(
			"%s: available %d, need %d: %w",
			campaignID,
			escrowRec.Available(),
			unitReward,
			ErrInsufficientBalance,
		)
	}
	fee := Fee(unitReward, escrowRec.PlatformFeeBps)
	contributorAmount := unitReward - fee
	now := time.Now().Unix()
	if contributorAmount > 0 {
		if err := v.config.Currency.Transfer(
			EscrowAccount(campaignID),
			contributor,
			contributorAmount,
			txn,
		); err != nil {
			return 0, 0, err
		}
	}
	if fee > 0 {
		if err := v.config.Currency.Transfer(
			EscrowAccount(campaignID),
			v.config.PlatformWallet,
			fee,
			txn,
		); err != nil {
			return 0, 0, err
		}
	}
	escrowRec.TotalReleased += unitReward
	if err := v.db.UpdateEscrow(escrowRec, txn); err != nil {
		return 0, 0, err
	}
	if err := v.db.CreateRewardClaim(
		&models.RewardClaim{
			CampaignID:     campaignID,
			ContributionID: contributionID,
			Amount:         unitReward,
			Claimed:        true,
		},
		txn,
	); err != nil {
		return 0, 0, err
	}
	txn.AppendAudit(database.AuditRecord{
		EntryID:        uuid.NewString(),
		Kind:           "escrow.released",
		CampaignID:     campaignID,
		ContributionID: contributionID,
		Account:        contributor,
		Amount:         contributorAmount,
		Timestamp:      now,
	})
	if fee > 0 {
		txn.AppendAudit(database.AuditRecord{
			EntryID:        uuid.NewString(),
			Kind:           "platform.fee",
			CampaignID:     campaignID,
			ContributionID: contributionID,
			Account:        v.config.PlatformWallet,
			Amount:         fee,
			Timestamp:      now,
		})
	}
	v.metrics.releasedTotal.Add(float64(unitReward))
	v.metrics.feesTotal.Add(float64(fee))
	return contributorAmount, fee, nil
}

// Refund returns the remaining escrow balance to the campaign owner and
// deactivates the escrow. Only legal once the campaign is out of its
// active window (cancelled or expired), and only for the recorded owner.
// A zero remaining balance is not an error. With a nil txn, Refund takes
// the campaign lock and runs its own transaction; otherwise the caller
// owns both and the refund commits or rolls back with it.
func (v *Vault) Refund(
	caller string,
	campaignID string,
	txn *database.Txn,
) (uint64, error) {
	if txn != nil {
		return v.refund(caller, campaignID, txn)
	}
	unlock := v.config.Locks.Lock(campaignID)
	defer unlock()
	var refunded uint64
	ownTxn := v.db.Transaction(true)
	err := ownTxn.Do(func(txn *database.Txn) error {
		var err error
		refunded, err = v.refund(caller, campaignID, txn)
		return err
	})
	if err != nil {
		return 0, err
	}
	if v.config.EventBus != nil {
		v.config.EventBus.Publish(
			event.EscrowRefundedEventType,
			event.NewEvent(
				event.EscrowRefundedEventType,
				event.EscrowRefundedEvent{
					CampaignID: campaignID,
					Owner:      caller,
					Amount:     refunded,
				},
			),
		)
	}
	v.logger.Info(
		"refunded escrow balance",
		"campaign_id", campaignID,
		"amount", refunded,
	)
	return refunded, nil
}

func (v *Vault) refund(
	caller string,
	campaignID string,
	txn *database.Txn,
) (uint64, error) {
	escrowRec, err := v.db.GetEscrow(campaignID, txn)
	if err != nil {
		return 0, err
	}
	if escrowRec == nil {
		return 0, fmt.Errorf("%s: %w", campaignID, ErrEscrowNotFound)
	}
	if caller != escrowRec.Owner {
		return 0, fmt.Errorf("%s: %w", caller, ErrPermissionDenied)
	}
	if !escrowRec.Active {
		return 0, fmt.Errorf(
			"%s: escrow already closed: %w",
			campaignID,
			ErrInvalidState,
		)
	}
	campaign, err := v.db.GetCampaign(campaignID, txn)
	if err != nil {
		return 0, err
	}
	if campaign != nil && campaign.InWindow(time.Now().Unix()) {
		return 0, fmt.Errorf(
			"%s: campaign still active: %w",
			campaignID,
			ErrInvalidState,
		)
	}
	refunded := escrowRec.Available()
	if refunded > 0 {
		if err := v.config.Currency.Transfer(
			EscrowAccount(campaignID),
			escrowRec.Owner,
			refunded,
			txn,
		); err != nil {
			return 0, err
		}
	}
	// Zero out the remaining balance; released rewards stay on record
	escrowRec.TotalLocked = escrowRec.TotalReleased
	escrowRec.Active = false
	if err := v.db.UpdateEscrow(escrowRec, txn); err != nil {
		return 0, err
	}
	txn.AppendAudit(database.AuditRecord{
		EntryID:    uuid.NewString(),
		Kind:       "escrow.refunded",
		CampaignID: campaignID,
		Account:    escrowRec.Owner,
		Amount:     refunded,
		Timestamp:  time.Now().Unix(),
	})
	v.metrics.refundedTotal.Add(float64(refunded))
	return refunded, nil
}

// AvailableBalance returns the spendable escrow balance for a campaign
func (v *Vault) AvailableBalance(campaignID string) (uint64, error) {
	escrowRec, err := v.db.GetEscrow(campaignID, nil)
	if err != nil {
		return 0, err
	}
	if escrowRec == nil {
		return 0, fmt.Errorf("%s: %w", campaignID, ErrEscrowNotFound)
	}
	return escrowRec.Available(), nil
}

// GetEscrow returns the escrow record for a campaign
func (v *Vault) GetEscrow(campaignID string) (*models.Escrow, error) {
	escrowRec, err := v.db.GetEscrow(campaignID, nil)
	if err != nil {
		return nil, err
	}
	if escrowRec == nil {
		return nil, fmt.Errorf("%s: %w", campaignID, ErrEscrowNotFound)
	}
	return escrowRec, nil
}
