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

// Package contribution implements the append-only contribution ledger and
// orchestrates the verify -> settle -> reputation-update sequence. Each
// contribution moves Submitted -> Verified -> Rewarded; Rewarded is
// terminal. A submission that fails verification is never persisted.
package contribution

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fluxpoint-io/corral/campaign"
	"github.com/fluxpoint-io/corral/database"
	"github.com/fluxpoint-io/corral/database/models"
	"github.com/fluxpoint-io/corral/escrow"
	"github.com/fluxpoint-io/corral/event"
	"github.com/fluxpoint-io/corral/internal/keyedlock"
	"github.com/fluxpoint-io/corral/registry"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

// DefaultRewardThreshold is the minimum value both the verifier reputation
// and the quality score must independently meet for a reward to be
// released. The two are deliberately independent gates, not a blended
// average.
const DefaultRewardThreshold = 70

// Common errors returned by Ledger operations
var (
	ErrCampaignInactive      = errors.New("campaign not accepting contributions")
	ErrCampaignFull          = errors.New("campaign contribution cap reached")
	ErrDuplicateContribution = errors.New("duplicate contribution ID")
	ErrInvalidSignature      = errors.New("invalid contribution signature")
	ErrContributionNotFound  = errors.New("contribution not found")
	ErrNotVerifier           = errors.New("caller is not an active verifier")
	ErrAlreadyVerified       = errors.New("contribution already verified")
)

type LedgerConfig struct {
	PromRegistry prometheus.Registerer
	Logger       *slog.Logger
	Database     *database.Database
	EventBus     *event.EventBus
	Registry     *registry.Registry
	Campaigns    *campaign.Ledger
	Vault        *escrow.Vault
	Locks        *keyedlock.KeyedLock
	// RewardThreshold overrides DefaultRewardThreshold when non-zero
	RewardThreshold uint8
}

type Ledger struct {
	config    LedgerConfig
	logger    *slog.Logger
	db        *database.Database
	threshold uint8
	metrics   struct {
		submitted prometheus.Counter
		verified  prometheus.Counter
		rewarded  prometheus.Counter
		rejected  prometheus.Counter
	}
}

// SubmitParams describes a signed contribution submission
type SubmitParams struct {
	CampaignID     string
	ContributionID string
	DataURL        string
	DataHash       []byte
	Signature      []byte
	QualityScore   uint8
}

func NewLedger(cfg LedgerConfig) *Ledger {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Locks == nil {
		cfg.Locks = keyedlock.New()
	}
	threshold := cfg.RewardThreshold
	if threshold == 0 {
		threshold = DefaultRewardThreshold
	}
	l := &Ledger{
		config:    cfg,
		logger:    cfg.Logger.With("component", "contribution"),
		db:        cfg.Database,
		threshold: threshold,
	}
	promRegistry := cfg.PromRegistry
	if promRegistry == nil {
		promRegistry = prometheus.NewRegistry()
	}
	factory := promauto.With(promRegistry)
	l.metrics.submitted = factory.NewCounter(prometheus.CounterOpts{
		Name: "corral_contributions_submitted_total",
		Help: "total accepted contribution submissions",
	})
	l.metrics.verified = factory.NewCounter(prometheus.CounterOpts{
		Name: "corral_contributions_verified_total",
		Help: "total contributions verified via the decoupled flow",
	})
	l.metrics.rewarded = factory.NewCounter(prometheus.CounterOpts{
		Name: "corral_contributions_rewarded_total",
		Help: "total contributions with released rewards",
	})
	l.metrics.rejected = factory.NewCounter(prometheus.CounterOpts{
		Name: "corral_contributions_rejected_total",
		Help: "total contribution submissions rejected",
	})
	return l
}

// meetsThreshold applies the two independent reward gates
func (l *Ledger) meetsThreshold(scores registry.Scores) bool {
	return scores.VerifierReputation >= l.threshold &&
		scores.Quality >= l.threshold
}

// Submit records a signed contribution. The whole submission is one
// transaction: window check, global duplicate check, registry-wide
// signature verification, capacity increment, persistence, and (when the
// scores clear the reward threshold) the escrow release all commit or
// roll back together.
func (l *Ledger) Submit(
	contributor string,
	params SubmitParams,
) (*models.Contribution, error) {
	unlock := l.config.Locks.Lock(params.CampaignID)
	defer unlock()
	var contrib *models.Contribution
	var released bool
	var releasedAmount uint64
	var releaseFee uint64
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		active, err := l.config.Campaigns.IsActiveWindow(
			params.CampaignID,
			txn,
		)
		if err != nil {
			return err
		}
		if !active {
			return fmt.Errorf(
				"%s: %w",
				params.CampaignID,
				ErrCampaignInactive,
			)
		}
		existing, err := l.db.GetContribution(params.ContributionID, txn)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf(
				"%s: %w",
				params.ContributionID,
				ErrDuplicateContribution,
			)
		}
		result, err := l.config.Registry.VerifyContribution(
			params.CampaignID,
			params.DataHash,
			params.DataURL,
			params.Signature,
			params.QualityScore,
			txn,
		)
		if err != nil {
			return err
		}
		if !result.Valid {
			return fmt.Errorf(
				"%s: %w",
				params.ContributionID,
				ErrInvalidSignature,
			)
		}
		ok, err := l.config.Campaigns.IncrementContributions(
			params.CampaignID,
			txn,
		)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf(
				"%s: %w",
				params.CampaignID,
				ErrCampaignFull,
			)
		}
		contrib = &models.Contribution{
			ContributionID:     params.ContributionID,
			CampaignID:         params.CampaignID,
			Contributor:        contributor,
			DataURL:            params.DataURL,
			DataHash:           params.DataHash,
			Timestamp:          time.Now().Unix(),
			VerifierReputation: result.Scores.VerifierReputation,
			QualityScore:       result.Scores.Quality,
			Verified:           true,
		}
		if l.meetsThreshold(result.Scores) {
			releasedAmount, releaseFee, err = l.config.Vault.Release(
				params.CampaignID,
				params.ContributionID,
				contributor,
				txn,
			)
			if err != nil {
				return err
			}
			contrib.RewardReleased = true
			released = true
		}
		if err := l.db.CreateContribution(contrib, txn); err != nil {
			// A concurrent submission under another campaign's lock can
			// beat the duplicate pre-check to the unique index
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf(
					"%s: %w",
					params.ContributionID,
					ErrDuplicateContribution,
				)
			}
			return err
		}
		txn.AppendAudit(database.AuditRecord{
			EntryID:        uuid.NewString(),
			Kind:           "contribution.submitted",
			CampaignID:     params.CampaignID,
			ContributionID: params.ContributionID,
			Account:        contributor,
			Timestamp:      contrib.Timestamp,
		})
		return nil
	})
	if err != nil {
		l.metrics.rejected.Inc()
		return nil, err
	}
	l.metrics.submitted.Inc()
	if released {
		l.metrics.rewarded.Inc()
	}
	l.publishSubmission(contrib, released, releasedAmount, releaseFee)
	return contrib, nil
}

// SubmitPending records an unsigned contribution that awaits the
// decoupled Verify flow. It consumes campaign capacity like a signed
// submission but carries no scores and cannot release a reward.
func (l *Ledger) SubmitPending(
	contributor string,
	params SubmitParams,
) (*models.Contribution, error) {
	unlock := l.config.Locks.Lock(params.CampaignID)
	defer unlock()
	var contrib *models.Contribution
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		active, err := l.config.Campaigns.IsActiveWindow(
			params.CampaignID,
			txn,
		)
		if err != nil {
			return err
		}
		if !active {
			return fmt.Errorf(
				"%s: %w",
				params.CampaignID,
				ErrCampaignInactive,
			)
		}
		existing, err := l.db.GetContribution(params.ContributionID, txn)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf(
				"%s: %w",
				params.ContributionID,
				ErrDuplicateContribution,
			)
		}
		ok, err := l.config.Campaigns.IncrementContributions(
			params.CampaignID,
			txn,
		)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf(
				"%s: %w",
				params.CampaignID,
				ErrCampaignFull,
			)
		}
		contrib = &models.Contribution{
			ContributionID: params.ContributionID,
			CampaignID:     params.CampaignID,
			Contributor:    contributor,
			DataURL:        params.DataURL,
			DataHash:       params.DataHash,
			Timestamp:      time.Now().Unix(),
		}
		if err := l.db.CreateContribution(contrib, txn); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf(
					"%s: %w",
					params.ContributionID,
					ErrDuplicateContribution,
				)
			}
			return err
		}
		txn.AppendAudit(database.AuditRecord{
			EntryID:        uuid.NewString(),
			Kind:           "contribution.submitted",
			CampaignID:     params.CampaignID,
			ContributionID: params.ContributionID,
			Account:        contributor,
			Timestamp:      contrib.Timestamp,
		})
		return nil
	})
	if err != nil {
		l.metrics.rejected.Inc()
		return nil, err
	}
	l.metrics.submitted.Inc()
	if l.config.EventBus != nil {
		l.config.EventBus.Publish(
			event.ContributionSubmittedEventType,
			event.NewEvent(
				event.ContributionSubmittedEventType,
				event.ContributionSubmittedEvent{
					CampaignID:     contrib.CampaignID,
					ContributionID: contrib.ContributionID,
					Contributor:    contrib.Contributor,
				},
			),
		)
	}
	return contrib, nil
}

// Verify attests a pending contribution via the decoupled flow. The
// caller must be an active verifier; the signature covers the
// contribution ID and quality score and is matched registry-wide. On
// success the contribution becomes verified and the reward is released
// under the same threshold rule as the inline flow.
func (l *Ledger) Verify(
	verifierCaller string,
	contributionID string,
	qualityScore uint8,
	verifierSignature []byte,
) (*models.Contribution, error) {
	// Resolve the campaign first so the update runs under its lock
	existing, err := l.db.GetContribution(contributionID, nil)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf(
			"%s: %w",
			contributionID,
			ErrContributionNotFound,
		)
	}
	unlock := l.config.Locks.Lock(existing.CampaignID)
	defer unlock()
	var contrib *models.Contribution
	var released bool
	var releasedAmount uint64
	var releaseFee uint64
	txn := l.db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		isVerifier, err := l.config.Registry.IsActiveVerifier(
			verifierCaller,
			txn,
		)
		if err != nil {
			return err
		}
		if !isVerifier {
			return fmt.Errorf("%s: %w", verifierCaller, ErrNotVerifier)
		}
		contrib, err = l.db.GetContribution(contributionID, txn)
		if err != nil {
			return err
		}
		if contrib == nil {
			return fmt.Errorf(
				"%s: %w",
				contributionID,
				ErrContributionNotFound,
			)
		}
		if contrib.Verified {
			return fmt.Errorf(
				"%s: %w",
				contributionID,
				ErrAlreadyVerified,
			)
		}
		result, err := l.config.Registry.VerifyAttestation(
			contributionID,
			qualityScore,
			verifierSignature,
			txn,
		)
		if err != nil {
			return err
		}
		if !result.Valid {
			return fmt.Errorf(
				"%s: %w",
				contributionID,
				ErrInvalidSignature,
			)
		}
		contrib.Verified = true
		contrib.VerifierReputation = result.Scores.VerifierReputation
		contrib.QualityScore = result.Scores.Quality
		if !contrib.RewardReleased && l.meetsThreshold(result.Scores) {
			releasedAmount, releaseFee, err = l.config.Vault.Release(
				contrib.CampaignID,
				contributionID,
				contrib.Contributor,
				txn,
			)
			if err != nil {
				return err
			}
			contrib.RewardReleased = true
			released = true
		}
		if err := l.db.UpdateContribution(contrib, txn); err != nil {
			return err
		}
		txn.AppendAudit(database.AuditRecord{
			EntryID:        uuid.NewString(),
			Kind:           "contribution.verified",
			CampaignID:     contrib.CampaignID,
			ContributionID: contributionID,
			Account:        verifierCaller,
			Timestamp:      time.Now().Unix(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	l.metrics.verified.Inc()
	if released {
		l.metrics.rewarded.Inc()
	}
	if l.config.EventBus != nil {
		l.config.EventBus.Publish(
			event.ContributionVerifiedEventType,
			event.NewEvent(
				event.ContributionVerifiedEventType,
				event.ContributionVerifiedEvent{
					CampaignID:     contrib.CampaignID,
					ContributionID: contributionID,
					QualityScore:   qualityScore,
				},
			),
		)
	}
	l.publishSettlement(contrib, released, releasedAmount, releaseFee)
	return contrib, nil
}

// Get returns the contribution with the given ID
func (l *Ledger) Get(contributionID string) (*models.Contribution, error) {
	contrib, err := l.db.GetContribution(contributionID, nil)
	if err != nil {
		return nil, err
	}
	if contrib == nil {
		return nil, fmt.Errorf(
			"%s: %w",
			contributionID,
			ErrContributionNotFound,
		)
	}
	return contrib, nil
}

// ListByCampaign returns all contributions for a campaign in submission
// order
func (l *Ledger) ListByCampaign(
	campaignID string,
) ([]models.Contribution, error) {
	return l.db.ListContributionsByCampaign(campaignID, nil)
}

func (l *Ledger) publishSubmission(
	contrib *models.Contribution,
	released bool,
	amount uint64,
	fee uint64,
) {
	if l.config.EventBus == nil {
		return
	}
	l.config.EventBus.Publish(
		event.ContributionSubmittedEventType,
		event.NewEvent(
			event.ContributionSubmittedEventType,
			event.ContributionSubmittedEvent{
				CampaignID:         contrib.CampaignID,
				ContributionID:     contrib.ContributionID,
				Contributor:        contrib.Contributor,
				QualityScore:       contrib.QualityScore,
				VerifierReputation: contrib.VerifierReputation,
				RewardReleased:     released,
			},
		),
	)
	l.publishSettlement(contrib, released, amount, fee)
}

// publishSettlement emits the post-commit settlement and reputation
// events. The reputation ledger is best-effort: these publishes never
// affect the already-committed settlement.
func (l *Ledger) publishSettlement(
	contrib *models.Contribution,
	released bool,
	amount uint64,
	fee uint64,
) {
	if l.config.EventBus == nil {
		return
	}
	l.config.EventBus.Publish(
		event.SuccessfulContributionEventType,
		event.NewEvent(
			event.SuccessfulContributionEventType,
			event.SuccessfulContributionEvent{
				Account: contrib.Contributor,
			},
		),
	)
	if !released {
		return
	}
	l.config.EventBus.Publish(
		event.EscrowReleasedEventType,
		event.NewEvent(
			event.EscrowReleasedEventType,
			event.EscrowReleasedEvent{
				CampaignID:     contrib.CampaignID,
				ContributionID: contrib.ContributionID,
				Contributor:    contrib.Contributor,
				Amount:         amount + fee,
				Fee:            fee,
			},
		),
	)
	l.config.EventBus.Publish(
		event.RewardReleasedEventType,
		event.NewEvent(
			event.RewardReleasedEventType,
			event.RewardReleasedEvent{
				CampaignID:     contrib.CampaignID,
				ContributionID: contrib.ContributionID,
				Contributor:    contrib.Contributor,
				Amount:         amount,
			},
		),
	)
	campaignRec, err := l.db.GetCampaign(contrib.CampaignID, nil)
	if err != nil || campaignRec == nil {
		l.logger.Warn(
			"could not resolve campaign owner for payout event",
			"campaign_id", contrib.CampaignID,
		)
		return
	}
	l.config.EventBus.Publish(
		event.SuccessfulPayoutEventType,
		event.NewEvent(
			event.SuccessfulPayoutEventType,
			event.SuccessfulPayoutEvent{
				Account: campaignRec.Owner,
			},
		),
	)
}
