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

// Package campaign tracks campaign lifecycle: creation with atomic escrow
// funding, non-financial updates, one-way cancellation with refund, the
// active contribution window, and the capped contribution counter.
package campaign

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fluxpoint-io/corral/database"
	"github.com/fluxpoint-io/corral/database/models"
	"github.com/fluxpoint-io/corral/escrow"
	"github.com/fluxpoint-io/corral/event"
	"github.com/fluxpoint-io/corral/internal/keyedlock"

	"github.com/google/uuid"
)

// Common errors returned by Ledger operations
var (
	ErrCampaignExists   = errors.New("campaign already exists")
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrCampaignInactive = errors.New("campaign not active")
	ErrNotOwner         = errors.New("caller is not the campaign owner")
	ErrInvalidParams    = errors.New("invalid campaign parameters")
)

type LedgerConfig struct {
	Logger   *slog.Logger
	Database *database.Database
	EventBus *event.EventBus
	Vault    *escrow.Vault
	Locks    *keyedlock.KeyedLock
}

type Ledger struct {
	config LedgerConfig
	logger *slog.Logger
	db     *database.Database
}

// CreateParams describes a new campaign. UnitPrice doubles as the
// per-contribution unit reward; TotalBudget is locked into escrow at
// creation time.
type CreateParams struct {
	CampaignID     string
	Title          string
	Description    string
	UnitPrice      uint64
	TotalBudget    uint64
	MinDataCount   uint64
	MaxDataCount   uint64
	Expiration     int64
	PlatformFeeBps uint32
}

// UpdateParams carries the non-financial fields a campaign owner may
// change while the campaign is active
type UpdateParams struct {
	Title       *string
	Description *string
}

func NewLedger(cfg LedgerConfig) *Ledger {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Locks == nil {
		cfg.Locks = keyedlock.New()
	}
	return &Ledger{
		config: cfg,
		logger: cfg.Logger.With("component", "campaign"),
		db:     cfg.Database,
	}
}

func (l *Ledger) validateParams(params CreateParams) error {
	if params.CampaignID == "" {
		return fmt.Errorf("empty campaign ID: %w", ErrInvalidParams)
	}
	if params.UnitPrice == 0 {
		return fmt.Errorf("zero unit price: %w", ErrInvalidParams)
	}
	if params.TotalBudget < params.UnitPrice {
		return fmt.Errorf(
			"budget %d below unit price %d: %w",
			params.TotalBudget,
			params.UnitPrice,
			ErrInvalidParams,
		)
	}
	if params.MinDataCount == 0 ||
		params.MinDataCount > params.MaxDataCount {
		return fmt.Errorf(
			"data count bounds %d..%d: %w",
			params.MinDataCount,
			params.MaxDataCount,
			ErrInvalidParams,
		)
	}
	if params.Expiration <= time.Now().Unix() {
		return fmt.Errorf("expiration in the past: %w", ErrInvalidParams)
	}
	return nil
}

// Create records a new campaign and locks its budget into escrow in a
// single transaction. The campaign and its escrow either both exist or
// neither does.
func (l *Ledger) Create(owner string, params CreateParams) error {
	if owner == "" {
		return fmt.Errorf("empty owner: %w", ErrInvalidParams)
	}
	if err := l.validateParams(params); err != nil {
		return err
	}
	unlock := l.config.Locks.Lock(params.CampaignID)
	defer unlock()
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		existing, err := l.db.GetCampaign(params.CampaignID, txn)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf(
				"%s: %w",
				params.CampaignID,
				ErrCampaignExists,
			)
		}
		if err := l.db.CreateCampaign(
			&models.Campaign{
				CampaignID:   params.CampaignID,
				Owner:        owner,
				Title:        params.Title,
				Description:  params.Description,
				UnitPrice:    params.UnitPrice,
				TotalBudget:  params.TotalBudget,
				MinDataCount: params.MinDataCount,
				MaxDataCount: params.MaxDataCount,
				Expiration:   params.Expiration,
				Active:       true,
			},
			txn,
		); err != nil {
			return err
		}
		// Escrow funding is part of the same transaction: a failed
		// transfer rolls back the campaign record
		if err := l.config.Vault.Create(
			owner,
			params.CampaignID,
			params.TotalBudget,
			params.UnitPrice,
			params.PlatformFeeBps,
			txn,
		); err != nil {
			return err
		}
		txn.AppendAudit(database.AuditRecord{
			EntryID:    uuid.NewString(),
			Kind:       "campaign.created",
			CampaignID: params.CampaignID,
			Account:    owner,
			Amount:     params.TotalBudget,
			Timestamp:  time.Now().Unix(),
		})
		return nil
	})
	if err != nil {
		return err
	}
	if l.config.EventBus != nil {
		l.config.EventBus.Publish(
			event.CampaignCreatedEventType,
			event.NewEvent(
				event.CampaignCreatedEventType,
				event.CampaignCreatedEvent{
					CampaignID:  params.CampaignID,
					Owner:       owner,
					TotalBudget: params.TotalBudget,
					UnitPrice:   params.UnitPrice,
					Expiration:  params.Expiration,
				},
			),
		)
		l.config.EventBus.Publish(
			event.EscrowLockedEventType,
			event.NewEvent(
				event.EscrowLockedEventType,
				event.EscrowLockedEvent{
					CampaignID: params.CampaignID,
					Owner:      owner,
					Amount:     params.TotalBudget,
				},
			),
		)
	}
	l.logger.Info(
		"created campaign",
		"campaign_id", params.CampaignID,
		"owner", owner,
		"budget", params.TotalBudget,
	)
	return nil
}

// Update changes a campaign's non-financial fields. Owner-only, and only
// while the campaign is active.
func (l *Ledger) Update(
	owner string,
	campaignID string,
	params UpdateParams,
) error {
	unlock := l.config.Locks.Lock(campaignID)
	defer unlock()
	txn := l.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		campaign, err := l.db.GetCampaign(campaignID, txn)
		if err != nil {
			return err
		}
		if campaign == nil {
			return fmt.Errorf("%s: %w", campaignID, ErrCampaignNotFound)
		}
		if campaign.Owner != owner {
			return fmt.Errorf("%s: %w", owner, ErrNotOwner)
		}
		if !campaign.Active {
			return fmt.Errorf("%s: %w", campaignID, ErrCampaignInactive)
		}
		if params.Title != nil {
			campaign.Title = *params.Title
		}
		if params.Description != nil {
			campaign.Description = *params.Description
		}
		return l.db.UpdateCampaign(campaign, txn)
	})
}

// Cancel deactivates a campaign and refunds its remaining escrow balance
// to the owner in a single transaction. Owner-only, one-way: either the
// cancellation and the refund both land, or neither does.
func (l *Ledger) Cancel(owner, campaignID string) error {
	unlock := l.config.Locks.Lock(campaignID)
	defer unlock()
	var refunded uint64
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		campaign, err := l.db.GetCampaign(campaignID, txn)
		if err != nil {
			return err
		}
		if campaign == nil {
			return fmt.Errorf("%s: %w", campaignID, ErrCampaignNotFound)
		}
		if campaign.Owner != owner {
			return fmt.Errorf("%s: %w", owner, ErrNotOwner)
		}
		if !campaign.Active {
			return fmt.Errorf("%s: %w", campaignID, ErrCampaignInactive)
		}
		campaign.Active = false
		if err := l.db.UpdateCampaign(campaign, txn); err != nil {
			return err
		}
		txn.AppendAudit(database.AuditRecord{
			EntryID:    uuid.NewString(),
			Kind:       "campaign.cancelled",
			CampaignID: campaignID,
			Account:    owner,
			Timestamp:  time.Now().Unix(),
		})
		// The deactivation above is visible inside this transaction, so
		// the refund's window check passes
		refunded, err = l.config.Vault.Refund(owner, campaignID, txn)
		return err
	})
	if err != nil {
		return err
	}
	if l.config.EventBus != nil {
		l.config.EventBus.Publish(
			event.CampaignCancelledEventType,
			event.NewEvent(
				event.CampaignCancelledEventType,
				event.CampaignCancelledEvent{
					CampaignID: campaignID,
					Owner:      owner,
				},
			),
		)
		l.config.EventBus.Publish(
			event.EscrowRefundedEventType,
			event.NewEvent(
				event.EscrowRefundedEventType,
				event.EscrowRefundedEvent{
					CampaignID: campaignID,
					Owner:      owner,
					Amount:     refunded,
				},
			),
		)
	}
	l.logger.Info(
		"cancelled campaign",
		"campaign_id", campaignID,
		"refunded", refunded,
	)
	return nil
}

// IsActiveWindow returns true iff the campaign exists, is active, and the
// current time has not passed its expiration
func (l *Ledger) IsActiveWindow(
	campaignID string,
	txn *database.Txn,
) (bool, error) {
	campaign, err := l.db.GetCampaign(campaignID, txn)
	if err != nil {
		return false, err
	}
	if campaign == nil {
		return false, nil
	}
	return campaign.InWindow(time.Now().Unix()), nil
}

// IncrementContributions bumps the campaign's contribution counter inside
// the caller's transaction iff the cap has not been reached. A false
// return is a hard stop: the caller must fail the whole submission.
func (l *Ledger) IncrementContributions(
	campaignID string,
	txn *database.Txn,
) (bool, error) {
	campaign, err := l.db.GetCampaign(campaignID, txn)
	if err != nil {
		return false, err
	}
	if campaign == nil {
		return false, fmt.Errorf("%s: %w", campaignID, ErrCampaignNotFound)
	}
	if campaign.TotalContributions >= campaign.MaxDataCount {
		return false, nil
	}
	campaign.TotalContributions++
	if err := l.db.UpdateCampaign(campaign, txn); err != nil {
		return false, err
	}
	return true, nil
}

// Deactivate marks a campaign inactive. One-way; no error if already
// inactive.
func (l *Ledger) Deactivate(campaignID string) error {
	unlock := l.config.Locks.Lock(campaignID)
	defer unlock()
	txn := l.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		campaign, err := l.db.GetCampaign(campaignID, txn)
		if err != nil {
			return err
		}
		if campaign == nil {
			return fmt.Errorf("%s: %w", campaignID, ErrCampaignNotFound)
		}
		if !campaign.Active {
			return nil
		}
		campaign.Active = false
		return l.db.UpdateCampaign(campaign, txn)
	})
}

// Get returns the campaign record for the given ID
func (l *Ledger) Get(campaignID string) (*models.Campaign, error) {
	campaign, err := l.db.GetCampaign(campaignID, nil)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, fmt.Errorf("%s: %w", campaignID, ErrCampaignNotFound)
	}
	return campaign, nil
}
