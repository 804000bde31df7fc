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

// Package reputation implements the best-effort reputation ledger. It
// consumes settlement events from the event bus and accrues points and
// badges for marketplace participants. Reputation updates never feed back
// into settlement: a failed update is logged and dropped.
package reputation

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fluxpoint-io/corral/database"
	"github.com/fluxpoint-io/corral/database/models"
	"github.com/fluxpoint-io/corral/event"
)

// Points awarded per settlement outcome
const (
	ContributionPoints = 10
	PayoutPoints       = 25
)

// Badge tiers by accumulated points
const (
	BadgeNone   = ""
	BadgeBronze = "bronze"
	BadgeSilver = "silver"
	BadgeGold   = "gold"

	BronzeThreshold = 100
	SilverThreshold = 500
	GoldThreshold   = 2500
)

var ErrAccountNotFound = errors.New("reputation account not found")

type LedgerConfig struct {
	Logger   *slog.Logger
	Database *database.Database
	EventBus *event.EventBus
}

type Ledger struct {
	config LedgerConfig
	logger *slog.Logger
	db     *database.Database
	subIds []struct {
		eventType event.EventType
		subId     event.EventSubscriberId
	}
}

func NewLedger(cfg LedgerConfig) *Ledger {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Ledger{
		config: cfg,
		logger: cfg.Logger.With("component", "reputation"),
		db:     cfg.Database,
	}
}

// Start subscribes to the settlement events that accrue reputation
func (l *Ledger) Start() {
	l.subscribe(
		event.SuccessfulContributionEventType,
		func(evt event.Event) {
			e, ok := evt.Data.(event.SuccessfulContributionEvent)
			if !ok {
				return
			}
			l.award(e.Account, ContributionPoints)
		},
	)
	l.subscribe(
		event.SuccessfulPayoutEventType,
		func(evt event.Event) {
			e, ok := evt.Data.(event.SuccessfulPayoutEvent)
			if !ok {
				return
			}
			l.award(e.Account, PayoutPoints)
		},
	)
}

// Stop unsubscribes from the event bus
func (l *Ledger) Stop() {
	for _, sub := range l.subIds {
		l.config.EventBus.Unsubscribe(sub.eventType, sub.subId)
	}
	l.subIds = nil
}

func (l *Ledger) subscribe(
	eventType event.EventType,
	handler event.EventHandlerFunc,
) {
	subId := l.config.EventBus.SubscribeFunc(eventType, handler)
	l.subIds = append(l.subIds, struct {
		eventType event.EventType
		subId     event.EventSubscriberId
	}{eventType: eventType, subId: subId})
}

// BadgeFor returns the badge earned at the given point total
func BadgeFor(points uint64) string {
	switch {
	case points >= GoldThreshold:
		return BadgeGold
	case points >= SilverThreshold:
		return BadgeSilver
	case points >= BronzeThreshold:
		return BadgeBronze
	default:
		return BadgeNone
	}
}

// award accrues points for an account, creating the account on first
// touch. Errors are logged, never propagated.
func (l *Ledger) award(account string, points uint64) {
	txn := l.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		return l.Award(account, points, txn)
	})
	if err != nil {
		l.logger.Warn(
			"failed to award reputation points",
			"account", account,
			"points", points,
			"error", err,
		)
	}
}

// Award accrues points for an account within an existing transaction and
// recomputes the badge tier
func (l *Ledger) Award(
	account string,
	points uint64,
	txn *database.Txn,
) error {
	rep, err := l.db.GetReputationAccount(account, txn)
	if err != nil {
		return err
	}
	if rep == nil {
		rep = &models.ReputationAccount{Address: account}
	}
	rep.Points += points
	prevBadge := rep.Badge
	rep.Badge = BadgeFor(rep.Points)
	if err := l.db.SetReputationAccount(rep, txn); err != nil {
		return err
	}
	if rep.Badge != prevBadge {
		l.logger.Info(
			"badge tier reached",
			"account", account,
			"badge", rep.Badge,
			"points", rep.Points,
		)
	}
	return nil
}

// Get returns the reputation account for an address
func (l *Ledger) Get(account string) (*models.ReputationAccount, error) {
	rep, err := l.db.GetReputationAccount(account, nil)
	if err != nil {
		return nil, err
	}
	if rep == nil {
		return nil, fmt.Errorf("%s: %w", account, ErrAccountNotFound)
	}
	return rep, nil
}
