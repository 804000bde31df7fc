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

package reputation_test

import (
	"errors"
	"testing"
	"time"

	"github.com/fluxpoint-io/corral/database"
	"github.com/fluxpoint-io/corral/event"
	"github.com/fluxpoint-io/corral/reputation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repHarness struct {
	db  *database.Database
	bus *event.EventBus
	rep *reputation.Ledger
}

func newRepHarness(t *testing.T) *repHarness {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	bus := event.NewEventBus(nil, nil)
	t.Cleanup(bus.Stop)
	rep := reputation.NewLedger(
		reputation.LedgerConfig{
			Database: db,
			EventBus: bus,
		},
	)
	return &repHarness{db: db, bus: bus, rep: rep}
}

func TestBadgeFor(t *testing.T) {
	testDefs := []struct {
		points uint64
		badge  string
	}{
		{0, reputation.BadgeNone},
		{99, reputation.BadgeNone},
		{100, reputation.BadgeBronze},
		{499, reputation.BadgeBronze},
		{500, reputation.BadgeSilver},
		{2499, reputation.BadgeSilver},
		{2500, reputation.BadgeGold},
		{1000000, reputation.BadgeGold},
	}
	for _, testDef := range testDefs {
		assert.Equal(
			t,
			testDef.badge,
			reputation.BadgeFor(testDef.points),
			"points=%d",
			testDef.points,
		)
	}
}

func TestAwardCreatesAccount(t *testing.T) {
	h := newRepHarness(t)

	txn := h.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		return h.rep.Award("acct-carol", reputation.ContributionPoints, txn)
	})
	require.NoError(t, err)

	acct, err := h.rep.Get("acct-carol")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), acct.Points)
	assert.Equal(t, reputation.BadgeNone, acct.Badge)
}

func TestAwardBadgeTransition(t *testing.T) {
	h := newRepHarness(t)

	// Nine contributions leave the account just under bronze
	for i := 0; i < 9; i++ {
		txn := h.db.Transaction(true)
		err := txn.Do(func(txn *database.Txn) error {
			return h.rep.Award(
				"acct-carol",
				reputation.ContributionPoints,
				txn,
			)
		})
		require.NoError(t, err)
	}
	acct, err := h.rep.Get("acct-carol")
	require.NoError(t, err)
	assert.Equal(t, uint64(90), acct.Points)
	assert.Equal(t, reputation.BadgeNone, acct.Badge)

	// The tenth crosses the bronze threshold
	txn := h.db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		return h.rep.Award("acct-carol", reputation.ContributionPoints, txn)
	})
	require.NoError(t, err)

	acct, err = h.rep.Get("acct-carol")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), acct.Points)
	assert.Equal(t, reputation.BadgeBronze, acct.Badge)
}

func TestGetUnknownAccount(t *testing.T) {
	h := newRepHarness(t)

	_, err := h.rep.Get("acct-nobody")
	assert.True(t, errors.Is(err, reputation.ErrAccountNotFound))
}

func TestEventDrivenAwards(t *testing.T) {
	h := newRepHarness(t)
	h.rep.Start()
	defer h.rep.Stop()

	h.bus.Publish(
		event.SuccessfulContributionEventType,
		event.NewEvent(
			event.SuccessfulContributionEventType,
			event.SuccessfulContributionEvent{Account: "acct-carol"},
		),
	)
	h.bus.Publish(
		event.SuccessfulPayoutEventType,
		event.NewEvent(
			event.SuccessfulPayoutEventType,
			event.SuccessfulPayoutEvent{Account: "acct-owner"},
		),
	)

	// Handlers run on the subscriber goroutine
	require.Eventually(
		t,
		func() bool {
			carol, err := h.rep.Get("acct-carol")
			if err != nil {
				return false
			}
			owner, err := h.rep.Get("acct-owner")
			if err != nil {
				return false
			}
			return carol.Points == reputation.ContributionPoints &&
				owner.Points == reputation.PayoutPoints
		},
		5*time.Second,
		10*time.Millisecond,
	)
}

func TestStopHaltsAwards(t *testing.T) {
	h := newRepHarness(t)
	h.rep.Start()
	h.rep.Stop()

	h.bus.Publish(
		event.SuccessfulContributionEventType,
		event.NewEvent(
			event.SuccessfulContributionEventType,
			event.SuccessfulContributionEvent{Account: "acct-carol"},
		),
	)

	// Give any stray handler a moment to run
	time.Sleep(50 * time.Millisecond)
	_, err := h.rep.Get("acct-carol")
	assert.True(t, errors.Is(err, reputation.ErrAccountNotFound))
}
