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

package escrow_test

import (
	"testing"
	"time"

	"github.com/fluxpoint-io/corral/database"
	"github.com/fluxpoint-io/corral/database/models"
	"github.com/fluxpoint-io/corral/escrow"
	"github.com/fluxpoint-io/corral/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOwner    = "acct-owner"
	testPlatform = "acct-platform"
)

type vaultHarness struct {
	db       *database.Database
	currency *ledger.Ledger
	vault    *escrow.Vault
}

func testVault(t *testing.T) *vaultHarness {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	currency := ledger.NewLedger(ledger.LedgerConfig{Database: db})
	vault := escrow.NewVault(escrow.VaultConfig{
		Database:       db,
		Currency:       currency,
		PlatformWallet: testPlatform,
	})
	return &vaultHarness{db: db, currency: currency, vault: vault}
}

// addCampaign seeds a campaign record directly; these tests exercise the
// vault in isolation from the campaign ledger
func (h *vaultHarness) addCampaign(
	t *testing.T,
	campaignID string,
	expiration int64,
) {
	t.Helper()
	require.NoError(t, h.db.CreateCampaign(
		&models.Campaign{
			CampaignID:   campaignID,
			Owner:        testOwner,
			UnitPrice:    100,
			TotalBudget:  1000,
			MinDataCount: 1,
			MaxDataCount: 10,
			Expiration:   expiration,
			Active:       true,
		},
		nil,
	))
}

func (h *vaultHarness) create(
	t *testing.T,
	campaignID string,
	totalAmount, unitReward uint64,
	feeBps uint32,
) error {
	t.Helper()
	txn := h.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		return h.vault.Create(
			testOwner,
			campaignID,
			totalAmount,
			unitReward,
			feeBps,
			txn,
		)
	})
}

func (h *vaultHarness) release(
	t *testing.T,
	campaignID, contributionID, contributor string,
) (uint64, uint64, error) {
	t.Helper()
	var amount, fee uint64
	txn := h.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		var err error
		amount, fee, err = h.vault.Release(
			campaignID,
			contributionID,
			contributor,
			txn,
		)
		return err
	})
	return amount, fee, err
}

func (h *vaultHarness) balance(t *testing.T, account string) uint64 {
	t.Helper()
	balance, err := h.currency.BalanceOf(account, nil)
	require.NoError(t, err)
	return balance
}

func future() int64 {
	return time.Now().Add(time.Hour).Unix()
}

func TestFee(t *testing.T) {
	tests := []struct {
		amount uint64
		feeBps uint32
		want   uint64
	}{
		{amount: 1000, feeBps: 1000, want: 100},
		{amount: 100, feeBps: 250, want: 2},
		// Truncating division: 99 * 333 / 10000 = 3.2967 -> 3
		{amount: 99, feeBps: 333, want: 3},
		{amount: 1, feeBps: 9999, want: 0},
		{amount: 500, feeBps: 0, want: 0},
		{amount: 500, feeBps: 10000, want: 500},
		// Amounts whose product with feeBps exceeds 64 bits must not wrap
		{amount: 1 << 63, feeBps: 10000, want: 1 << 63},
		{amount: 1 << 63, feeBps: 9999, want: 9222449699651090330},
		{
			amount: 18000000000000000000,
			feeBps: 250,
			want:   450000000000000000,
		},
	}
	for _, tt := range tests {
		assert.Equal(
			t,
			tt.want,
			escrow.Fee(tt.amount, tt.feeBps),
			"Fee(%d, %d)", tt.amount, tt.feeBps,
		)
	}
}

func TestCreateLocksFunds(t *testing.T) {
	h := testVault(t)
	h.addCampaign(t, "camp-1", future())
	require.NoError(t, h.currency.Mint(testOwner, 1500, nil))

	require.NoError(t, h.create(t, "camp-1", 1000, 100, 1000))

	assert.Equal(t, uint64(500), h.balance(t, testOwner))
	assert.Equal(t, uint64(1000), h.balance(t, escrow.EscrowAccount("camp-1")))

	escrowRec, err := h.vault.GetEscrow("camp-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), escrowRec.TotalLocked)
	assert.Equal(t, uint64(0), escrowRec.TotalReleased)
	assert.Equal(t, uint64(100), escrowRec.UnitReward)
	assert.True(t, escrowRec.Active)
}

func TestCreateInsufficientFunds(t *testing.T) {
	h := testVault(t)
	h.addCampaign(t, "camp-1", future())
	require.NoError(t, h.currency.Mint(testOwner, 999, nil))

	err := h.create(t, "camp-1", 1000, 100, 0)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	// Rolled back: no escrow, balance untouched
	_, err = h.vault.GetEscrow("camp-1")
	require.ErrorIs(t, err, escrow.ErrEscrowNotFound)
	assert.Equal(t, uint64(999), h.balance(t, testOwner))
}

func TestCreateValidation(t *testing.T) {
	h := testVault(t)
	h.addCampaign(t, "camp-1", future())
	require.NoError(t, h.currency.Mint(testOwner, 5000, nil))

	// Zero unit reward
	err := h.create(t, "camp-1", 1000, 0, 0)
	require.ErrorIs(t, err, escrow.ErrInvalidArgument)
	// Total below unit reward
	err = h.create(t, "camp-1", 50, 100, 0)
	require.ErrorIs(t, err, escrow.ErrInvalidArgument)
	// Fee above 100%
	err = h.create(t, "camp-1", 1000, 100, 10001)
	require.ErrorIs(t, err, escrow.ErrInvalidArgument)
	// Unknown campaign
	err = h.create(t, "camp-unknown", 1000, 100, 0)
	require.ErrorIs(t, err, escrow.ErrCampaignNotFound)
}

func TestCreateExpiredCampaign(t *testing.T) {
	h := testVault(t)
	h.addCampaign(t, "camp-1", time.Now().Add(-time.Hour).Unix())
	require.NoError(t, h.currency.Mint(testOwner, 1000, nil))

	err := h.create(t, "camp-1", 1000, 100, 0)
	require.ErrorIs(t, err, escrow.ErrCampaignExpired)
}

func TestCreateDuplicate(t *testing.T) {
	h := testVault(t)
	h.addCampaign(t, "camp-1", future())
	require.NoError(t, h.currency.Mint(testOwner, 2000, nil))

	require.NoError(t, h.create(t, "camp-1", 1000, 100, 0))
	err := h.create(t, "camp-1", 1000, 100, 0)
	require.ErrorIs(t, err, escrow.ErrEscrowExists)
}

func TestReleaseSplitsFee(t *testing.T) {
	h := testVault(t)
	h.addCampaign(t, "camp-1", future())
	require.NoError(t, h.currency.Mint(testOwner, 1000, nil))
	require.NoError(t, h.create(t, "camp-1", 1000, 100, 1000))

	amount, fee, err := h.release(t, "camp-1", "contrib-1", "acct-carol")
	require.NoError(t, err)
	assert.Equal(t, uint64(90), amount)
	assert.Equal(t, uint64(10), fee)

	assert.Equal(t, uint64(90), h.balance(t, "acct-carol"))
	assert.Equal(t, uint64(10), h.balance(t, testPlatform))
	assert.Equal(t, uint64(900), h.balance(t, escrow.EscrowAccount("camp-1")))

	escrowRec, err := h.vault.GetEscrow("camp-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), escrowRec.TotalReleased)
	assert.Equal(t, uint64(900), escrowRec.Available())

	// Reward claim index written at release time
	claim, err := h.db.GetRewardClaim("contrib-1", nil)
	require.NoError(t, err)
	require.NotNil(t, claim)
	assert.Equal(t, uint64(100), claim.Amount)
	assert.True(t, claim.Claimed)
}

func TestReleaseDrainsEscrow(t *testing.T) {
	h := testVault(t)
	h.addCampaign(t, "camp-1", future())
	require.NoError(t, h.currency.Mint(testOwner, 250, nil))
	require.NoError(t, h.create(t, "camp-1", 250, 100, 0))

	_, _, err := h.release(t, "camp-1", "contrib-1", "acct-carol")
	require.NoError(t, err)
	_, _, err = h.release(t, "camp-1", "contrib-2", "acct-carol")
	require.NoError(t, err)

	// 50 left, below the 100 unit reward
	_, _, err = h.release(t, "camp-1", "contrib-3", "acct-carol")
	require.ErrorIs(t, err, escrow.ErrInsufficientBalance)

	// Balance check happened before any movement
	assert.Equal(t, uint64(200), h.balance(t, "acct-carol"))
	assert.Equal(t, uint64(50), h.balance(t, escrow.EscrowAccount("camp-1")))
}

func TestReleaseUnknownEscrow(t *testing.T) {
	h := testVault(t)
	_, _, err := h.release(t, "camp-unknown", "contrib-1", "acct-carol")
	require.ErrorIs(t, err, escrow.ErrEscrowNotFound)
}

func TestRefund(t *testing.T) {
	h := testVault(t)
	h.addCampaign(t, "camp-1", future())
	require.NoError(t, h.currency.Mint(testOwner, 1000, nil))
	require.NoError(t, h.create(t, "camp-1", 1000, 100, 1000))

	// One release, then close the window
	_, _, err := h.release(t, "camp-1", "contrib-1", "acct-carol")
	require.NoError(t, err)
	campaign, err := h.db.GetCampaign("camp-1", nil)
	require.NoError(t, err)
	campaign.Active = false
	require.NoError(t, h.db.UpdateCampaign(campaign, nil))

	refunded, err := h.vault.Refund(testOwner, "camp-1", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(900), refunded)

	// 1000 locked, 100 released (90 contributor / 10 platform), 900 back
	assert.Equal(t, uint64(900), h.balance(t, testOwner))
	assert.Equal(t, uint64(90), h.balance(t, "acct-carol"))
	assert.Equal(t, uint64(10), h.balance(t, testPlatform))
	assert.Equal(t, uint64(0), h.balance(t, escrow.EscrowAccount("camp-1")))

	escrowRec, err := h.vault.GetEscrow("camp-1")
	require.NoError(t, err)
	assert.False(t, escrowRec.Active)
	assert.Equal(t, uint64(0), escrowRec.Available())
}

func TestRefundWhileActive(t *testing.T) {
	h := testVault(t)
	h.addCampaign(t, "camp-1", future())
	require.NoError(t, h.currency.Mint(testOwner, 1000, nil))
	require.NoError(t, h.create(t, "camp-1", 1000, 100, 0))

	_, err := h.vault.Refund(testOwner, "camp-1", nil)
	require.ErrorIs(t, err, escrow.ErrInvalidState)
}

func TestRefundPermissions(t *testing.T) {
	h := testVault(t)
	h.addCampaign(t, "camp-1", future())
	require.NoError(t, h.currency.Mint(testOwner, 1000, nil))
	require.NoError(t, h.create(t, "camp-1", 1000, 100, 0))

	_, err := h.vault.Refund("acct-mallory", "camp-1", nil)
	require.ErrorIs(t, err, escrow.ErrPermissionDenied)
}

func TestRefundTwice(t *testing.T) {
	h := testVault(t)
	h.addCampaign(t, "camp-1", time.Now().Add(time.Minute).Unix())
	require.NoError(t, h.currency.Mint(testOwner, 1000, nil))
	require.NoError(t, h.create(t, "camp-1", 1000, 100, 0))

	campaign, err := h.db.GetCampaign("camp-1", nil)
	require.NoError(t, err)
	campaign.Active = false
	require.NoError(t, h.db.UpdateCampaign(campaign, nil))

	_, err = h.vault.Refund(testOwner, "camp-1", nil)
	require.NoError(t, err)
	_, err = h.vault.Refund(testOwner, "camp-1", nil)
	require.ErrorIs(t, err, escrow.ErrInvalidState)
}

func TestReleaseAfterRefund(t *testing.T) {
	h := testVault(t)
	h.addCampaign(t, "camp-1", future())
	require.NoError(t, h.currency.Mint(testOwner, 1000, nil))
	require.NoError(t, h.create(t, "camp-1", 1000, 100, 0))

	campaign, err := h.db.GetCampaign("camp-1", nil)
	require.NoError(t, err)
	campaign.Active = false
	require.NoError(t, h.db.UpdateCampaign(campaign, nil))
	_, err = h.vault.Refund(testOwner, "camp-1", nil)
	require.NoError(t, err)

	_, _, err = h.release(t, "camp-1", "contrib-1", "acct-carol")
	require.ErrorIs(t, err, escrow.ErrCampaignExpired)
}
