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

package ledger_test

import (
	"math"
	"testing"

	"github.com/fluxpoint-io/corral/database"
	"github.com/fluxpoint-io/corral/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLedger(t *testing.T) (*ledger.Ledger, *database.Database) {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	l := ledger.NewLedger(ledger.LedgerConfig{
		Database: db,
	})
	return l, db
}

func TestLedgerDefaults(t *testing.T) {
	l, _ := testLedger(t)
	assert.Equal(t, "CRL", l.Symbol())
	assert.Equal(t, 6, l.Decimals())
}

func TestBalanceOfUnknownAccount(t *testing.T) {
	l, _ := testLedger(t)
	balance, err := l.BalanceOf("nobody", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
}

func TestMintAndTransfer(t *testing.T) {
	l, _ := testLedger(t)
	require.NoError(t, l.Mint("alice", 1000, nil))

	err := l.Transfer("alice", "bob", 400, nil)
	require.NoError(t, err)

	aliceBalance, err := l.BalanceOf("alice", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(600), aliceBalance)

	bobBalance, err := l.BalanceOf("bob", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), bobBalance)
}

func TestTransferInsufficientFunds(t *testing.T) {
	l, _ := testLedger(t)
	require.NoError(t, l.Mint("alice", 100, nil))

	err := l.Transfer("alice", "bob", 101, nil)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	// Nothing moved
	aliceBalance, err := l.BalanceOf("alice", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), aliceBalance)
	bobBalance, err := l.BalanceOf("bob", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bobBalance)
}

func TestTransferInvalidAmounts(t *testing.T) {
	l, _ := testLedger(t)
	require.NoError(t, l.Mint("alice", 100, nil))

	err := l.Transfer("alice", "bob", 0, nil)
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)

	err = l.Transfer("alice", "alice", 10, nil)
	require.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestTransferOverflow(t *testing.T) {
	l, _ := testLedger(t)
	require.NoError(t, l.Mint("alice", 10, nil))
	require.NoError(t, l.Mint("bob", math.MaxUint64-5, nil))

	err := l.Transfer("alice", "bob", 10, nil)
	require.ErrorIs(t, err, ledger.ErrBalanceOverflow)
}

func TestMintOverflow(t *testing.T) {
	l, _ := testLedger(t)
	require.NoError(t, l.Mint("alice", math.MaxUint64-1, nil))
	err := l.Mint("alice", 2, nil)
	require.ErrorIs(t, err, ledger.ErrBalanceOverflow)
}

func TestTransferInsideTransactionRollback(t *testing.T) {
	l, db := testLedger(t)
	require.NoError(t, l.Mint("alice", 100, nil))

	txn := db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		if err := l.Transfer("alice", "bob", 50, txn); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	// Rolled back transfer is invisible
	aliceBalance, err := l.BalanceOf("alice", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), aliceBalance)
}
