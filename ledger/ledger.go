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

package ledger

import (
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/fluxpoint-io/corral/database"
)

const (
	defaultSymbol   = "CRL"
	defaultDecimals = 6
)

type LedgerConfig struct {
	Logger   *slog.Logger
	Database *database.Database
	Symbol   string
	Decimals int
}

// Ledger is the database-backed Currency implementation used for internal
// settlement. All arithmetic is checked; balances never wrap around.
type Ledger struct {
	config LedgerConfig
	logger *slog.Logger
	db     *database.Database
}

func NewLedger(cfg LedgerConfig) *Ledger {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Symbol == "" {
		cfg.Symbol = defaultSymbol
	}
	if cfg.Decimals == 0 {
		cfg.Decimals = defaultDecimals
	}
	return &Ledger{
		config: cfg,
		logger: cfg.Logger.With("component", "ledger"),
		db:     cfg.Database,
	}
}

func (l *Ledger) Symbol() string {
	return l.config.Symbol
}

func (l *Ledger) Decimals() int {
	return l.config.Decimals
}

// BalanceOf returns the balance of the given account. Accounts that have
// never held funds report zero.
func (l *Ledger) BalanceOf(
	address string,
	txn *database.Txn,
) (uint64, error) {
	account, err := l.db.GetAccountBalance(address, txn)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, nil
	}
	return account.Balance, nil
}

// Transfer moves amount between accounts with checked arithmetic
func (l *Ledger) Transfer(
	from, to string,
	amount uint64,
	txn *database.Txn,
) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	if from == to {
		return fmt.Errorf("%w: self transfer", ErrInvalidAmount)
	}
	fromBalance, err := l.BalanceOf(from, txn)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return fmt.Errorf("%s: %w", from, ErrInsufficientFunds)
	}
	toBalance, err := l.BalanceOf(to, txn)
	if err != nil {
		return err
	}
	if toBalance > math.MaxUint64-amount {
		return fmt.Errorf("%s: %w", to, ErrBalanceOverflow)
	}
	if err := l.db.SetAccountBalance(from, fromBalance-amount, txn); err != nil {
		return err
	}
	if err := l.db.SetAccountBalance(to, toBalance+amount, txn); err != nil {
		return err
	}
	l.logger.Debug(
		"transferred funds",
		"from", from,
		"to", to,
		"amount", amount,
	)
	return nil
}

// Mint credits newly issued funds to an account. Used to fund accounts
// from external deposits; the settlement core itself only ever transfers.
func (l *Ledger) Mint(
	to string,
	amount uint64,
	txn *database.Txn,
) error {
	if amount == 0 {
		return ErrInvalidAmount
	}
	balance, err := l.BalanceOf(to, txn)
	if err != nil {
		return err
	}
	if balance > math.MaxUint64-amount {
		return fmt.Errorf("%s: %w", to, ErrBalanceOverflow)
	}
	return l.db.SetAccountBalance(to, balance+amount, txn)
}
