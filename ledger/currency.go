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

// Package ledger provides the settlement currency capability consumed by
// the escrow vault. The engine is agnostic to the concrete asset: anything
// that can transfer between accounts and report balances will do.
package ledger

import (
	"errors"

	"github.com/fluxpoint-io/corral/database"
)

// Common errors returned by Currency implementations
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrBalanceOverflow   = errors.New("balance overflow")
)

// Currency is the capability object for a settlement asset. All amounts
// are unsigned integers in the asset's smallest unit. Implementations must
// honor the supplied transaction so a failed operation rolls back any
// balance movement.
type Currency interface {
	// Symbol returns the asset's ticker symbol
	Symbol() string
	// Decimals returns the asset's precision
	Decimals() int
	// Transfer moves amount from one account to another. Returns
	// ErrInsufficientFunds when the source account cannot cover it.
	Transfer(from, to string, amount uint64, txn *database.Txn) error
	// BalanceOf returns the current balance of the given account
	BalanceOf(address string, txn *database.Txn) (uint64, error)
}
