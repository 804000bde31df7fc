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

package models

import "time"

// AccountBalance is a single account in the internal settlement ledger.
// Balances are unsigned integers in the currency's smallest unit.
type AccountBalance struct {
	ID        uint   `gorm:"primarykey"`
	Address   string `gorm:"uniqueIndex"`
	Balance   uint64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a *AccountBalance) TableName() string {
	return "account_balance"
}

// ReputationAccount tracks reputation points and the derived badge for a
// marketplace participant
type ReputationAccount struct {
	ID        uint   `gorm:"primarykey"`
	Address   string `gorm:"uniqueIndex"`
	Points    uint64
	Badge     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r *ReputationAccount) TableName() string {
	return "reputation_account"
}
