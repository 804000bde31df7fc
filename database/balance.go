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

package database

import (
	"errors"
	"fmt"

	"github.com/fluxpoint-io/corral/database/models"

	"gorm.io/gorm"
)

// GetAccountBalance returns the balance record for the given address, or
// nil if the account has never held funds
func (d *Database) GetAccountBalance(
	address string,
	txn *Txn,
) (*models.AccountBalance, error) {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	ret := &models.AccountBalance{}
	result := db.Where("address = ?", address).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// SetAccountBalance creates or updates the balance record for an address
func (d *Database) SetAccountBalance(
	address string,
	balance uint64,
	txn *Txn,
) error {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	account := &models.AccountBalance{}
	result := db.Where("address = ?", address).First(account)
	if result.Error != nil {
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
		account.Address = address
		account.Balance = balance
		if err := db.Create(account).Error; err != nil {
			return fmt.Errorf("failed to create account balance: %w", err)
		}
		return nil
	}
	account.Balance = balance
	if err := db.Save(account).Error; err != nil {
		return fmt.Errorf("failed to update account balance: %w", err)
	}
	return nil
}
