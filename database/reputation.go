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

// GetReputationAccount returns the reputation record for the given
// address, or nil if the address has never earned points
func (d *Database) GetReputationAccount(
	address string,
	txn *Txn,
) (*models.ReputationAccount, error) {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	ret := &models.ReputationAccount{}
	result := db.Where("address = ?", address).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// SetReputationAccount creates or updates a reputation record
func (d *Database) SetReputationAccount(
	account *models.ReputationAccount,
	txn *Txn,
) error {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	if account.ID == 0 {
		existing := &models.ReputationAccount{}
		result := db.Where("address = ?", account.Address).First(existing)
		if result.Error != nil {
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return result.Error
			}
			if err := db.Create(account).Error; err != nil {
				return fmt.Errorf(
					"failed to create reputation account: %w",
					err,
				)
			}
			return nil
		}
		account.ID = existing.ID
	}
	if err := db.Save(account).Error; err != nil {
		return fmt.Errorf("failed to update reputation account: %w", err)
	}
	return nil
}
