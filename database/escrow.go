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

// GetEscrow returns the escrow for the given campaign, or nil if unknown
func (d *Database) GetEscrow(
	campaignID string,
	txn *Txn,
) (*models.Escrow, error) {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	ret := &models.Escrow{}
	result := db.Where("campaign_id = ?", campaignID).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// CreateEscrow saves a new escrow record
func (d *Database) CreateEscrow(
	escrow *models.Escrow,
	txn *Txn,
) error {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	if err := db.Create(escrow).Error; err != nil {
		return fmt.Errorf("failed to create escrow: %w", err)
	}
	return nil
}

// UpdateEscrow saves changes to an existing escrow record
func (d *Database) UpdateEscrow(
	escrow *models.Escrow,
	txn *Txn,
) error {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	if err := db.Save(escrow).Error; err != nil {
		return fmt.Errorf("failed to update escrow: %w", err)
	}
	return nil
}
