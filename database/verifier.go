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

// GetVerifierKey returns the verifier key with the given ID, or nil if
// unknown
func (d *Database) GetVerifierKey(
	keyID string,
	txn *Txn,
) (*models.VerifierKey, error) {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	ret := &models.VerifierKey{}
	result := db.Where("key_id = ?", keyID).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// CreateVerifierKey saves a new verifier key record
func (d *Database) CreateVerifierKey(
	key *models.VerifierKey,
	txn *Txn,
) error {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	if err := db.Create(key).Error; err != nil {
		return fmt.Errorf("failed to create verifier key: %w", err)
	}
	return nil
}

// UpdateVerifierKey saves changes to an existing verifier key record
func (d *Database) UpdateVerifierKey(
	key *models.VerifierKey,
	txn *Txn,
) error {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	if err := db.Save(key).Error; err != nil {
		return fmt.Errorf("failed to update verifier key: %w", err)
	}
	return nil
}

// ListActiveVerifierKeys returns all active verifier keys in registration
// order. The registry depends on this ordering for first-match-wins
// signature scanning.
func (d *Database) ListActiveVerifierKeys(
	txn *Txn,
) ([]models.VerifierKey, error) {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	ret := []models.VerifierKey{}
	result := db.Where("active = ?", true).Order("id").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
