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

// GetCampaign returns the campaign with the given ID, or nil if unknown
func (d *Database) GetCampaign(
	campaignID string,
	txn *Txn,
) (*models.Campaign, error) {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	ret := &models.Campaign{}
	result := db.Where("campaign_id = ?", campaignID).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// CreateCampaign saves a new campaign record
func (d *Database) CreateCampaign(
	campaign *models.Campaign,
	txn *Txn,
) error {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	if err := db.Create(campaign).Error; err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

// UpdateCampaign saves changes to an existing campaign record
func (d *Database) UpdateCampaign(
	campaign *models.Campaign,
	txn *Txn,
) error {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	if err := db.Save(campaign).Error; err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	return nil
}

// ListCampaignsByOwner returns all campaigns created by the given owner
func (d *Database) ListCampaignsByOwner(
	owner string,
	txn *Txn,
) ([]models.Campaign, error) {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	ret := []models.Campaign{}
	result := db.Where("owner = ?", owner).Order("id").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
