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

// GetContribution returns the contribution with the given ID, or nil if
// unknown. Contribution IDs are globally unique, not per-campaign.
func (d *Database) GetContribution(
	contributionID string,
	txn *Txn,
) (*models.Contribution, error) {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	ret := &models.Contribution{}
	result := db.Where("contribution_id = ?", contributionID).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// CreateContribution saves a new contribution record
func (d *Database) CreateContribution(
	contribution *models.Contribution,
	txn *Txn,
) error {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	if err := db.Create(contribution).Error; err != nil {
		return fmt.Errorf("failed to create contribution: %w", err)
	}
	return nil
}

// UpdateContribution saves changes to an existing contribution record
func (d *Database) UpdateContribution(
	contribution *models.Contribution,
	txn *Txn,
) error {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	if err := db.Save(contribution).Error; err != nil {
		return fmt.Errorf("failed to update contribution: %w", err)
	}
	return nil
}

// ListContributionsByCampaign returns all contributions recorded against
// the given campaign in submission order
func (d *Database) ListContributionsByCampaign(
	campaignID string,
	txn *Txn,
) ([]models.Contribution, error) {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	ret := []models.Contribution{}
	result := db.Where("campaign_id = ?", campaignID).Order("id").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
