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

// GetRewardClaim returns the reward claim for the given contribution, or
// nil if none has been recorded
func (d *Database) GetRewardClaim(
	contributionID string,
	txn *Txn,
) (*models.RewardClaim, error) {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	ret := &models.RewardClaim{}
	result := db.Where("contribution_id = ?", contributionID).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// CreateRewardClaim saves a new reward claim record
func (d *Database) CreateRewardClaim(
	claim *models.RewardClaim,
	txn *Txn,
) error {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	if err := db.Create(claim).Error; err != nil {
		return fmt.Errorf("failed to create reward claim: %w", err)
	}
	return nil
}

// ListRewardClaimsByCampaign returns all reward claims recorded against
// the given campaign in release order
func (d *Database) ListRewardClaimsByCampaign(
	campaignID string,
	txn *Txn,
) ([]models.RewardClaim, error) {
	db := d.metadata
	if txn != nil {
		db = txn.Metadata()
	}
	ret := []models.RewardClaim{}
	result := db.Where("campaign_id = ?", campaignID).Order("id").Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
