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

// RewardClaim is a secondary index of per-contribution reward payouts. The
// authoritative exactly-once flag is Contribution.RewardReleased; claims
// exist for off-chain reconciliation and are written at release time.
type RewardClaim struct {
	ID             uint   `gorm:"primarykey"`
	CampaignID     string `gorm:"index"`
	ContributionID string `gorm:"uniqueIndex"`
	Amount         uint64
	Claimed        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r *RewardClaim) TableName() string {
	return "reward_claim"
}
