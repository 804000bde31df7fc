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

// Campaign is a funded request for data contributions with a budget,
// per-contribution price, and capacity/time bounds
type Campaign struct {
	ID                 uint   `gorm:"primarykey"`
	CampaignID         string `gorm:"uniqueIndex"`
	Owner              string `gorm:"index"`
	Title              string
	Description        string
	UnitPrice          uint64
	TotalBudget        uint64
	MinDataCount       uint64
	MaxDataCount       uint64
	Expiration         int64 `gorm:"index"`
	Active             bool  `gorm:"default:true"`
	TotalContributions uint64
	EscrowSetup        bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (c *Campaign) TableName() string {
	return "campaign"
}

// InWindow returns true when the campaign is accepting contributions at
// the given unix time
func (c *Campaign) InWindow(now int64) bool {
	return c.Active && now <= c.Expiration
}
