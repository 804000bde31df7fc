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

// Contribution is a single submitted data contribution. ContributionID is
// globally unique across all campaigns. RewardReleased implies Verified and
// is never unset once written.
type Contribution struct {
	ID                 uint   `gorm:"primarykey"`
	ContributionID     string `gorm:"uniqueIndex"`
	CampaignID         string `gorm:"index"`
	Contributor        string `gorm:"index"`
	DataURL            string
	DataHash           []byte
	Timestamp          int64
	VerifierReputation uint8
	QualityScore       uint8
	Verified           bool
	RewardReleased     bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (c *Contribution) TableName() string {
	return "contribution"
}
