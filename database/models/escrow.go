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

// Escrow holds the locked funds for a single campaign. TotalReleased never
// exceeds TotalLocked; the difference is the available balance.
type Escrow struct {
	ID             uint   `gorm:"primarykey"`
	CampaignID     string `gorm:"uniqueIndex"`
	Owner          string `gorm:"index"`
	TotalLocked    uint64
	TotalReleased  uint64
	UnitReward     uint64
	PlatformFeeBps uint32
	Active         bool `gorm:"default:true"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (e *Escrow) TableName() string {
	return "escrow"
}

// Available returns the remaining spendable balance
func (e *Escrow) Available() uint64 {
	if e.TotalReleased > e.TotalLocked {
		// Invariant violation; treat as drained rather than wrap around
		return 0
	}
	return e.TotalLocked - e.TotalReleased
}
