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

// VerifierKey is a registered signing key authorized to attest contribution
// quality. Keys are soft-deleted (Active=false) so verification history is
// preserved. The auto-increment ID doubles as registration order, which the
// registry relies on for first-match-wins signature scanning.
type VerifierKey struct {
	ID                 uint   `gorm:"primarykey"`
	KeyID              string `gorm:"uniqueIndex"`
	PublicKey          []byte `gorm:"size:32"`
	ReputationScore    uint8
	TotalVerifications uint64
	Active             bool  `gorm:"default:true"`
	LastActive         int64 `gorm:"index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (v *VerifierKey) TableName() string {
	return "verifier_key"
}
