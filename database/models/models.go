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

// Package models contains the persistent record types for the settlement
// engine metadata store
package models

// MigrateModels is the list of record types automatically migrated on
// database startup
var MigrateModels = []any{
	&Campaign{},
	&Escrow{},
	&VerifierKey{},
	&Contribution{},
	&RewardClaim{},
	&AccountBalance{},
	&ReputationAccount{},
}
