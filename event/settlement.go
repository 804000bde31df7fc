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

package event

const (
	CampaignCreatedEventType   = EventType("campaign.created")
	CampaignCancelledEventType = EventType("campaign.cancelled")

	EscrowLockedEventType   = EventType("escrow.locked")
	EscrowReleasedEventType = EventType("escrow.released")
	EscrowRefundedEventType = EventType("escrow.refunded")

	ContributionSubmittedEventType = EventType("contribution.submitted")
	ContributionVerifiedEventType  = EventType("contribution.verified")
	RewardReleasedEventType        = EventType("reward.released")

	// Reputation events are fire-and-forget: the reputation ledger is a
	// best-effort collaborator and settlement never rolls back on its
	// account
	SuccessfulContributionEventType = EventType("reputation.contribution")
	SuccessfulPayoutEventType       = EventType("reputation.payout")
)

// CampaignCreatedEvent is emitted once a campaign and its escrow have been
// created and funded
type CampaignCreatedEvent struct {
	CampaignID  string
	Owner       string
	TotalBudget uint64
	UnitPrice   uint64
	Expiration  int64
}

// CampaignCancelledEvent is emitted when a campaign owner cancels an
// active campaign
type CampaignCancelledEvent struct {
	CampaignID string
	Owner      string
}

// EscrowLockedEvent is emitted when funds move from the campaign owner
// into escrow custody
type EscrowLockedEvent struct {
	CampaignID string
	Owner      string
	Amount     uint64
}

// EscrowReleasedEvent is emitted for each per-contribution reward release.
// Amount is the full unit reward; Fee is the platform's cut of it.
type EscrowReleasedEvent struct {
	CampaignID     string
	ContributionID string
	Contributor    string
	Amount         uint64
	Fee            uint64
}

// EscrowRefundedEvent is emitted when the remaining escrow balance is
// returned to the campaign owner
type EscrowRefundedEvent struct {
	CampaignID string
	Owner      string
	Amount     uint64
}

// ContributionSubmittedEvent is emitted for each accepted submission
type ContributionSubmittedEvent struct {
	CampaignID         string
	ContributionID     string
	Contributor        string
	QualityScore       uint8
	VerifierReputation uint8
	RewardReleased     bool
}

// ContributionVerifiedEvent is emitted when a pending contribution passes
// the decoupled verification flow
type ContributionVerifiedEvent struct {
	CampaignID     string
	ContributionID string
	QualityScore   uint8
}

// RewardReleasedEvent is emitted when a contribution's reward is settled
type RewardReleasedEvent struct {
	CampaignID     string
	ContributionID string
	Contributor    string
	Amount         uint64
}

// SuccessfulContributionEvent notifies the reputation ledger that an
// account's contribution settled successfully
type SuccessfulContributionEvent struct {
	Account string
}

// SuccessfulPayoutEvent notifies the reputation ledger that a campaign
// owner's escrow paid out a reward
type SuccessfulPayoutEvent struct {
	Account string
}
