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

package corral_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	corral "github.com/fluxpoint-io/corral"
	"github.com/fluxpoint-io/corral/campaign"
	"github.com/fluxpoint-io/corral/contribution"
	"github.com/fluxpoint-io/corral/registry"
	"github.com/fluxpoint-io/corral/reputation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func testEngine(t *testing.T) *corral.Engine {
	t.Helper()
	engine, err := corral.New(corral.NewConfig(
		corral.WithAdmin("acct-admin"),
		corral.WithPlatformWallet("acct-platform"),
		corral.WithPrometheusRegistry(prometheus.NewRegistry()),
		corral.WithShutdownTimeout(10*time.Second),
	))
	require.NoError(t, err)
	require.NoError(t, engine.Start())
	t.Cleanup(func() { engine.Stop() })
	return engine
}

func TestEngineStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	engine := testEngine(t)
	require.NotNil(t, engine.Database())
	require.NotNil(t, engine.Ledger())
	require.NotNil(t, engine.Registry())
	require.NotNil(t, engine.Campaigns())
	require.NotNil(t, engine.Vault())
	require.NotNil(t, engine.Contributions())
	require.NotNil(t, engine.Reputation())
	require.NoError(t, engine.Stop())
	// Stop is idempotent
	require.NoError(t, engine.Stop())
}

func TestEngineSettlementFlow(t *testing.T) {
	defer goleak.VerifyNone(t)
	engine := testEngine(t)

	// Register a verifier key under the admin account
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	require.NoError(
		t,
		engine.Registry().AddVerifier("acct-admin", "key-1", pub),
	)

	// Fund the campaign owner and open a campaign
	require.NoError(t, engine.Ledger().Mint("acct-owner", 1000, nil))
	require.NoError(
		t,
		engine.Campaigns().Create("acct-owner", campaign.CreateParams{
			CampaignID:     "camp-1",
			Title:          "sensor readings",
			UnitPrice:      100,
			TotalBudget:    1000,
			MinDataCount:   1,
			MaxDataCount:   10,
			Expiration:     time.Now().Add(time.Hour).Unix(),
			PlatformFeeBps: 1000,
		}),
	)

	// Submit a signed contribution that clears the reward threshold
	dataHash := make([]byte, 32)
	dataURL := "https://data.example.com/batch-1"
	sig := ed25519.Sign(
		priv,
		registry.MessageDigest(
			registry.ContributionMessage("camp-1", dataHash, dataURL, 80),
		),
	)
	contrib, err := engine.Contributions().Submit(
		"acct-carol",
		contribution.SubmitParams{
			CampaignID:     "camp-1",
			ContributionID: "contrib-1",
			DataURL:        dataURL,
			DataHash:       dataHash,
			Signature:      sig,
			QualityScore:   80,
		},
	)
	require.NoError(t, err)
	assert.True(t, contrib.Verified)
	assert.True(t, contrib.RewardReleased)

	// Reward split: 100 unit price, 10% platform fee
	carol, err := engine.Ledger().BalanceOf("acct-carol", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), carol)
	platform, err := engine.Ledger().BalanceOf("acct-platform", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), platform)

	// The audit log recorded the submission
	records, err := engine.Database().GetAuditRecords(1, 10)
	require.NoError(t, err)
	require.NotEmpty(t, records)

	// Reputation accrues asynchronously off the event bus
	require.Eventually(
		t,
		func() bool {
			carol, err := engine.Reputation().Get("acct-carol")
			if err != nil {
				return false
			}
			owner, err := engine.Reputation().Get("acct-owner")
			if err != nil {
				return false
			}
			return carol.Points == reputation.ContributionPoints &&
				owner.Points == reputation.PayoutPoints
		},
		5*time.Second,
		10*time.Millisecond,
	)

	require.NoError(t, engine.Stop())
}
