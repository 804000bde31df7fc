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

// Package corral assembles the data-marketplace settlement engine: the
// campaign ledger, escrow vault, verifier registry, contribution ledger,
// and reputation ledger, wired over a shared database and event bus.
package corral

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fluxpoint-io/corral/campaign"
	"github.com/fluxpoint-io/corral/contribution"
	"github.com/fluxpoint-io/corral/database"
	"github.com/fluxpoint-io/corral/escrow"
	"github.com/fluxpoint-io/corral/event"
	"github.com/fluxpoint-io/corral/internal/keyedlock"
	"github.com/fluxpoint-io/corral/ledger"
	"github.com/fluxpoint-io/corral/registry"
	"github.com/fluxpoint-io/corral/reputation"
)

type Engine struct {
	config        Config
	eventBus      *event.EventBus
	db            *database.Database
	ledger        *ledger.Ledger
	registry      *registry.Registry
	campaigns     *campaign.Ledger
	vault         *escrow.Vault
	contributions *contribution.Ledger
	reputation    *reputation.Ledger
	locks         *keyedlock.KeyedLock
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Engine, error) {
	e := &Engine{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		locks:    keyedlock.New(),
		done:     make(chan struct{}),
	}
	if err := e.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return e, nil
}

// Run assembles the engine components and blocks until Stop is called
func (e *Engine) Run() error {
	if err := e.Start(); err != nil {
		return err
	}
	// Wait for shutdown signal
	<-e.done
	return nil
}

// Start assembles the engine components without blocking
func (e *Engine) Start() error {
	db, err := database.New(&database.Config{
		Logger:  e.config.logger,
		DataDir: e.config.dataDir,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	e.db = db
	e.ledger = ledger.NewLedger(ledger.LedgerConfig{
		Logger:   e.config.logger,
		Database: e.db,
		Symbol:   e.config.currencySymbol,
		Decimals: e.config.currencyDecimal,
	})
	e.registry = registry.NewRegistry(registry.RegistryConfig{
		Logger:   e.config.logger,
		Database: e.db,
		Admin:    e.config.admin,
	})
	e.vault = escrow.NewVault(escrow.VaultConfig{
		PromRegistry:   e.config.promRegistry,
		Logger:         e.config.logger,
		Database:       e.db,
		Currency:       e.ledger,
		EventBus:       e.eventBus,
		Locks:          e.locks,
		PlatformWallet: e.config.platformWallet,
	})
	e.campaigns = campaign.NewLedger(campaign.LedgerConfig{
		Logger:   e.config.logger,
		Database: e.db,
		EventBus: e.eventBus,
		Vault:    e.vault,
		Locks:    e.locks,
	})
	e.contributions = contribution.NewLedger(contribution.LedgerConfig{
		PromRegistry:    e.config.promRegistry,
		Logger:          e.config.logger,
		Database:        e.db,
		EventBus:        e.eventBus,
		Registry:        e.registry,
		Campaigns:       e.campaigns,
		Vault:           e.vault,
		Locks:           e.locks,
		RewardThreshold: e.config.rewardThreshold,
	})
	e.reputation = reputation.NewLedger(reputation.LedgerConfig{
		Logger:   e.config.logger,
		Database: e.db,
		EventBus: e.eventBus,
	})
	e.reputation.Start()
	return nil
}

func (e *Engine) Stop() error {
	var err error
	e.shutdownOnce.Do(func() {
		err = e.shutdown()
	})
	return err
}

func (e *Engine) shutdown() error {
	shutdownTimeout := 30 * time.Second
	if e.config.shutdownTimeout > 0 {
		shutdownTimeout = e.config.shutdownTimeout
	}
	var err error
	e.config.logger.Debug("starting graceful shutdown")
	// Stop event consumers before the bus so no handler fires mid-teardown
	if e.reputation != nil {
		e.reputation.Stop()
	}
	if e.eventBus != nil {
		e.eventBus.Stop()
	}
	// Close the database last so in-flight handlers could still read
	if e.db != nil {
		closed := make(chan error, 1)
		go func() {
			closed <- e.db.Close()
		}()
		select {
		case closeErr := <-closed:
			if closeErr != nil {
				err = errors.Join(
					err,
					fmt.Errorf("database close: %w", closeErr),
				)
			}
		case <-time.After(shutdownTimeout):
			err = errors.Join(err, errors.New("database close timed out"))
		}
	}
	e.config.logger.Debug("graceful shutdown complete")
	close(e.done)
	return err
}

// Database returns the underlying database
func (e *Engine) Database() *database.Database {
	return e.db
}

// EventBus returns the engine's event bus
func (e *Engine) EventBus() *event.EventBus {
	return e.eventBus
}

// Ledger returns the internal settlement currency ledger
func (e *Engine) Ledger() *ledger.Ledger {
	return e.ledger
}

// Registry returns the verifier registry
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Campaigns returns the campaign ledger
func (e *Engine) Campaigns() *campaign.Ledger {
	return e.campaigns
}

// Vault returns the escrow vault
func (e *Engine) Vault() *escrow.Vault {
	return e.vault
}

// Contributions returns the contribution ledger
func (e *Engine) Contributions() *contribution.Ledger {
	return e.contributions
}

// Reputation returns the reputation ledger
func (e *Engine) Reputation() *reputation.Ledger {
	return e.reputation
}
