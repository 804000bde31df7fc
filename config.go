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

package corral

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	dataDir         string
	admin           string
	platformWallet  string
	currencySymbol  string
	currencyDecimal int
	rewardThreshold uint8
	shutdownTimeout time.Duration
}

func (e *Engine) configValidate() error {
	if e.config.admin == "" {
		return errors.New("no admin account defined")
	}
	if e.config.platformWallet == "" {
		return errors.New("no platform wallet defined")
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the Engine config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new corral config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithAdmin specifies the account allowed to manage the verifier registry
func WithAdmin(admin string) ConfigOptionFunc {
	return func(c *Config) {
		c.admin = admin
	}
}

// WithPlatformWallet specifies the account that collects platform fees
func WithPlatformWallet(wallet string) ConfigOptionFunc {
	return func(c *Config) {
		c.platformWallet = wallet
	}
}

// WithCurrency specifies the symbol and decimal places of the settlement
// currency. The defaults are "CRL" with 6 decimals
func WithCurrency(symbol string, decimals int) ConfigOptionFunc {
	return func(c *Config) {
		c.currencySymbol = symbol
		c.currencyDecimal = decimals
	}
}

// WithRewardThreshold specifies the minimum verifier reputation and
// quality score required for automatic reward release. The default is 70
func WithRewardThreshold(threshold uint8) ConfigOptionFunc {
	return func(c *Config) {
		c.rewardThreshold = threshold
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
