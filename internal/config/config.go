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

// Package config handles daemon configuration for the corral binary. Values
// come from defaults, then an optional YAML file, then CORRAL_* environment
// variables, each layer overriding the last.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "corral.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	DatabasePath     string `yaml:"databasePath"                  split_words:"true"`
	Admin            string `yaml:"admin"`
	PlatformWallet   string `yaml:"platformWallet"                split_words:"true"`
	CurrencySymbol   string `yaml:"currencySymbol"                split_words:"true"`
	ShutdownTimeout  string `yaml:"shutdownTimeout"               split_words:"true"`
	MetricsBindAddr  string `yaml:"metricsBindAddr"               split_words:"true"`
	CurrencyDecimals int    `yaml:"currencyDecimals"              split_words:"true"`
	MetricsPort      uint   `yaml:"metricsPort"                   split_words:"true"`
	RewardThreshold  uint8  `yaml:"rewardThreshold"               split_words:"true"`
}

var globalConfig = &Config{
	DatabasePath:     ".corral",
	Admin:            "",
	PlatformWallet:   "platform",
	CurrencySymbol:   "CRL",
	CurrencyDecimals: 6,
	MetricsBindAddr:  "0.0.0.0",
	MetricsPort:      12798,
	RewardThreshold:  70,
	ShutdownTimeout:  DefaultShutdownTimeout,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.corral/corral.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".corral", "corral.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		// Try to check for /etc/corral/corral.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/corral/corral.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	if err := envconfig.Process("corral", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}
