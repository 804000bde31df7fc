package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func resetGlobalConfig() {
	globalConfig = &Config{
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
}

func TestLoad_CompareFullStruct(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
databasePath: "/var/lib/corral"
admin: "acct-admin"
platformWallet: "acct-fees"
currencySymbol: "USDX"
currencyDecimals: 2
metricsBindAddr: "127.0.0.1"
metricsPort: 8088
rewardThreshold: 80
shutdownTimeout: "10s"
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-corral.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	defer os.Remove(tmpFile)

	expected := &Config{
		DatabasePath:     "/var/lib/corral",
		Admin:            "acct-admin",
		PlatformWallet:   "acct-fees",
		CurrencySymbol:   "USDX",
		CurrencyDecimals: 2,
		MetricsBindAddr:  "127.0.0.1",
		MetricsPort:      8088,
		RewardThreshold:  80,
		ShutdownTimeout:  "10s",
	}

	actual, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !reflect.DeepEqual(actual, expected) {
		t.Errorf(
			"Loaded config does not match expected.\nActual: %+v\nExpected: %+v",
			actual,
			expected,
		)
	}
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	resetGlobalConfig()

	// Without Config file
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	// Expected is the original default values from globalConfig
	expected := &Config{
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

	if !reflect.DeepEqual(cfg, expected) {
		t.Errorf(
			"config mismatch without file:\nExpected: %+v\nGot:      %+v",
			expected,
			cfg,
		)
	}
}

func TestLoad_PartialOverlayKeepsDefaults(t *testing.T) {
	resetGlobalConfig()

	yamlContent := `
admin: "acct-admin"
rewardThreshold: 90
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-partial.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Admin != "acct-admin" {
		t.Errorf("expected Admin to be acct-admin, got: %v", cfg.Admin)
	}
	if cfg.RewardThreshold != 90 {
		t.Errorf(
			"expected RewardThreshold to be 90, got: %v",
			cfg.RewardThreshold,
		)
	}
	if cfg.CurrencySymbol != "CRL" {
		t.Errorf(
			"expected default CurrencySymbol to survive overlay, got: %v",
			cfg.CurrencySymbol,
		)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	resetGlobalConfig()

	yamlContent := `
platformWallet: "from-file"
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-env.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	t.Setenv("CORRAL_PLATFORM_WALLET", "from-env")

	cfg, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.PlatformWallet != "from-env" {
		t.Errorf(
			"expected environment to override file, got: %v",
			cfg.PlatformWallet,
		)
	}
}
