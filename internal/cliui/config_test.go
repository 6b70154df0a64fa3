package cliui

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(false)
	if cfg.ToolchainPrefix != DefaultToolchainPrefix {
		t.Errorf("ToolchainPrefix = %q, want %q", cfg.ToolchainPrefix, DefaultToolchainPrefix)
	}
	if cfg.Verbose {
		t.Error("Verbose should default to false")
	}
}

func TestLoadConfigEnvOverlay(t *testing.T) {
	t.Setenv("MWINJECT_TOOLCHAIN_PREFIX", "arm-linux-gnueabi-")
	t.Setenv("MWINJECT_VERBOSE", "true")

	cfg := LoadConfig(false)
	if cfg.ToolchainPrefix != "arm-linux-gnueabi-" {
		t.Errorf("ToolchainPrefix = %q, want env override", cfg.ToolchainPrefix)
	}
	if !cfg.Verbose {
		t.Error("Verbose should pick up MWINJECT_VERBOSE=true")
	}
}

func TestLoadConfigFlagWinsOverEnv(t *testing.T) {
	t.Setenv("MWINJECT_VERBOSE", "false")
	cfg := LoadConfig(true)
	if !cfg.Verbose {
		t.Error("explicit verbose flag should win regardless of env")
	}
}
