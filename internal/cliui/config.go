package cliui

import "github.com/xyproto/env/v2"

// DefaultToolchainPrefix is the arm-none-eabi cross-compiler prefix used
// when MWINJECT_TOOLCHAIN_PREFIX is unset.
const DefaultToolchainPrefix = "arm-none-eabi-"

// Config is the environment-variable overlay the original tool had no
// equivalent for (it hardcoded "arm-none-eabi-" and relied purely on a
// VerboseMode package flag). The teacher declares but never imports
// github.com/xyproto/env/v2; this is its one wired use, letting a CI
// environment override the toolchain prefix or force verbose output
// without touching the command line.
type Config struct {
	ToolchainPrefix string
	Verbose         bool
}

// LoadConfig reads the environment overlay on top of explicit flag values.
// Flags win when set; env vars fill in defaults otherwise.
func LoadConfig(verboseFlag bool) Config {
	return Config{
		ToolchainPrefix: env.Str("MWINJECT_TOOLCHAIN_PREFIX", DefaultToolchainPrefix),
		Verbose:         verboseFlag || env.Bool("MWINJECT_VERBOSE"),
	}
}
