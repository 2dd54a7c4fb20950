package config

// Version is the tool version printed by "polyglot version". Release builds
// override it with -ldflags "-X".
var Version = "0.1.0-dev"

const (
	// FileName is the configuration file looked up in the working directory
	// and the home directory.
	FileName = ".polyglot"
	// EnvPrefix prefixes environment overrides, e.g. POLYGLOT_LOG_LEVEL.
	EnvPrefix = "POLYGLOT"
)

// Policy presets accepted by the policy.preset setting.
const (
	PresetExplicit = "explicit"
	PresetAll      = "all"
	PresetNone     = "none"
)
