package workspace

import (
	"os"

	"github.com/tinkering/twinby/internal/config"
)

const (
	DefaultName = "main"

	// NameEnv selects the workspace when no flag is given.
	NameEnv = "TWINBY_WORKSPACE"
)

// Resolve determines the active workspace name using precedence:
// 1. flagOverride (--workspace flag)
// 2. $TWINBY_WORKSPACE
// 3. config.toml default_workspace
// 4. "main"
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if env := os.Getenv(NameEnv); env != "" {
		return env
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultWorkspace != "" {
		return cfg.DefaultWorkspace
	}
	return DefaultName
}
