package profile

import (
	"os"

	"github.com/matheus3301/sigma/internal/config"
)

const DefaultName = "main"

// Resolve picks the active profile: the --profile flag, then SIGMA_PROFILE,
// then default_profile in config.toml, then "main".
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if env := os.Getenv("SIGMA_PROFILE"); env != "" {
		return env
	}
	cfg, err := config.Load(ConfigPath())
	if err == nil && cfg.DefaultProfile != "" {
		return cfg.DefaultProfile
	}
	return DefaultName
}
