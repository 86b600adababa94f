package injector

import (
	"github.com/zeusync/sophysics/internal/config"
	"github.com/zeusync/sophysics/internal/core/observability/log"
	"github.com/zeusync/sophysics/internal/runner"
)

// App is everything the command line needs.
type App struct {
	Config *config.Config
	Logger *log.Logger
	Runner *runner.Runner
}

// ProvideConfig loads the config at path, or the defaults for an empty path,
// and validates it.
func ProvideConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func ProvideLogger(cfg *config.Config) *log.Logger {
	level := log.ParseLevel(cfg.Logging.Level)
	if cfg.Logging.Format == "json" {
		return log.New(level)
	}
	return log.NewDevelopment(level)
}
