//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"

	"github.com/zeusync/sophysics/internal/core/observability/log"
	"github.com/zeusync/sophysics/internal/runner"
)

func InitializeApp(configPath string) (*App, error) {
	wire.Build(
		ProvideConfig,
		ProvideLogger,
		wire.Bind(new(log.Log), new(*log.Logger)),
		runner.New,
		wire.Struct(new(App), "*"),
	)
	return nil, nil
}
