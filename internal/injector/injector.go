//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/zeusync/idstring/internal/config"
	"github.com/zeusync/idstring/internal/core/observability/log"
	"github.com/zeusync/idstring/pkg/idstring/tagstore"
)

func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(ProviderSet, wire.Struct(new(App), "*"))
	return nil, nil, nil
}

func InitializeStore(cfg *config.Config, logger log.Log) (*tagstore.Store, func(), error) {
	wire.Build(ProvideStore)
	return nil, nil, nil
}
