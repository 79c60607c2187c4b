package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/zeusync/idstring/internal/apptag"
	"github.com/zeusync/idstring/internal/config"
	"github.com/zeusync/idstring/internal/core/events/bus"
	"github.com/zeusync/idstring/internal/core/observability/log"
	"github.com/zeusync/idstring/pkg/idstring"
	"github.com/zeusync/idstring/pkg/idstring/manifest"
	"github.com/zeusync/idstring/pkg/idstring/tagstore"
)

// App is the wired command graph.
type App struct {
	Config   *config.Config
	Logger   log.Log
	Bus      bus.EventBus
	Declared *Declared
	Registry *idstring.Registry
}

// Declared is the merged declaration set and the manifest bindings.
type Declared struct {
	Declarations idstring.Declarations
	Bindings     *manifest.Bindings
}

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideBus,
	ProvideDeclared,
	ProvideRegistry,
)

func ProvideLogger(cfg *config.Config) log.Log {
	return log.New(cfg.Level())
}

func ProvideBus() bus.EventBus {
	return bus.New()
}

// ProvideDeclared loads the built-in tags and every configured manifest.
func ProvideDeclared(ctx context.Context, cfg *config.Config) (*Declared, error) {
	var d idstring.Declarations
	if cfg.BuiltinTags {
		d.Merge(apptag.Declarations())
	}
	loaded, bindings, err := manifest.LoadFiles(ctx, cfg.LoadLimit, cfg.Manifests...)
	if err != nil {
		return nil, err
	}
	d.Merge(loaded)
	return &Declared{Declarations: d, Bindings: bindings}, nil
}

// ProvideRegistry builds the registry, installs it as the default and
// watches the bus for reload requests.
func ProvideRegistry(logger log.Log, b bus.EventBus, d *Declared) (*idstring.Registry, func(), error) {
	r := idstring.NewRegistry(idstring.WithLogger(logger), idstring.WithBus(b))
	r.Replace(d.Declarations)
	sub, err := r.WatchReload(b)
	if err != nil {
		return nil, nil, err
	}
	r.Initialize()
	idstring.SetDefault(r)
	cleanup := func() {
		_ = sub.Cancel()
		if idstring.Default() == r {
			idstring.SetDefault(nil)
		}
	}
	return r, cleanup, nil
}

func ProvideStore(cfg *config.Config, logger log.Log) (*tagstore.Store, func(), error) {
	s, err := tagstore.Open(cfg.StorePath, logger)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { _ = s.Close() }, nil
}
