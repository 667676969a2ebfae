// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"fmt"
	"path"
	"reflect"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/dexter/internal/asset"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/di"
	"github.com/fd1az/dexter/internal/logger"
)

// Monolith is the view of the platform handed to modules at startup.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	EthClient() *ethclient.Client
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
}

// Module is a bounded context: it registers its services, then starts.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// ProgressFunc observes module startup. err is nil on success.
type ProgressFunc func(module string, err error)

// ModuleName is the last element of the module's package path, e.g. "pricing".
func ModuleName(m Module) string {
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if p := t.PkgPath(); p != "" {
		return path.Base(p)
	}
	return t.Name()
}

type app struct {
	config    *config.Config
	logger    logger.LoggerInterface
	ethClient *ethclient.Client
	assets    *asset.Registry
	container di.Container
	progress  ProgressFunc
}

// New dials the execution client and seeds the container with the shared
// services: "config", "logger", "ethClient" and "assetRegistry".
func New(cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	eth, err := ethclient.Dial(cfg.Ethereum.HTTPURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Ethereum.HTTPURL, err)
	}

	a := &app{
		config:    cfg,
		logger:    log,
		ethClient: eth,
		assets:    asset.DefaultRegistry(),
		container: di.NewContainer(),
	}
	a.container.Register("config", cfg)
	a.container.Register("logger", log)
	a.container.Register("ethClient", eth)
	a.container.Register("assetRegistry", a.assets)
	return a, nil
}

func (a *app) Config() *config.Config         { return a.config }
func (a *app) Logger() logger.LoggerInterface { return a.logger }
func (a *app) EthClient() *ethclient.Client   { return a.ethClient }
func (a *app) AssetRegistry() *asset.Registry { return a.assets }
func (a *app) Services() di.ServiceRegistry   { return a.container }

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// OnProgress installs fn to observe StartModules. Call before starting.
func (a *app) OnProgress(fn ProgressFunc) {
	a.progress = fn
}

// RegisterModules registers every module's services, stopping at the first error.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return fmt.Errorf("%s: register: %w", ModuleName(m), err)
		}
	}
	return nil
}

// StartModules starts modules in order, stopping at the first error.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		name := ModuleName(m)
		start := time.Now()
		err := m.Startup(ctx, a)
		if a.progress != nil {
			a.progress(name, err)
		}
		if err != nil {
			return fmt.Errorf("%s: startup: %w", name, err)
		}
		a.logger.Debug(ctx, "module started", "module", name, "took", time.Since(start))
	}
	return nil
}

// Close releases the execution client.
func (a *app) Close() error {
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	return nil
}
