// Package bootstrap is the daemon's composition root: it wires config,
// logging, the pool/dispatcher core, and every optional subsystem
// (external cache, history sink, admin surface) into one App, and hands
// back a cleanup func. Grounded on pkg/bootstrap.InitAll's init-then-
// cleanup-closure shape.
package bootstrap

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"socketpoold/internal/admin"
	"socketpoold/internal/authn"
	"socketpoold/internal/cache"
	"socketpoold/internal/config"
	"socketpoold/internal/dispatcher"
	"socketpoold/internal/history"
	"socketpoold/internal/ipc"
	"socketpoold/internal/logger"
	"socketpoold/internal/maintenance"
	"socketpoold/internal/pool"
	"socketpoold/internal/stats"
	"socketpoold/internal/upstream"
)

// App bundles every live subsystem the daemon needs to run and shut down.
type App struct {
	Config     *config.AppConfig
	Registry   *pool.Registry
	Dispatcher *dispatcher.Dispatcher
	Stats      *stats.Table
	IPCServer  *ipc.Server
	Maintainer *maintenance.Runner
	Admin      *admin.Server

	cacheClient *cache.Client
	historySink *history.Sink
}

// InitAll loads configuration from configPath (empty uses the default
// config.yaml lookup), initializes logging, and wires the pool,
// dispatcher, maintenance loop, and any enabled optional subsystem.
func InitAll(configPath string) (app *App, cleanup func(), err error) {
	if configPath != "" {
		err = config.InitFromFile(configPath)
	} else {
		err = config.Init()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: config: %w", err)
	}

	if err := logger.Init(config.Conf.Log); err != nil {
		return nil, nil, fmt.Errorf("bootstrap: logger: %w", err)
	}

	cfg := config.Conf
	registry := pool.NewRegistry(cfg.Pool.MaxSize)
	connector := upstream.New(cfg.Pool.MaxRetries)
	statsTable := stats.NewTable()
	disp := dispatcher.New(registry, connector, statsTable, cfg.Pool.UnixPath)

	maintainer := maintenance.New(registry, statsTable, disp, cfg.ConnectionTimeout(), cfg.HealthCheckInterval())

	app = &App{Config: cfg, Registry: registry, Dispatcher: disp, Stats: statsTable, Maintainer: maintainer}

	var cacheClient *cache.Client
	if cfg.Redis.Enabled {
		cacheClient = cache.New(cfg.Redis)
		app.cacheClient = cacheClient
		disp.CachePing = cacheClient.Ping
		maintainer.Publish = cacheClient.PublishSnapshot
	}

	if cfg.History.Enabled {
		sink, herr := history.Open(cfg.History)
		if herr != nil {
			zap.L().Warn("bootstrap: history sink disabled, failed to open", zap.Error(herr))
		} else {
			app.historySink = sink
			prevPublish := maintainer.Publish
			maintainer.Publish = func(s stats.Sample) {
				if prevPublish != nil {
					prevPublish(s)
				}
				sink.Record(s)
			}
		}
	}

	app.IPCServer = ipc.New(disp, cfg.Pool.UnixPath)
	if err := app.IPCServer.Listen(); err != nil {
		return nil, nil, fmt.Errorf("bootstrap: ipc listen: %w", err)
	}

	if cfg.Admin.Enabled {
		var issuer *authn.Issuer
		if cfg.Admin.AuthEnabled {
			issuer = authn.NewIssuer(cfg.Admin.JWTSecret, 2*time.Hour)
		}
		app.Admin = admin.NewServer(disp, registry, statsTable, cfg.Admin.AuthEnabled, issuer)
	}

	cleanup = func() {
		registry.Close()
		app.IPCServer.Close()
		if app.historySink != nil {
			_ = app.historySink.Close()
		}
		if app.cacheClient != nil {
			_ = app.cacheClient.Close()
		}
		logger.Sync()
	}
	return app, cleanup, nil
}
