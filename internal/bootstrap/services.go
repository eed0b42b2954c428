// Package bootstrap wires configuration, storage, and services into a
// runnable application.
package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/target/session-authority/config"
	"github.com/target/session-authority/internal/adapters/authevents"
	"github.com/target/session-authority/internal/adapters/localdevice"
	redisadapter "github.com/target/session-authority/internal/adapters/redis"
	"github.com/target/session-authority/internal/data"
	"github.com/target/session-authority/internal/observability/metrics"
	"github.com/target/session-authority/internal/observability/notify"
	"github.com/target/session-authority/internal/ports"
	"github.com/target/session-authority/internal/service"
)

// ServiceContainer holds the constructed services and adapters.
type ServiceContainer struct {
	Sessions    *data.SessionRepo
	Roles       *data.RoleRepo
	TokenStore  *redisadapter.SessionStore
	SignalBus   *redisadapter.SignalBus
	Events      *authevents.Broadcaster
	Device      *localdevice.Identity
	Store       *service.SessionStore
	Realtime    *service.RealtimeSync
	RoleResolve *service.RoleResolver
	AuthState   *service.AuthStateMachine
	Registry    *prometheus.Registry
	Metrics     *metrics.SessionMetrics
	Notices     notify.Sink
}

// BuildServicesConfig groups dependencies for BuildServices.
type BuildServicesConfig struct {
	Config *config.AppConfig
	DB     *sql.DB
	Redis  goredis.UniversalClient
	Logger *slog.Logger
}

// BuildServices constructs the service container from connected backends. It
// resolves the local device identity and assembles the full sync chain: the
// auth state machine drives realtime sync, which feeds the local session
// store that trust and revocation actions consult first.
func BuildServices(cfg BuildServicesConfig) (*ServiceContainer, error) {
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	var registry *prometheus.Registry
	var sessionMetrics *metrics.SessionMetrics
	if appCfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		sessionMetrics = metrics.NewSessionMetrics(registry)
	} else {
		sessionMetrics = metrics.NewNopSessionMetrics()
	}

	device, err := localdevice.Load(appCfg.Realtime.DeviceIDPath)
	if err != nil {
		return nil, fmt.Errorf("load device identity: %w", err)
	}

	sessions := data.NewSessionRepo(cfg.DB)
	roles := data.NewRoleRepo(cfg.DB)
	tokenStore := redisadapter.NewSessionStore(cfg.Redis)
	signalBus := redisadapter.NewSignalBus(cfg.Redis)
	events := authevents.NewBroadcaster()

	store := service.NewSessionStore(service.SessionStoreOptions{
		Device:  device,
		Logger:  cfg.Logger,
		Metrics: sessionMetrics,
	})
	realtime := service.NewRealtimeSync(service.RealtimeSyncOptions{
		Repo:         sessions,
		Store:        store,
		Bus:          signalBus,
		Logger:       cfg.Logger,
		Metrics:      sessionMetrics,
		RestartDelay: appCfg.Realtime.RestartDelay,
		QueueSize:    appCfg.Realtime.ApplyQueueSize,
	})
	roleResolve := service.NewRoleResolver(service.RoleResolverOptions{
		Source: roles,
		Logger: cfg.Logger,
	})
	authState := service.NewAuthStateMachine(service.AuthStateMachineOptions{
		Events:   events,
		Roles:    roleResolve,
		Sessions: tokenStore,
		Profile:  roles,
		Realtime: realtime,
		Store:    store,
		Logger:   cfg.Logger,
	})

	return &ServiceContainer{
		Sessions:    sessions,
		Roles:       roles,
		TokenStore:  tokenStore,
		SignalBus:   signalBus,
		Events:      events,
		Device:      device,
		Store:       store,
		Realtime:    realtime,
		RoleResolve: roleResolve,
		AuthState:   authState,
		Registry:    registry,
		Metrics:     sessionMetrics,
		Notices:     notify.SlogSink{Logger: cfg.Logger},
	}, nil
}

// NewRevoker builds a revocation coordinator bound to the given device
// identity. The HTTP layer calls this per request with the caller's device.
// The shared local view is consulted only for rows belonging to the acting
// user, so requests for other users fall through to the backing store.
func (c *ServiceContainer) NewRevoker(device ports.DeviceIdentity) *service.RevocationService {
	return service.NewRevocationService(service.RevocationServiceOptions{
		Repo:    c.Sessions,
		Device:  device,
		Bus:     c.SignalBus,
		Store:   c.Store,
		Notices: c.Notices,
		Metrics: c.Metrics,
	})
}
