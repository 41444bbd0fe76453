// Package bootstrap is the production composition root: it loads the
// configuration and wires every collaborator into a runnable container.
package bootstrap

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Johndevils/Arsynox-streaming/internal/api"
	"github.com/Johndevils/Arsynox-streaming/internal/api/middleware"
	"github.com/Johndevils/Arsynox-streaming/internal/cache"
	"github.com/Johndevils/Arsynox-streaming/internal/config"
	"github.com/Johndevils/Arsynox-streaming/internal/daemon"
	"github.com/Johndevils/Arsynox-streaming/internal/headless"
	"github.com/Johndevils/Arsynox-streaming/internal/health"
	alog "github.com/Johndevils/Arsynox-streaming/internal/log"
	"github.com/Johndevils/Arsynox-streaming/internal/normalize"
	netx "github.com/Johndevils/Arsynox-streaming/internal/platform/net"
	"github.com/Johndevils/Arsynox-streaming/internal/platform/httpx"
	"github.com/Johndevils/Arsynox-streaming/internal/proxy"
	"github.com/Johndevils/Arsynox-streaming/internal/ratelimit"
	"github.com/Johndevils/Arsynox-streaming/internal/relay"
	"github.com/Johndevils/Arsynox-streaming/internal/telemetry"
	apptls "github.com/Johndevils/Arsynox-streaming/internal/tls"
	"github.com/Johndevils/Arsynox-streaming/internal/version"
)

// EnvConfigPath names the config file when no explicit path is given.
const EnvConfigPath = config.EnvPrefix + "CONFIG"

// Container is the production composition root output.
type Container struct {
	Config       config.AppConfig
	ConfigHolder *config.ConfigHolder
	Logger       zerolog.Logger
	Server       *api.Server
	Relay        *relay.Dispatcher
	Manager      daemon.Manager
	App          *daemon.App
}

// WireServices builds the production dependency graph and returns a runnable container.
func WireServices(ctx context.Context, explicitConfigPath string) (*Container, error) {
	if ctx == nil {
		return nil, fmt.Errorf("wire services context is nil")
	}

	alog.Configure(alog.Config{
		Level:   "info",
		Service: "arsynox",
		Version: version.Version,
	})
	logger := alog.WithComponent("bootstrap")

	configPath, err := ResolveConfigPath(explicitConfigPath)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	loader := config.NewLoader(configPath, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	alog.Configure(alog.Config{
		Level:   cfg.LogLevel,
		Service: "arsynox",
		Version: cfg.Version,
	})
	logger = alog.WithComponent("bootstrap")

	if configPath != "" {
		logger.Info().
			Str(alog.FieldEvent, "config.loaded").
			Str("source", "file").
			Str("path", configPath).
			Msg("loaded configuration from file")
	} else {
		logger.Info().
			Str(alog.FieldEvent, "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration from environment and defaults")
	}
	if configBytes, marshalErr := json.Marshal(cfg.Redacted()); marshalErr == nil {
		hash := sha256.Sum256(configBytes)
		logger.Info().
			Str(alog.FieldEvent, "config.snapshot").
			Str("sha256", fmt.Sprintf("%x", hash)).
			Msg("configuration snapshot fingerprint")
	}

	if cfg.Server.TLSSelfSigned {
		certPath, keyPath, err := apptls.EnsureCertificates(apptls.Config{
			CertPath: cfg.Server.TLSCert,
			KeyPath:  cfg.Server.TLSKey,
			Hosts:    publicHosts(cfg.Server.PublicURL),
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to ensure TLS certificates: %w", err)
		}
		cfg.Server.TLSCert, cfg.Server.TLSKey = certPath, keyPath
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "arsynox",
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.ExporterType,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize tracing: %w", err)
	}

	normalizer, err := normalize.New(cfg.Server.PublicURL)
	if err != nil {
		return nil, fmt.Errorf("invalid public URL: %w", err)
	}

	hm := health.NewManager(cfg.Version)

	decisions, err := buildCache(ctx, cfg.Cache, hm)
	if err != nil {
		return nil, err
	}

	trusted, err := middleware.ParseCIDRs(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("invalid trusted proxies: %w", err)
	}
	limiter := ratelimit.New(ratelimit.DefaultConfig())

	policy := OutboundPolicy(cfg.Proxy)
	guard := proxy.NewHostGuard(policy, nil, decisions, cfg.Proxy.DecisionTTL)

	var proxyHandler *proxy.Server
	if cfg.Proxy.Enabled {
		proxyHandler, err = proxy.New(proxy.Config{
			Policy:           policy,
			MaxManifestBytes: cfg.Proxy.MaxManifestBytes,
			HeaderTimeout:    cfg.Proxy.HeaderTimeout,
			UserAgent:        cfg.Proxy.UserAgent,
			DecisionTTL:      cfg.Proxy.DecisionTTL,
		}, proxy.Deps{
			Normalizer: normalizer,
			Cache:      decisions,
			Limiter:    limiter,
			Trusted:    trusted,
			Guard:      guard,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize proxy: %w", err)
		}
	}

	var prober *headless.Prober
	if cfg.Probe.Enabled {
		prober = NewProber(cfg, normalizer, guard)
	}

	botClient := relay.NewClient(cfg.Relay.APIBase, cfg.Relay.BotToken,
		httpx.NewClient(cfg.Relay.SendTimeout, httpx.WithTracing()))
	dispatcher := relay.NewDispatcher(botClient, relay.DispatcherConfig{
		ChatID:      cfg.Relay.ChatID,
		PlayerBase:  cfg.Server.PublicURL,
		QueueSize:   cfg.Relay.QueueSize,
		RateLimit:   cfg.Relay.RatePerSecond,
		Burst:       cfg.Relay.Burst,
		SendTimeout: cfg.Relay.SendTimeout,
	})
	hm.RegisterChecker(relay.NewChecker(botClient, cfg.Relay.ChatID))

	var webhook http.Handler
	if cfg.Relay.BotToken != "" {
		webhook = relay.WebhookHandler(relay.WebhookConfig{
			Secret:     cfg.Relay.WebhookSecret,
			PlayerBase: cfg.Server.PublicURL,
			Normalizer: normalizer,
		})
	}

	if cfg.Server.TLSCert != "" {
		hm.RegisterChecker(health.NewFileChecker("tls_cert", cfg.Server.TLSCert))
		hm.RegisterChecker(health.NewFileChecker("tls_key", cfg.Server.TLSKey))
	}

	deps := api.Deps{
		Normalizer: normalizer,
		Relay:      dispatcher,
		Webhook:    webhook,
		Health:     hm,
		Limiter:    limiter,
		Prober:     prober,
	}
	if proxyHandler != nil {
		deps.Proxy = proxyHandler
	}
	s := api.New(cfg, deps)

	logger.Info().
		Str(alog.FieldEvent, "startup").
		Str("version", version.Version).
		Str("commit", version.Commit).
		Str("build_date", version.Date).
		Str("addr", cfg.Server.ListenAddr).
		Msg("starting arsynox")
	logger.Info().Msgf("→ Public URL: %s", displayURL(cfg.Server.PublicURL))
	logger.Info().Msgf("→ Relay: %s", enabledString(dispatcher.Enabled()))
	logger.Info().Msgf("→ Proxy: %s (cache: %s)", enabledString(cfg.Proxy.Enabled), cfg.Cache.Backend)
	logger.Info().Msgf("→ Probe: %s", enabledString(cfg.Probe.Enabled))
	if cfg.Server.TLSCert != "" {
		logger.Info().Msgf("→ TLS: enabled (cert: %s, key: %s)", cfg.Server.TLSCert, cfg.Server.TLSKey)
	}

	mgr, err := daemon.NewManager(cfg.Server, daemon.Deps{
		Logger:         logger,
		APIHandler:     s.Handler(),
		MetricsHandler: promhttp.Handler(),
	})
	if err != nil {
		return nil, fmt.Errorf("create daemon manager: %w", err)
	}

	// LIFO: the proxy drains before the cache closes, tracing flushes last.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("cache", func(context.Context) error { return decisions.Close() })
	if proxyHandler != nil {
		mgr.RegisterShutdownHook("proxy", func(context.Context) error {
			proxyHandler.Close()
			return nil
		})
	}

	holder := config.NewConfigHolder(cfg, loader)
	app := daemon.NewApp(logger, mgr, holder, s, daemon.Worker{Name: "relay", Run: dispatcher.Run})

	return &Container{
		Config:       cfg,
		ConfigHolder: holder,
		Logger:       logger,
		Server:       s,
		Relay:        dispatcher,
		Manager:      mgr,
		App:          app,
	}, nil
}

// Run starts the daemon app loop.
func (c *Container) Run(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("run context is nil")
	}
	if c == nil {
		return fmt.Errorf("container is nil")
	}
	if c.App == nil || c.Manager == nil || c.Server == nil {
		return fmt.Errorf("container is not fully initialized")
	}
	return c.App.Run(ctx)
}

// OutboundPolicy maps the proxy section onto the shared outbound policy. The
// policy is always enabled so probes can use it when the proxy is unmounted.
func OutboundPolicy(p config.ProxyConfig) netx.OutboundPolicy {
	return netx.OutboundPolicy{
		Enabled:     true,
		AllowPublic: p.AllowPublic,
		Allow: netx.OutboundAllowlist{
			Hosts:   p.AllowHosts,
			CIDRs:   p.AllowCIDRs,
			Ports:   p.AllowPorts,
			Schemes: []string{"http", "https"},
		},
		DenyHosts: p.DenyHosts,
	}
}

// NewProber builds a headless prober whose fetches obey guard at lookup and
// at dial time.
func NewProber(cfg config.AppConfig, n *normalize.Normalizer, guard *proxy.HostGuard) *headless.Prober {
	return headless.New(headless.Config{
		Timeout:          cfg.Probe.Timeout,
		RangeBytes:       cfg.Probe.RangeBytes,
		MaxManifestBytes: cfg.Probe.MaxManifestBytes,
		UserAgent:        cfg.Proxy.UserAgent,
	}, headless.Deps{
		Client: httpx.NewClient(cfg.Probe.Timeout,
			httpx.WithDialControl(guard.DialControl()),
			httpx.WithTracing(),
			httpx.WithoutTimeout(),
		),
		Guard:      guard,
		Normalizer: n,
	})
}

func buildCache(ctx context.Context, cfg config.CacheConfig, hm *health.Manager) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheBackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}, alog.WithComponent("cache"))
		if err != nil {
			return nil, fmt.Errorf("initialize redis cache: %w", err)
		}
		hm.RegisterChecker(rc)
		return rc, nil
	default:
		return cache.NewMemoryCache(cfg.CleanupInterval, cfg.MaxEntries), nil
	}
}

// ResolveConfigPath returns the absolute config file path: the explicit path if
// given, else $ARSYNOX_CONFIG, else "" for env-only configuration.
func ResolveConfigPath(explicit string) (string, error) {
	path := strings.TrimSpace(explicit)
	if path == "" {
		path = strings.TrimSpace(config.ParseString(EnvConfigPath, ""))
	}
	if path == "" {
		return "", nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for config %q: %w", path, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", fmt.Errorf("config file not found %q: %w", absPath, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("config path %q is a directory", absPath)
	}
	return absPath, nil
}

func displayURL(rawURL string) string {
	if rawURL == "" {
		return "(request host)"
	}
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return "[invalid_url]"
	}
	parsedURL.User = nil
	return parsedURL.String()
}

func publicHosts(publicURL string) []string {
	u, err := url.Parse(publicURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	return []string{u.Hostname()}
}

func enabledString(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
