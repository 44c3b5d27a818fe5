package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/civisim/civisim-api/config"
	"github.com/civisim/civisim-api/internal/domain/identity"
	httpx "github.com/civisim/civisim-api/internal/http"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Identity *IdentityStack
	Logger   *slog.Logger
}

// DefaultServiceGates returns the role-dual service entry points. Each slug
// pairs a citizen-facing view with the operator panel that the matching
// privileged role unlocks.
func DefaultServiceGates() map[string]identity.ServiceGate {
	return map[string]identity.ServiceGate{
		"tribunal": {
			Privileged:  identity.NewRoleSet(identity.RoleJuiz),
			CitizenPath: "/justica/processos",
			PanelPath:   "/justica/tribunal",
		},
		"delegacia": {
			Privileged:  identity.NewRoleSet(identity.RolePolice),
			CitizenPath: "/seguranca/ocorrencias",
			PanelPath:   "/seguranca/policia",
		},
		"camara": {
			Privileged:  identity.NewRoleSet(identity.RoleDeputado),
			CitizenPath: "/gov/projetos",
			PanelPath:   "/gov/camara",
		},
		"senado": {
			Privileged:  identity.NewRoleSet(identity.RoleSenador),
			CitizenPath: "/gov/projetos",
			PanelPath:   "/gov/senado",
		},
	}
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil || cfg.Identity == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler := httpx.NewRouter(httpx.RouterServices{
		Identity:     cfg.Identity.Service,
		Resolver:     cfg.Identity.Service,
		Manager:      cfg.Identity.Manager,
		Events:       cfg.Identity.Manager,
		Profiles:     cfg.Identity.Profiles,
		Gates:        DefaultServiceGates(),
		CookieDomain: appCfg.HTTP.CookieDomain,
		Logger:       logger,
	})

	return startServer(logger, handler, appCfg.HTTP.Addr)
}

func startServer(logger *slog.Logger, handler http.Handler, addr string) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: the session event stream holds its response open
		// for the lifetime of the client connection.
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	shutdownCtx, cancel := context.WithTimeout(cfg.Context, 10*time.Second)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
