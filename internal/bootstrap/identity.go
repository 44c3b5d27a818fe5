package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/civisim/civisim-api/config"
	"github.com/civisim/civisim-api/internal/adapters/claims"
	"github.com/civisim/civisim-api/internal/adapters/devauth"
	"github.com/civisim/civisim-api/internal/adapters/gotrue"
	"github.com/civisim/civisim-api/internal/adapters/oidc"
	redisstore "github.com/civisim/civisim-api/internal/adapters/redis"
	"github.com/civisim/civisim-api/internal/data"
	"github.com/civisim/civisim-api/internal/ports"
	"github.com/civisim/civisim-api/internal/service"
)

// IdentityStack bundles the identity service with the pieces the HTTP layer
// wires separately.
type IdentityStack struct {
	Service  *service.IdentityService
	Manager  *service.Manager
	Profiles *data.ProfileRepo
}

// BuildIdentityService assembles the identity stack from configuration: the
// authenticator for the configured mode, the optional SSO provider, the
// Redis session store, and the profile repository.
func BuildIdentityService(cfg *config.AppConfig, db *sql.DB, redisClient redis.UniversalClient, logger *slog.Logger) (*IdentityStack, error) {
	auth, err := buildAuthenticator(cfg)
	if err != nil {
		return nil, err
	}

	sso, err := buildSSOProvider(cfg)
	if err != nil {
		return nil, err
	}

	roleMapper, err := claims.NewMapper(cfg.Auth.RoleClaimPath)
	if err != nil {
		return nil, fmt.Errorf("build role mapper: %w", err)
	}

	profiles := data.NewProfileRepo(db)

	svc := service.NewIdentityService(service.IdentityServiceOptions{
		Auth:       auth,
		SSO:        sso,
		Sessions:   redisstore.NewSessionStore(redisClient),
		Profiles:   profiles,
		Roles:      roleMapper,
		Logger:     logger,
		SessionTTL: cfg.Session.TTL,
	})

	return &IdentityStack{
		Service:  svc,
		Manager:  service.NewManager(svc, logger),
		Profiles: profiles,
	}, nil
}

//nolint:ireturn // the mode decides the concrete authenticator.
func buildAuthenticator(cfg *config.AppConfig) (ports.Authenticator, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		provider, err := devauth.NewProvider(devauth.Config{
			UserID:   cfg.Auth.DevAuth.UserID,
			Email:    cfg.Auth.DevAuth.Email,
			Password: cfg.Auth.DevAuth.Password,
			Roles:    cfg.Auth.DevAuth.Roles,
		})
		if err != nil {
			return nil, fmt.Errorf("build dev authenticator: %w", err)
		}
		return provider, nil
	default:
		client, err := gotrue.NewClient(gotrue.Config{
			BaseURL: cfg.Auth.Provider.BaseURL,
			AnonKey: cfg.Auth.Provider.AnonKey,
		})
		if err != nil {
			return nil, fmt.Errorf("build identity backend client: %w", err)
		}
		return client, nil
	}
}

//nolint:ireturn // nil means operator SSO is disabled.
func buildSSOProvider(cfg *config.AppConfig) (ports.SSOProvider, error) {
	if !cfg.Auth.SSO.Enabled {
		return nil, nil
	}
	provider, err := oidc.NewProvider(oidc.ProviderConfig{
		ClientID:     cfg.Auth.SSO.ClientID,
		ClientSecret: cfg.Auth.SSO.ClientSecret,
		RedirectURL:  cfg.Auth.SSO.RedirectURL,
		Scope:        cfg.Auth.SSO.Scope,
		DiscoveryURL: cfg.Auth.SSO.DiscoveryURL,
	})
	if err != nil {
		return nil, fmt.Errorf("build sso provider: %w", err)
	}
	return provider, nil
}
