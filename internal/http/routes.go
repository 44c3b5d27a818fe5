package httpx

import (
	"log/slog"
	"net/http"

	"github.com/civisim/civisim-api/internal/domain/identity"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Identity IdentityServiceInterface
	Resolver IdentityResolver
	Manager  StateSubscriber
	Events   SessionInvalidator
	Profiles ProfileWriter
	Gates    map[string]identity.ServiceGate

	CookieDomain string
	Logger       *slog.Logger
}

// NewRouter creates and configures the HTTP router. Every request passes
// through identity resolution; guards then gate individual subtrees.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{
		Svc:          services.Identity,
		Events:       services.Events,
		CookieDomain: services.CookieDomain,
		Logger:       logger,
	}
	profileHandlers := &ProfileHandlers{
		Profiles:  services.Profiles,
		Refresher: services.Identity,
		Events:    services.Events,
		Logger:    logger,
	}
	consentHandlers := &ConsentHandlers{CookieDomain: services.CookieDomain}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	registerAuthRoutes(mux, authHandlers)
	registerSessionRoutes(mux, services, authHandlers)
	registerProfileRoutes(mux, profileHandlers)
	registerPanelRoutes(mux, &PanelHandlers{})
	registerGateRoutes(mux, services)

	mux.HandleFunc("GET /api/consent", consentHandlers.Get)
	mux.HandleFunc("POST /api/consent", consentHandlers.Accept)

	var handler http.Handler = mux
	handler = ResolveIdentity(services.Resolver, logger)(handler)
	handler = Logging(logger)(handler)
	handler = Recover(logger)(handler)
	return BrowserDetection()(handler)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("POST /api/auth/password/reset", h.RequestPasswordReset)
	mux.HandleFunc("POST /api/auth/password", h.UpdatePassword)
	mux.HandleFunc("GET /auth/sso/login", h.SSOLogin)
	mux.HandleFunc("GET /auth/sso/callback", h.SSOCallback)
}

func registerSessionRoutes(mux *http.ServeMux, services RouterServices, h *AuthHandlers) {
	mux.HandleFunc("GET /api/session", h.Session)
	if services.Manager != nil {
		eventHandlers := &EventHandlers{Manager: services.Manager, Logger: services.Logger}
		mux.HandleFunc("GET /api/session/events", eventHandlers.Stream)
	}
}

func registerProfileRoutes(mux *http.ServeMux, h *ProfileHandlers) {
	mux.Handle("GET /api/profile", RequireSession(http.HandlerFunc(h.Get)))
	mux.Handle("POST /api/profile/onboarding", RequireSession(http.HandlerFunc(h.CompleteOnboarding)))
	mux.Handle("GET /api/dashboard", RequireSession(http.HandlerFunc(h.Dashboard)))
}

func registerGateRoutes(mux *http.ServeMux, services RouterServices) {
	if len(services.Gates) == 0 {
		return
	}
	gateHandlers := &GateHandler{Gates: services.Gates}
	mux.HandleFunc("GET /services/{service}", gateHandlers.Enter)
}
