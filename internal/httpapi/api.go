package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"gatekeeper.dev/internal/authz"
	"gatekeeper.dev/internal/obs"
	"gatekeeper.dev/internal/token"
)

// ReadyProbe reports readiness, pinging the database when one is attached.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Services bundles the domain services the HTTP layer exposes.
type Services struct {
	Users    *authz.UserService
	Groups   *authz.PermissionGroupService
	Perms    *authz.PermissionService
	Registry *authz.ServiceRegistry
	Tokens   *token.Service
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	users    *authz.UserService
	groups   *authz.PermissionGroupService
	perms    *authz.PermissionService
	registry *authz.ServiceRegistry
	tokens   *token.Service

	rateBurst  int
	ratePerSec int
}

func New(rp ReadyProbe, version string, svcs Services) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		users:      svcs.Users,
		groups:     svcs.Groups,
		perms:      svcs.Perms,
		registry:   svcs.Registry,
		tokens:     svcs.Tokens,
		rateBurst:  20,
		ratePerSec: 10,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// accounts and sessions
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/me", a.handleMe)

	// permission groups
	a.mux.HandleFunc("/v1/groups", a.handleGroups)
	a.mux.HandleFunc("/v1/groups/", a.handleGroupResource)

	// service registry and its permission catalogs
	a.mux.HandleFunc("/v1/services", a.handleServices)
	a.mux.HandleFunc("/v1/services/", a.handleServiceResource)

	// authorization queries
	a.mux.HandleFunc("/v1/permissions/check", a.handlePermissionCheck)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "gatekeeper-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "gatekeeper-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
