// Package httpapi wires the rule engine, orchestrator, rule-store
// watcher, cache, and admin auth into an HTTP front-end. It mirrors
// the request surface of original_source/server.py's raw-socket
// handler, reshaped into idiomatic REST + WebSocket endpoints.
package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/conduit-lang/izruna/engine/encoder"
	"github.com/conduit-lang/izruna/engine/rules"
	"github.com/conduit-lang/izruna/internal/orchestrator"
	"github.com/conduit-lang/izruna/internal/store"
	"github.com/conduit-lang/izruna/internal/watch"
	"github.com/conduit-lang/izruna/internal/web/auth"
	"github.com/conduit-lang/izruna/internal/web/cache"
	"github.com/conduit-lang/izruna/internal/web/middleware"
	"github.com/conduit-lang/izruna/internal/web/ratelimit"
	"github.com/go-chi/chi/v5"
)

// requestTimeout bounds the REST transcription endpoints; the
// websocket stream is exempt since a connection is expected to stay
// open for the lifetime of a client's session.
const requestTimeout = 10 * time.Second

// API holds everything a request handler needs: one orchestrator per
// output encoder variant (all sharing the active rule store and,
// when configured, the same Redis-backed result cache and exception
// override store), plus the services backing the admin routes.
type API struct {
	Orchestrators map[encoder.Variant]*orchestrator.CachingOrchestrator
	DefaultVariant encoder.Variant

	StoreWatcher *watch.StoreWatcher
	Overrides    *store.OverrideStore

	AuthService *auth.AuthService
	AdminUser   string
	AdminPass   string // bcrypt hash

	Limiter ratelimit.RateLimiter

	APIPrefix      string
	AllowedOrigins []string
}

// orchestratorFor resolves the requested encoder variant, falling
// back to the server's configured default when the request doesn't
// name one.
func (a *API) orchestratorFor(name string) (*orchestrator.CachingOrchestrator, error) {
	variant := a.DefaultVariant
	if name != "" {
		variant = encoder.Variant(name)
	}
	o, ok := a.Orchestrators[variant]
	if !ok {
		return nil, fmt.Errorf("unknown encoder variant %q", variant)
	}
	return o, nil
}

// activeStore reaches through the orchestrator used for requests to
// the rule store currently backing it — used by /healthz to report
// the rule count and by /admin/exceptions to validate a submitted
// transcription against the rule charset.
func (a *API) activeStore() *rules.Store {
	if o, ok := a.Orchestrators[a.DefaultVariant]; ok {
		return o.Store()
	}
	for _, o := range a.Orchestrators {
		return o.Store()
	}
	return nil
}

// setActiveStore pushes a freshly loaded store into every configured
// orchestrator so all encoder variants observe the same reload.
func (a *API) setActiveStore(s *rules.Store) {
	for _, o := range a.Orchestrators {
		o.SetStore(s)
	}
}

// Router builds the chi router with the full middleware chain and
// route table
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(a.middlewareChain()...)

	prefix := a.APIPrefix
	r.Get(prefix+"/healthz", a.handleHealthz)

	// Request-bounded routes get a hard deadline; the websocket stream
	// is long-lived by design and is registered outside this group.
	r.Group(func(bounded chi.Router) {
		bounded.Use(wrap(middleware.Timeout(requestTimeout)))
		bounded.Get(prefix+"/transcribe", a.handleTranscribeWord)
		bounded.Post(prefix+"/transcribe", a.handleTranscribeWord)
		bounded.Get(prefix+"/transcribe/text", a.handleTranscribeText)
		bounded.Post(prefix+"/transcribe/text", a.handleTranscribeText)
		bounded.Get(prefix+"/transcribe/phrase", a.handleTranscribePhrase)
		bounded.Post(prefix+"/transcribe/phrase", a.handleTranscribePhrase)
	})
	r.Get(prefix+"/ws/transcribe", a.handleWebsocketStream)

	r.Group(func(admin chi.Router) {
		admin.Use(a.requireAdmin())
		admin.With(wrap(middleware.RequirePermission(auth.RulesReload))).
			Post(prefix+"/admin/reload", a.handleAdminReload)
		admin.With(wrap(middleware.RequirePermission(auth.ExceptionsWrite))).
			Post(prefix+"/admin/exceptions", a.handleAdminAddException)
		admin.With(wrap(middleware.RequirePermission(auth.ExceptionsWrite))).
			Delete(prefix+"/admin/exceptions/{word}", a.handleAdminDeleteException)
	})
	r.Post(prefix+"/admin/login", a.handleAdminLogin)

	return r
}

// cacheTTLFromSeconds is a small helper shared by the cmd wiring that
// builds an API from config.
func cacheTTLFromSeconds(seconds int) time.Duration {
	if seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// CacheTTL exported for cmd/izruna to reuse the same conversion when
// constructing the CachingOrchestrator set.
func CacheTTL(seconds int) time.Duration { return cacheTTLFromSeconds(seconds) }

// NewOrchestratorSet builds one CachingOrchestrator per requested
// encoder variant, all backed by the same store, decoder, cache, and
// override store. decoder must be the Alphabetic variant Encoder.
func NewOrchestratorSet(store *rules.Store, decoder *encoder.Encoder, targets map[encoder.Variant]*encoder.Encoder, overrides orchestrator.ExceptionOverrides, c cache.Cache, ttl time.Duration) map[encoder.Variant]*orchestrator.CachingOrchestrator {
	out := make(map[encoder.Variant]*orchestrator.CachingOrchestrator, len(targets)+1)

	// Each variant gets its own namespace over the shared cache: two
	// variants transcribing the same word must not collide on one
	// cache entry.
	rawVariant := encoder.Variant("raw")

	// "raw" exposes the engine's own alphabet with no re-encoding.
	raw := orchestrator.New(store, decoder, nil)
	raw.Overrides = overrides
	out[rawVariant] = orchestrator.NewCaching(raw, cache.WithNamespace(c, string(rawVariant)), ttl)

	for variant, target := range targets {
		o := orchestrator.New(store, decoder, target)
		o.Overrides = overrides
		out[variant] = orchestrator.NewCaching(o, cache.WithNamespace(c, string(variant)), ttl)
	}
	return out
}
