package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/conduit-lang/izruna/internal/web/auth"
	"github.com/go-chi/chi/v5"
)

type reloadResponse struct {
	Status string `json:"status"`
	Rules  int    `json:"rules"`
}

// handleAdminReload forces the rule store to rebuild from disk
// immediately, independent of the hot-reload watcher's debounce, and
// pushes the result into every encoder-variant orchestrator. The
// result cache is not cleared: a word already cached keeps its
// previous transcription until the entry's TTL expires.
func (a *API) handleAdminReload(w http.ResponseWriter, r *http.Request) {
	if a.StoreWatcher == nil {
		renderInternalError(w, errNoStoreWatcher)
		return
	}
	if err := a.StoreWatcher.Reload(); err != nil {
		renderInternalError(w, err)
		return
	}
	store := a.StoreWatcher.Store()
	a.setActiveStore(store)
	renderJSON(w, http.StatusOK, reloadResponse{Status: "reloaded", Rules: len(store.Rules)})
}

type addExceptionRequest struct {
	Word          string `json:"word"`
	Transcription string `json:"transcription"`
}

type exceptionResponse struct {
	Word          string `json:"word"`
	Transcription string `json:"transcription,omitempty"`
	UpdatedBy     string `json:"updated_by,omitempty"`
}

// handleAdminAddException validates the submitted engine-alphabet
// transcription against the active rule charset before persisting it,
// the same check the interactive exceptions-add CLI wizard performs.
// A cached result for the word is not evicted, so the override takes
// effect for that word once its cache entry expires.
func (a *API) handleAdminAddException(w http.ResponseWriter, r *http.Request) {
	var req addExceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, "malformed request body")
		return
	}
	req.Word = strings.TrimSpace(req.Word)
	req.Transcription = strings.TrimSpace(req.Transcription)
	if req.Word == "" || req.Transcription == "" {
		renderBadRequest(w, "word and transcription are required")
		return
	}

	store := a.activeStore()
	if store != nil {
		if !validCharset(req.Transcription, store.RuleCharset()+"_") {
			renderUnprocessableEntity(w, "transcription contains characters outside the rule charset")
			return
		}
	}

	if a.Overrides == nil {
		renderInternalError(w, errNoOverrideStore)
		return
	}
	if err := a.Overrides.Set(r.Context(), req.Word, req.Transcription); err != nil {
		renderInternalError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, exceptionResponse{
		Word:          req.Word,
		Transcription: req.Transcription,
		UpdatedBy:     auth.GetUserID(r.Context()),
	})
}

// handleAdminDeleteException removes a previously submitted override,
// reverting lookups for the word to the file exceptions map (or the
// rule engine) once any cached result for the word has expired.
func (a *API) handleAdminDeleteException(w http.ResponseWriter, r *http.Request) {
	word := chi.URLParam(r, "word")
	if word == "" {
		renderBadRequest(w, "missing word")
		return
	}
	if a.Overrides == nil {
		renderInternalError(w, errNoOverrideStore)
		return
	}
	if err := a.Overrides.Delete(r.Context(), word); err != nil {
		renderInternalError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, exceptionResponse{Word: word, UpdatedBy: auth.GetUserID(r.Context())})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// handleAdminLogin issues a bearer token for the single configured
// admin identity. There is no user store: the admin username and
// bcrypt password hash come from config.
func (a *API) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderBadRequest(w, "malformed request body")
		return
	}
	if req.Username == "" || req.Username != a.AdminUser || !auth.CheckPassword(req.Password, a.AdminPass) {
		renderUnauthorized(w, "invalid credentials")
		return
	}
	token, err := a.AuthService.GenerateToken(req.Username, req.Username, []string{"admin"})
	if err != nil {
		renderInternalError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, loginResponse{Token: token})
}

func validCharset(s, charset string) bool {
	allowed := make(map[rune]struct{}, len(charset))
	for _, r := range charset {
		allowed[r] = struct{}{}
	}
	for _, r := range s {
		if _, ok := allowed[r]; !ok {
			return false
		}
	}
	return true
}
