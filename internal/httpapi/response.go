package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/conduit-lang/izruna/internal/web/cache"
)

// errorResponse is the JSON body every non-2xx response renders.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func renderJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// renderCacheableJSON marshals payload, answers a conditional GET with
// 304 Not Modified when the client's If-None-Match already names the
// current ETag, and otherwise renders the body with an ETag and
// Cache-Control header attached. The rule set rarely changes within a
// client's polling interval, so this lets a transcription client avoid
// re-downloading a result it already has.
func renderCacheableJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		renderInternalError(w, err)
		return
	}

	etag := cache.GenerateETag(body)
	if cache.CheckConditionalRequest(w, r, etag, time.Time{}) {
		return
	}

	cache.SetCacheHeaders(w, etag, time.Time{}, "private, max-age=60")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}

func renderError(w http.ResponseWriter, status int, err error) {
	renderErrorWithCode(w, status, err, errorCodeFromStatus(status))
}

func renderErrorWithCode(w http.ResponseWriter, status int, err error, code string) {
	renderJSON(w, status, errorResponse{Error: "error", Message: err.Error(), Code: code})
}

func renderBadRequest(w http.ResponseWriter, message string) {
	renderError(w, http.StatusBadRequest, fmt.Errorf("%s", message))
}

func renderUnauthorized(w http.ResponseWriter, message string) {
	renderError(w, http.StatusUnauthorized, fmt.Errorf("%s", message))
}

func renderUnprocessableEntity(w http.ResponseWriter, message string) {
	renderError(w, http.StatusUnprocessableEntity, fmt.Errorf("%s", message))
}

func renderInternalError(w http.ResponseWriter, err error) {
	renderError(w, http.StatusInternalServerError, err)
}

func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return "error"
	}
}
