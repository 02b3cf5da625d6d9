package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	rerr "github.com/conduit-lang/izruna/engine/errors"
	"github.com/conduit-lang/izruna/internal/clean"
)

// transcribeResponse is the JSON envelope every transcription endpoint
// renders, mirroring original_source/server.py's per-word result
// shape.
type transcribeResponse struct {
	Word    string `json:"word"`
	Result  string `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
	Encoder string `json:"encoder,omitempty"`
}

type healthzResponse struct {
	Status string `json:"status"`
	Rules  int    `json:"rules"`
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	store := a.activeStore()
	if store == nil {
		renderJSON(w, http.StatusServiceUnavailable, healthzResponse{Status: "unavailable"})
		return
	}
	renderJSON(w, http.StatusOK, healthzResponse{Status: "ok", Rules: len(store.Rules)})
}

// formValue reads a parameter from the query string first, falling
// back to a posted form value — both GET and POST are accepted on
// every transcription route.
func formValue(r *http.Request, names ...string) string {
	for _, name := range names {
		if v := r.URL.Query().Get(name); v != "" {
			return v
		}
	}
	r.ParseForm()
	for _, name := range names {
		if v := r.PostFormValue(name); v != "" {
			return v
		}
	}
	return ""
}

// bodyWord supports a bare plain-text body as an alternative to
// ?word=, matching original_source/server.py's tolerance for
// unstructured raw-socket style clients.
func bodyWord(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (a *API) handleTranscribeWord(w http.ResponseWriter, r *http.Request) {
	word := formValue(r, "word")
	if word == "" {
		word = bodyWord(r)
	}
	if word == "" {
		renderBadRequest(w, "missing word")
		return
	}
	word = clean.Text(word)

	sep := formValue(r, "sep")
	encoderName := formValue(r, "fmt", "encoder")

	o, err := a.orchestratorFor(encoderName)
	if err != nil {
		renderBadRequest(w, err.Error())
		return
	}

	result, err := o.Transcribe(r.Context(), word, sep)
	if err != nil {
		renderTranscriptionError(w, word, encoderName, err)
		return
	}
	renderCacheableJSON(w, r, http.StatusOK, transcribeResponse{Word: word, Result: result, Encoder: encoderName})
}

func (a *API) handleTranscribeText(w http.ResponseWriter, r *http.Request) {
	text := formValue(r, "text")
	if text == "" {
		text = bodyWord(r)
	}
	if text == "" {
		renderBadRequest(w, "missing text")
		return
	}
	text = clean.Text(text)

	preserveUnknown, _ := strconv.ParseBool(formValue(r, "preserve_unknown"))
	phonemeSep := formValue(r, "phoneme_sep", "psep")
	unknownSep := formValue(r, "unknown_sep", "usep")
	if unknownSep == "" {
		unknownSep = " "
	}
	encoderName := formValue(r, "fmt", "encoder")

	o, err := a.orchestratorFor(encoderName)
	if err != nil {
		renderBadRequest(w, err.Error())
		return
	}

	result := o.TranscribeText(text, preserveUnknown, phonemeSep, unknownSep)
	renderCacheableJSON(w, r, http.StatusOK, transcribeResponse{Word: text, Result: result, Encoder: encoderName})
}

func (a *API) handleTranscribePhrase(w http.ResponseWriter, r *http.Request) {
	phrase := formValue(r, "phrase", "text")
	if phrase == "" {
		phrase = bodyWord(r)
	}
	if phrase == "" {
		renderBadRequest(w, "missing phrase")
		return
	}
	phrase = clean.Text(phrase)

	sep := formValue(r, "sep")
	encoderName := formValue(r, "fmt", "encoder")

	o, err := a.orchestratorFor(encoderName)
	if err != nil {
		renderBadRequest(w, err.Error())
		return
	}

	result, err := o.TranscribePhrase(phrase, sep)
	if err != nil {
		renderTranscriptionError(w, phrase, encoderName, err)
		return
	}
	renderCacheableJSON(w, r, http.StatusOK, transcribeResponse{Word: phrase, Result: result, Encoder: encoderName})
}

// renderTranscriptionError maps the engine's structured error types to
// HTTP status codes: UnrecognizedSymbolsError is a
// client-input problem (422), everything else from the engine is
// treated as a malformed request (400) rather than a server fault.
func renderTranscriptionError(w http.ResponseWriter, word, encoderName string, err error) {
	var unrecognized *rerr.UnrecognizedSymbolsError
	if errors.As(err, &unrecognized) {
		renderJSON(w, http.StatusUnprocessableEntity, transcribeResponse{Word: word, Error: err.Error(), Encoder: encoderName})
		return
	}
	renderJSON(w, http.StatusBadRequest, transcribeResponse{Word: word, Error: err.Error(), Encoder: encoderName})
}
