package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	"github.com/isdelr/carshelf/internal/common"
	"github.com/rs/zerolog/log"
)

const (
	msgDuplicate     = "Username or email already registered"
	msgBadLogin      = "Invalid username or password"
	msgProtected     = "Cannot delete admin user"
	msgInternalError = "Internal server error"
)

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError translates err into a status code and a message that never leaks
// storage detail. subject names the resource in not-found messages.
func writeError(w http.ResponseWriter, r *http.Request, err error, subject string, asJSON bool) {
	status, msg := classify(err, subject)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Request failed")
	} else {
		log.Debug().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("Request rejected")
	}

	if asJSON {
		writeJSON(w, status, map[string]string{"error": msg})
		return
	}
	http.Error(w, msg, status)
}

func classify(err error, subject string) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrDuplicateKey):
		return http.StatusConflict, msgDuplicate
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgBadLogin
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, subject + " not found"
	case errors.Is(err, common.ErrProtectedAccount):
		return http.StatusForbidden, msgProtected
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	}
	return http.StatusInternalServerError, msgInternalError
}

// formPayload is a request payload that can also be read from form values.
type formPayload interface {
	fromForm(v url.Values)
}

// decodeBody fills dst from a JSON body or, for any other content type, from
// url-encoded form values.
func decodeBody(r *http.Request, dst formPayload) error {
	if wantsJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return fmt.Errorf("%w: invalid request body", common.ErrValidation)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("%w: invalid form body", common.ErrValidation)
	}
	dst.fromForm(r.PostForm)
	return nil
}

// wantsJSON reports whether the client posted JSON rather than a form.
func wantsJSON(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/json"
}

var (
	errNoSession           = errors.New("no session in request context")
	errUnsupportedLanguage = fmt.Errorf("%w: unsupported language", common.ErrValidation)
)
