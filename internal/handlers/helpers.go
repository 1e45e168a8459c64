package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/pliu/parley/internal/apperr"
	"github.com/pliu/parley/internal/auth"
	"github.com/pliu/parley/internal/middleware"
	"github.com/pliu/parley/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the taxonomy to HTTP; anything untyped is a 500.
func writeError(w http.ResponseWriter, logger hclog.Logger, err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		writeJSON(w, e.Kind.HTTPStatus(), map[string]string{"message": e.Message})
		return
	}
	logger.Error("internal error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal server error"})
}

func principalFrom(r *http.Request) middleware.Principal {
	p, _ := middleware.GetPrincipal(r.Context())
	return p
}

func setPrincipalCookie(w http.ResponseWriter, p middleware.Principal) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.CookieName,
		Value:    auth.SignCookie(middleware.CookieValue(p)),
		Path:     "/",
		HttpOnly: true,
	})
}

// memberIDs flattens a chat's resolved member profiles to their ids.
func memberIDs(chat *models.Chat) []string {
	ids := make([]string, 0, len(chat.Users))
	for _, u := range chat.Users {
		ids = append(ids, u.ID)
	}
	return ids
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
