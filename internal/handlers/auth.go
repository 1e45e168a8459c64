package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/pliu/parley/internal/apperr"
	"github.com/pliu/parley/internal/middleware"
	"github.com/pliu/parley/internal/models"
	"github.com/pliu/parley/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	Store  store.Store
	Logger hclog.Logger
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	type SignupRequest struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Pic      string `json:"pic"`
	}

	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "invalid request body"))
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "please enter all the fields"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: string(hashed),
		Pic:      req.Pic,
	}
	if err := h.Store.CreateUser(user); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	setPrincipalCookie(w, middleware.Principal{ID: user.ID, Role: middleware.RoleUser})
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "invalid request body"))
		return
	}

	user, err := h.Store.GetUserByEmail(creds.Email)
	if err != nil {
		writeError(w, h.Logger, apperr.New(apperr.Unauthorized, "invalid email or password"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)) != nil {
		writeError(w, h.Logger, apperr.New(apperr.Unauthorized, "invalid email or password"))
		return
	}

	setPrincipalCookie(w, middleware.Principal{ID: user.ID, Role: middleware.RoleUser})
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	users, err := h.Store.SearchUsers(r.URL.Query().Get("search"), p.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	var req struct {
		Name string `json:"name"`
		Pic  string `json:"pic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "invalid request body"))
		return
	}

	user, err := h.Store.UpdateUserProfile(p.ID, req.Name, req.Pic)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "invalid request body"))
		return
	}
	if req.NewPassword == "" {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "new password is required"))
		return
	}

	user, err := h.Store.GetUserByID(p.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)) != nil {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "invalid current password"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.Store.UpdateUserPassword(p.ID, string(hashed)); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed successfully"})
}

// SearchAdmin lets a user look up an admin by name to start a chat with one.
func (h *AuthHandler) SearchAdmin(w http.ResponseWriter, r *http.Request) {
	admin, err := h.Store.SearchAdminByName(r.URL.Query().Get("search"))
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, admin)
}
