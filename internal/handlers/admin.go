package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/pliu/parley/internal/apperr"
	"github.com/pliu/parley/internal/middleware"
	"github.com/pliu/parley/internal/models"
	"github.com/pliu/parley/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// AdminHandler is the oversight surface for the elevated principal. Group
// creation and direct-chat access reuse ChatHandler with the admin id as the
// acting principal; the routes differ only in the required role.
type AdminHandler struct {
	Store  store.Store
	Logger hclog.Logger
}

func (h *AdminHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "invalid request body"))
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "please enter all fields"))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	admin := &models.Admin{Name: req.Name, Email: req.Email, Password: string(hashed)}
	if err := h.Store.CreateAdmin(admin); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	setPrincipalCookie(w, middleware.Principal{ID: admin.ID, Role: middleware.RoleAdmin})
	writeJSON(w, http.StatusCreated, admin)
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "invalid request body"))
		return
	}

	admin, err := h.Store.GetAdminByEmail(creds.Email)
	if err != nil {
		writeError(w, h.Logger, apperr.New(apperr.Unauthorized, "invalid email or password"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(creds.Password)) != nil {
		writeError(w, h.Logger, apperr.New(apperr.Unauthorized, "invalid email or password"))
		return
	}

	setPrincipalCookie(w, middleware.Principal{ID: admin.ID, Role: middleware.RoleAdmin})
	writeJSON(w, http.StatusOK, admin)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers()
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.Store.GetAllChats()
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

// ChatMessages is cross-chat visibility: no membership requirement, only the
// admin role enforced by the route.
func (h *AdminHandler) ChatMessages(w http.ResponseWriter, r *http.Request) {
	chatID := mux.Vars(r)["chatId"]

	if _, err := h.Store.GetChat(chatID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	messages, err := h.Store.GetChatMessages(chatID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// DeleteUser cascades: the user's memberships, block marks, and authored
// messages go with the account.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]

	if err := h.Store.DeleteUser(userID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user terminated successfully"})
}

func (h *AdminHandler) GroupsCreated(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	chats, err := h.Store.ListGroupsByAdmin(p.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *AdminHandler) GroupsMember(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	chats, err := h.Store.ListGroupsWithMember(p.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}
