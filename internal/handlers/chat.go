package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/pliu/parley/internal/apperr"
	"github.com/pliu/parley/internal/models"
	"github.com/pliu/parley/internal/store"
)

type ChatHandler struct {
	Store  store.Store
	Logger hclog.Logger
}

// AccessChat finds or creates the direct chat between the principal and the
// requested user. The pair is the dedup key; a concurrent create from the
// other side resolves through the store's uniqueness constraint.
func (h *ChatHandler) AccessChat(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "user_id is required"))
		return
	}
	if req.UserID == p.ID {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "cannot open a chat with yourself"))
		return
	}

	chat, err := h.Store.FindDirectChat(p.ID, req.UserID)
	if err == nil {
		writeJSON(w, http.StatusOK, chat)
		return
	}
	if !apperr.IsKind(err, apperr.NotFound) {
		writeError(w, h.Logger, err)
		return
	}

	chat, err = h.Store.CreateDirectChat(p.ID, req.UserID)
	if apperr.IsKind(err, apperr.Conflict) {
		// Lost the race to the other side; the chat exists now.
		chat, err = h.Store.FindDirectChat(p.ID, req.UserID)
	}
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	chats, err := h.Store.GetUserChats(p.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chats)
}

func (h *ChatHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	var req struct {
		Name  string   `json:"name"`
		Users []string `json:"users"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "invalid request body"))
		return
	}
	if req.Name == "" || len(req.Users) == 0 {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "please fill all the fields"))
		return
	}
	if len(req.Users) < 2 {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "more than 2 users are required to form a group chat"))
		return
	}

	exists, err := h.Store.GroupNameExists(req.Name, "")
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if exists {
		writeError(w, h.Logger, apperr.New(apperr.Conflict, "group name already exists"))
		return
	}

	chat, err := h.Store.CreateGroupChat(req.Name, p.ID, req.Users)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

func (h *ChatHandler) RenameGroup(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	var req struct {
		ChatID string `json:"chat_id"`
		Name   string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == "" || req.Name == "" {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "chat_id and name are required"))
		return
	}

	chat, err := h.groupAdminOnly(req.ChatID, p.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	exists, err := h.Store.GroupNameExists(req.Name, chat.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if exists {
		writeError(w, h.Logger, apperr.New(apperr.Conflict, "group name already exists"))
		return
	}

	updated, err := h.Store.RenameChat(chat.ID, req.Name)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ChatHandler) AddToGroup(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	var req struct {
		ChatID string `json:"chat_id"`
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == "" || req.UserID == "" {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "chat_id and user_id are required"))
		return
	}

	if _, err := h.groupAdminOnly(req.ChatID, p.ID); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	updated, err := h.Store.AddParticipant(req.ChatID, req.UserID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ChatHandler) RemoveFromGroup(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	var req struct {
		ChatID string `json:"chat_id"`
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == "" || req.UserID == "" {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "chat_id and user_id are required"))
		return
	}

	chat, err := h.Store.GetChat(req.ChatID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	// The admin may remove anyone; a member may remove themself.
	if req.UserID != p.ID && (chat.GroupAdmin == nil || chat.GroupAdmin.ID != p.ID) {
		writeError(w, h.Logger, apperr.New(apperr.Forbidden, "only group admin can remove other users"))
		return
	}

	updated, err := h.Store.RemoveParticipant(req.ChatID, req.UserID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ChatHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	var req struct {
		ChatID string `json:"chat_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == "" {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "chat_id is required"))
		return
	}

	if _, err := h.groupAdminOnly(req.ChatID, p.ID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.Store.DeleteChat(req.ChatID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "group deleted successfully"})
}

// DeleteChat is open to any member, not just the group admin.
func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	chatID := mux.Vars(r)["chatId"]

	if _, err := h.memberOnly(chatID, p.ID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.Store.DeleteChat(chatID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "chat deleted successfully"})
}

func (h *ChatHandler) BlockChat(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	chatID := mux.Vars(r)["chatId"]

	if _, err := h.memberOnly(chatID, p.ID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.Store.BlockChat(chatID, p.ID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "chat blocked successfully"})
}

func (h *ChatHandler) UnblockChat(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	chatID := mux.Vars(r)["chatId"]

	if _, err := h.memberOnly(chatID, p.ID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if err := h.Store.UnblockChat(chatID, p.ID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "chat unblocked successfully"})
}

// memberOnly loads the chat and enforces the membership check, existence
// before authorization.
func (h *ChatHandler) memberOnly(chatID, principalID string) (*models.Chat, error) {
	chat, err := h.Store.GetChat(chatID)
	if err != nil {
		return nil, err
	}
	if !contains(memberIDs(chat), principalID) {
		return nil, apperr.New(apperr.Forbidden, "you are not a member of this chat")
	}
	return chat, nil
}

// groupAdminOnly loads the chat and enforces the group-admin check.
func (h *ChatHandler) groupAdminOnly(chatID, principalID string) (*models.Chat, error) {
	chat, err := h.Store.GetChat(chatID)
	if err != nil {
		return nil, err
	}
	if !chat.IsGroup {
		return nil, apperr.New(apperr.BadRequest, "not a group chat")
	}
	if chat.GroupAdmin == nil || chat.GroupAdmin.ID != principalID {
		return nil, apperr.New(apperr.Forbidden, "only group admin can do that")
	}
	return chat, nil
}
