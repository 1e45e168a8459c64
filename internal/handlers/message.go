package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"
	"github.com/pliu/parley/internal/apperr"
	"github.com/pliu/parley/internal/models"
	"github.com/pliu/parley/internal/notify"
	"github.com/pliu/parley/internal/store"
)

type MessageHandler struct {
	Store  store.Store
	Broker notify.Broker
	Logger hclog.Logger
}

// Send appends a message. Checks run in order: existence, membership,
// payload, block gate. The block gate is a whole-chat mute: any single
// member's block forbids sending for everyone until that member unblocks.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	var req struct {
		ChatID   string `json:"chat_id"`
		Content  string `json:"content"`
		FileURL  string `json:"file_url"`
		FileName string `json:"file_name"`
		FileType string `json:"file_type"`
		ReplyTo  string `json:"reply_to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == "" {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "chat_id is required"))
		return
	}

	chat, err := h.Store.GetChat(req.ChatID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	members := memberIDs(chat)
	if !contains(members, p.ID) {
		writeError(w, h.Logger, apperr.New(apperr.Forbidden, "you are not a member of this chat"))
		return
	}
	if req.Content == "" && req.FileURL == "" {
		writeError(w, h.Logger, apperr.New(apperr.BadRequest, "message content or attachment is required"))
		return
	}

	if len(chat.BlockedBy) > 0 {
		if contains(chat.BlockedBy, p.ID) {
			writeError(w, h.Logger, apperr.New(apperr.Forbidden, "cannot send message: you have blocked this chat"))
			return
		}
		writeError(w, h.Logger, apperr.New(apperr.Forbidden, "cannot send message: this chat has been blocked by another participant"))
		return
	}

	if req.ReplyTo != "" {
		target, err := h.Store.GetMessage(req.ReplyTo)
		if err != nil {
			writeError(w, h.Logger, apperr.New(apperr.BadRequest, "reply target does not exist"))
			return
		}
		if target.ChatID != chat.ID {
			writeError(w, h.Logger, apperr.New(apperr.BadRequest, "reply target belongs to another chat"))
			return
		}
	}

	msg, err := h.Store.SaveMessage(store.NewMessage{
		ChatID:   chat.ID,
		SenderID: p.ID,
		Content:  req.Content,
		FileURL:  req.FileURL,
		FileName: req.FileName,
		FileType: req.FileType,
		ReplyTo:  req.ReplyTo,
	})
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	// Fire-and-forget fan-out to every member except the sender.
	for _, userID := range members {
		if userID == p.ID {
			continue
		}
		if err := h.Broker.Publish(userID, notify.MessageReceived(msg)); err != nil {
			h.Logger.Warn("fan-out publish failed", "user", userID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, msg)
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	chatID := mux.Vars(r)["chatId"]

	if _, err := h.memberOnly(chatID, p.ID); err != nil {
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

// Delete is restricted to the original sender.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	messageID := mux.Vars(r)["messageId"]

	msg, err := h.Store.GetMessage(messageID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	if msg.Sender.ID != p.ID {
		writeError(w, h.Logger, apperr.New(apperr.Forbidden, "you can only delete your own messages"))
		return
	}
	if err := h.Store.DeleteMessage(messageID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "message deleted successfully"})
}

// MarkRead marks every message in the chat not authored by the principal as
// read, then pushes a messages_read event back to the principal's own
// connections for multi-device sync.
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	chatID := mux.Vars(r)["chatId"]

	if _, err := h.memberOnly(chatID, p.ID); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	if err := h.Store.MarkChatRead(chatID, p.ID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	unread, err := h.Store.UnreadCount(chatID, p.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}

	if err := h.Broker.Publish(p.ID, notify.MessagesRead(chatID, unread)); err != nil {
		h.Logger.Warn("fan-out publish failed", "user", p.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "unread_count": unread})
}

func (h *MessageHandler) UnreadCounts(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	counts, err := h.Store.UnreadCounts(p.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *MessageHandler) ChatUnreadCount(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	chatID := mux.Vars(r)["chatId"]

	if _, err := h.memberOnly(chatID, p.ID); err != nil {
		writeError(w, h.Logger, err)
		return
	}

	count, err := h.Store.UnreadCount(chatID, p.ID)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread_count": count})
}

func (h *MessageHandler) ClearNotifications(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)

	if err := h.Store.ClearAllNotifications(p.ID); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "all notifications cleared"})
}

func (h *MessageHandler) memberOnly(chatID, principalID string) (*models.Chat, error) {
	chat, err := h.Store.GetChat(chatID)
	if err != nil {
		return nil, err
	}
	if !contains(memberIDs(chat), principalID) {
		return nil, apperr.New(apperr.Forbidden, "you are not a member of this chat")
	}
	return chat, nil
}
