package sqlstore

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pliu/parley/internal/apperr"
	"github.com/pliu/parley/internal/models"
	"github.com/pliu/parley/internal/store"
)

const messageColumns = "id, chat_id, sender_id, content, file_url, file_name, file_type, reply_to_id, created_at"

type messageRow struct {
	msg      models.Message
	senderID string
	replyTo  sql.NullString
}

func scanMessage(row interface{ Scan(...any) error }) (*messageRow, error) {
	var m messageRow
	err := row.Scan(
		&m.msg.ID, &m.msg.ChatID, &m.senderID, &m.msg.Content,
		&m.msg.FileURL, &m.msg.FileName, &m.msg.FileType,
		&m.replyTo, &m.msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *SQLStore) readBy(messageID string) ([]string, error) {
	rows, err := s.db.Query("SELECT user_id FROM message_reads WHERE message_id = ?", messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// resolveMessage fills in the sender profile, read set, and the reply target
// (one level deep, without its own reply chain).
func (s *SQLStore) resolveMessage(row *messageRow, withReply bool) (*models.Message, error) {
	msg := row.msg

	sender, err := s.principalProfile(row.senderID)
	if err != nil && !apperr.IsKind(err, apperr.NotFound) {
		return nil, err
	}
	if sender != nil {
		msg.Sender = *sender
	} else {
		msg.Sender = models.User{ID: row.senderID}
	}

	if msg.ReadBy, err = s.readBy(msg.ID); err != nil {
		return nil, err
	}

	if withReply && row.replyTo.Valid {
		reply, err := s.getMessageShallow(row.replyTo.String)
		if err != nil && !apperr.IsKind(err, apperr.NotFound) {
			return nil, err
		}
		msg.ReplyTo = reply
	}
	return &msg, nil
}

func (s *SQLStore) getMessageShallow(messageID string) (*models.Message, error) {
	row, err := scanMessage(s.db.QueryRow("SELECT "+messageColumns+" FROM messages WHERE id = ?", messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "message not found")
	}
	if err != nil {
		return nil, err
	}
	return s.resolveMessage(row, false)
}

func (s *SQLStore) GetMessage(messageID string) (*models.Message, error) {
	row, err := scanMessage(s.db.QueryRow("SELECT "+messageColumns+" FROM messages WHERE id = ?", messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "message not found")
	}
	if err != nil {
		return nil, err
	}
	return s.resolveMessage(row, true)
}

// SaveMessage appends the message, marks it read by its sender, and bumps the
// chat's latest-message pointer and updated_at, all in one transaction.
func (s *SQLStore) SaveMessage(msg store.NewMessage) (*models.Message, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var replyTo any
	if msg.ReplyTo != "" {
		replyTo = msg.ReplyTo
	}
	_, err = tx.Exec(
		"INSERT INTO messages (id, chat_id, sender_id, content, file_url, file_name, file_type, reply_to_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		id, msg.ChatID, msg.SenderID, msg.Content, msg.FileURL, msg.FileName, msg.FileType, replyTo, now,
	)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec("INSERT INTO message_reads (message_id, user_id) VALUES (?, ?)", id, msg.SenderID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec("UPDATE chats SET latest_message_id = ?, updated_at = ? WHERE id = ?", id, now, msg.ChatID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetMessage(id)
}

func (s *SQLStore) GetChatMessages(chatID string) ([]models.Message, error) {
	// rowid breaks created_at ties so send order holds within one chat.
	rows, err := s.db.Query(
		"SELECT "+messageColumns+" FROM messages WHERE chat_id = ? ORDER BY created_at, rowid", chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	raw := []*messageRow{}
	for rows.Next() {
		r, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	messages := []models.Message{}
	for _, r := range raw {
		m, err := s.resolveMessage(r, true)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, nil
}

// DeleteMessage hard-deletes. The chat's latest-message pointer is left as
// is; a dangling pointer is tolerated when resolving chats.
func (s *SQLStore) DeleteMessage(messageID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM message_reads WHERE message_id = ?", messageID); err != nil {
		return err
	}
	res, err := tx.Exec("DELETE FROM messages WHERE id = ?", messageID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, "message not found")
	}
	return tx.Commit()
}

// MarkChatRead marks every message in the chat not authored by userID as read
// by userID. Idempotent.
func (s *SQLStore) MarkChatRead(chatID, userID string) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO message_reads (message_id, user_id)
		SELECT m.id, ? FROM messages m
		WHERE m.chat_id = ? AND m.sender_id <> ?`,
		userID, chatID, userID)
	return err
}

func (s *SQLStore) UnreadCount(chatID, userID string) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM messages m
		WHERE m.chat_id = ? AND m.sender_id <> ?
		AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id = m.id AND r.user_id = ?)`,
		chatID, userID, userID).Scan(&count)
	return count, err
}

// UnreadCounts returns one entry per chat the user belongs to, including
// zero-count chats.
func (s *SQLStore) UnreadCounts(userID string) ([]models.ChatUnread, error) {
	rows, err := s.db.Query(`
		SELECT p.chat_id, COUNT(m.id)
		FROM participants p
		LEFT JOIN messages m ON m.chat_id = p.chat_id AND m.sender_id <> p.user_id
			AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id = m.id AND r.user_id = p.user_id)
		WHERE p.user_id = ?
		GROUP BY p.chat_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := []models.ChatUnread{}
	for rows.Next() {
		var c models.ChatUnread
		if err := rows.Scan(&c.ChatID, &c.UnreadCount); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// ClearAllNotifications marks as read every unread, not-self-authored message
// across every chat the user belongs to.
func (s *SQLStore) ClearAllNotifications(userID string) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO message_reads (message_id, user_id)
		SELECT m.id, ? FROM messages m
		JOIN participants p ON p.chat_id = m.chat_id AND p.user_id = ?
		WHERE m.sender_id <> ?`,
		userID, userID, userID)
	return err
}
