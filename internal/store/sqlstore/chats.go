package sqlstore

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pliu/parley/internal/apperr"
	"github.com/pliu/parley/internal/models"
)

// pairKey is the canonical dedup key for a direct chat: the two member ids in
// lexical order. A unique index on it turns the find-or-create race into a
// constraint violation instead of a duplicate chat.
func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// principalProfile resolves a member id against users first, then admins
// (admins can join chats too). Credentials are never populated.
func (s *SQLStore) principalProfile(id string) (*models.User, error) {
	u, err := s.GetUserByID(id)
	if err == nil {
		u.Password = ""
		return u, nil
	}
	if !apperr.IsKind(err, apperr.NotFound) {
		return nil, err
	}
	a, err := s.GetAdminByID(id)
	if err != nil {
		return nil, err
	}
	return &models.User{ID: a.ID, Name: a.Name, Email: a.Email, CreatedAt: a.CreatedAt}, nil
}

func (s *SQLStore) chatMembers(chatID string) ([]models.User, error) {
	members := []models.User{}

	rows, err := s.db.Query(`
		SELECT u.id, u.name, u.email, u.pic, u.created_at
		FROM users u
		JOIN participants p ON u.id = p.user_id
		WHERE p.chat_id = ?`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Pic, &u.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Admin principals sit in the same participant set.
	arows, err := s.db.Query(`
		SELECT a.id, a.name, a.email, a.created_at
		FROM admins a
		JOIN participants p ON a.id = p.user_id
		WHERE p.chat_id = ?`, chatID)
	if err != nil {
		return nil, err
	}
	defer arows.Close()
	for arows.Next() {
		var u models.User
		if err := arows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, u)
	}
	return members, arows.Err()
}

func (s *SQLStore) blockedBy(chatID string) ([]string, error) {
	rows, err := s.db.Query("SELECT user_id FROM chat_blocks WHERE chat_id = ?", chatID)
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

// loadChat resolves one chat: member profiles, group admin, block set, and
// the latest-message pointer (skipped silently if it dangles after a delete).
func (s *SQLStore) loadChat(chatID string) (*models.Chat, error) {
	var (
		c          models.Chat
		groupAdmin sql.NullString
		latestID   sql.NullString
	)
	err := s.db.QueryRow(
		"SELECT id, name, is_group, group_admin, latest_message_id, created_at, updated_at FROM chats WHERE id = ?",
		chatID,
	).Scan(&c.ID, &c.Name, &c.IsGroup, &groupAdmin, &latestID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "chat not found")
	}
	if err != nil {
		return nil, err
	}

	if c.Users, err = s.chatMembers(c.ID); err != nil {
		return nil, err
	}
	if c.BlockedBy, err = s.blockedBy(c.ID); err != nil {
		return nil, err
	}

	if groupAdmin.Valid {
		admin, err := s.principalProfile(groupAdmin.String)
		if err != nil && !apperr.IsKind(err, apperr.NotFound) {
			return nil, err
		}
		c.GroupAdmin = admin
	}

	if latestID.Valid {
		msg, err := s.GetMessage(latestID.String)
		if err != nil && !apperr.IsKind(err, apperr.NotFound) {
			return nil, err
		}
		c.LatestMessage = msg
	}
	return &c, nil
}

func (s *SQLStore) GetChat(chatID string) (*models.Chat, error) {
	return s.loadChat(chatID)
}

func (s *SQLStore) IsParticipant(chatID, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM participants WHERE chat_id = ? AND user_id = ?)",
		chatID, userID,
	).Scan(&exists)
	return exists, err
}

func (s *SQLStore) FindDirectChat(userA, userB string) (*models.Chat, error) {
	var id string
	err := s.db.QueryRow("SELECT id FROM chats WHERE pair_key = ?", pairKey(userA, userB)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "chat not found")
	}
	if err != nil {
		return nil, err
	}
	return s.loadChat(id)
}

func (s *SQLStore) CreateDirectChat(userA, userB string) (*models.Chat, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO chats (id, name, is_group, pair_key, created_at, updated_at) VALUES (?, '', FALSE, ?, ?, ?)",
		id, pairKey(userA, userB), now, now,
	)
	if isUniqueViolation(err) {
		return nil, apperr.Wrap(apperr.Conflict, err, "direct chat already exists")
	}
	if err != nil {
		return nil, err
	}
	for _, userID := range []string{userA, userB} {
		if _, err := tx.Exec("INSERT OR IGNORE INTO participants (chat_id, user_id) VALUES (?, ?)", id, userID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.loadChat(id)
}

func (s *SQLStore) CreateGroupChat(name, adminID string, memberIDs []string) (*models.Chat, error) {
	id := uuid.NewString()
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO chats (id, name, is_group, group_admin, created_at, updated_at) VALUES (?, ?, TRUE, ?, ?, ?)",
		id, name, adminID, now, now,
	)
	if isUniqueViolation(err) {
		return nil, apperr.Wrap(apperr.Conflict, err, "group name already exists")
	}
	if err != nil {
		return nil, err
	}

	members := append([]string{adminID}, memberIDs...)
	for _, userID := range members {
		if _, err := tx.Exec("INSERT OR IGNORE INTO participants (chat_id, user_id) VALUES (?, ?)", id, userID); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.loadChat(id)
}

// GroupNameExists reports whether an active group other than excludeChatID
// already uses the name, compared case-insensitively.
func (s *SQLStore) GroupNameExists(name, excludeChatID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM chats WHERE is_group AND lower(name) = lower(?) AND id <> ?)",
		name, excludeChatID,
	).Scan(&exists)
	return exists, err
}

func (s *SQLStore) RenameChat(chatID, name string) (*models.Chat, error) {
	_, err := s.db.Exec("UPDATE chats SET name = ? WHERE id = ?", name, chatID)
	if isUniqueViolation(err) {
		return nil, apperr.Wrap(apperr.Conflict, err, "group name already exists")
	}
	if err != nil {
		return nil, err
	}
	return s.loadChat(chatID)
}

func (s *SQLStore) AddParticipant(chatID, userID string) (*models.Chat, error) {
	// INSERT OR IGNORE dedupes a repeated add.
	_, err := s.db.Exec("INSERT OR IGNORE INTO participants (chat_id, user_id) VALUES (?, ?)", chatID, userID)
	if err != nil {
		return nil, err
	}
	return s.loadChat(chatID)
}

// RemoveParticipant also drops the member's block mark so blockedBy stays a
// subset of the member set. Removing a non-member is a no-op.
func (s *SQLStore) RemoveParticipant(chatID, userID string) (*models.Chat, error) {
	if _, err := s.db.Exec("DELETE FROM participants WHERE chat_id = ? AND user_id = ?", chatID, userID); err != nil {
		return nil, err
	}
	if _, err := s.db.Exec("DELETE FROM chat_blocks WHERE chat_id = ? AND user_id = ?", chatID, userID); err != nil {
		return nil, err
	}
	return s.loadChat(chatID)
}

func (s *SQLStore) chatIDs(query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(query, args...)
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

func (s *SQLStore) loadChats(ids []string) ([]models.Chat, error) {
	chats := []models.Chat{}
	for _, id := range ids {
		c, err := s.loadChat(id)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *c)
	}
	return chats, nil
}

func (s *SQLStore) GetUserChats(userID string) ([]models.Chat, error) {
	ids, err := s.chatIDs(`
		SELECT c.id FROM chats c
		JOIN participants p ON c.id = p.chat_id
		WHERE p.user_id = ?
		ORDER BY c.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return s.loadChats(ids)
}

func (s *SQLStore) GetAllChats() ([]models.Chat, error) {
	ids, err := s.chatIDs("SELECT id FROM chats ORDER BY updated_at DESC")
	if err != nil {
		return nil, err
	}
	return s.loadChats(ids)
}

func (s *SQLStore) ListGroupsByAdmin(adminID string) ([]models.Chat, error) {
	ids, err := s.chatIDs(
		"SELECT id FROM chats WHERE is_group AND group_admin = ? ORDER BY updated_at DESC", adminID)
	if err != nil {
		return nil, err
	}
	return s.loadChats(ids)
}

func (s *SQLStore) ListGroupsWithMember(userID string) ([]models.Chat, error) {
	ids, err := s.chatIDs(`
		SELECT c.id FROM chats c
		JOIN participants p ON c.id = p.chat_id
		WHERE c.is_group AND p.user_id = ?
		ORDER BY c.updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return s.loadChats(ids)
}

// DeleteChat cascades: messages and their read marks first, then membership,
// blocks, and the chat row.
func (s *SQLStore) DeleteChat(chatID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		"DELETE FROM message_reads WHERE message_id IN (SELECT id FROM messages WHERE chat_id = ?)",
		"DELETE FROM messages WHERE chat_id = ?",
		"DELETE FROM participants WHERE chat_id = ?",
		"DELETE FROM chat_blocks WHERE chat_id = ?",
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, chatID); err != nil {
			return err
		}
	}

	res, err := tx.Exec("DELETE FROM chats WHERE id = ?", chatID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, "chat not found")
	}
	return tx.Commit()
}

func (s *SQLStore) BlockChat(chatID, userID string) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO chat_blocks (chat_id, user_id) VALUES (?, ?)", chatID, userID)
	return err
}

func (s *SQLStore) UnblockChat(chatID, userID string) error {
	_, err := s.db.Exec("DELETE FROM chat_blocks WHERE chat_id = ? AND user_id = ?", chatID, userID)
	return err
}
