package sqlstore

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pliu/parley/internal/apperr"
	"github.com/pliu/parley/internal/models"
)

const userColumns = "id, name, email, password, pic, created_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Password, &u.Pic, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *SQLStore) CreateUser(user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(
		"INSERT INTO users (id, name, email, password, pic, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Name, user.Email, user.Password, user.Pic, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.Conflict, err, "a user with that name or email already exists")
	}
	return err
}

func (s *SQLStore) GetUserByEmail(email string) (*models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE email = ?", email)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	return user, err
}

func (s *SQLStore) GetUserByID(id string) (*models.User, error) {
	row := s.db.QueryRow("SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	return user, err
}

// SearchUsers matches name or email case-insensitively, excluding the
// requesting user. An empty query returns everyone else.
func (s *SQLStore) SearchUsers(query, excludeID string) ([]models.User, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.Query(
		"SELECT "+userColumns+" FROM users WHERE id <> ? AND (name LIKE ? OR email LIKE ?) ORDER BY name",
		excludeID, pattern, pattern,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func (s *SQLStore) ListUsers() ([]models.User, error) {
	rows, err := s.db.Query("SELECT " + userColumns + " FROM users ORDER BY created_at")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]models.User, error) {
	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *SQLStore) UpdateUserProfile(id, name, pic string) (*models.User, error) {
	_, err := s.db.Exec(
		"UPDATE users SET name = COALESCE(NULLIF(?, ''), name), pic = COALESCE(NULLIF(?, ''), pic) WHERE id = ?",
		name, pic, id,
	)
	if isUniqueViolation(err) {
		return nil, apperr.Wrap(apperr.Conflict, err, "a user with that name already exists")
	}
	if err != nil {
		return nil, err
	}
	return s.GetUserByID(id)
}

func (s *SQLStore) UpdateUserPassword(id, hash string) error {
	res, err := s.db.Exec("UPDATE users SET password = ? WHERE id = ?", hash, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}
	return nil
}

// DeleteUser removes the user, their memberships and block marks, every
// message they authored (with its read marks), and their own read marks.
// Chats they were in are left in place.
func (s *SQLStore) DeleteUser(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, "user not found")
	}

	stmts := []string{
		"DELETE FROM participants WHERE user_id = ?",
		"DELETE FROM chat_blocks WHERE user_id = ?",
		"DELETE FROM message_reads WHERE message_id IN (SELECT id FROM messages WHERE sender_id = ?)",
		"DELETE FROM message_reads WHERE user_id = ?",
		"DELETE FROM messages WHERE sender_id = ?",
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
