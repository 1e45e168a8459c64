package sqlstore

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pliu/parley/internal/apperr"
	"github.com/pliu/parley/internal/models"
)

func (s *SQLStore) CreateAdmin(admin *models.Admin) error {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	admin.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(
		"INSERT INTO admins (id, name, email, password, created_at) VALUES (?, ?, ?, ?, ?)",
		admin.ID, admin.Name, admin.Email, admin.Password, admin.CreatedAt,
	)
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.Conflict, err, "an admin with that email already exists")
	}
	return err
}

func scanAdmin(row *sql.Row) (*models.Admin, error) {
	var a models.Admin
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Password, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "admin not found")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *SQLStore) GetAdminByEmail(email string) (*models.Admin, error) {
	return scanAdmin(s.db.QueryRow(
		"SELECT id, name, email, password, created_at FROM admins WHERE email = ?", email))
}

func (s *SQLStore) GetAdminByID(id string) (*models.Admin, error) {
	return scanAdmin(s.db.QueryRow(
		"SELECT id, name, email, password, created_at FROM admins WHERE id = ?", id))
}

// SearchAdminByName returns the first admin whose name matches the query
// case-insensitively. Used by users looking to start a chat with an admin.
func (s *SQLStore) SearchAdminByName(query string) (*models.Admin, error) {
	return scanAdmin(s.db.QueryRow(
		"SELECT id, name, email, password, created_at FROM admins WHERE name LIKE ? ORDER BY name LIMIT 1",
		"%"+query+"%"))
}
