package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/pyae198022/ShopHub/internal/models"
)

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, name, password, role, created_at FROM users WHERE email = ?`
	row := s.DB.QueryRowContext(ctx, query, strings.TrimSpace(email))

	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Password, &user.Role, &user.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, dbErr("store.GetUserByEmail", err)
	}
	return &user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, email, name, password, role, created_at FROM users WHERE id = ?`
	var user models.User
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Email, &user.Name, &user.Password, &user.Role, &user.CreatedAt)
	if err != nil {
		return nil, dbErr("store.GetUserByID", err)
	}
	return &user, nil
}

// UserEmail returns the registered email for userID, or "" if unknown.
func (s *Store) UserEmail(ctx context.Context, userID string) (string, error) {
	var email string
	err := s.DB.QueryRowContext(ctx, `SELECT email FROM users WHERE id = ?`, userID).Scan(&email)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", dbErr("store.UserEmail", err)
	}
	return email, nil
}

// CreateUser stores an already-hashed password.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleCustomer
	}
	u.CreatedAt = now()
	query := `INSERT INTO users (id, email, name, password, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, query, u.ID, strings.TrimSpace(u.Email), u.Name, u.Password, u.Role, u.CreatedAt)
	return dbErr("store.CreateUser", err)
}
