package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
	"github.com/pyae198022/ShopHub/internal/apperr"
	"github.com/pyae198022/ShopHub/internal/models"
	"golang.org/x/crypto/bcrypt"
)

const SessionName = "shophub-session"

var ErrInvalidCredentials = apperr.New(apperr.Unauthorized, "auth.Authenticate", "Invalid email or password")

// Identity is the caller resolved from a session cookie or bearer token.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

func (i Identity) IsAdmin() bool { return i.Role == models.RoleAdmin }

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type Service struct {
	users    UserStore
	sessions sessions.Store
	secret   []byte
	ttl      time.Duration
}

func NewService(users UserStore, store sessions.Store, secret []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{users: users, sessions: store, secret: secret, ttl: ttl}
}

// HashPassword returns the bcrypt hash stored in users.password.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Authenticate checks the password and returns the user. Unknown emails and
// wrong passwords produce the same error.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func (s *Service) IssueToken(u *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) ParseToken(raw string) (*Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid token signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Wrap(apperr.Unauthorized, "auth.ParseToken", "Invalid or expired token", err)
	}
	return &Identity{UserID: c.Subject, Email: c.Email, Role: c.Role}, nil
}

func (s *Service) StartSession(w http.ResponseWriter, r *http.Request, u *models.User) error {
	session, _ := s.sessions.Get(r, SessionName)
	session.Values["authenticated"] = true
	session.Values["user_id"] = u.ID
	session.Options.Path = "/"
	if err := session.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *Service) EndSession(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.sessions.Get(r, SessionName)
	session.Values["authenticated"] = false
	delete(session.Values, "user_id")
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// Resolve identifies the caller, preferring a bearer token over the session
// cookie. Sessions are re-read from the user table so role changes apply.
func (s *Service) Resolve(r *http.Request) (*Identity, bool) {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		id, err := s.ParseToken(strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			slog.Debug("Rejected bearer token", "error", err)
			return nil, false
		}
		return id, true
	}

	session, err := s.sessions.Get(r, SessionName)
	if err != nil {
		return nil, false
	}
	if ok, _ := session.Values["authenticated"].(bool); !ok {
		return nil, false
	}
	userID, _ := session.Values["user_id"].(string)
	if userID == "" {
		return nil, false
	}
	user, err := s.users.GetUserByID(r.Context(), userID)
	if err != nil {
		slog.Warn("Session refers to unknown user", "user_id", userID, "error", err)
		return nil, false
	}
	return &Identity{UserID: user.ID, Email: user.Email, Role: user.Role}, true
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*Identity)
	return id, ok && id != nil
}
