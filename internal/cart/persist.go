package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/sessions"
	"github.com/pyae198022/ShopHub/internal/models"
)

const (
	SessionName = "shophub-cart"
	itemsKey    = "items"
)

// SessionPersister keeps the cart in a gorilla session bound to one request.
// Use it with a FilesystemStore so only the session id travels in the cookie.
type SessionPersister struct {
	Store sessions.Store
	R     *http.Request
	W     http.ResponseWriter
}

func (p *SessionPersister) Load(ctx context.Context) ([]models.CartLineItem, error) {
	session, err := p.Store.Get(p.R, SessionName)
	if err != nil {
		return nil, fmt.Errorf("failed to open cart session: %w", err)
	}
	raw, ok := session.Values[itemsKey].([]byte)
	if !ok || len(raw) == 0 {
		return nil, nil
	}
	var items []models.CartLineItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return items, nil
}

func (p *SessionPersister) Save(ctx context.Context, items []models.CartLineItem) error {
	session, err := p.Store.Get(p.R, SessionName)
	if err != nil && session == nil {
		return fmt.Errorf("failed to open cart session: %w", err)
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	session.Values[itemsKey] = raw
	if err := session.Save(p.R, p.W); err != nil {
		return fmt.Errorf("failed to save cart session: %w", err)
	}
	return nil
}

// NewFilesystemStore returns the store used for carts: cookies carry only
// the session id and the items live under dir.
func NewFilesystemStore(dir string, secure bool, keyPairs ...[]byte) *sessions.FilesystemStore {
	store := sessions.NewFilesystemStore(dir, keyPairs...)
	store.MaxLength(1 << 20)
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	store.Options.Path = "/"
	store.Options.MaxAge = 86400 * 30
	return store
}

// MemoryPersister is a Persister for tests and non-HTTP callers.
type MemoryPersister struct {
	mu    sync.Mutex
	items []models.CartLineItem
	Err   error // returned by Save when set
	Saves int
}

func (m *MemoryPersister) Load(ctx context.Context) ([]models.CartLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.CartLineItem, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *MemoryPersister) Save(ctx context.Context, items []models.CartLineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	if m.Err != nil {
		return m.Err
	}
	m.items = make([]models.CartLineItem, len(items))
	copy(m.items, items)
	return nil
}
