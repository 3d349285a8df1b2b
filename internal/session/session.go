package session

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"budgetbuddy/internal/database"
)

var ErrNoSession = errors.New("no session")

type Tokens struct {
	Access  string
	Refresh string
}

// Store holds the tokens of the single signed-in user. Implementations are
// safe for concurrent use.
type Store interface {
	Set(Tokens) error
	// Get returns ErrNoSession when nothing is stored.
	Get() (Tokens, error)
	Clear() error
	// Invalidate clears the session only if access is still the stored token.
	Invalidate(access string) error
}

// Persistent keeps tokens in the local sqlite database.
type Persistent struct {
	repo *database.Repository
}

func NewPersistent(repo *database.Repository) *Persistent {
	return &Persistent{repo: repo}
}

func (p *Persistent) Set(t Tokens) error {
	if t.Access == "" {
		return fmt.Errorf("empty access token")
	}
	if err := p.repo.SaveTokens(t.Access, t.Refresh); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (p *Persistent) Get() (Tokens, error) {
	access, refresh, err := p.repo.LoadTokens()
	if errors.Is(err, database.ErrNotFound) {
		return Tokens{}, ErrNoSession
	}
	if err != nil {
		return Tokens{}, fmt.Errorf("failed to load session: %w", err)
	}
	return Tokens{Access: access, Refresh: refresh}, nil
}

func (p *Persistent) Clear() error {
	if err := p.repo.DeleteTokens(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (p *Persistent) Invalidate(access string) error {
	if _, err := p.repo.DeleteTokensIf(access); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	return nil
}

// Memory is a process-local Store.
type Memory struct {
	mu     sync.Mutex
	tokens *Tokens
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Set(t Tokens) error {
	if t.Access == "" {
		return fmt.Errorf("empty access token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = &t
	return nil
}

func (m *Memory) Get() (Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		return Tokens{}, ErrNoSession
	}
	return *m.tokens, nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = nil
	return nil
}

func (m *Memory) Invalidate(access string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens != nil && m.tokens.Access == access {
		m.tokens = nil
	}
	return nil
}

// UserID reads the user_id claim from an access token without verifying its
// signature; the backend remains the only party that validates tokens.
func UserID(access string) (int64, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return 0, false
	}
	switch v := claims["user_id"].(type) {
	case float64:
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil
	}
	return 0, false
}
