package spotify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kiwidesk/kiwi/internal/models"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TokenStore holds the OAuth session between requests. Load returns nil
// without error when no session exists.
type TokenStore interface {
	Load(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, tok *oauth2.Token) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the token in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	tok *oauth2.Token
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Load(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok == nil {
		return nil, nil
	}
	tok := *s.tok
	return &tok, nil
}

func (s *MemoryStore) Save(ctx context.Context, tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tok
	s.tok = &cp
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = nil
	return nil
}

// DBStore persists the token as one oauth_tokens row keyed by provider, so
// the session survives restarts.
type DBStore struct {
	db       *gorm.DB
	provider string
}

// NewDBStore creates a DBStore for provider.
func NewDBStore(db *gorm.DB, provider string) *DBStore {
	return &DBStore{db: db, provider: provider}
}

func (s *DBStore) Load(ctx context.Context) (*oauth2.Token, error) {
	var row models.OAuthToken
	if err := s.db.WithContext(ctx).Where("provider = ?", s.provider).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("spotify: load token: %w", err)
	}
	return &oauth2.Token{
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		TokenType:    row.TokenType,
		Expiry:       row.Expiry,
	}, nil
}

func (s *DBStore) Save(ctx context.Context, tok *oauth2.Token) error {
	row := models.OAuthToken{
		Provider:     s.provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry.UTC(),
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("spotify: save token: %w", err)
	}
	return nil
}

func (s *DBStore) Clear(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Where("provider = ?", s.provider).Delete(&models.OAuthToken{}).Error; err != nil {
		return fmt.Errorf("spotify: clear token: %w", err)
	}
	return nil
}
