// Package auth supplies the player profile a launch needs.
//
// The sign-in protocol chain happens elsewhere; this package stores the resulting session in the OS
// keyring and refreshes its access token when it expires.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"

	"github.com/desertthunder/mcx/internal/models"
	"github.com/desertthunder/mcx/internal/shared"
)

const (
	DefaultKeyringService = "mcx"
	keyringUser           = "session"
)

// Provider returns the authenticated player profile.
type Provider interface {
	GetProfile(ctx context.Context) (*models.Account, error)
}

// Session is a signed-in player with the token used as auth_access_token.
type Session struct {
	Username string        `json:"username"`
	UUID     string        `json:"uuid"`
	Token    *oauth2.Token `json:"token"`
}

// Account returns the launch profile of s.
func (s *Session) Account() *models.Account {
	a := &models.Account{Username: s.Username, UUID: s.UUID}
	if s.Token != nil {
		a.AccessToken = s.Token.AccessToken
	}
	return a
}

// Store persists one session.
type Store interface {
	Load() (*Session, error)
	Save(s *Session) error
	Delete() error
}

// KeyringStore keeps the session as JSON in the OS keyring.
type KeyringStore struct {
	service string
}

func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = DefaultKeyringService
	}
	return &KeyringStore{service: service}
}

func (k *KeyringStore) Load() (*Session, error) {
	secret, err := keyring.Get(k.service, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, shared.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(secret), &s); err != nil {
		return nil, fmt.Errorf("%w: stored session is corrupt: %v", shared.ErrAccountInvalid, err)
	}
	return &s, nil
}

func (k *KeyringStore) Save(s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if err := keyring.Set(k.service, keyringUser, string(data)); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Delete() error {
	err := keyring.Delete(k.service, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// KeyringProvider serves the stored session, refreshing an expired token through the OAuth2 token endpoint.
type KeyringProvider struct {
	store  Store
	config *oauth2.Config
	logger *log.Logger
}

// NewKeyringProvider creates a provider over store. Refreshing needs cfg.ClientID and cfg.TokenURL.
func NewKeyringProvider(cfg shared.AuthConfig, store Store, logger *log.Logger) *KeyringProvider {
	if logger == nil {
		logger = log.Default()
	}
	return &KeyringProvider{
		store: store,
		config: &oauth2.Config{
			ClientID: cfg.ClientID,
			Endpoint: oauth2.Endpoint{TokenURL: cfg.TokenURL},
		},
		logger: shared.WithLogger(logger, "component", "auth"),
	}
}

// Login stores s as the current session.
func (p *KeyringProvider) Login(s *Session) error {
	if err := s.Account().Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAccountInvalid, err)
	}
	return p.store.Save(s)
}

// Logout removes the stored session.
func (p *KeyringProvider) Logout() error {
	return p.store.Delete()
}

// GetProfile returns the stored account, refreshing its token first when it has expired.
func (p *KeyringProvider) GetProfile(ctx context.Context) (*models.Account, error) {
	s, err := p.store.Load()
	if err != nil {
		return nil, err
	}
	if s.Token == nil {
		return nil, fmt.Errorf("%w: session has no token", shared.ErrAccountInvalid)
	}

	if !s.Token.Valid() {
		if s.Token.RefreshToken == "" || p.config.Endpoint.TokenURL == "" {
			return nil, shared.ErrTokenExpired
		}

		p.logger.Info("Refreshing access token", "username", s.Username)
		token, err := p.config.TokenSource(ctx, s.Token).Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
		}
		s.Token = token
		if err := p.store.Save(s); err != nil {
			p.logger.Warn("Failed to persist refreshed token", "error", err)
		}
	}

	account := s.Account()
	if err := account.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAccountInvalid, err)
	}
	return account, nil
}
