package oauth2

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"

	"partymatch/cfg"
)

const ProviderGoogle = "google"

// UserInfo is the identity extracted from the provider's ID token.
type UserInfo struct {
	Subject  string
	Email    string
	FullName string
}

// TokenSet carries the provider tokens from a completed exchange.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// CallbackInfo is what the application returns after handling a login:
// the session token handed back to the client.
type CallbackInfo struct {
	SessionToken string `json:"session_token"`
	UserID       string `json:"user_id"`
}

// CallbackFunc lets the application react to a completed provider login.
type CallbackFunc func(ctx context.Context, provider string, userInfo *UserInfo, tokenSet *TokenSet) (*CallbackInfo, error)

// Manager drives the OIDC authorization-code flow against Google.
type Manager struct {
	CallbackHandler CallbackFunc

	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier

	mu     sync.Mutex
	states map[string]time.Time
}

func NewManager(ctx context.Context, config *cfg.OAuth2Config) (*Manager, error) {
	provider, err := oidc.NewProvider(ctx, "https://accounts.google.com")
	if err != nil {
		return nil, fmt.Errorf("discover google oidc: %w", err)
	}

	return &Manager{
		oauthConfig: &oauth2.Config{
			ClientID:     config.GoogleClientID,
			ClientSecret: config.GoogleClientSecret,
			RedirectURL:  config.GoogleRedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: config.GoogleClientID}),
		states:   make(map[string]time.Time),
	}, nil
}

// AuthURL returns the provider consent URL with a fresh state token.
func (m *Manager) AuthURL() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	state := hex.EncodeToString(buf)

	m.mu.Lock()
	m.states[state] = time.Now().Add(10 * time.Minute)
	m.mu.Unlock()

	return m.oauthConfig.AuthCodeURL(state), nil
}

func (m *Manager) consumeState(state string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	deadline, ok := m.states[state]
	if !ok {
		return false
	}
	delete(m.states, state)
	return time.Now().Before(deadline)
}

// Exchange trades the authorization code for tokens and verifies the ID token.
func (m *Manager) Exchange(ctx context.Context, state, code string) (*UserInfo, *TokenSet, error) {
	if !m.consumeState(state) {
		return nil, nil, errors.New("invalid or expired oauth2 state")
	}

	token, err := m.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, nil, errors.New("no id_token in token response")
	}

	idToken, err := m.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, nil, fmt.Errorf("verify id token: %w", err)
	}

	var claims struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, nil, fmt.Errorf("parse claims: %w", err)
	}

	userInfo := &UserInfo{
		Subject:  idToken.Subject,
		Email:    claims.Email,
		FullName: claims.Name,
	}
	tokenSet := &TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}
	return userInfo, tokenSet, nil
}

// GoogleCallbackHandler handles GET /auth/callback/google.
func GoogleCallbackHandler(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := c.Query("state")
		code := c.Query("code")
		if state == "" || code == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "missing state or code"})
			return
		}

		userInfo, tokenSet, err := m.Exchange(c.Request.Context(), state, code)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if m.CallbackHandler == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login callback not configured"})
			return
		}

		info, err := m.CallbackHandler(c.Request.Context(), ProviderGoogle, userInfo, tokenSet)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}

		c.JSON(http.StatusOK, info)
	}
}
