package auth

import (
	"context"
	"fmt"
	"time"

	"partymatch/pkg/logger"
	"partymatch/pkg/oauth2"
	"partymatch/pkg/session"
)

const sessionTTL = 24 * time.Hour

type Service struct {
	oauth2Manager *oauth2.Manager
	sessions      session.Store
	users         UserDirectory
	logger        logger.Logger
}

func NewService(oauth2Manager *oauth2.Manager, sessions session.Store, users UserDirectory, logger logger.Logger) *Service {
	return &Service{
		oauth2Manager: oauth2Manager,
		sessions:      sessions,
		users:         users,
		logger:        logger,
	}
}

// HandleCallback finishes a provider login: it resolves the user account and
// issues a session token.
func (s *Service) HandleCallback(ctx context.Context, provider string, userInfo *oauth2.UserInfo, _ *oauth2.TokenSet) (*oauth2.CallbackInfo, error) {
	userID, superuser, err := s.users.ResolveLogin(ctx, userInfo.Email, userInfo.FullName)
	if err != nil {
		return nil, fmt.Errorf("resolve login: %w", err)
	}

	sess, err := s.sessions.Create(ctx, userID, superuser, sessionTTL)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info(ctx, "user logged in",
		logger.Field{Key: "user_id", Value: userID},
		logger.Field{Key: "provider", Value: provider},
	)

	return &oauth2.CallbackInfo{
		SessionToken: sess.Token,
		UserID:       userID,
	}, nil
}

// LoginURL starts the OAuth2 flow.
func (s *Service) LoginURL() (string, error) {
	return s.oauth2Manager.AuthURL()
}

// Logout invalidates the session token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// Resolve maps a bearer token to an Actor.
func (s *Service) Resolve(ctx context.Context, token string) (Actor, error) {
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		return Actor{}, err
	}
	return Actor{ID: sess.UserID, Superuser: sess.Superuser}, nil
}
