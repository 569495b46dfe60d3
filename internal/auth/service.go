package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/angelmondragon/storefront-client/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/storeapi"
	"github.com/angelmondragon/storefront-client/pkg/validators"
)

type authAPI interface {
	SignIn(ctx context.Context, email, password string) (*storeapi.AuthResponse, error)
	SignUp(ctx context.Context, name, email, password string) (*storeapi.AuthResponse, error)
	UpdateUser(ctx context.Context, token, name, password string) error
}

type sessionStore interface {
	Current(ctx context.Context) (*models.Session, error)
	Save(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context) error
}

// Service handles sign-in, sign-up, and the locally persisted session. The
// bearer token returned by the store API is the whole credential; there is
// no refresh flow.
type Service struct {
	api      authAPI
	sessions sessionStore
	logg     *logger.Logger
}

type ServiceParams struct {
	API      authAPI
	Sessions sessionStore
	Logger   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.API == nil {
		return nil, errors.New("auth api client is required")
	}
	if params.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Service{
		api:      params.API,
		sessions: params.Sessions,
		logg:     params.Logger,
	}, nil
}

func (s *Service) SignIn(ctx context.Context, input SignInInput) (*SessionInfo, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if err := validators.ValidateStruct(&input); err != nil {
		return nil, err
	}

	resp, err := s.api.SignIn(ctx, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	return s.storeSession(ctx, resp)
}

func (s *Service) SignUp(ctx context.Context, input SignUpInput) (*SessionInfo, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if err := validators.ValidateStruct(&input); err != nil {
		return nil, err
	}

	resp, err := s.api.SignUp(ctx, input.Name, input.Email, input.Password)
	if err != nil {
		return nil, err
	}
	return s.storeSession(ctx, resp)
}

// UpdateProfile pushes the new name and password to the store API, then
// refreshes the persisted session's profile fields.
func (s *Service) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*SessionInfo, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validators.ValidateStruct(&input); err != nil {
		return nil, err
	}

	session, err := s.sessions.Current(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "no active session")
	}

	if err := s.api.UpdateUser(ctx, session.Token, input.Name, input.Password); err != nil {
		return nil, err
	}

	session.Name = input.Name
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, session.UserID), "profile updated")
	return sessionInfo(session), nil
}

// SignOut discards the local session. Cart contents survive sign-out.
func (s *Service) SignOut(ctx context.Context) error {
	session, err := s.sessions.Current(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}
	if err := s.sessions.Delete(ctx); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithUserID(ctx, session.UserID), "signed out")
	return nil
}

// Current returns the active session, or nil when signed out.
func (s *Service) Current(ctx context.Context) (*SessionInfo, error) {
	session, err := s.sessions.Current(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	return sessionInfo(session), nil
}

// Token returns the active bearer token, empty when signed out.
func (s *Service) Token(ctx context.Context) string {
	session, err := s.sessions.Current(ctx)
	if err != nil || session == nil {
		return ""
	}
	return session.Token
}

// UserID returns the active user id, empty when signed out.
func (s *Service) UserID(ctx context.Context) string {
	session, err := s.sessions.Current(ctx)
	if err != nil || session == nil {
		return ""
	}
	return session.UserID
}

func (s *Service) storeSession(ctx context.Context, resp *storeapi.AuthResponse) (*SessionInfo, error) {
	if resp == nil || resp.Token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "auth response missing token")
	}

	session := &models.Session{
		Token:  resp.Token,
		UserID: resp.ID.String(),
		Name:   resp.Name,
		Email:  resp.Email,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithUserID(ctx, session.UserID), "signed in")
	return sessionInfo(session), nil
}

func sessionInfo(session *models.Session) *SessionInfo {
	return &SessionInfo{
		UserID: session.UserID,
		Name:   session.Name,
		Email:  session.Email,
		Token:  session.Token,
	}
}
