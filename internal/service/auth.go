package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"taskloop-sync/internal/domain"
	"taskloop-sync/internal/dto"
	"taskloop-sync/internal/repository"

	"github.com/sirupsen/logrus"
)

// AuthService handles login state on this device: the token, the current
// user and the route to return to after logging in.
type AuthService struct {
	gateway repository.AuthGateway
	store   repository.DeviceStore
}

// NewAuthService creates an AuthService.
func NewAuthService(gateway repository.AuthGateway, store repository.DeviceStore) *AuthService {
	if gateway == nil {
		panic("AuthGateway cannot be nil for AuthService")
	}
	if store == nil {
		panic("DeviceStore cannot be nil for AuthService")
	}
	return &AuthService{gateway: gateway, store: store}
}

// Login exchanges credentials for a token and stores it.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	req := dto.LoginRequest{Username: strings.TrimSpace(username), Password: password}
	logCtx := logrus.WithField("username", req.Username)

	// 1. validate input
	if err := dto.Validate(req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// 2. ask the API
	token, err := s.gateway.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrUnauthorized) || errors.Is(err, repository.ErrRejected) {
			logCtx.WithError(err).Warn("Login attempt failed: credentials rejected")
			return "", ErrAuthenticationFailed
		}
		logCtx.WithError(err).Error("Login attempt failed")
		return "", fmt.Errorf("login: %w", err)
	}

	// 3. persist
	if err := s.store.Set(ctx, repository.KeyToken, token); err != nil {
		logCtx.WithError(err).Error("Failed to store token")
		return "", fmt.Errorf("store token: %w", err)
	}
	logCtx.Info("User logged in successfully")
	return token, nil
}

// Register creates an account, then stores the returned token.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (string, error) {
	req := dto.RegisterRequest{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	logCtx := logrus.WithFields(logrus.Fields{"username": req.Username, "email": req.Email})

	if err := dto.Validate(req); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	token, err := s.gateway.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, repository.ErrRejected) {
			logCtx.WithError(err).Warn("Registration failed: rejected by API")
			return "", ErrRegistrationFailed
		}
		logCtx.WithError(err).Error("Registration failed")
		return "", fmt.Errorf("register: %w", err)
	}

	if err := s.store.Set(ctx, repository.KeyToken, token); err != nil {
		logCtx.WithError(err).Error("Failed to store token")
		return "", fmt.Errorf("store token: %w", err)
	}
	logCtx.Info("User registered successfully")
	return token, nil
}

// Logout forgets the stored token.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.store.Delete(ctx, repository.KeyToken); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	logrus.Info("User logged out")
	return nil
}

// IsAuthenticated reports whether a token is stored. The token is not checked
// against the API.
func (s *AuthService) IsAuthenticated(ctx context.Context) (bool, error) {
	token, err := s.store.Get(ctx, repository.KeyToken)
	if errors.Is(err, repository.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read token: %w", err)
	}
	return token != "", nil
}

// CurrentUser returns the user behind the stored token.
func (s *AuthService) CurrentUser(ctx context.Context) (*domain.User, error) {
	ok, err := s.IsAuthenticated(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthenticated
	}
	user, err := s.gateway.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return user, nil
}

// IsPublicRoute reports whether route is reachable without a token.
func IsPublicRoute(route string) bool {
	return route == RouteLogin || route == RouteRegister
}

// Guard decides whether route may be opened. When a room route is refused
// for lack of a token it is remembered so ConsumeRedirect can return to it.
func (s *AuthService) Guard(ctx context.Context, route string) (bool, error) {
	if IsPublicRoute(route) {
		return true, nil
	}
	ok, err := s.IsAuthenticated(ctx)
	if err != nil || ok {
		return ok, err
	}
	if IsSessionRoute(route) {
		if err := s.store.Set(ctx, repository.KeyAuthRedirect, route); err != nil {
			return false, fmt.Errorf("store redirect: %w", err)
		}
		logrus.WithField("route", route).Debug("Remembering route for after login")
	}
	return false, nil
}

// ConsumeRedirect returns the remembered route and forgets it. Without one
// it returns the home route.
func (s *AuthService) ConsumeRedirect(ctx context.Context) (string, error) {
	route, err := s.store.Get(ctx, repository.KeyAuthRedirect)
	if errors.Is(err, repository.ErrKeyNotFound) || (err == nil && route == "") {
		return RouteHome, nil
	}
	if err != nil {
		return "", fmt.Errorf("read redirect: %w", err)
	}
	if err := s.store.Delete(ctx, repository.KeyAuthRedirect); err != nil {
		return "", fmt.Errorf("delete redirect: %w", err)
	}
	return route, nil
}
