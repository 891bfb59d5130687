package remote

import (
	"context"
	"net/http"

	"taskloop-sync/internal/domain"
	"taskloop-sync/internal/dto"
)

// AuthAPI implements repository.AuthGateway.
type AuthAPI struct {
	client *Client
}

func NewAuthAPI(client *Client) *AuthAPI {
	return &AuthAPI{client: client}
}

func (a *AuthAPI) Me(ctx context.Context) (*domain.User, error) {
	var p dto.UserPayload
	if err := a.client.do(ctx, http.MethodGet, pathMe, nil, &p); err != nil {
		return nil, err
	}
	user, err := p.ToDomain()
	if err != nil {
		return nil, decodeError(http.MethodGet, pathMe, err)
	}
	return user, nil
}

func (a *AuthAPI) Login(ctx context.Context, username, password string) (string, error) {
	return a.token(ctx, pathLogin, dto.LoginRequest{Username: username, Password: password})
}

func (a *AuthAPI) Register(ctx context.Context, username, email, password string) (string, error) {
	return a.token(ctx, pathRegister, dto.RegisterRequest{Username: username, Email: email, Password: password})
}

func (a *AuthAPI) token(ctx context.Context, path string, body interface{}) (string, error) {
	var resp dto.TokenResponse
	if err := a.client.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", err
	}
	if err := dto.Validate(resp); err != nil {
		return "", decodeError(http.MethodPost, path, err)
	}
	return resp.Token, nil
}
