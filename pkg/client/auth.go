package client

import (
	"context"
	"net/http"

	"portfolio_backend/internal/services/dto"
)

type (
	User            = dto.UserResponse
	RegisterRequest = dto.RegisterRequest
	LoginResponse   = dto.LoginResponse
)

// Login открывает сессию. Кэш сбрасывается: набор видимых данных зависит от роли.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	req, err := jsonRequest(http.MethodPost, "/auth/login", dto.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	req.noRefresh = true

	var resp LoginResponse
	if err := c.execute(ctx, req, "", &resp); err != nil {
		return nil, err
	}
	if err := c.session.authenticate(tokensFrom(&resp)); err != nil {
		c.logger.Warn("failed to persist session", "error", err)
	}
	c.cache.Clear()
	return resp.User, nil
}

// Logout отзывает refresh токен на сервере. Локальная сессия закрывается всегда.
func (c *Client) Logout(ctx context.Context) error {
	token := c.session.accessToken()
	refresh := c.session.refreshToken()
	c.session.revoke()
	c.cache.Clear()
	c.relay.disconnect()

	if token == "" {
		return nil
	}
	req, err := jsonRequest(http.MethodPost, "/auth/logout", dto.LogoutRequest{RefreshToken: refresh})
	if err != nil {
		return err
	}
	return c.execute(ctx, req, token, nil)
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.send(ctx, &request{method: http.MethodGet, path: "/auth/me"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Register(ctx context.Context, payload *RegisterRequest) (*User, error) {
	req, err := jsonRequest(http.MethodPost, "/auth/register", payload)
	if err != nil {
		return nil, err
	}
	var user User
	if err := c.execute(ctx, req, "", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	return c.postNoAuth(ctx, "/auth/verify-email", dto.VerifyEmailRequest{Token: token})
}

func (c *Client) ResendVerification(ctx context.Context, email string) error {
	return c.postNoAuth(ctx, "/auth/resend-verification", dto.ResendVerificationRequest{Email: email})
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.postNoAuth(ctx, "/auth/forgot-password", dto.ForgotPasswordRequest{Email: email})
}

func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	return c.postNoAuth(ctx, "/auth/reset-password", dto.ResetPasswordRequest{Token: token, NewPassword: newPassword})
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	req, err := jsonRequest(http.MethodPut, "/auth/update-password", dto.ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	})
	if err != nil {
		return err
	}
	return c.send(ctx, req, nil)
}

func (c *Client) IsAuthenticated() bool {
	return c.session.IsAuthenticated()
}

func (c *Client) Role() string {
	return c.session.Role()
}

func (c *Client) postNoAuth(ctx context.Context, path string, payload any) error {
	req, err := jsonRequest(http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	return c.execute(ctx, req, "", nil)
}

// renew обновляет токены после 401 на запросе с access токеном rejected.
// Параллельные вызовы ждут друг друга: если пока ждали токен уже сменился,
// повторный refresh не нужен. Сессия закрывается, только если отклонен
// refresh токен, который она все еще хранит.
func (c *Client) renew(ctx context.Context, rejected string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	current := c.session.accessToken()
	if current == "" {
		return ErrAuthentication
	}
	if current != rejected {
		return nil
	}

	previous := c.session.refreshToken()
	err := c.refresh(ctx, previous)
	if err == nil {
		return nil
	}
	if KindOf(err) == KindAuthentication && c.session.expireIf(previous) {
		c.cache.Clear()
	}
	return err
}

// refresh меняет пару токенов; сервер ротирует refresh токен
func (c *Client) refresh(ctx context.Context, previous string) error {
	if previous == "" {
		return ErrAuthentication
	}

	req, err := jsonRequest(http.MethodPost, "/auth/refresh", dto.RefreshRequest{RefreshToken: previous})
	if err != nil {
		return err
	}
	var resp LoginResponse
	if err := c.execute(ctx, req, "", &resp); err != nil {
		return err
	}
	if resp.Token == "" {
		return ErrAuthentication
	}
	return c.session.rotated(previous, tokensFrom(&resp))
}

func tokensFrom(resp *LoginResponse) Tokens {
	tokens := Tokens{
		AccessToken:  resp.Token,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    resp.ExpiresAt,
	}
	if resp.User != nil {
		tokens.UserID = resp.User.ID
		tokens.Role = resp.User.Role
	}
	return tokens
}
