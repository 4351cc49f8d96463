package api

import (
	"context"
	"net/url"

	"github.com/wolfeidau/blackwatch/internal/client"
	"github.com/wolfeidau/blackwatch/internal/models"
)

type Auth struct {
	c *client.Client
}

func NewAuth(c *client.Client) *Auth {
	return &Auth{c: c}
}

func (a *Auth) SignupRequest(ctx context.Context, req models.SignupRequest) (models.MessageResponse, error) {
	return client.Post[models.MessageResponse](ctx, a.c, "/auth/signup/request", req)
}

func (a *Auth) SignupVerify(ctx context.Context, req models.SignupVerify) (models.MessageResponse, error) {
	return client.Post[models.MessageResponse](ctx, a.c, "/auth/signup/verify", req)
}

// Signin returns either an issued token or an MFA challenge; check StepUp.
func (a *Auth) Signin(ctx context.Context, req models.SigninRequest) (models.SigninResult, error) {
	return client.Post[models.SigninResult](ctx, a.c, "/auth/signin", req)
}

func (a *Auth) MfaVerify(ctx context.Context, req models.MfaVerify) (models.SigninResponse, error) {
	return client.Post[models.SigninResponse](ctx, a.c, "/auth/mfa", req)
}

// MfaResend asks for a new code. The response may carry a rotated session key.
func (a *Auth) MfaResend(ctx context.Context, sessionKey string) (models.MfaResponse, error) {
	return client.Get[models.MfaResponse](ctx, a.c, "/auth/mfa/resend", url.Values{"sessionKey": {sessionKey}})
}

func (a *Auth) EnableMfa(ctx context.Context) (models.MessageResponse, error) {
	return client.Get[models.MessageResponse](ctx, a.c, "/auth/mfa/enable", nil)
}

func (a *Auth) DisableMfa(ctx context.Context) (models.MessageResponse, error) {
	return client.Get[models.MessageResponse](ctx, a.c, "/auth/mfa/disable", nil)
}

func (a *Auth) ResetPasswordRequest(ctx context.Context, req models.ResetPasswordRequest) (models.MessageResponse, error) {
	return client.Post[models.MessageResponse](ctx, a.c, "/auth/reset-password/request", req)
}

func (a *Auth) ResetPasswordConfirm(ctx context.Context, req models.ResetPasswordConfirm) (models.MessageResponse, error) {
	return client.Post[models.MessageResponse](ctx, a.c, "/auth/reset-password/confirm", req)
}
