package api

import (
	"context"

	"github.com/wolfeidau/blackwatch/internal/client"
	"github.com/wolfeidau/blackwatch/internal/models"
)

type Account struct {
	c *client.Client
}

func (a *Account) Me(ctx context.Context) (models.UserProfile, error) {
	return client.Get[models.UserProfile](ctx, a.c, "/account/me", nil)
}

// Update sends only the fields set on patch.
func (a *Account) Update(ctx context.Context, patch models.AccountUpdate) (models.UserProfile, error) {
	return client.Patch[models.UserProfile](ctx, a.c, "/account/me", patch)
}

type Users struct {
	c *client.Client
}

func (u *Users) Get(ctx context.Context, userID string) (models.UserProfile, error) {
	return client.Get[models.UserProfile](ctx, u.c, "/users/"+segment(userID), nil)
}
