package api

import (
	"context"

	"github.com/wolfeidau/blackwatch/internal/client"
	"github.com/wolfeidau/blackwatch/internal/models"
)

// Admin endpoints are rejected with 403 unless the session role is ADMIN.
type Admin struct {
	c *client.Client
}

func (a *Admin) Applications(ctx context.Context, pendingOnly bool) ([]models.ContributionApplicationStatus, error) {
	path := "/admin/applications"
	if pendingOnly {
		path += "/pending"
	}
	return client.Get[[]models.ContributionApplicationStatus](ctx, a.c, path, nil)
}

func (a *Admin) Approve(ctx context.Context, userID string) (models.MessageResponse, error) {
	return a.decide(ctx, userID, "approve")
}

func (a *Admin) Deny(ctx context.Context, userID string) (models.MessageResponse, error) {
	return a.decide(ctx, userID, "deny")
}

// Reset moves an application back to PENDING.
func (a *Admin) Reset(ctx context.Context, userID string) (models.MessageResponse, error) {
	return a.decide(ctx, userID, "reset")
}

func (a *Admin) decide(ctx context.Context, userID, action string) (models.MessageResponse, error) {
	return client.Post[models.MessageResponse](ctx, a.c, "/admin/applications/"+segment(userID)+"/"+action, nil)
}
