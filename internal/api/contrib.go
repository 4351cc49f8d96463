package api

import (
	"context"
	"fmt"

	"github.com/wolfeidau/blackwatch/internal/client"
	"github.com/wolfeidau/blackwatch/internal/models"
)

type Contrib struct {
	c *client.Client
}

func (s *Contrib) Apply(ctx context.Context, app models.ContributionApplication) (models.ContributionApplicationResponse, error) {
	return client.Post[models.ContributionApplicationResponse](ctx, s.c, "/contrib/applications", app)
}

func (s *Contrib) ApplicationStatus(ctx context.Context) (models.ContributionApplicationStatus, error) {
	return client.Get[models.ContributionApplicationStatus](ctx, s.c, "/contrib/applications/me", nil)
}

// GenerateSecret replaces any existing client secret. The secret is only
// returned by this call.
func (s *Contrib) GenerateSecret(ctx context.Context) (models.ClientSecretResponse, error) {
	return client.Post[models.ClientSecretResponse](ctx, s.c, "/contrib/secret", nil)
}

func (s *Contrib) Info(ctx context.Context) (models.ContributorInfo, error) {
	return client.Get[models.ContributorInfo](ctx, s.c, "/contrib/me", nil)
}

func (s *Contrib) Sessions(ctx context.Context) ([]models.ContributorSession, error) {
	return client.Get[[]models.ContributorSession](ctx, s.c, "/contrib/sessions", nil)
}

func (s *Contrib) DeleteSessions(ctx context.Context) (models.MessageResponse, error) {
	return client.Delete[models.MessageResponse](ctx, s.c, "/contrib/sessions")
}

// DBSessions manages the short lived database credentials issued to contributors.
type DBSessions struct {
	c *client.Client
}

func (s *DBSessions) Create(ctx context.Context, opts models.DBSessionCreate) (models.DBSessionInfo, error) {
	return client.Post[models.DBSessionInfo](ctx, s.c, "/contrib/mongo-sessions", opts)
}

func (s *DBSessions) List(ctx context.Context) ([]models.ContributorSession, error) {
	return client.Get[[]models.ContributorSession](ctx, s.c, "/contrib/mongo-sessions", nil)
}

func (s *DBSessions) Extend(ctx context.Context, sessionID string, additionalHours int) (models.DBSessionInfo, error) {
	if additionalHours <= 0 {
		return models.DBSessionInfo{}, fmt.Errorf("additional hours must be positive, got %d", additionalHours)
	}
	path := fmt.Sprintf("/contrib/mongo-sessions/%s/extend?additionalHours=%d", segment(sessionID), additionalHours)
	return client.Put[models.DBSessionInfo](ctx, s.c, path, nil)
}

func (s *DBSessions) Delete(ctx context.Context, sessionID string) (models.MessageResponse, error) {
	return client.Delete[models.MessageResponse](ctx, s.c, "/contrib/mongo-sessions/"+segment(sessionID))
}

func (s *DBSessions) DeleteAll(ctx context.Context) (models.MessageResponse, error) {
	return client.Delete[models.MessageResponse](ctx, s.c, "/contrib/mongo-sessions")
}
