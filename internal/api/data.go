package api

import (
	"context"

	"github.com/wolfeidau/blackwatch/internal/client"
	"github.com/wolfeidau/blackwatch/internal/models"
)

type Data struct {
	c *client.Client
}

func (d *Data) Leaked(ctx context.Context, search models.LeakedDataSearch) (models.Page[models.LeakedData], error) {
	return client.Get[models.Page[models.LeakedData]](ctx, d.c, "/data/leaked", search.Values())
}

func (d *Data) LeakedDetail(ctx context.Context, id string) (models.LeakedData, error) {
	return client.Get[models.LeakedData](ctx, d.c, "/data/leaked/"+segment(id), nil)
}

// FindPersonal looks up emails and names across every leak.
func (d *Data) FindPersonal(ctx context.Context, search models.PersonalDataSearch) (models.PersonalDataSearchResult, error) {
	return client.Post[models.PersonalDataSearchResult](ctx, d.c, "/data/leaked/find", search)
}

func (d *Data) SubmitLeaked(ctx context.Context, data models.LeakedDataSubmission) (models.SubmitResult, error) {
	return client.Post[models.SubmitResult](ctx, d.c, "/data/leaked", data)
}

func (d *Data) Vulnerabilities(ctx context.Context, search models.VulnerabilityDataSearch) (models.Page[models.VulnerabilityData], error) {
	return client.Get[models.Page[models.VulnerabilityData]](ctx, d.c, "/data/vulnerability", search.Values())
}

func (d *Data) VulnerabilityDetail(ctx context.Context, id string) (models.VulnerabilityData, error) {
	return client.Get[models.VulnerabilityData](ctx, d.c, "/data/vulnerability/"+segment(id), nil)
}

func (d *Data) SubmitVulnerability(ctx context.Context, data models.VulnerabilityDataSubmission) (models.SubmitResult, error) {
	return client.Post[models.SubmitResult](ctx, d.c, "/data/vulnerability", data)
}
