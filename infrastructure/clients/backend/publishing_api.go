package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-querystring/query"

	"postbridge/domain/model"
)

// PublishingAPI implements repository.IPublishingAPI against the job-queue routes.
type PublishingAPI struct {
	client *Client
}

func NewPublishingAPI(client *Client) *PublishingAPI {
	return &PublishingAPI{client: client}
}

func (p *PublishingAPI) Jobs(ctx context.Context, opts model.JobListOptions) ([]model.PublishingJob, error) {
	values, err := query.Values(opts)
	if err != nil {
		return nil, fmt.Errorf("encode job list options: %w", err)
	}
	var res []model.PublishingJob
	if err := p.client.DoQuery(ctx, http.MethodGet, "/publishing/jobs", values, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *PublishingAPI) Attempts(ctx context.Context, jobID int) ([]model.PublishingAttempt, error) {
	var res []model.PublishingAttempt
	if err := p.client.Do(ctx, http.MethodGet, fmt.Sprintf("/publishing/jobs/%d/attempts", jobID), nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *PublishingAPI) Retry(ctx context.Context, jobID int) error {
	return p.client.Do(ctx, http.MethodPost, fmt.Sprintf("/publishing/jobs/%d/retry", jobID), nil, nil)
}

func (p *PublishingAPI) Cancel(ctx context.Context, jobID int) error {
	return p.client.Do(ctx, http.MethodPost, fmt.Sprintf("/publishing/jobs/%d/cancel", jobID), nil, nil)
}

func (p *PublishingAPI) Create(ctx context.Context, req model.ReqCreateJob) (*model.PublishingJob, error) {
	var res model.PublishingJob
	if err := p.client.Do(ctx, http.MethodPost, "/publishing/jobs", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
