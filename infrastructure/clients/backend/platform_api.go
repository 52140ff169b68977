package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"postbridge/domain/model"
)

// PlatformAPI implements repository.IPlatformAPI against the platform routes.
type PlatformAPI struct {
	client *Client
}

func NewPlatformAPI(client *Client) *PlatformAPI {
	return &PlatformAPI{client: client}
}

func (p *PlatformAPI) Connections(ctx context.Context) ([]model.PlatformConnection, error) {
	var res []model.PlatformConnection
	if err := p.client.Do(ctx, http.MethodGet, "/platforms/connections", nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *PlatformAPI) DeleteConnection(ctx context.Context, connectionID int) error {
	return p.client.Do(ctx, http.MethodDelete, fmt.Sprintf("/platforms/connections/%d", connectionID), nil, nil)
}

func (p *PlatformAPI) StartOAuth(ctx context.Context, provider string) (*model.PlatformAuthorization, error) {
	path := fmt.Sprintf("/platforms/%s/oauth/start", url.PathEscape(provider))
	var res model.PlatformAuthorization
	if err := p.client.Do(ctx, http.MethodPost, path, map[string]string{}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (p *PlatformAPI) CompleteOAuth(ctx context.Context, provider string, req model.OAuthCompletionRequest) (*model.OAuthCompletionResult, error) {
	path := fmt.Sprintf("/platforms/%s/oauth/complete", url.PathEscape(provider))
	var res model.OAuthCompletionResult
	if err := p.client.Do(ctx, http.MethodPost, path, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
