package api

import (
	"context"
	"net/http"
)

// CreateEngine creates a query engine from a draft payload and returns the
// canonical server resource.
func (c *Client) CreateEngine(ctx context.Context, draft map[string]interface{}) (*QueryEngine, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/query-engines", draft)
	if err != nil {
		return nil, err
	}

	var engine QueryEngine
	if err := c.do(req, &engine); err != nil {
		return nil, err
	}

	c.log.Info().Str("engine_id", engine.ID).Str("name", engine.Name).Msg("query engine created")
	return &engine, nil
}

// UpdateEngine updates an existing query engine and returns the canonical
// server resource.
func (c *Client) UpdateEngine(ctx context.Context, id string, draft map[string]interface{}) (*QueryEngine, error) {
	req, err := c.newRequest(ctx, http.MethodPut, "/query-engines/"+id, draft)
	if err != nil {
		return nil, err
	}

	var engine QueryEngine
	if err := c.do(req, &engine); err != nil {
		return nil, err
	}

	c.log.Info().Str("engine_id", engine.ID).Msg("query engine updated")
	return &engine, nil
}

// ListEngines lists the query engines visible to the current user.
func (c *Client) ListEngines(ctx context.Context) ([]QueryEngine, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/query-engines", nil)
	if err != nil {
		return nil, err
	}

	var engines []QueryEngine
	if err := c.do(req, &engines); err != nil {
		return nil, err
	}

	return engines, nil
}
