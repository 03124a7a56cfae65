package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/boddenberg/phuket-immo-bfa/internal/infra/resilience"
)

// ============================================================
// HTTP helpers for GET, POST, PATCH, DELETE and RPC
// ============================================================

func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	return c.doRequest(ctx, http.MethodGet, path, nil, "")
}

func (c *Client) doPost(ctx context.Context, table string, data any) ([]byte, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	return c.doRequest(ctx, http.MethodPost, table, bytes.NewReader(body), "return=representation")
}

func (c *Client) doPatch(ctx context.Context, path string, data map[string]any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return resilience.Permanent(err)
	}
	_, err = c.doRequest(ctx, http.MethodPatch, path, bytes.NewReader(body), "return=minimal")
	return err
}

func (c *Client) doDelete(ctx context.Context, path string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, path, nil, "return=minimal")
	return err
}

// doRPC calls a Postgres function exposed by PostgREST. A function runs in a
// single transaction, which is what makes batch writes atomic.
func (c *Client) doRPC(ctx context.Context, fn string, args any) ([]byte, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	return c.doRequest(ctx, http.MethodPost, "rpc/"+fn, bytes.NewReader(body), "")
}
