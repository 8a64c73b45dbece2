// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/claim-engine/internal/httputil"
	"github.com/pdiddy/claim-engine/pkg/types"
)

// getJSON performs a retried GET and decodes the JSON body into v.
func getJSON(ctx context.Context, client *http.Client, cfg types.SourcesConfig, url string, header http.Header, v any) error {
	body, err := get(ctx, client, cfg, url, header)
	if err != nil {
		return err
	}
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// get performs a retried GET and returns the response body. The caller
// closes it.
func get(ctx context.Context, client *http.Client, cfg types.SourcesConfig, url string, header http.Header) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, cfg.MaxRetries)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return resp.Body, nil
}
