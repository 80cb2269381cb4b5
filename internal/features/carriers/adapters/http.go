package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// doJSON executes a JSON request against a carrier API and decodes the
// response into out (when out is non-nil). Non-2xx responses are errors
// carrying the response body for the operations log.
func doJSON(ctx context.Context, client *http.Client, method, url string, body interface{}, out interface{}) error {
	return doJSONWithHeader(ctx, client, method, url, body, out, "", "")
}

// doJSONWithHeader is doJSON plus one extra request header (outbound auth).
func doJSONWithHeader(ctx context.Context, client *http.Client, method, url string, body interface{}, out interface{}, headerKey, headerValue string) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if headerKey != "" {
		req.Header.Set(headerKey, headerValue)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("carrier API returned %d: %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode carrier response: %w", err)
	}
	return nil
}
