package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// httpClient is shared by every HTTP-backed provider fetcher; it sets no
// timeout of its own, since Poller bounds every fetch with its 30s poll
// timeout via the fetch context.
var httpClient = &http.Client{}

// getJSON issues a GET against url and decodes the JSON body into a map,
// the shape every simple REST-style provider API in this pipeline returns.
func getJSON(ctx context.Context, url string, headers map[string]string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeJSONBody(resp)
}

func decodeJSONBody(resp *http.Response) (map[string]interface{}, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream returned %d", resp.StatusCode)
	}

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
