package provider

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/homegraph/ingestor/internal/config"
	"github.com/homegraph/ingestor/internal/telemetry"
)

// NewCalendar builds the calendar provider (spec.md §4.3): occupancy
// prediction and upcoming events, authenticated via an OAuth2 refresh
// token managed out of band (cfg.Credentials: client_id, client_secret,
// refresh_token, token_url).
func NewCalendar(cfg config.ProviderConfig, metrics *telemetry.Metrics) *Poller {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.Credentials["client_id"],
		ClientSecret: cfg.Credentials["client_secret"],
		Endpoint: oauth2.Endpoint{
			TokenURL: cfg.Credentials["token_url"],
		},
	}
	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{
		RefreshToken: cfg.Credentials["refresh_token"],
	})

	fetch := func(ctx context.Context) (map[string]interface{}, error) {
		client := oauth2.NewClient(ctx, tokenSource)
		raw, err := getJSONWithClient(ctx, client, cfg.URL)
		if err != nil {
			return nil, err
		}
		fields := map[string]interface{}{
			"occupancy_predicted": stringField(raw, "occupancy_predicted"),
		}
		if next, ok := raw["next_events"]; ok {
			fields["next_events"] = next
		}
		return fields, nil
	}
	return NewPoller("calendar", cfg, fetch, metrics)
}

func getJSONWithClient(ctx context.Context, client *http.Client, url string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return decodeJSONBody(resp)
}
