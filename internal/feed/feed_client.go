package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// MatchResult is the feed's verdict on one fixture.
type MatchResult string

const (
	ResultPending MatchResult = "pending"
	ResultHomeWin MatchResult = "home_win"
	ResultAwayWin MatchResult = "away_win"
	ResultDraw    MatchResult = "draw"
	ResultVoid    MatchResult = "void"
)

// ErrFeedUnavailable wraps transport-level failures talking to the feed.
var ErrFeedUnavailable = errors.New("results feed unavailable")

// Client fetches fixture results from the external feed, keyed by the teams'
// external api ids.
type Client interface {
	FixtureResult(ctx context.Context, homeExternalID, awayExternalID string) (MatchResult, error)
}

// HTTPClient talks to the results feed over HTTP.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a feed client for the given base URL and api key.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// fixtureResponse is the feed's wire format for one fixture.
type fixtureResponse struct {
	Status    string `json:"status"` // scheduled, in_play, finished, postponed, abandoned
	HomeGoals int    `json:"home_goals"`
	AwayGoals int    `json:"away_goals"`
}

// FixtureResult fetches one fixture's result. A fixture that has not finished
// yet maps to pending; postponed and abandoned fixtures map to void.
func (c *HTTPClient) FixtureResult(ctx context.Context, homeExternalID, awayExternalID string) (MatchResult, error) {
	endpoint := fmt.Sprintf("%s/fixtures/result?home=%s&away=%s",
		c.baseURL, url.QueryEscape(homeExternalID), url.QueryEscape(awayExternalID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ResultPending, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return ResultPending, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ResultPending, fmt.Errorf("%w: feed returned status %d", ErrFeedUnavailable, resp.StatusCode)
	}

	var body fixtureResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ResultPending, fmt.Errorf("%w: malformed feed payload: %v", ErrFeedUnavailable, err)
	}

	switch body.Status {
	case "finished":
		switch {
		case body.HomeGoals > body.AwayGoals:
			return ResultHomeWin, nil
		case body.AwayGoals > body.HomeGoals:
			return ResultAwayWin, nil
		default:
			return ResultDraw, nil
		}
	case "postponed", "abandoned":
		return ResultVoid, nil
	}
	return ResultPending, nil
}
