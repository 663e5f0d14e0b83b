// Package codeforces provides access to the Codeforces contest.list API.
// A fetch is a single HTTP request; retrying is left to the caller.
package codeforces

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rewired-gh/contest-countdown/internal/models"
)

// DefaultAPIBaseURL is the public Codeforces API root.
const DefaultAPIBaseURL = "https://codeforces.com/api"

// statusOK is the status marker of a successful API response.
const statusOK = "OK"

// ErrBadStatus is returned when the API answers with a status other than OK.
var ErrBadStatus = errors.New("codeforces: non-OK status")

// Client fetches contests from the Codeforces API
type Client struct {
	apiBaseURL string
	httpClient *http.Client
}

// contestListResponse is the envelope of every Codeforces API answer.
type contestListResponse struct {
	Status  string           `json:"status"`
	Comment string           `json:"comment,omitempty"`
	Result  []models.Contest `json:"result"`
}

// NewClient creates a new Codeforces client. A zero timeout leaves requests
// bounded only by the context.
func NewClient(apiBaseURL string, timeout time.Duration) *Client {
	if apiBaseURL == "" {
		apiBaseURL = DefaultAPIBaseURL
	}
	return &Client{
		apiBaseURL: apiBaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchContests retrieves the non-gym contest list.
// Any transport error, non-2xx answer, malformed body or non-OK status is
// returned as an error.
func (c *Client) FetchContests(ctx context.Context) ([]models.Contest, error) {
	url := fmt.Sprintf("%s/contest.list?gym=false", c.apiBaseURL)

	resp, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contests: %w", err)
	}
	defer resp.Body.Close()

	var response contestListResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode contests: %w", err)
	}

	if response.Status != statusOK {
		if response.Comment != "" {
			return nil, fmt.Errorf("%w %q: %s", ErrBadStatus, response.Status, response.Comment)
		}
		return nil, fmt.Errorf("%w %q", ErrBadStatus, response.Status)
	}
	if response.Result == nil {
		return nil, fmt.Errorf("%w: missing result", ErrBadStatus)
	}

	return response.Result, nil
}

// doRequest performs a single GET request and rejects non-2xx answers.
func (c *Client) doRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Codeforces reports API errors as 400 with a JSON envelope
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		var envelope contestListResponse
		if json.Unmarshal(body, &envelope) == nil && envelope.Comment != "" {
			return nil, fmt.Errorf("%w %q (http %d): %s", ErrBadStatus, envelope.Status, resp.StatusCode, envelope.Comment)
		}
		return nil, fmt.Errorf("unexpected http status: %d", resp.StatusCode)
	}

	return resp, nil
}
