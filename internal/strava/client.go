package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

const BaseURL = "https://www.strava.com/api/v3"

// streamKeys are the streams requested for every activity
const streamKeys = "time,watts,heartrate,cadence,velocity_smooth,temp,altitude"

// perPage is the maximum page size Strava allows
const perPage = 100

// ErrNotFound is returned when Strava answers 404
var ErrNotFound = errors.New("strava: not found")

// Client is a Strava API client
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *RateLimiter
}

// NewClient creates a new Strava API client
func NewClient(tokenSource oauth2.TokenSource) *Client {
	return NewHTTPClient(oauth2.NewClient(context.Background(), tokenSource), BaseURL)
}

// NewHTTPClient creates a client that sends requests through httpClient to baseURL
func NewHTTPClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		rateLimiter: NewRateLimiter(),
	}
}

// GetActivities fetches one page of the athlete's activities started within
// (after, before). Zero times leave the bound open.
func (c *Client) GetActivities(ctx context.Context, after, before time.Time, page, perPage int) ([]Activity, error) {
	params := url.Values{}
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	if !before.IsZero() {
		params.Set("before", strconv.FormatInt(before.Unix(), 10))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var activities []Activity
	if err := c.getJSON(ctx, "/athlete/activities", params, &activities); err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	return activities, nil
}

// GetAllActivities pages through every activity within (after, before)
func (c *Client) GetAllActivities(ctx context.Context, after, before time.Time) ([]Activity, error) {
	var all []Activity
	for page := 1; ; page++ {
		activities, err := c.GetActivities(ctx, after, before, page, perPage)
		if err != nil {
			return all, fmt.Errorf("fetching page %d: %w", page, err)
		}
		all = append(all, activities...)

		if len(activities) < perPage {
			return all, nil
		}
	}
}

// GetActivity fetches the detailed representation of one activity
func (c *Client) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	var detail Activity
	if err := c.getJSON(ctx, fmt.Sprintf("/activities/%d", id), nil, &detail); err != nil {
		return nil, fmt.Errorf("activity %d: %w", id, err)
	}
	return &detail, nil
}

// GetActivityStreams fetches the sample streams for an activity
func (c *Client) GetActivityStreams(ctx context.Context, id int64) (*Streams, error) {
	params := url.Values{}
	params.Set("keys", streamKeys)
	params.Set("key_by_type", "true")

	var streams Streams
	if err := c.getJSON(ctx, fmt.Sprintf("/activities/%d/streams", id), params, &streams); err != nil {
		return nil, fmt.Errorf("streams for %d: %w", id, err)
	}
	return &streams, nil
}

// GetActivityLaps fetches the laps of an activity
func (c *Client) GetActivityLaps(ctx context.Context, id int64) ([]Lap, error) {
	var laps []Lap
	if err := c.getJSON(ctx, fmt.Sprintf("/activities/%d/laps", id), nil, &laps); err != nil {
		return nil, fmt.Errorf("laps for %d: %w", id, err)
	}
	return laps, nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	resp, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	c.rateLimiter.UpdateFromHeaders(resp.Header)

	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, ErrNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}
}
