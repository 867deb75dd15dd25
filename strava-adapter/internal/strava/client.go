package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/activity-adapters/internal/httpclient"
	"github.com/Checker-Finance/activity-adapters/internal/rate"
	"github.com/Checker-Finance/activity-adapters/pkg/model"
	"github.com/Checker-Finance/activity-adapters/strava-adapter/internal/metrics"
)

const (
	endpointAthlete    = "athlete"
	endpointActivities = "athlete/activities"
)

// TokenSource hands out bearer tokens. *CredentialStore implements it.
type TokenSource interface {
	GetValidToken(ctx context.Context) (string, error)
}

// Client is the ActivityRepository: it calls the Strava API with a valid
// token and hands back raw or normalized data. It holds no mutable state
// beyond the token source.
type Client struct {
	logger  *zap.Logger
	exec    *httpclient.Executor
	tokens  TokenSource
	baseURL string
	rateKey string
}

// NewClient constructs a Strava API client. retryMax 0 disables retries.
func NewClient(logger *zap.Logger, rateMgr *rate.Manager, httpClient *http.Client, tokens TokenSource, baseURL, rateKey string, retryMax int) *Client {
	exec := httpclient.New(logger, rateMgr, httpClient, retryMax, "strava", func(status int, body []byte) error {
		var errResp errorResponse
		_ = json.Unmarshal(body, &errResp)

		logger.Warn("strava.client_error",
			zap.Int("status", status),
			zap.String("message", errResp.Message),
			zap.String("body", snippet(body)))

		return &RemoteServiceError{Status: status, Body: snippet(body)}
	}).OnResponse(func(resp *http.Response, elapsed time.Duration) {
		endpoint := endpointLabel(resp.Request)
		metrics.IncStravaRequest(endpoint, strconv.Itoa(resp.StatusCode))
		metrics.StravaRequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
		observeRateLimits(resp.Header)
	})

	return &Client{
		logger:  logger,
		exec:    exec,
		tokens:  tokens,
		baseURL: strings.TrimRight(baseURL, "/"),
		rateKey: rateKey,
	}
}

// FetchAthleteProfile calls GET /athlete and normalizes the body.
func (c *Client) FetchAthleteProfile(ctx context.Context) (*model.AthleteProfile, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, endpointAthlete, nil, &raw); err != nil {
		return nil, err
	}
	profile := NormalizeProfile(raw)
	return &profile, nil
}

// FetchActivities calls GET /athlete/activities?per_page=limit. Remote order is
// preserved. An empty list is not an error: the batch carries a no_activities warning.
func (c *Client) FetchActivities(ctx context.Context, limit int) (*ActivityBatch, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	q := url.Values{}
	q.Set("per_page", strconv.Itoa(limit))

	var raw json.RawMessage
	if err := c.getJSON(ctx, endpointActivities, q, &raw); err != nil {
		return nil, err
	}

	var activities []RawActivity
	if err := json.Unmarshal(raw, &activities); err != nil || (activities == nil && !isJSONArray(raw)) {
		c.logger.Warn("strava.activities.unexpected_body",
			zap.String("body", snippet(raw)))
		return nil, &RemoteServiceError{Endpoint: endpointActivities, Status: http.StatusOK, Body: snippet(raw)}
	}

	batch := &ActivityBatch{Activities: activities}
	if len(activities) == 0 {
		batch.Activities = []RawActivity{}
		batch.Warnings = append(batch.Warnings, model.Warning{
			Code:    model.WarnNoActivities,
			Message: "no activities returned from Strava",
		})
		metrics.IncEmptyActivityList()
		c.logger.Warn("strava.activities.empty", zap.Int("limit", limit))
	}
	return batch, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	token, err := c.tokens.GetValidToken(ctx)
	if err != nil {
		var persistErr *PersistenceError
		if token == "" || !errors.As(err, &persistErr) {
			return err
		}
		c.logger.Warn("strava.client.token_not_durable", zap.Error(err))
	}

	u := c.baseURL + "/" + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	if err := c.exec.DoJSON(ctx, req, c.rateKey, out); err != nil {
		var remoteErr *RemoteServiceError
		switch {
		case errors.As(err, &remoteErr):
			remoteErr.Endpoint = endpoint
			return remoteErr
		case errors.Is(err, httpclient.ErrTransport):
			return &TransportError{Op: "GET /" + endpoint, Err: err}
		case errors.Is(err, httpclient.ErrDecode):
			return &RemoteServiceError{Endpoint: endpoint, Status: http.StatusOK, Body: err.Error()}
		default:
			return err
		}
	}
	return nil
}

func isJSONArray(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return strings.HasPrefix(s, "[")
}

// endpointLabel keeps metric cardinality bounded to the known endpoints.
func endpointLabel(req *http.Request) string {
	if req == nil || req.URL == nil {
		return "unknown"
	}
	switch {
	case strings.HasSuffix(req.URL.Path, "/"+endpointActivities):
		return endpointActivities
	case strings.HasSuffix(req.URL.Path, "/"+endpointAthlete):
		return endpointAthlete
	default:
		return "other"
	}
}
