package authzclient

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sgnl-ai/sgnl-linux-host/lib/backoff"
	"github.com/sgnl-ai/sgnl-linux-host/lib/config"
	"github.com/sgnl-ai/sgnl-linux-host/lib/sgnllog"
)

const (
	evaluationsPath = "/access/v2/evaluations"
	searchPath      = "/access/v2/search"
)

// Client evaluates and searches access decisions against the SGNL
// authorization service. It is the Go analog of the sgnl_client_t opaque
// handle in libsgnl.h, grounded on libsgnl.c's curl-based transport but
// built on go-resty/resty the way integrations/access/discord/config.go
// configures its HTTP client.
type Client struct {
	http     *resty.Client
	cfg      config.Config
	logger   *slog.Logger
	retry    backoff.Policy
	deviceID string
}

// New builds a Client from cfg. The token is carried in the resty client's
// Authorization header and in the Client's copy of cfg, and is never logged
// (SPEC_FULL.md §7's token-never-leaked invariant); Close clears both.
func New(cfg config.Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIURL == "" {
		return nil, newError(ResultConfigError, nil, "api_url is empty")
	}
	if cfg.APIToken == "" {
		return nil, newError(ResultConfigError, nil, "api_token is empty")
	}
	if logger == nil {
		logger = sgnllog.Get(context.Background())
	}

	transport := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: time.Duration(cfg.HTTP.ConnectTimeoutSeconds) * time.Second}).DialContext,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.HTTP.SSLVerifyPeer}, //nolint:gosec // operator-controlled opt-out, mirrors the C original's ssl_verify_peer
	}
	httpClient := &http.Client{
		Timeout:   time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
		Transport: transport,
	}

	rc := resty.NewWithClient(httpClient).
		SetBaseURL(cfg.APIURL).
		SetHeader("Authorization", "Bearer "+cfg.APIToken).
		SetHeader("User-Agent", cfg.HTTP.UserAgent).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:   rc,
		cfg:    cfg,
		logger: logger,
		retry: backoff.Policy{
			MaxAttempts: cfg.Retry.Count + 1,
			Base:        time.Duration(cfg.Retry.DelayMS) * time.Millisecond,
			Cap:         time.Duration(cfg.Retry.DelayMS*8) * time.Millisecond,
			Retryable:   func(err error) bool { return classify(err).Retryable() },
		},
		deviceID: deviceID(),
	}, nil
}

// Close clears the API token from the Client's config copy and from the
// resty client's Authorization header. It drops the references only: the
// bytes of the old token string are not overwritten and are left to Go's GC.
func (c *Client) Close() {
	c.cfg.APIToken = ""
	c.http.SetHeader("Authorization", "")
}

// Evaluate runs a single access evaluation. It is a thin wrapper over
// BatchEvaluate for the one-query case, matching the C original's
// sgnl_check_access.
func (c *Client) Evaluate(ctx context.Context, q AccessQuery) (AccessResult, error) {
	results, err := c.BatchEvaluate(ctx, []AccessQuery{q})
	if err != nil {
		return AccessResult{}, err
	}
	return results[0], nil
}

// BatchEvaluate sends all of queries in a single /access/v2/evaluations
// request and returns one AccessResult per query, always len(queries) long
// and always in the same order as queries (SPEC_FULL.md §8): the response
// is matched to the request positionally, not by any echoed identifier. A
// response shorter than the request is a protocol violation; the missing
// tail is conservatively filled with Deny rather than surfaced as an error,
// matching libsgnl.c's truncation handling.
func (c *Client) BatchEvaluate(ctx context.Context, queries []AccessQuery) ([]AccessResult, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	if queries[0].PrincipalID == "" {
		return nil, newError(ResultError, nil, "principal id is empty")
	}

	reqBody := evaluationRequest{
		Principal: principalRef{ID: queries[0].PrincipalID, DeviceID: c.deviceID},
		Queries:   make([]evaluationItem, len(queries)),
	}
	for i, q := range queries {
		reqBody.Queries[i] = evaluationItem{AssetID: q.AssetID, Action: q.Action}
	}

	var body evaluationResponse
	err := c.doWithRetry(ctx, func(ctx context.Context) error {
		return c.post(ctx, evaluationsPath, reqBody, &body)
	})
	if err != nil {
		return nil, err
	}

	results := make([]AccessResult, len(queries))
	for i, q := range queries {
		results[i] = AccessResult{Query: q, Decision: DecisionDeny}
		if i >= len(body.Decisions) {
			sgnllog.Context{Component: "authzclient", Function: "BatchEvaluate"}.With(c.logger).
				Warn("response truncated relative to request, defaulting remainder to deny",
					"requested", len(queries), "received", len(body.Decisions))
			continue
		}
		entry := body.Decisions[i]
		results[i].Reason = entry.Reason
		if strings.EqualFold(entry.Decision, "allow") {
			results[i].Decision = DecisionAllow
		}
	}
	return results, nil
}

// Search returns the assets reachable by query.PrincipalID under
// query.Action. Detailed pagination is not implemented (SPEC_FULL.md §9):
// this returns the single page the service answers with, matching the C
// original's acknowledged simplified implementation. The response reuses
// evaluation's decisions[]/assetId shape (spec.md §6); only entries whose
// decision is "Allow" are reachable assets.
func (c *Client) Search(ctx context.Context, query SearchQuery) ([]SearchResult, error) {
	reqBody := searchRequest{
		Principal: principalRef{ID: query.PrincipalID, DeviceID: c.deviceID},
		Queries:   []searchQuery{{Action: query.Action, AssetType: query.AssetType}},
	}

	var body evaluationResponse
	err := c.doWithRetry(ctx, func(ctx context.Context) error {
		return c.post(ctx, searchPath, reqBody, &body)
	})
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, entry := range body.Decisions {
		if strings.EqualFold(entry.Decision, "allow") && entry.AssetID != "" {
			results = append(results, SearchResult{AssetID: entry.AssetID})
		}
	}
	return results, nil
}

func (c *Client) doWithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	return c.retry.Run(ctx, fn)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	reqID := newRequestID()
	logCtx := sgnllog.Context{Component: "authzclient", Function: "post", RequestID: reqID}
	sgnllog.SecureDebugf(logCtx, c.logger, "sending request", "path", path)

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-Id", reqID).
		SetBody(body).
		SetResult(out).
		SetError(&errorResponse{}).
		Post(path)
	if err != nil {
		return newError(ResultNetworkError, err, "transport failure calling %s", path)
	}

	if resp.IsSuccess() {
		return nil
	}
	return httpStatusError(resp, path)
}

// httpStatusError maps an unsuccessful HTTP response to a Result: 401 and
// 403 are authentication failures, 408 is a timeout, 5xx is a transient
// network failure, and every other status is a generic ResultError.
func httpStatusError(resp *resty.Response, path string) error {
	status := resp.StatusCode()
	msg := fmt.Sprintf("%s returned HTTP %d", path, status)
	if errBody, ok := resp.Error().(*errorResponse); ok && errBody != nil && errBody.Message != "" {
		msg = errBody.Message
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return newError(ResultAuthError, nil, "%s", msg)
	case status == http.StatusRequestTimeout:
		return newError(ResultTimeoutError, nil, "%s", msg)
	case status >= 500:
		return newError(ResultNetworkError, nil, "%s", msg)
	default:
		return newError(ResultError, nil, "%s", msg)
	}
}

// classify recovers the Result carried by err, if any, defaulting to
// ResultError (non-retryable) for errors that did not originate in this
// package.
func classify(err error) Result {
	var authzErr *Error
	if errors.As(err, &authzErr) {
		return authzErr.Result
	}
	return ResultError
}
