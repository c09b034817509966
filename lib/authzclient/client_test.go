package authzclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sgnl-ai/sgnl-linux-host/lib/config"
)

func testConfig(url string) config.Config {
	return config.Config{
		APIURL:   url,
		APIToken: "test-token",
		HTTP: config.HTTPConfig{
			TimeoutSeconds:        5,
			ConnectTimeoutSeconds: 3,
			SSLVerifyPeer:         true,
			SSLVerifyHost:         true,
			UserAgent:             "SGNL-Client/1.0",
		},
		Retry: config.RetryConfig{Count: 2, DelayMS: 1},
	}
}

func TestNewRejectsEmptyAPIURL(t *testing.T) {
	_, err := New(config.Config{APIToken: "x"}, nil)
	require.Error(t, err)
}

func TestNewRejectsEmptyAPIToken(t *testing.T) {
	_, err := New(config.Config{APIURL: "http://example.com"}, nil)
	require.Error(t, err)
}

func TestEvaluateAllow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NotEmpty(t, r.Header.Get("X-Request-Id"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(evaluationResponse{Decisions: []decisionEntry{{Decision: "allow"}}})
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL), nil)
	require.NoError(t, err)

	result, err := client.Evaluate(context.Background(), AccessQuery{PrincipalID: "alice", AssetID: "/bin/ls", Action: "sudo"})
	require.NoError(t, err)
	require.Equal(t, DecisionAllow, result.Decision)
}

func TestEvaluateDeny(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(evaluationResponse{Decisions: []decisionEntry{{Decision: "deny", Reason: "no policy match"}}})
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL), nil)
	require.NoError(t, err)

	result, err := client.Evaluate(context.Background(), AccessQuery{PrincipalID: "bob", AssetID: "/bin/rm", Action: "sudo"})
	require.NoError(t, err)
	require.Equal(t, DecisionDeny, result.Decision)
	require.Equal(t, "no policy match", result.Reason)
}

func TestBatchEvaluatePositionalCorrespondence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req evaluationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		decisions := make([]decisionEntry, len(req.Queries))
		for i, e := range req.Queries {
			if e.AssetID == "/bin/ls" {
				decisions[i] = decisionEntry{Decision: "allow"}
			} else {
				decisions[i] = decisionEntry{Decision: "deny"}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(evaluationResponse{Decisions: decisions})
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL), nil)
	require.NoError(t, err)

	queries := []AccessQuery{
		{PrincipalID: "alice", AssetID: "/bin/rm", Action: "sudo"},
		{PrincipalID: "alice", AssetID: "/bin/ls", Action: "/bin/rm"},
		{PrincipalID: "alice", AssetID: "/etc/passwd", Action: "/bin/rm"},
	}
	results, err := client.BatchEvaluate(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, DecisionDeny, results[0].Decision)
	require.Equal(t, DecisionAllow, results[1].Decision)
	require.Equal(t, DecisionDeny, results[2].Decision)
}

func TestBatchEvaluateTruncatedResponseFillsDeny(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(evaluationResponse{Decisions: []decisionEntry{{Decision: "allow"}}})
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL), nil)
	require.NoError(t, err)

	queries := []AccessQuery{
		{PrincipalID: "alice", AssetID: "/bin/ls", Action: "sudo"},
		{PrincipalID: "alice", AssetID: "arg1", Action: "/bin/ls"},
		{PrincipalID: "alice", AssetID: "arg2", Action: "/bin/ls"},
	}
	results, err := client.BatchEvaluate(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, DecisionAllow, results[0].Decision)
	require.Equal(t, DecisionDeny, results[1].Decision)
	require.Equal(t, DecisionDeny, results[2].Decision)
}

func TestBatchEvaluateEmptyQueriesIsNoop(t *testing.T) {
	client, err := New(testConfig("http://unused.invalid"), nil)
	require.NoError(t, err)

	results, err := client.BatchEvaluate(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, results)
}

func TestSearchReturnsAssets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(evaluationResponse{Decisions: []decisionEntry{
			{Decision: "Allow", AssetID: "web-prod"},
			{Decision: "Allow", AssetID: "db-prod"},
			{Decision: "Deny", AssetID: "secrets-vault"},
		}})
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL), nil)
	require.NoError(t, err)

	results, err := client.Search(context.Background(), SearchQuery{PrincipalID: "alice", Action: "ssh"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "web-prod", results[0].AssetID)
	require.Equal(t, "db-prod", results[1].AssetID)
}

func TestUnauthorizedMapsToAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(errorResponse{Message: "invalid token"})
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL), nil)
	require.NoError(t, err)

	_, err = client.Evaluate(context.Background(), AccessQuery{PrincipalID: "alice", AssetID: "/bin/ls", Action: "sudo"})
	require.Error(t, err)

	var authzErr *Error
	require.ErrorAs(t, err, &authzErr)
	require.Equal(t, ResultAuthError, authzErr.Result)
}

func TestRequestTimeoutMapsToTimeoutError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestTimeout)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Retry.Count = 0
	client, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = client.Evaluate(context.Background(), AccessQuery{PrincipalID: "alice", AssetID: "/bin/ls", Action: "sudo"})
	require.Error(t, err)

	var authzErr *Error
	require.ErrorAs(t, err, &authzErr)
	require.Equal(t, ResultTimeoutError, authzErr.Result)
}

func TestAuthErrorIsNeverRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL), nil)
	require.NoError(t, err)

	_, err = client.Evaluate(context.Background(), AccessQuery{PrincipalID: "alice", AssetID: "/bin/ls", Action: "sudo"})
	require.Error(t, err)
	require.Equal(t, int32(1), calls.Load())
}

func TestNetworkErrorIsRetriedUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(evaluationResponse{Decisions: []decisionEntry{{Decision: "allow"}}})
	}))
	defer srv.Close()

	client, err := New(testConfig(srv.URL), nil)
	require.NoError(t, err)

	result, err := client.Evaluate(context.Background(), AccessQuery{PrincipalID: "alice", AssetID: "/bin/ls", Action: "sudo"})
	require.NoError(t, err)
	require.Equal(t, DecisionAllow, result.Decision)
	require.Equal(t, int32(3), calls.Load())
}

func TestCloseClearsToken(t *testing.T) {
	client, err := New(testConfig("http://unused.invalid"), nil)
	require.NoError(t, err)

	client.Close()

	require.Empty(t, client.cfg.APIToken)
}
