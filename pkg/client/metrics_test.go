package client

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_expiryRetryAndTokenFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == TokenPath {
			fmt.Fprint(w, `{"access_token":"fresh"}`)
			return
		}
		if r.PostFormValue(AccessTokenField) == "stale" {
			fmt.Fprint(w, `{"success":false,"msg":"Authentication failed"}`)
			return
		}
		fmt.Fprint(w, `{"success":true}`)
	}))
	defer srv.Close()

	c := MustNew(StaticOwner{Cfg: Config{APIKey: "key", APISecret: "secret", BaseURL: srv.URL}}, WithToken("stale"))

	retries := testutil.ToFloat64(nbExpiryRetriesTotal)
	fetches := testutil.ToFloat64(nbTokenFetchesTotal.WithLabelValues("success"))
	expired := testutil.ToFloat64(nbExchangesTotal.WithLabelValues("/v3/single", "access_token_expired"))

	if _, err := c.Request(context.Background(), Descriptor{Path: "/v3/single"}, nil); err != nil {
		t.Fatalf("Request: %v", err)
	}

	if got := testutil.ToFloat64(nbExpiryRetriesTotal) - retries; got != 1 {
		t.Errorf("expiry retries: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(nbTokenFetchesTotal.WithLabelValues("success")) - fetches; got != 1 {
		t.Errorf("token fetches: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(nbExchangesTotal.WithLabelValues("/v3/single", "access_token_expired")) - expired; got != 1 {
		t.Errorf("expired exchanges: got %v, want 1", got)
	}
}

func TestMetrics_unknownPathsShareOneLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true}`)
	}))
	defer srv.Close()

	c := MustNew(StaticOwner{Cfg: Config{APIKey: "key", APISecret: "secret", BaseURL: srv.URL}}, WithToken("tok"))

	other := testutil.ToFloat64(nbExchangesTotal.WithLabelValues("other", "success"))
	for _, path := range []string{"/v3/a", "/v3/b/c", "/anything?x=1"} {
		if _, err := c.Request(context.Background(), Descriptor{Path: path}, nil); err != nil {
			t.Fatalf("Request %s: %v", path, err)
		}
	}
	if got := testutil.ToFloat64(nbExchangesTotal.WithLabelValues("other", "success")) - other; got != 3 {
		t.Errorf("other exchanges: got %v, want 3", got)
	}

	tests := map[string]string{
		TokenPath:         TokenPath,
		"/v3/single":      "/v3/single",
		"/v3/jobs/status": "/v3/jobs/status",
		"/v3/single/":     "other",
		"/v3/debug/x":     "other",
	}
	for in, want := range tests {
		if got := pathLabel(in); got != want {
			t.Errorf("pathLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
