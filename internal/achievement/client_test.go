package achievement

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marcus/dailygate/internal/config"
	"github.com/marcus/dailygate/internal/credential"
	"github.com/marcus/dailygate/internal/gateerr"
	"github.com/marcus/dailygate/internal/models"
)

func boise(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Boise")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

// newTestClient points a client at srv with a clock fixed at now.
func newTestClient(t *testing.T, srv *httptest.Server, creds credential.Store, now time.Time) *Client {
	t.Helper()
	cfg := config.Defaults(t.TempDir())
	cfg.Username = "alice"
	cfg.GraphQLURL = srv.URL + "/graphql"
	cfg.CookieDomain = "127.0.0.1"
	cfg.Location = now.Location()
	cfg.RequestTimeout = 2 * time.Second
	return New(cfg, creds, WithClock(func() time.Time { return now }))
}

func jsonHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func submissionsBody(items ...string) string {
	return fmt.Sprintf(`{"data":{"recentAcSubmissionList":[%s]}}`, strings.Join(items, ","))
}

func TestFetchTodayCompletionFindsTodayEvent(t *testing.T) {
	loc := boise(t)
	now := time.Date(2024, 6, 1, 15, 0, 0, 0, loc)
	solvedAt := time.Date(2024, 6, 1, 14, 0, 0, 0, loc).Unix()
	yesterday := time.Date(2024, 5, 31, 22, 0, 0, 0, loc).Unix()

	var gotCookie, gotUser string
	var gotLimit float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("LEETCODE_SESSION"); err == nil {
			gotCookie = c.Value
		}
		var req graphQLRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotUser, _ = req.Variables["username"].(string)
		gotLimit, _ = req.Variables["limit"].(float64)
		io.WriteString(w, submissionsBody(
			fmt.Sprintf(`{"id":"7","title":"Old","timestamp":"%d"}`, yesterday),
			fmt.Sprintf(`{"id":"42","title":"Two Sum","timestamp":"%d"}`, solvedAt),
		))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, credential.NewMemory("tok"), now)
	ev, err := c.FetchTodayCompletion(context.Background())
	if err != nil {
		t.Fatalf("FetchTodayCompletion: %v", err)
	}
	if ev == nil || ev.ID != "42" {
		t.Fatalf("event = %+v, want id 42", ev)
	}
	if ev.Title != "Two Sum" {
		t.Errorf("title = %q", ev.Title)
	}
	if gotCookie != "tok" {
		t.Errorf("cookie = %q, want tok", gotCookie)
	}
	if gotUser != "alice" || gotLimit != 20 {
		t.Errorf("variables = %q/%v", gotUser, gotLimit)
	}
}

func TestFetchTodayCompletionUsesGateTimezone(t *testing.T) {
	loc := boise(t)
	// 23:00 in Boise on June 1 is already June 2 in UTC.
	now := time.Date(2024, 6, 1, 23, 30, 0, 0, loc)
	lateSolve := time.Date(2024, 6, 2, 5, 0, 0, 0, time.UTC).Unix()

	srv := httptest.NewServer(jsonHandler(200, submissionsBody(
		fmt.Sprintf(`{"id":9,"title":"Late","timestamp":%d}`, lateSolve),
	)))
	defer srv.Close()

	ev, err := newTestClient(t, srv, credential.NewMemory("tok"), now).FetchTodayCompletion(context.Background())
	if err != nil {
		t.Fatalf("FetchTodayCompletion: %v", err)
	}
	if ev == nil || ev.ID != "9" {
		t.Fatalf("event = %+v, want numeric id decoded as 9", ev)
	}
}

func TestFetchTodayCompletionNoneToday(t *testing.T) {
	loc := boise(t)
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, loc)
	old := time.Date(2024, 5, 30, 9, 0, 0, 0, loc).Unix()

	srv := httptest.NewServer(jsonHandler(200, submissionsBody(
		fmt.Sprintf(`{"id":"1","title":"x","timestamp":"%d"}`, old),
	)))
	defer srv.Close()

	ev, err := newTestClient(t, srv, credential.NewMemory("tok"), now).FetchTodayCompletion(context.Background())
	if err != nil {
		t.Fatalf("FetchTodayCompletion: %v", err)
	}
	if ev != nil {
		t.Errorf("event = %+v, want none", ev)
	}
}

func TestFetchClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   gateerr.Kind
	}{
		{"unauthorized", 401, `{"error":"nope"}`, gateerr.KindCredentialInvalid},
		{"server error", 502, `bad gateway`, gateerr.KindTransient},
		{"forbidden is not proof of invalid session", 403, `{}`, gateerr.KindTransient},
		{"malformed json", 200, `<html>`, gateerr.KindTransient},
		{"null body", 200, `null`, gateerr.KindTransient},
		{"array body", 200, `[]`, gateerr.KindTransient},
		{"empty body", 200, ``, gateerr.KindTransient},
		{"missing data", 200, `{"errors":[{"message":"login required"}]}`, gateerr.KindCredentialInvalid},
		{"null data", 200, `{"data":null}`, gateerr.KindCredentialInvalid},
		{"bad timestamp", 200, `{"data":{"recentAcSubmissionList":[{"id":"1","timestamp":"soon"}]}}`, gateerr.KindTransient},
		{"empty list", 200, `{"data":{"recentAcSubmissionList":[]}}`, gateerr.KindNone},
		{"null list", 200, `{"data":{"recentAcSubmissionList":null}}`, gateerr.KindNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(jsonHandler(tt.status, tt.body))
			defer srv.Close()

			c := newTestClient(t, srv, credential.NewMemory("tok"), time.Now())
			ev, err := c.FetchTodayCompletion(context.Background())
			if got := gateerr.KindOf(err); got != tt.want {
				t.Fatalf("kind = %v (err %v), want %v", got, err, tt.want)
			}
			if ev != nil {
				t.Errorf("event = %+v, want none", ev)
			}
		})
	}
}

func TestFetchWithoutCredentialSendsNothing(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv, credential.NewMemory(""), time.Now()).FetchTodayCompletion(context.Background())
	if !gateerr.Is(err, gateerr.KindCredentialInvalid) {
		t.Fatalf("err = %v, want credential-invalid", err)
	}
	if hits.Load() != 0 {
		t.Errorf("server hit %d times without a credential", hits.Load())
	}
}

func TestFetchTimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, credential.NewMemory("tok"), time.Now())
	c.Timeout = 50 * time.Millisecond

	start := time.Now()
	_, err := c.FetchTodayCompletion(context.Background())
	if !gateerr.Is(err, gateerr.KindTransient) {
		t.Fatalf("err = %v, want transient", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestFetchRefusesOutOfScopeEndpoint(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, credential.NewMemory("tok"), time.Now())
	c.CookieDomain = ".leetcode.com"

	_, err := c.FetchTodayCompletion(context.Background())
	if !gateerr.Is(err, gateerr.KindTransient) {
		t.Fatalf("err = %v, want transient", err)
	}
	if hits.Load() != 0 {
		t.Error("credential was sent outside its domain")
	}
}

func TestCustomClassifier(t *testing.T) {
	srv := httptest.NewServer(jsonHandler(200, `{"data":{}}`))
	defer srv.Close()

	cfg := config.Defaults(t.TempDir())
	cfg.GraphQLURL = srv.URL
	cfg.CookieDomain = "127.0.0.1"
	c := New(cfg, credential.NewMemory("tok"), WithClassifier(func(status int, body []byte) ([]models.AchievementEvent, error) {
		return nil, gateerr.CredentialInvalid("custom", "always invalid")
	}))

	if _, err := c.FetchRecent(context.Background()); !gateerr.Is(err, gateerr.KindCredentialInvalid) {
		t.Fatalf("err = %v, want classifier result", err)
	}
}

func TestDomainMatch(t *testing.T) {
	tests := []struct {
		host, domain string
		want         bool
	}{
		{"leetcode.com", ".leetcode.com", true},
		{"www.leetcode.com", ".leetcode.com", true},
		{"evilleetcode.com", ".leetcode.com", false},
		{"leetcode.com.evil.io", "leetcode.com", false},
		{"127.0.0.1", "127.0.0.1", true},
		{"leetcode.com", "", false},
	}
	for _, tt := range tests {
		if got := domainMatch(tt.host, tt.domain); got != tt.want {
			t.Errorf("domainMatch(%q, %q) = %v, want %v", tt.host, tt.domain, got, tt.want)
		}
	}
}
