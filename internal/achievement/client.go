// Package achievement asks the achievement source (LeetCode's GraphQL API)
// whether the configured account completed a qualifying task today.
//
// Every failure is returned as a *gateerr.Error of kind CredentialInvalid or
// Transient; the gate controller branches on the kind.
package achievement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marcus/dailygate/internal/config"
	"github.com/marcus/dailygate/internal/credential"
	"github.com/marcus/dailygate/internal/gateerr"
	"github.com/marcus/dailygate/internal/models"
)

const op = "fetch achievements"

const recentAcceptedQuery = `
query recentAccepted($username: String!, $limit: Int!) {
  recentAcSubmissionList(username: $username, limit: $limit) {
    id
    title
    timestamp
  }
}
`

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 4 << 20

// Client is an HTTP client for the achievement source
type Client struct {
	Endpoint     string
	Username     string
	CookieName   string
	CookieDomain string
	Limit        int
	Timeout      time.Duration
	HTTP         *http.Client

	creds    credential.Store
	classify Classifier
	now      func() time.Time
	loc      *time.Location
}

// Option configures a Client
type Option func(*Client)

// WithClassifier replaces the response classifier
func WithClassifier(c Classifier) Option {
	return func(cl *Client) { cl.classify = c }
}

// WithClock sets the time source used to decide what "today" is
func WithClock(now func() time.Time) Option {
	return func(cl *Client) { cl.now = now }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(cl *Client) { cl.HTTP = h }
}

// New creates a client from the resolved config
func New(cfg *config.Config, creds credential.Store, opts ...Option) *Client {
	c := &Client{
		Endpoint:     cfg.GraphQLURL,
		Username:     cfg.Username,
		CookieName:   cfg.CookieName,
		CookieDomain: cfg.CookieDomain,
		Limit:        cfg.FetchLimit,
		Timeout:      cfg.RequestTimeout,
		HTTP:         &http.Client{Timeout: cfg.RequestTimeout + 5*time.Second},
		creds:        creds,
		classify:     ClassifyGraphQL,
		now:          time.Now,
		loc:          cfg.Location,
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphQLRequest struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
}

// FetchRecent returns up to Limit of the most recent accepted submissions.
func (c *Client) FetchRecent(ctx context.Context) ([]models.AchievementEvent, error) {
	token, err := c.creds.Get()
	if errors.Is(err, credential.ErrNotFound) {
		return nil, gateerr.CredentialInvalid(op, "no credential stored")
	}
	if err != nil {
		return nil, gateerr.Transient(op, err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, gateerr.Transient(op, fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, gateerr.Transient(op, fmt.Errorf("read response: %w", err))
	}

	return c.classify(resp.StatusCode, body)
}

// FetchTodayCompletion returns the first recent event whose local calendar
// date is today, or nil when there is none.
func (c *Client) FetchTodayCompletion(ctx context.Context) (*models.AchievementEvent, error) {
	events, err := c.FetchRecent(ctx)
	if err != nil {
		return nil, err
	}
	today := models.Day(c.now(), c.loc)
	return FirstOnDay(events, today, c.loc), nil
}

// FirstOnDay returns the first event whose date in loc equals day
func FirstOnDay(events []models.AchievementEvent, day string, loc *time.Location) *models.AchievementEvent {
	for i := range events {
		if models.Day(events[i].Time(loc), loc) == day {
			ev := events[i]
			return &ev
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, token string) (*http.Request, error) {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return nil, gateerr.Transient(op, fmt.Errorf("parse endpoint: %w", err))
	}
	if err := checkCookieScope(u, c.CookieDomain); err != nil {
		return nil, gateerr.Transient(op, err)
	}

	data, err := json.Marshal(graphQLRequest{
		OperationName: "recentAccepted",
		Variables:     map[string]any{"username": c.Username, "limit": c.Limit},
		Query:         recentAcceptedQuery,
	})
	if err != nil {
		return nil, gateerr.Transient(op, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(data))
	if err != nil {
		return nil, gateerr.Transient(op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", u.Scheme+"://"+u.Host+"/")
	req.AddCookie(&http.Cookie{Name: c.CookieName, Value: token})
	return req, nil
}

// checkCookieScope refuses to send the session cookie anywhere outside its
// domain, or over plain HTTP to anything but a loopback host.
func checkCookieScope(u *url.URL, domain string) error {
	host := u.Hostname()
	if !domainMatch(host, domain) {
		return fmt.Errorf("endpoint host %q is outside credential domain %q", host, domain)
	}
	if u.Scheme != "https" && !isLoopback(host) {
		return fmt.Errorf("refusing to send credential over %s to %s", u.Scheme, host)
	}
	return nil
}

func domainMatch(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(strings.TrimPrefix(domain, "."))
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
