package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const UserAgent = "ndx.service/1.0 (+https://github.com/ndx-service)"

type Connection interface {
	Request(ctx context.Context, endpoint *url.URL) (*http.Response, error)
}

type ClientHost struct {
	client  *http.Client
	scheme  string
	host    string
	limiter *rate.Limiter
}

type Client struct {
	Connection Connection
	ApiKey     string
}

// Request resolves endpoint against the host and performs a GET.
// Any non 200 response is closed and returned as a *StatusError.
func (conn *ClientHost) Request(ctx context.Context, endpoint *url.URL) (*http.Response, error) {
	if conn.limiter != nil {
		if err := conn.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("error waiting on rate limiter for %s: %w", conn.host, err)
		}
	}

	target := *endpoint
	target.Scheme = conn.scheme
	target.Host = conn.host

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := conn.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error requesting %s%s: %w", conn.host, target.Path, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Endpoint:   conn.host + target.Path,
			Body:       string(body),
		}
	}

	return resp, nil
}

// NewClientHost takes the scheme and host from baseUrl, a nil limiter disables rate limiting
func NewClientHost(baseUrl string, timeout time.Duration, limiter *rate.Limiter) (*ClientHost, error) {
	u, err := url.Parse(baseUrl)
	if err != nil {
		return nil, fmt.Errorf("error parsing base url %q: %w", baseUrl, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", baseUrl)
	}

	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}

	return &ClientHost{
		client:  &http.Client{Timeout: timeout},
		scheme:  scheme,
		host:    u.Host,
		limiter: limiter,
	}, nil
}

func ClientFactory(baseUrl string, apiKey string, timeout time.Duration, limiter *rate.Limiter) (*Client, error) {
	clientHost, err := NewClientHost(baseUrl, timeout, limiter)
	if err != nil {
		return nil, err
	}

	return &Client{
		Connection: clientHost,
		ApiKey:     apiKey,
	}, nil
}

// PerMinute builds a limiter allowing rpm requests per minute, zero or less means unlimited
func PerMinute(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}
