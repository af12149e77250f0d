package daraja

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"tourism-booking/internal/pkg/clock"
	"tourism-booking/internal/pkg/errs"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultTokenTTL = 3599 * time.Second
	tokenExpirySkew = time.Minute
)

// tokenSource caches the OAuth access token until shortly before it expires.
type tokenSource struct {
	client *Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
	clock     clock.Clock
}

func newTokenSource(c *Client, clk clock.Clock) *tokenSource {
	return &tokenSource{client: c, clock: clk}
}

func (s *tokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.clock.Now().Before(s.expiresAt) {
		return s.token, nil
	}

	var resp tokenResponse
	op := func() error {
		r, err := s.fetch(ctx)
		if err != nil {
			return err
		}
		resp = *r
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.client.cfg.TokenRetries),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return "", errs.MarkAll(errs.Wrap(err, "daraja access token"), errs.ErrGatewayAuth)
	}

	ttl := defaultTokenTTL
	if secs, err := strconv.Atoi(resp.ExpiresIn); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	s.token = resp.AccessToken
	s.expiresAt = s.clock.Now().Add(ttl - tokenExpirySkew)
	return s.token, nil
}

// Invalidate drops the cached token after the provider rejected it.
func (s *tokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiresAt = time.Time{}
}

// fetch marks credential rejections permanent so they are not retried.
func (s *tokenSource) fetch(ctx context.Context) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.baseURL+oauthPath, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.SetBasicAuth(s.client.cfg.ConsumerKey, s.client.cfg.ConsumerSecret)

	if err := s.client.limiter.Wait(ctx); err != nil {
		return nil, backoff.Permanent(err)
	}
	resp, err := s.client.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest:
		return nil, backoff.Permanent(errs.Newf("credentials rejected: status=%d", resp.StatusCode))
	case resp.StatusCode >= 300:
		return nil, errs.Newf("token endpoint failed: status=%d", resp.StatusCode)
	}

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, backoff.Permanent(errs.Wrap(err, "decode token response"))
	}
	if out.AccessToken == "" {
		return nil, backoff.Permanent(errs.New("empty access token"))
	}
	return &out, nil
}
