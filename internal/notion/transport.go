package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// ── Transport ──────────────────────────────────────────────
// Owns the HTTP session against the Notion API: injects the bearer
// credential and protocol-version header, enforces the per-request
// timeout, and applies the retry policy for transient failures.
// Responses are never persisted; the only state is the usage counters.

// Credential is the bearer token plus protocol version attached to
// every request. Immutable after construction and never logged.
type Credential struct {
	Token   string
	Version string // Notion-Version header, e.g. "2022-06-28"
}

// Envelope describes a single API call.
type Envelope struct {
	Method string
	Path   string // e.g. "/v1/pages"
	Query  url.Values
	Body   any // JSON-marshalled when non-nil

	// IdempotencyKey is generated per envelope and reused across
	// retries of the same call.
	IdempotencyKey string
}

// NewEnvelope builds an envelope with a fresh idempotency key.
func NewEnvelope(method, path string) Envelope {
	return Envelope{Method: method, Path: path, IdempotencyKey: uuid.New().String()}
}

// UsageCounters tracks process-wide request totals. Incremented on
// every attempt by the transport; reset only on process restart.
type UsageCounters struct {
	requests atomic.Int64
	errors   atomic.Int64
}

func (c *UsageCounters) Requests() int64 { return c.requests.Load() }
func (c *UsageCounters) Errors() int64   { return c.errors.Load() }

// SuccessRate returns the fraction of attempts that succeeded, in percent.
func (c *UsageCounters) SuccessRate() float64 {
	total := c.requests.Load()
	if total == 0 {
		return 100
	}
	return float64(total-c.errors.Load()) / float64(total) * 100
}

// RetryPolicy controls recovery from transient failures. Only
// rate-limit, server and network errors are retried.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the second attempt
	Multiplier  float64       // backoff growth factor
	MaxDelay    time.Duration // cap on a single delay
}

// DefaultRetryPolicy matches the remote service's guidance: three
// attempts with exponential backoff from half a second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Multiplier:  2.0,
		MaxDelay:    15 * time.Second,
	}
}

// newBackOff builds the backoff schedule for one call.
func (p RetryPolicy) newBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.BaseDelay
	bo.Multiplier = p.Multiplier
	bo.MaxInterval = p.MaxDelay
	bo.MaxElapsedTime = 0 // attempts are bounded by count, not wall clock
	bo.RandomizationFactor = 0
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithMaxRetries(bo, uint64(attempts-1))
}

// Transport executes envelopes against the remote service.
type Transport struct {
	baseURL  string
	cred     Credential
	client   *http.Client
	policy   RetryPolicy
	counters *UsageCounters
	log      hclog.Logger
}

// TransportOptions configures a Transport. Zero values fall back to
// defaults; Counters may be shared with other components for stats.
type TransportOptions struct {
	BaseURL  string
	Timeout  time.Duration
	Policy   RetryPolicy
	Counters *UsageCounters
	Logger   hclog.Logger

	// HTTPClient overrides the default client; used by tests.
	HTTPClient *http.Client
}

const defaultBaseURL = "https://api.notion.com"

// NewTransport builds a transport for the given credential.
func NewTransport(cred Credential, opts TransportOptions) *Transport {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = DefaultRetryPolicy()
	}
	if opts.Counters == nil {
		opts.Counters = &UsageCounters{}
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Transport{
		baseURL:  opts.BaseURL,
		cred:     cred,
		client:   client,
		policy:   opts.Policy,
		counters: opts.Counters,
		log:      opts.Logger.Named("transport"),
	}
}

// Counters exposes the shared usage counters.
func (t *Transport) Counters() *UsageCounters { return t.counters }

// retryAfterBackOff lets a 429 Retry-After header override the next
// exponential delay. The hint is consumed once.
type retryAfterBackOff struct {
	next backoff.BackOff
	hint *time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	d := b.next.NextBackOff()
	if d == backoff.Stop {
		return backoff.Stop
	}
	if *b.hint > 0 {
		d = *b.hint
		*b.hint = 0
	}
	return d
}

func (b *retryAfterBackOff) Reset() { b.next.Reset() }

// Do executes the envelope and decodes the JSON response into out
// when out is non-nil. Transient failures are retried per policy; a
// cancelled context stops retrying immediately.
func (t *Transport) Do(ctx context.Context, env Envelope, out any) error {
	var (
		attempts   int
		retryAfter time.Duration
		result     []byte
	)

	operation := func() error {
		attempts++
		t.counters.requests.Add(1)

		body, err := t.attempt(ctx, env, &retryAfter)
		if err != nil {
			t.counters.errors.Add(1)
			var cerr *Error
			if errors.As(err, &cerr) && !cerr.retryable() {
				return backoff.Permanent(err)
			}
			t.log.Debug("attempt failed", "method", env.Method, "path", env.Path,
				"attempt", attempts, "error", err)
			return err
		}
		result = body
		return nil
	}

	bo := &retryAfterBackOff{next: t.policy.newBackOff(), hint: &retryAfter}
	err := backoff.Retry(operation, backoff.WithContext(bo, ctx))
	if err != nil {
		if ctx.Err() != nil {
			err = NewError(KindNetwork, "request cancelled: %v", ctx.Err())
		}
		var cerr *Error
		if errors.As(err, &cerr) {
			cerr.Attempts = attempts
			return cerr
		}
		return &Error{Kind: KindNetwork, Message: err.Error(), Attempts: attempts}
	}

	if out != nil && len(result) > 0 {
		if err := json.Unmarshal(result, out); err != nil {
			return NewError(KindNetwork, "malformed response body: %v", err)
		}
	}
	return nil
}

// attempt performs exactly one HTTP round trip.
func (t *Transport) attempt(ctx context.Context, env Envelope, retryAfter *time.Duration) ([]byte, error) {
	endpoint := t.baseURL + env.Path
	if len(env.Query) > 0 {
		endpoint += "?" + env.Query.Encode()
	}

	var bodyReader io.Reader
	if env.Body != nil {
		raw, err := json.Marshal(env.Body)
		if err != nil {
			return nil, NewError(KindValidation, "marshal request body: %v", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, env.Method, endpoint, bodyReader)
	if err != nil {
		return nil, NewError(KindValidation, "build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.cred.Token)
	req.Header.Set("Notion-Version", t.cred.Version)
	req.Header.Set("Accept", "application/json")
	if env.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if env.IdempotencyKey != "" {
		req.Header.Set("X-Request-Id", env.IdempotencyKey)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, NewError(KindNetwork, "request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(KindNetwork, "read response: %v", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return raw, nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			*retryAfter = time.Duration(secs) * time.Second
		}
	}
	return nil, decodeAPIError(resp.StatusCode, raw)
}

// decodeAPIError maps an HTTP failure to the client taxonomy. The
// Notion error body carries {code, message}; the message is kept
// verbatim when present so callers can show it directly.
func decodeAPIError(status int, raw []byte) *Error {
	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &apiErr)

	msg := apiErr.Message
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if msg == "" {
			msg = "token is invalid, expired, or lacks access to this resource"
		}
		return &Error{Kind: KindAuth, Message: msg}
	case status == http.StatusNotFound:
		if msg == "" {
			msg = "the requested page or database was not found; check the ID and integration permissions"
		}
		return &Error{Kind: KindNotFound, Message: msg}
	case status == http.StatusTooManyRequests:
		if msg == "" {
			msg = "rate limit exceeded; backing off before the next request"
		}
		return &Error{Kind: KindRateLimited, Message: msg}
	case status >= 500:
		if msg == "" {
			msg = fmt.Sprintf("remote service error (HTTP %d)", status)
		}
		return &Error{Kind: KindServer, Message: msg}
	default:
		if msg == "" {
			msg = fmt.Sprintf("request rejected (HTTP %d)", status)
		}
		if apiErr.Code != "" {
			msg = fmt.Sprintf("%s: %s", apiErr.Code, msg)
		}
		return &Error{Kind: KindValidation, Message: msg}
	}
}
