package judgeclient

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
	"strings"
	"time"

	appErr "codequest/pkg/errors"
	"codequest/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	defaultRequestTimeout  = 10 * time.Second
	defaultPollInterval    = time.Second
	defaultMaxPollInterval = 4 * time.Second
	defaultMaxPollAttempts = 30
	defaultMaxBatchSize    = 20
	maxErrorBodyBytes      = 2048

	resultFields = "token,status,status_id,time,memory,stdout,stderr,compile_output,message"
)

// Config configures a Judge0 client.
type Config struct {
	BaseURL string
	// AuthToken is sent as X-Auth-Token for self-hosted engines.
	AuthToken string
	// RapidAPIKey and RapidAPIHost are sent for the hosted RapidAPI engine.
	RapidAPIKey  string
	RapidAPIHost string

	RequestTimeout  time.Duration
	PollInterval    time.Duration
	MaxPollInterval time.Duration
	MaxPollAttempts int
	MaxBatchSize    int

	HTTPClient *http.Client
}

// Judge0Client implements Client over the Judge0 batch endpoints.
type Judge0Client struct {
	baseURL         string
	authToken       string
	rapidAPIKey     string
	rapidAPIHost    string
	pollInterval    time.Duration
	maxPollInterval time.Duration
	maxPollAttempts int
	maxBatchSize    int
	httpClient      *http.Client
	sleep           func(ctx context.Context, d time.Duration) error
}

// New creates a Judge0 client.
func New(cfg Config) (*Judge0Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("judge base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid judge base url: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPollInterval <= 0 {
		cfg.MaxPollInterval = defaultMaxPollInterval
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = defaultMaxPollAttempts
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = defaultMaxBatchSize
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Judge0Client{
		baseURL:         base,
		authToken:       cfg.AuthToken,
		rapidAPIKey:     cfg.RapidAPIKey,
		rapidAPIHost:    cfg.RapidAPIHost,
		pollInterval:    cfg.PollInterval,
		maxPollInterval: cfg.MaxPollInterval,
		maxPollAttempts: cfg.MaxPollAttempts,
		maxBatchSize:    cfg.MaxBatchSize,
		httpClient:      httpClient,
		sleep:           sleepContext,
	}, nil
}

type batchRequest struct {
	Submissions []Submission `json:"submissions"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type wireStatus struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type wireDetails struct {
	Token         string      `json:"token"`
	Status        *wireStatus `json:"status"`
	StatusID      int         `json:"status_id"`
	Time          *string     `json:"time"`
	Memory        *int64      `json:"memory"`
	Stdout        *string     `json:"stdout"`
	Stderr        *string     `json:"stderr"`
	CompileOutput *string     `json:"compile_output"`
	Message       *string     `json:"message"`
}

type batchResponse struct {
	Submissions []*wireDetails `json:"submissions"`
}

// SubmitBatch posts submissions in chunks of MaxBatchSize and concatenates tokens in order.
func (c *Judge0Client) SubmitBatch(ctx context.Context, submissions []Submission) ([]string, error) {
	if len(submissions) == 0 {
		return nil, nil
	}
	batchTests.Observe(float64(len(submissions)))

	tokens := make([]string, 0, len(submissions))
	for start := 0; start < len(submissions); start += c.maxBatchSize {
		end := min(start+c.maxBatchSize, len(submissions))
		chunk, err := c.submitChunk(ctx, submissions[start:end])
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, chunk...)
	}
	return tokens, nil
}

func (c *Judge0Client) submitChunk(ctx context.Context, chunk []Submission) ([]string, error) {
	body, err := json.Marshal(batchRequest{Submissions: chunk})
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.JudgeSystemError, "encode batch request failed")
	}
	var out []json.RawMessage
	if err := c.do(ctx, "submit", http.MethodPost, "/submissions/batch?base64_encoded=false", body, &out); err != nil {
		return nil, err
	}
	if len(out) != len(chunk) {
		return nil, appErr.Newf(appErr.JudgeSystemError, "engine returned %d tokens for %d submissions", len(out), len(chunk))
	}
	tokens := make([]string, len(out))
	for i, raw := range out {
		var item tokenResponse
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, appErr.Wrapf(err, appErr.JudgeSystemError, "decode batch token failed")
		}
		if item.Token == "" {
			return nil, appErr.Newf(appErr.JudgeSystemError, "engine rejected submission %d: %s", i, string(raw))
		}
		tokens[i] = item.Token
	}
	return tokens, nil
}

// FetchResults polls until all tokens are terminal. The wait between polls starts at
// PollInterval and doubles up to MaxPollInterval. After MaxPollAttempts polls, or
// once ctx is done, a JudgeTimeout error is returned.
func (c *Judge0Client) FetchResults(ctx context.Context, tokens []string) ([]Result, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	for attempt := 1; ; attempt++ {
		results, done, err := c.fetchOnce(ctx, tokens)
		if err != nil {
			if ctx.Err() != nil {
				return nil, c.timeoutError(ctx, attempt, ctx.Err())
			}
			return nil, err
		}
		if done {
			pollAttempts.Observe(float64(attempt))
			return results, nil
		}
		if attempt >= c.maxPollAttempts {
			return nil, c.timeoutError(ctx, attempt, nil)
		}
		wait := pollBackoff(attempt-1, c.pollInterval, c.maxPollInterval)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, c.timeoutError(ctx, attempt, err)
		}
	}
}

func (c *Judge0Client) timeoutError(ctx context.Context, attempts int, cause error) error {
	pollTimeoutTotal.Inc()
	pollAttempts.Observe(float64(attempts))
	logger.Warn(ctx, "judge results not ready within poll budget",
		zap.Int("attempts", attempts),
		zap.Int("max_attempts", c.maxPollAttempts),
		zap.Error(cause),
	)
	err := appErr.Newf(appErr.JudgeTimeout, "judge did not finish after %d polls", attempts).
		WithDetail("attempts", attempts)
	if cause != nil {
		err.Err = cause
	}
	return err
}

func (c *Judge0Client) fetchOnce(ctx context.Context, tokens []string) ([]Result, bool, error) {
	byToken := make(map[string]*wireDetails, len(tokens))
	for start := 0; start < len(tokens); start += c.maxBatchSize {
		end := min(start+c.maxBatchSize, len(tokens))
		query := url.Values{}
		query.Set("tokens", strings.Join(tokens[start:end], ","))
		query.Set("base64_encoded", "false")
		query.Set("fields", resultFields)

		var resp batchResponse
		if err := c.do(ctx, "fetch", http.MethodGet, "/submissions/batch?"+query.Encode(), nil, &resp); err != nil {
			return nil, false, err
		}
		for _, item := range resp.Submissions {
			if item != nil && item.Token != "" {
				byToken[item.Token] = item
			}
		}
	}

	results := make([]Result, len(tokens))
	done := true
	for i, token := range tokens {
		item, ok := byToken[token]
		if !ok {
			return nil, false, appErr.Newf(appErr.JudgeSystemError, "engine returned no result for token %s", token)
		}
		results[i] = toResult(item)
		if !Terminal(results[i].StatusID) {
			done = false
		}
	}
	return results, done, nil
}

func toResult(item *wireDetails) Result {
	res := Result{Token: item.Token, StatusID: item.StatusID}
	if item.Status != nil {
		if item.Status.ID != 0 {
			res.StatusID = item.Status.ID
		}
		res.Description = item.Status.Description
	}
	res.Outcome = DecodeStatus(res.StatusID)
	if item.Time != nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(*item.Time), 64); err == nil {
			res.Time = v
		}
	}
	if item.Memory != nil {
		res.Memory = *item.Memory
	}
	res.Stdout = deref(item.Stdout)
	res.Diagnostic = firstNonEmpty(deref(item.Stderr), deref(item.CompileOutput), deref(item.Message))
	return res
}

func (c *Judge0Client) do(ctx context.Context, op, method, path string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return appErr.Wrapf(err, appErr.JudgeSystemError, "build engine request failed")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("X-Auth-Token", c.authToken)
	}
	if c.rapidAPIKey != "" {
		req.Header.Set("X-RapidAPI-Key", c.rapidAPIKey)
		req.Header.Set("X-RapidAPI-Host", c.rapidAPIHost)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestTotal.WithLabelValues(op, "transport_error").Inc()
		return appErr.Wrapf(err, appErr.JudgeSystemError, "engine %s request failed", op)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		requestTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return appErr.Newf(appErr.JudgeSystemError, "engine %s returned status %d", op, resp.StatusCode).
			WithDetail("body", string(snippet))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		requestTotal.WithLabelValues(op, "decode_error").Inc()
		return appErr.Wrapf(err, appErr.JudgeSystemError, "decode engine %s response failed", op)
	}
	requestTotal.WithLabelValues(op, "ok").Inc()
	return nil
}

// pollBackoff doubles base per retry, capped at maxDelay.
func pollBackoff(retry int, base, maxDelay time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 0; i < retry; i++ {
		if maxDelay > 0 && delay > maxDelay/2 {
			return maxDelay
		}
		delay *= 2
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// IsTimeout reports whether err is a poll budget exhaustion.
func IsTimeout(err error) bool {
	return appErr.Is(err, appErr.JudgeTimeout) || errors.Is(err, context.DeadlineExceeded)
}
