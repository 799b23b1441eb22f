// Package httpclient talks to the codequest HTTP API and decodes its response
// envelope.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "codequest/pkg/errors"

	"github.com/google/uuid"
)

const traceIDHeader = "X-Trace-Id"

// Envelope mirrors the server's response body.
type Envelope struct {
	Code    int                    `json:"code"`
	Message string                 `json:"message"`
	Data    json.RawMessage        `json:"data,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	TraceID string                 `json:"trace_id,omitempty"`
}

// OK reports whether the server returned the success code.
func (e Envelope) OK() bool {
	return e.Code == int(pkgerrors.Success)
}

// Response carries the raw body plus the decoded envelope, if any.
type Response struct {
	StatusCode int
	Duration   time.Duration
	TraceID    string
	Body       []byte
	Envelope   *Envelope
}

// Client sends CLI requests with the stored bearer token.
type Client struct {
	baseURL       string
	http          *http.Client
	tokenProvider func() string
}

func New(baseURL string, timeout time.Duration, tokenProvider func() string) *Client {
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		http:          &http.Client{Timeout: timeout},
		tokenProvider: tokenProvider,
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.http.Timeout = timeout
	}
}

// Do sends one request. Each request gets a fresh trace id so a CLI call can be
// found in the server logs.
func (c *Client) Do(ctx context.Context, method, path string, headers map[string]string, body []byte) (Response, error) {
	var resp Response
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return resp, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(traceIDHeader, uuid.NewString())
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	if c.tokenProvider != nil {
		if token := c.tokenProvider(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	httpResp, err := c.http.Do(req)
	resp.Duration = time.Since(start)
	if err != nil {
		return resp, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	resp.StatusCode = httpResp.StatusCode
	resp.TraceID = httpResp.Header.Get(traceIDHeader)
	resp.Body, err = io.ReadAll(httpResp.Body)
	if err != nil {
		return resp, fmt.Errorf("read response body failed: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(resp.Body, &env); err == nil && env.Code != 0 {
		resp.Envelope = &env
		if resp.TraceID == "" {
			resp.TraceID = env.TraceID
		}
	}
	return resp, nil
}

type gradedData struct {
	Accepted *bool   `json:"accepted"`
	Success  *bool   `json:"success"`
	Status   string  `json:"status"`
	Passed   *int    `json:"passed"`
	Total    *int    `json:"total"`
	PassedTC *int    `json:"passed_test_cases"`
	TotalTC  *int    `json:"total_test_cases"`
	Runtime  float64 `json:"runtime"`
	Memory   int64   `json:"memory"`
	Error    string  `json:"error_message"`
}

// Summary renders a one-line reading of the response. Judge unavailability is
// reported as retryable and never as a verdict. It returns "" when there is
// nothing beyond the raw body to say.
func Summary(resp Response) string {
	env := resp.Envelope
	if env == nil {
		return ""
	}
	switch pkgerrors.ErrorCode(env.Code) {
	case pkgerrors.JudgeTimeout:
		return withTrace("grading unavailable: the judge did not finish in time, retry later", resp.TraceID)
	case pkgerrors.JudgeSystemError:
		return withTrace("grading unavailable: the judge engine could not be reached, retry later", resp.TraceID)
	case pkgerrors.ReferenceSolutionFailed:
		lang, _ := env.Details["language"].(string)
		diag, _ := env.Details["diagnostic"].(string)
		return fmt.Sprintf("reference solution (%s) rejected: %s", lang, firstLine(diag))
	case pkgerrors.TooManyRequests:
		return "rate limited, slow down"
	}
	if !env.OK() {
		return fmt.Sprintf("error %d: %s", env.Code, env.Message)
	}
	return verdictLine(env.Data)
}

func verdictLine(raw json.RawMessage) string {
	if len(raw) == 0 || raw[0] != '{' {
		return ""
	}
	var d gradedData
	if err := json.Unmarshal(raw, &d); err != nil || d.Status == "" {
		return ""
	}
	passed, total := d.Passed, d.Total
	if passed == nil {
		passed, total = d.PassedTC, d.TotalTC
	}
	if passed == nil || total == nil || (d.Accepted == nil && d.Success == nil) {
		return ""
	}
	line := fmt.Sprintf("verdict: %s (%d/%d passed, %.3fs, %d KB)", d.Status, *passed, *total, d.Runtime, d.Memory)
	if d.Error != "" {
		line += ": " + firstLine(d.Error)
	}
	return line
}

func withTrace(msg, traceID string) string {
	if traceID == "" {
		return msg
	}
	return msg + " (trace " + traceID + ")"
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
