package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ent0n29/switchboard/internal/reliability"
)

type httpOracleRequest struct {
	Op        string `json:"op"`
	Route     string `json:"route,omitempty"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	Context   string `json:"context,omitempty"`
}

// HTTPOracle forwards requests to an external JSON endpoint. The reply may be a
// JSON object carrying text/output/message/response, or plain text.
type HTTPOracle struct {
	url    string
	client *http.Client
	retry  reliability.RetryPolicy
}

func NewHTTPOracle(url string, timeout time.Duration) *HTTPOracle {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPOracle{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: timeout,
		},
		retry: reliability.RetryPolicy{Attempts: 2, Base: 200 * time.Millisecond, Cap: time.Second},
	}
}

func (o *HTTPOracle) Name() string { return "http" }

func (o *HTTPOracle) Classify(ctx context.Context, req Request) (string, error) {
	return o.call(ctx, httpOracleRequest{Op: "classify", SessionID: req.SessionID, Message: req.Message, Context: req.Context})
}

func (o *HTTPOracle) Respond(ctx context.Context, route string, req Request) (string, error) {
	return o.call(ctx, httpOracleRequest{Op: "respond", Route: route, SessionID: req.SessionID, Message: req.Message, Context: req.Context})
}

func (o *HTTPOracle) call(ctx context.Context, payload httpOracleRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var text string
	err = reliability.Retry(ctx, o.retry, func(ctx context.Context) error {
		out, err := o.post(ctx, body)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	return text, err
}

func (o *HTTPOracle) post(ctx context.Context, payload []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewReader(payload))
	if err != nil {
		return "", reliability.Permanent(fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		err := fmt.Errorf("oracle http status %d: %s", res.StatusCode, strings.TrimSpace(string(snippet)))
		if !reliability.IsRetryableHTTPStatus(res.StatusCode) {
			return "", reliability.Permanent(err)
		}
		return "", err
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return strings.TrimSpace(string(raw)), nil
	}
	return strings.TrimSpace(extractText(obj)), nil
}

func extractText(obj map[string]any) string {
	for _, k := range []string{"text", "output", "message", "response"} {
		if v, ok := obj[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}
