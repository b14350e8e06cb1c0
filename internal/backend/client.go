package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trading-analytics-go/internal/config"
	"trading-analytics-go/internal/tracing"
)

const (
	executePath = "/execute"
	chatPath    = "/chat"
)

var (
	// ErrMissingResult means the /execute envelope carried no result.
	ErrMissingResult = errors.New("backend returned no result")
	// ErrMissingField means the result lacked a field the caller reads.
	ErrMissingField = errors.New("backend result missing field")
)

// StatusError is a non-retryable HTTP error response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.Code, e.Body)
}

// Malformed reports whether err means the backend answered but the answer
// was unusable, as opposed to the backend being unreachable.
func Malformed(err error) bool {
	var se *StatusError
	return errors.Is(err, ErrMissingResult) || errors.Is(err, ErrMissingField) || errors.As(err, &se)
}

// Client talks to the analytics backend over HTTP.
// It implements the API interface.
type Client struct {
	client      *resty.Client
	logger      *zap.Logger
	limiter     *rate.Limiter
	maxAttempts int
	backoff     func(attempt int) time.Duration
}

// ensure Client implements the interface
var _ API = (*Client)(nil)

// NewClient creates a backend client from configuration.
func NewClient(cfg *config.Backend, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.APIBase).
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout() > 0 {
		client.SetTimeout(cfg.Timeout())
	}

	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	burst := cfg.RateLimitBurst
	if burst < 1 {
		burst = 1
	}

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	logger.Info("Backend client configured",
		zap.String("api_base", cfg.APIBase),
		zap.Int("max_attempts", attempts),
		zap.Duration("timeout", cfg.Timeout()),
	)

	return &Client{
		client:      client,
		logger:      logger,
		limiter:     rate.NewLimiter(limit, burst),
		maxAttempts: attempts,
		backoff:     exponentialBackoff,
	}
}

// exponentialBackoff waits 1s, 2s, 4s, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

type executeRequest struct {
	Tool      string `json:"tool"`
	Arguments any    `json:"arguments"`
}

type executeEnvelope struct {
	Result json.RawMessage `json:"result"`
}

// execute calls one backend tool and returns the raw result payload along
// with the full response body.
func (c *Client) execute(ctx context.Context, tool string, args any) (json.RawMessage, []byte, error) {
	ctx, span := tracing.StartSpan(ctx, "backend."+tool, trace.WithAttributes(attribute.String("backend.tool", tool)))
	defer span.End()

	req := c.client.R().
		SetContext(ctx).
		SetBody(executeRequest{Tool: tool, Arguments: args})

	resp, err := c.doRequest(ctx, http.MethodPost, executePath, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, fmt.Errorf("tool %s: %w", tool, err)
	}

	body := resp.Body()
	var env executeEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "undecodable envelope")
		return nil, body, fmt.Errorf("tool %s: decode envelope: %w", tool, err)
	}
	if isEmpty(env.Result) {
		return nil, body, fmt.Errorf("tool %s: %w", tool, ErrMissingResult)
	}
	return env.Result, body, nil
}

// executeInto calls a tool and decodes its result into out.
func (c *Client) executeInto(ctx context.Context, tool string, args any, out any) error {
	result, _, err := c.execute(ctx, tool, args)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(result, out); err != nil {
		return fmt.Errorf("tool %s: decode result: %w", tool, err)
	}
	return nil
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error

	for i := 0; i < c.maxAttempts; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == http.StatusTeapot {
				shouldRetry = true
				if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= http.StatusInternalServerError {
				shouldRetry = true
			}
			err = &StatusError{Code: statusCode, Body: resp.String()}
		} else {
			// Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, err
		}
		if i == c.maxAttempts-1 {
			break
		}

		if retryAfter == 0 {
			retryAfter = c.backoff(i)
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if c.maxAttempts > 1 {
		return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, err)
	}
	return nil, err
}
