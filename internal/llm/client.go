package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"moneycoach/internal/core"
	"moneycoach/internal/log"
	"moneycoach/internal/metrics"
)

// MaxAttempts bounds every provider interaction: one call plus one retry.
const MaxAttempts = 2

// ClientConfig holds the call policy applied around a Provider.
type ClientConfig struct {
	Timeout time.Duration
	Backoff time.Duration
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout: 20 * time.Second,
		Backoff: 500 * time.Millisecond,
	}
}

// Client applies timeouts, the single retry, error mapping and metrics to a Provider.
type Client struct {
	provider Provider
	cfg      ClientConfig
	logger   *log.Logger
}

func NewClient(p Provider, cfg ClientConfig, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultClientConfig().Timeout
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	return &Client{provider: p, cfg: cfg, logger: logger.WithComponent(log.ComponentLLM)}
}

// Complete returns free text. Transport failures are retried once and then
// reported as core.ErrUpstreamProvider.
func (c *Client) Complete(ctx context.Context, operation string, req Request) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.wait(ctx); err != nil {
				return "", fmt.Errorf("%w: %v", core.ErrUpstreamProvider, err)
			}
		}
		text, err := c.call(ctx, operation, attempt, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: %v", core.ErrUpstreamProvider, lastErr)
}

// Schema describes the JSON payload Extract asks for and how to check it.
type Schema[T any] struct {
	// Name labels metrics and logs.
	Name string
	// Shape is shown to the model verbatim, typically an example object.
	Shape string
	// Validate returns every problem with a decoded payload. Nil means valid.
	Validate func(T) []string
}

// Extract asks for a JSON payload and validates it before returning it.
//
// A malformed or invalid payload is retried once with the problems appended to
// the conversation. If the final attempt fails validation the error wraps
// core.ErrExtractionFailed; if it fails in transport it wraps
// core.ErrUpstreamProvider.
func Extract[T any](ctx context.Context, c *Client, req Request, schema Schema[T]) (T, error) {
	var zero T

	req.JSON = true
	req.System = strings.TrimSpace(req.System + "\n\nRespond with one JSON object and nothing else. Shape:\n" + schema.Shape)
	req.Messages = append([]Message(nil), req.Messages...)

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.wait(ctx); err != nil {
				return zero, fmt.Errorf("%w: %v", core.ErrUpstreamProvider, err)
			}
		}

		raw, err := c.call(ctx, schema.Name, attempt, req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", core.ErrUpstreamProvider, err)
			continue
		}

		out, problems := decode(raw, schema.Validate)
		if len(problems) == 0 {
			return out, nil
		}

		metrics.LLMRequests.WithLabelValues(schema.Name, "invalid_output").Inc()
		c.logger.WarnContext(ctx, "Model output failed validation",
			log.FieldOperation, schema.Name,
			log.FieldAttempt, attempt,
			"problems", problems)

		lastErr = fmt.Errorf("%w: %s", core.ErrExtractionFailed, strings.Join(problems, "; "))
		req.Messages = append(req.Messages,
			Message{Role: RoleAssistant, Content: raw},
			Message{Role: RoleUser, Content: repairPrompt(problems)},
		)
	}
	return zero, lastErr
}

func (c *Client) call(ctx context.Context, operation string, attempt int, req Request) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := c.provider.Complete(callCtx, req)
	metrics.LLMDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty completion")
	}
	if err != nil {
		metrics.LLMRequests.WithLabelValues(operation, "transport_error").Inc()
		c.logger.WarnContext(ctx, "Model provider call failed",
			log.FieldOperation, operation,
			log.FieldAttempt, attempt,
			log.FieldError, err)
		return "", err
	}

	metrics.LLMRequests.WithLabelValues(operation, "ok").Inc()
	c.logger.DebugContext(ctx, "Model provider call completed",
		log.FieldOperation, operation,
		log.FieldAttempt, attempt,
		log.FieldDuration, time.Since(start).Milliseconds())
	return text, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.cfg.Backoff == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(c.cfg.Backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func decode[T any](raw string, validate func(T) []string) (T, []string) {
	var out T
	body := stripFences(raw)
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		return out, []string{"response is not valid JSON for the requested shape: " + err.Error()}
	}
	if validate == nil {
		return out, nil
	}
	return out, validate(out)
}

// stripFences removes markdown code fences and any prose around the outermost object.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			return s[i : j+1]
		}
	}
	return s
}

func repairPrompt(problems []string) string {
	var b strings.Builder
	b.WriteString("Your previous response was rejected:\n")
	for _, p := range problems {
		b.WriteString("- ")
		b.WriteString(p)
		b.WriteByte('\n')
	}
	b.WriteString("Return the corrected JSON object only.")
	return b.String()
}
