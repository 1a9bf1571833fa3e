package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/text-analyzer/pkg/resilience"
)

// ErrUnchanged is returned when the service echoes the input back.
var ErrUnchanged = errors.New("translation returned the input unchanged")

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

// HTTPTranslator calls a LibreTranslate-compatible /translate endpoint.
type HTTPTranslator struct {
	endpoint string
	apiKey   string
	client   *http.Client
	retry    resilience.RetryConfig
	breaker  *resilience.CircuitBreaker
	logger   *slog.Logger
}

// NewHTTPTranslator builds a translator from config.
func NewHTTPTranslator(cfg config.TranslationConfig) *HTTPTranslator {
	return &HTTPTranslator{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
		retry: resilience.RetryConfig{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		},
		breaker: resilience.NewCircuitBreaker("translation", resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.FailureThreshold,
			ResetTimeout:     cfg.ResetTimeout,
			IsFailure:        resilience.DefaultIsFailure,
		}),
		logger: logger.WithComponent("http-translator"),
	}
}

// Breaker exposes the circuit breaker for health checks and metrics.
func (t *HTTPTranslator) Breaker() *resilience.CircuitBreaker {
	return t.breaker
}

// Translate sends text to the service. Rejected requests (4xx, unchanged
// output) are Permanent: they are not retried and do not trip the breaker.
// Neither do failures after the caller's context ended.
func (t *HTTPTranslator) Translate(ctx context.Context, text, target string) (string, error) {
	var out string
	err := t.breaker.Execute(func() error {
		err := resilience.Retry(ctx, "translate", t.retry, func(ctx context.Context) error {
			var err error
			out, err = t.call(ctx, text, target)
			return err
		})
		if err != nil && ctx.Err() != nil {
			return resilience.Permanent(err)
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

func (t *HTTPTranslator) call(ctx context.Context, text, target string) (string, error) {
	body, err := json.Marshal(translateRequest{
		Q:      text,
		Source: "auto",
		Target: target,
		Format: "text",
		APIKey: t.apiKey,
	})
	if err != nil {
		return "", resilience.Permanent(fmt.Errorf("encoding translate request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", resilience.Permanent(fmt.Errorf("building translate request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling translation service: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("reading translate response: %w", err)
	}
	var parsed translateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decoding translate response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("translation service returned %d: %s", resp.StatusCode, parsed.Error)
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return "", resilience.RetryAfter(statusErr, retryAfter(resp.Header.Get("Retry-After")))
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return "", resilience.Permanent(statusErr)
		}
		return "", statusErr
	}
	if strings.TrimSpace(parsed.TranslatedText) == strings.TrimSpace(text) {
		return "", resilience.Permanent(ErrUnchanged)
	}
	t.logger.Debug("text translated", "target", target, "chars", len(text))
	return parsed.TranslatedText, nil
}

// retryAfter parses a Retry-After header given in seconds. Other forms yield 0.
func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
