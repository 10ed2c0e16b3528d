package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/medlinka/go-cip/pkg/circuitbreaker"
)

// maxResponseBytes caps the provider response body. Responses are a few KB;
// anything near the cap is malformed or hostile.
const maxResponseBytes = 1 << 20

// ClientConfig holds provider client settings.
type ClientConfig struct {
	// BaseURL is the provider endpoint, e.g. https://provider.example/v1/diagnose.
	BaseURL string
	// APIKey authenticates the clinic against the provider.
	APIKey string
	// Timeout bounds the whole call. The provider can take tens of seconds;
	// this timeout is the only cancellation the pipeline applies.
	Timeout time.Duration
}

// DefaultClientConfig returns defaults for a slow synchronous provider.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout: 90 * time.Second,
	}
}

// Client posts diagnosis requests to the external provider behind a circuit
// breaker. The raw response body is returned untouched; interpreting it is
// the ingestion pipeline's job.
type Client struct {
	config  ClientConfig
	http    *http.Client
	breaker *circuitbreaker.Breaker
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewClient creates a provider client.
func NewClient(cfg ClientConfig, breaker *circuitbreaker.Breaker, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config:  cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		logger:  logger,
		tracer:  otel.Tracer("diagnosis-provider"),
	}
}

// Diagnose sends the request and returns the provider's raw response bytes.
func (c *Client) Diagnose(ctx context.Context, req DiagnosisRequest) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "provider_diagnose",
		trace.WithAttributes(
			attribute.String("language", req.DetectedLanguage),
			attribute.Bool("has_inventory", req.HasDrugInventory),
		))
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal provider request: %w", err)
	}

	start := time.Now()
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		span.RecordError(err)
		if circuitbreaker.IsOpenError(err) {
			c.logger.Warn("provider circuit open, request rejected")
		}
		return nil, err
	}

	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int64("duration_ms", elapsed.Milliseconds()))
	c.logger.Info("provider response received",
		zap.Duration("duration", elapsed),
		zap.Int("bytes", len(result.([]byte))))

	return result.([]byte), nil
}

func (c *Client) post(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build provider request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("provider call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read provider response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	return raw, nil
}
