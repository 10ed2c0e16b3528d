package ingest

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/medlinka/go-cip/internal/diagnosis"
)

// Pipeline runs the inbound stages in order: envelope normalization, JSON
// recovery, field parsing. All stages are synchronous and pure; the caller's
// timeout on the provider call is the only cancellation boundary, so a
// context that is already dead never reaches these stages.
type Pipeline struct {
	logger *zap.Logger
	tracer trace.Tracer
}

// NewPipeline creates an ingestion pipeline.
func NewPipeline(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		logger: logger,
		tracer: otel.Tracer("ingest-pipeline"),
	}
}

// Ingest converts a raw provider payload into a canonical diagnosis. Errors
// are all-or-nothing: no partial record is ever returned.
func (p *Pipeline) Ingest(ctx context.Context, raw []byte) (*diagnosis.Canonical, error) {
	_, span := p.tracer.Start(ctx, "ingest_response",
		trace.WithAttributes(attribute.Int("payload_bytes", len(raw))))
	defer span.End()

	env, err := NormalizeEnvelope(raw)
	if err != nil {
		span.RecordError(err)
		p.logger.Warn("envelope rejected",
			zap.Error(err),
			zap.String("payload", truncateForLog(string(raw))))
		return nil, err
	}

	obj := env.Object
	if env.Kind == KindEmbeddedText {
		obj, err = RecoverObject(env.Text)
		if err != nil {
			span.RecordError(err)
			p.logger.Warn("json recovery failed", zap.Error(err))
			return nil, err
		}
	}

	d, err := ParseDiagnosis(obj)
	if err != nil {
		span.RecordError(err)
		p.logger.Warn("diagnosis parse failed", zap.Error(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.String("severity", string(d.SeverityLevel)),
		attribute.Float64("confidence", d.ConfidenceScore),
	)
	p.logger.Info("diagnosis ingested",
		zap.String("severity", string(d.SeverityLevel)),
		zap.Int("inventory_drugs", len(d.InventoryDrugs)),
		zap.Int("additional_therapy", len(d.AdditionalTherapy)))

	return d, nil
}
