package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Clayjohnson75/Bookshelfapp-sub000/internal/metrics"
)

// Service chains the pipeline stages. Pre-retrieval gate problems surface
// as errors for the handler to map onto HTTP statuses; once past them,
// every internal failure degrades to the refusal envelope so the client
// contract never varies.
type Service struct {
	classifier *Classifier
	targets    *TargetResolver
	engine     *Engine
	generator  *Generator
	safety     *SafetyGate
}

func NewService(classifier *Classifier, targets *TargetResolver, engine *Engine, generator *Generator, safety *SafetyGate) *Service {
	return &Service{
		classifier: classifier,
		targets:    targets,
		engine:     engine,
		generator:  generator,
		safety:     safety,
	}
}

// Ask runs the pipeline for one validated request. The returned error is
// only ever a target-resolution failure (unknown user, datastore error);
// everything after that point is absorbed into a refusal envelope.
func (s *Service) Ask(ctx context.Context, callerID uuid.UUID, req *Validated) (*Envelope, error) {
	start := time.Now()
	if !s.classifier.InScope(ctx, req.Message) {
		metrics.PipelineStageDuration.WithLabelValues("classifier").Observe(time.Since(start).Seconds())
		metrics.RefusalsTotal.WithLabelValues("classifier").Inc()
		return RefusalEnvelope(), nil
	}
	metrics.PipelineStageDuration.WithLabelValues("classifier").Observe(time.Since(start).Seconds())

	qc, err := s.targets.Resolve(ctx, callerID, req.TargetUsername)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	candidates, path, err := s.engine.Retrieve(ctx, req.Message, qc)
	metrics.PipelineStageDuration.WithLabelValues("retrieval").Observe(time.Since(start).Seconds())
	metrics.RetrievalPathTotal.WithLabelValues(path).Inc()
	if err != nil {
		slog.Warn("retrieval failed, refusing", "error", err, "caller_id", callerID)
		metrics.RefusalsTotal.WithLabelValues("retrieval").Inc()
		return RefusalEnvelope(), nil
	}

	start = time.Now()
	reply, err := s.generator.Answer(ctx, req.Message, req.Conversation, candidates, qc.OwnLibrary)
	metrics.PipelineStageDuration.WithLabelValues("generation").Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Warn("generation failed, refusing", "error", err, "caller_id", callerID)
		metrics.RefusalsTotal.WithLabelValues("generator").Inc()
		return RefusalEnvelope(), nil
	}

	final, gate := s.safety.Review(reply, candidates)
	if gate != "" {
		slog.Warn("safety gate overrode reply", "gate", gate, "caller_id", callerID)
		metrics.RefusalsTotal.WithLabelValues(gate).Inc()
		return RefusalEnvelope(), nil
	}

	return envelopeFor(final, candidates), nil
}
