package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Orchestrator issues streamed generation requests against a ready asset,
// aggregating streamed fragments into one answer and retrying transient
// overload failures with a fixed delay.
//
// State machine: STARTED → (ATTEMPT)* → SUCCEEDED | OVERLOADED_EXHAUSTED |
// FAILED_OTHER. An attempt loops back only on the overloaded signal and
// only while attempts remain.
type Orchestrator struct {
	backend     Backend
	logger      *zap.Logger
	maxAttempts int
	retryDelay  time.Duration
	callTimeout time.Duration

	// onAttempt, when set, observes every attempt outcome. Used for
	// metrics; nil in library use.
	onAttempt func(status string)
}

// NewOrchestrator creates an orchestrator. maxAttempts is the total number
// of attempts (not extra retries); retryDelay is the fixed sleep between
// overloaded attempts; callTimeout bounds each streamed generation call.
func NewOrchestrator(backend Backend, maxAttempts int, retryDelay, callTimeout time.Duration, logger *zap.Logger) *Orchestrator {
	if maxAttempts < 1 {
		maxAttempts = 5
	}
	if retryDelay <= 0 {
		retryDelay = 10 * time.Second
	}
	if callTimeout <= 0 {
		callTimeout = 120 * time.Second
	}
	return &Orchestrator{
		backend:     backend,
		logger:      logger.With(zap.String("component", "orchestrator")),
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		callTimeout: callTimeout,
	}
}

// OnAttempt registers an observer for attempt outcomes ("ok", "overloaded"
// or "error").
func (o *Orchestrator) OnAttempt(fn func(status string)) { o.onAttempt = fn }

// Infer runs a streamed generation for instruction against asset.
//
// Streamed fragments are concatenated in arrival order, exactly as
// received. Only the overloaded failure kind is retried; after the final
// attempt still overloads, the error is translated to
// OVERLOADED_EXHAUSTED so callers see a stable kind instead of the raw
// backend signal. Every other failure propagates unchanged on the first
// occurrence.
func (o *Orchestrator) Infer(ctx context.Context, instruction string, asset *RemoteAsset) (*InferenceResult, error) {
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		o.logger.Info("inference attempt",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", o.maxAttempts),
			zap.String("asset_id", asset.ID),
		)

		answer, err := o.streamOnce(ctx, instruction, asset)
		if err == nil {
			o.observe("ok")
			o.logger.Info("inference complete",
				zap.Int("attempt", attempt),
				zap.Int("answer_len", len(answer)),
			)
			return &InferenceResult{
				Answer:   answer,
				Model:    o.backend.Model(),
				Attempts: attempt,
			}, nil
		}

		if !IsOverloaded(err) {
			o.observe("error")
			o.logger.Error("inference failed", zap.Int("attempt", attempt), zap.Error(err))
			return nil, err
		}

		o.observe("overloaded")
		o.logger.Warn("model overloaded",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", o.maxAttempts),
			zap.Error(err),
		)

		if attempt == o.maxAttempts {
			return nil, &Error{
				Code:    ErrOverloadedExhausted,
				Message: fmt.Sprintf("model still overloaded after %d attempts", o.maxAttempts),
			}
		}

		select {
		case <-ctx.Done():
			return nil, &Error{
				Code:    ErrUpstreamError,
				Message: fmt.Sprintf("inference cancelled while waiting to retry: %v", ctx.Err()),
			}
		case <-time.After(o.retryDelay):
		}
	}

	// Unreachable: the loop always returns from its final iteration.
	return nil, &Error{Code: ErrUpstreamError, Message: "inference loop exited without result"}
}

// streamOnce performs one streamed generation call and aggregates its
// fragments. Fragment order is significant and preserved exactly; no
// separator is injected.
func (o *Orchestrator) streamOnce(ctx context.Context, instruction string, asset *RemoteAsset) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	ch, err := o.backend.StreamGenerate(callCtx, instruction, asset)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for chunk := range ch {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		sb.WriteString(chunk.Text)
	}
	return sb.String(), nil
}

func (o *Orchestrator) observe(status string) {
	if o.onAttempt != nil {
		o.onAttempt(status)
	}
}
