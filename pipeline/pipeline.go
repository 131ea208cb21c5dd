package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Options tunes the pipeline stages. Zero values fall back to the
// defaults of each stage constructor.
type Options struct {
	// ActivationTimeout bounds the wait for the uploaded asset to become
	// ACTIVE. Default 300s.
	ActivationTimeout time.Duration
	// PollInterval is the fixed activation polling interval. Default 1s.
	PollInterval time.Duration
	// MaxAttempts is the total number of generation attempts. Default 5.
	MaxAttempts int
	// RetryDelay is the fixed sleep between overloaded attempts. Default 10s.
	RetryDelay time.Duration
	// CallTimeout bounds each streamed generation call. Default 120s.
	CallTimeout time.Duration
}

// StageRecorder observes pipeline stage outcomes. Implemented by the
// metrics collector; nil disables recording.
type StageRecorder interface {
	RecordStage(stage, status string, duration time.Duration)
	RecordInferenceAttempt(status string)
}

// Pipeline runs the full fetch → upload → activate → infer sequence for
// one request, with a single deferred cleanup on every path.
type Pipeline struct {
	fetcher  Fetcher
	backend  Backend
	uploader *Uploader
	orch     *Orchestrator
	cleaner  *Cleaner
	logger   *zap.Logger
	recorder StageRecorder
	tracer   trace.Tracer
}

// New wires a pipeline from a fetcher and a backend. recorder may be nil.
func New(fetcher Fetcher, backend Backend, opts Options, recorder StageRecorder, logger *zap.Logger) *Pipeline {
	p := &Pipeline{
		fetcher:  fetcher,
		backend:  backend,
		uploader: NewUploader(backend, opts.ActivationTimeout, opts.PollInterval, logger),
		orch:     NewOrchestrator(backend, opts.MaxAttempts, opts.RetryDelay, opts.CallTimeout, logger),
		cleaner:  NewCleaner(backend, logger),
		logger:   logger.With(zap.String("component", "pipeline")),
		recorder: recorder,
		tracer:   otel.Tracer("github.com/BaSui01/vidlens/pipeline"),
	}
	if recorder != nil {
		p.orch.OnAttempt(recorder.RecordInferenceAttempt)
	}
	return p
}

// Run executes the pipeline for one media request and instruction text.
//
// Cleanup of whatever assets exist runs exactly once, on both the success
// and the failure path, after the pipeline settles. Failures before an
// asset is created skip that asset naturally (its pointer stays nil).
func (p *Pipeline) Run(ctx context.Context, req MediaRequest, instruction string) (result *InferenceResult, err error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.Run",
		trace.WithAttributes(attribute.String("media.url", req.SourceURL)),
	)
	defer span.End()

	p.logger.Info("pipeline started", zap.String("url", req.SourceURL))

	var (
		local  *LocalAsset
		remote *RemoteAsset
	)
	defer func() {
		// Cleanup must run even when the request context is already
		// cancelled; only its values are inherited.
		p.cleaner.Cleanup(context.WithoutCancel(ctx), local, remote)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	local, err = p.stageFetch(ctx, req)
	if err != nil {
		return nil, err
	}

	remote, err = p.stageUpload(ctx, local)
	if err != nil {
		return nil, err
	}

	result, err = p.stageInfer(ctx, instruction, remote)
	if err != nil {
		return nil, err
	}

	p.logger.Info("pipeline succeeded",
		zap.String("url", req.SourceURL),
		zap.Int("attempts", result.Attempts),
	)
	return result, nil
}

func (p *Pipeline) stageFetch(ctx context.Context, req MediaRequest) (*LocalAsset, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.fetch")
	defer span.End()

	start := time.Now()
	local, err := p.fetcher.Fetch(ctx, req.SourceURL)
	p.recordStage("fetch", start, err, span)
	return local, err
}

func (p *Pipeline) stageUpload(ctx context.Context, local *LocalAsset) (*RemoteAsset, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.upload")
	defer span.End()

	start := time.Now()
	remote, err := p.uploader.Upload(ctx, local)
	if err != nil {
		p.recordStage("upload", start, err, span)
		return nil, err
	}

	// From here the remote asset exists; it is returned even on activation
	// failure so the deferred cleanup can delete it.
	_, err = p.uploader.AwaitActive(ctx, remote)
	p.recordStage("upload", start, err, span)
	return remote, err
}

func (p *Pipeline) stageInfer(ctx context.Context, instruction string, remote *RemoteAsset) (*InferenceResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.infer")
	defer span.End()

	start := time.Now()
	result, err := p.orch.Infer(ctx, instruction, remote)
	p.recordStage("infer", start, err, span)
	return result, err
}

func (p *Pipeline) recordStage(stage string, start time.Time, err error, span trace.Span) {
	status := "ok"
	if err != nil {
		status = string(CodeOf(err))
		if status == "" {
			status = "error"
		}
		span.SetStatus(codes.Error, err.Error())
	}
	if p.recorder != nil {
		p.recorder.RecordStage(stage, status, time.Since(start))
	}
}
