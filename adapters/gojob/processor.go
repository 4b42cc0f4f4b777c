package gojob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gocmd "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-savedobjects/adapters/gologger"
	"github.com/goliatone/go-savedobjects/command"
	"github.com/goliatone/go-savedobjects/core"
)

// Processor executes import jobs pulled from a queue. Successful jobs are
// acked; failures are nacked with backoff unless the failure cannot succeed
// on retry, in which case the job is dead lettered.
type Processor struct {
	imports  gocmd.Commander[command.ImportFromSourceMessage]
	resolves gocmd.Commander[command.ResolveImportErrorsFromSourceMessage]
	policy   RetryPolicy
	hook     worker.Hook
	logger   job.Logger
	now      func() time.Time
}

type ProcessorOption func(*Processor)

func WithWorkerHook(hook worker.Hook) ProcessorOption {
	return func(p *Processor) {
		p.hook = hook
	}
}

// WithLogger reports ack and nack outcomes through the go-job bridge of the
// resolved jobs logger.
func WithLogger(provider glog.LoggerProvider, logger glog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = gologger.JobLogger(provider, logger)
	}
}

func WithRetryPolicy(policy RetryPolicy) ProcessorOption {
	return func(p *Processor) {
		p.policy = policy
	}
}

func NewProcessor(
	imports gocmd.Commander[command.ImportFromSourceMessage],
	resolves gocmd.Commander[command.ResolveImportErrorsFromSourceMessage],
	opts ...ProcessorOption,
) *Processor {
	p := &Processor{
		imports:  imports,
		resolves: resolves,
		policy:   RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: time.Minute, DeadLetterOnMax: true},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// ProcessNext dequeues one delivery and processes it as the given attempt.
func (p *Processor) ProcessNext(ctx context.Context, dequeuer *DequeuerAdapter, attempt int) (core.ImportResult, error) {
	delivery, err := dequeuer.Dequeue(ctx)
	if err != nil {
		return core.ImportResult{}, err
	}
	return p.Process(ctx, delivery, attempt)
}

func (p *Processor) Process(ctx context.Context, delivery *DeliveryAdapter, attempt int) (core.ImportResult, error) {
	if p == nil {
		return core.ImportResult{}, fmt.Errorf("gojob: processor is not configured")
	}
	msg := delivery.Message()
	if msg == nil {
		return core.ImportResult{}, fmt.Errorf("gojob: delivery has no message")
	}
	event := worker.Event{Message: msg, Attempt: attempt, StartedAt: p.now().UTC()}
	p.onStart(ctx, event)

	collector := gocmd.NewResult[core.ImportResult]()
	runErr := p.execute(gocmd.ContextWithResult(ctx, collector), msg)
	event.Duration = p.now().UTC().Sub(event.StartedAt)

	if runErr == nil {
		if err := delivery.Ack(ctx); err != nil {
			return core.ImportResult{}, err
		}
		p.onSuccess(ctx, event)
		result, _ := collector.Load()
		if p.logger != nil {
			p.logger.Info("saved objects job acked",
				"job_id", msg.JobID,
				"attempt", attempt,
				"success_count", result.SuccessCount,
				"error_count", len(result.Errors),
			)
		}
		return result, nil
	}

	event.Err = runErr
	nack := queue.NackOptions{Requeue: true, Reason: runErr.Error()}
	if permanentFailure(runErr) {
		nack = queue.NackOptions{DeadLetter: true, Reason: runErr.Error()}
	} else {
		nack.Delay = p.policy.Backoff(attempt)
	}
	nack = p.policy.NormalizeAttempt(nack, attempt)
	if err := delivery.NackForAttempt(ctx, nack, attempt); err != nil {
		return core.ImportResult{}, errors.Join(runErr, err)
	}
	if p.logger != nil {
		p.logger.Error("saved objects job nacked",
			"job_id", msg.JobID,
			"attempt", attempt,
			"requeue", nack.Requeue,
			"dead_letter", nack.DeadLetter,
			"delay", nack.Delay.String(),
			"error", runErr.Error(),
		)
	}
	if nack.Requeue {
		event.Delay = nack.Delay
		p.onRetry(ctx, event)
	} else {
		p.onFailure(ctx, event)
	}
	return core.ImportResult{}, runErr
}

func (p *Processor) execute(ctx context.Context, msg *job.ExecutionMessage) error {
	switch jobID := strings.TrimSpace(msg.JobID); jobID {
	case JobIDImport:
		if p.imports == nil {
			return fmt.Errorf("gojob: import command is not configured")
		}
		decoded, err := DecodeImportJob(msg)
		if err != nil {
			return err
		}
		return p.imports.Execute(ctx, decoded)
	case JobIDResolveImportErrors:
		if p.resolves == nil {
			return fmt.Errorf("gojob: resolve import errors command is not configured")
		}
		decoded, err := DecodeResolveImportErrorsJob(msg)
		if err != nil {
			return err
		}
		return p.resolves.Execute(ctx, decoded)
	default:
		return goerrors.New(fmt.Sprintf("gojob: unsupported job id %q", jobID), goerrors.CategoryBadInput).
			WithTextCode(core.ImportErrorBadInput)
	}
}

// permanentFailure reports failures that a retry cannot fix: malformed job
// payloads, invalid requests and missing sources.
func permanentFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return true
	}
	switch rich.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryNotFound:
		return true
	default:
		return false
	}
}

func (p *Processor) onStart(ctx context.Context, event worker.Event) {
	if p.hook != nil {
		p.hook.OnStart(ctx, event)
	}
}

func (p *Processor) onSuccess(ctx context.Context, event worker.Event) {
	if p.hook != nil {
		p.hook.OnSuccess(ctx, event)
	}
}

func (p *Processor) onFailure(ctx context.Context, event worker.Event) {
	if p.hook != nil {
		p.hook.OnFailure(ctx, event)
	}
}

func (p *Processor) onRetry(ctx context.Context, event worker.Event) {
	if p.hook != nil {
		p.hook.OnRetry(ctx, event)
	}
}
