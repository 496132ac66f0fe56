package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/services"
)

// Submitter stores a candidate batch for review. *services.ImportService
// implements it.
type Submitter interface {
	Submit(ctx context.Context, req services.SubmitRequest) (core.ImportJob, error)
}

// Consumer delivers candidate batches until ctx ends. *amqp.Client implements it.
type Consumer interface {
	ConsumeCandidateBatches(ctx context.Context, handler func(context.Context, *amqp.CandidateBatchMessage) error) error
}

// Stats counts batches handled since start.
type Stats struct {
	Submitted int64
	Failed    int64
	Dropped   int64
}

// CandidateWorker turns queued candidate batches into import jobs awaiting
// review. It never confirms anything.
type CandidateWorker struct {
	submitter Submitter
	logger    *log.Logger

	submitted atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func NewCandidateWorker(submitter Submitter, logger *log.Logger) *CandidateWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &CandidateWorker{submitter: submitter, logger: logger.WithComponent(log.ComponentWorker)}
}

// Run consumes batches until ctx is cancelled.
func (w *CandidateWorker) Run(ctx context.Context, consumer Consumer) error {
	w.logger.InfoContext(ctx, "Candidate worker started")
	err := consumer.ConsumeCandidateBatches(ctx, w.HandleCandidateBatch)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleCandidateBatch submits one batch. A batch the engine refuses outright
// is dropped instead of being redelivered forever; storage errors are returned
// so the delivery is requeued.
func (w *CandidateWorker) HandleCandidateBatch(ctx context.Context, msg *amqp.CandidateBatchMessage) error {
	source := msg.Source
	if source == "" {
		source = string(core.SourceQueue)
	}
	req := services.SubmitRequest{
		SourceType:       source,
		SourceDescriptor: msg.SourceDescriptor,
		Actor:            msg.Actor,
		Model:            msg.Model,
		Candidates:       make([]services.CandidateInput, 0, len(msg.Candidates)),
	}
	for _, c := range msg.Candidates {
		req.Candidates = append(req.Candidates, services.CandidateInput{
			RecordType: c.RecordType,
			Payload:    c.Payload,
			Confidence: c.Confidence,
			Warnings:   c.Warnings,
		})
	}

	job, err := w.submitter.Submit(ctx, req)
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		w.dropped.Add(1)
		w.logger.WarnContext(ctx, "Dropping candidate batch",
			"source", msg.SourceDescriptor,
			log.FieldError, err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("submit candidate batch: %w", err)
	}

	if job.Status == core.StatusFailed {
		w.failed.Add(1)
		w.logger.WarnContext(ctx, "Candidate batch produced a failed job",
			log.FieldJobID, job.ID,
			"error_log", job.ErrorLog)
		return nil
	}

	w.submitted.Add(1)
	w.logger.InfoContext(ctx, "Candidate batch queued for review",
		log.FieldJobID, job.ID,
		log.FieldCandidates, len(job.Candidates),
		"source", msg.SourceDescriptor)
	return nil
}

func (w *CandidateWorker) Stats() Stats {
	return Stats{Submitted: w.submitted.Load(), Failed: w.failed.Load(), Dropped: w.dropped.Load()}
}
