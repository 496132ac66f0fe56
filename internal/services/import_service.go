package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

// ImportConfig holds the validation rules and natural-key fields used by
// submit and confirm.
type ImportConfig struct {
	Rules core.Rules
	Keys  core.KeySpec
}

type CandidateInput struct {
	RecordType string
	Payload    json.RawMessage
	Confidence *float64
	Warnings   []string
}

type SubmitRequest struct {
	SourceType       string
	SourceDescriptor string
	Actor            string
	Model            string
	Candidates       []CandidateInput
}

// Action is one reviewer decision. Payload defaults to the paired candidate's
// payload; CandidateIndex defaults to the first proposed candidate of the
// same record type.
type Action struct {
	RecordType     string
	Operation      string
	Payload        json.RawMessage
	Overwrite      bool
	CandidateIndex *int
	Comment        string
}

type ConfirmRequest struct {
	JobID   string
	Actor   string
	Actions []Action
}

type ConfirmResult struct {
	JobID         string
	Status        core.JobStatus
	ApprovedCount int
	RejectedCount int
	Revision      int64
}

// ImportService runs the submit-for-review and confirm workflow.
type ImportService struct {
	store     ImportStore
	publisher EventPublisher
	cfg       ImportConfig
	logger    *log.Logger
	now       func() time.Time
}

// NewImportService wires the service. publisher may be nil, in which case no
// events are published.
func NewImportService(store ImportStore, publisher EventPublisher, cfg ImportConfig, logger *log.Logger) *ImportService {
	if logger == nil {
		logger = log.Discard()
	}
	if cfg.Keys == nil {
		cfg.Keys = core.DefaultKeySpec()
	}
	return &ImportService{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.WithComponent(log.ComponentImport),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores a batch of candidates as a job awaiting review. Nothing is
// written to the ledger. A batch without a single valid candidate produces a
// failed job rather than an error.
func (s *ImportService) Submit(ctx context.Context, req SubmitRequest) (core.ImportJob, error) {
	source, err := core.ParseSourceType(req.SourceType)
	if err != nil {
		return core.ImportJob{}, invalidRequest("sourceType", err)
	}

	job := core.ImportJob{
		ID:               uuid.NewString(),
		Status:           core.StatusPendingReview,
		SourceType:       source,
		SourceDescriptor: req.SourceDescriptor,
		Actor:            req.Actor,
		Model:            req.Model,
		CreatedAt:        s.now(),
	}

	var (
		valid    int
		reasons  []string
		confSum  float64
		confSeen int
	)
	for i, in := range req.Candidates {
		c := core.Candidate{
			Index:      i,
			RecordKind: core.RecordKind(in.RecordType),
			Payload:    in.Payload,
			Confidence: in.Confidence,
			Warnings:   in.Warnings,
			State:      core.CandidateProposed,
		}
		if in.Confidence != nil {
			confSum += *in.Confidence
			confSeen++
		}

		kind, err := core.ParseRecordKind(in.RecordType)
		if err == nil {
			c.RecordKind = kind
			_, err = core.ParseCandidate(kind, in.Payload, in.Confidence, s.cfg.Rules)
		}
		if err != nil {
			c.State = core.CandidateRejected
			c.Reason = err.Error()
			reasons = append(reasons, fmt.Sprintf("candidate %d: %v", i, err))
		} else {
			valid++
		}
		job.Candidates = append(job.Candidates, c)
	}

	if confSeen > 0 {
		avg := confSum / float64(confSeen)
		job.ConfidenceScore = &avg
	}

	if valid == 0 {
		now := job.CreatedAt
		job.Status = core.StatusFailed
		job.CompletedAt = &now
		if len(req.Candidates) == 0 {
			job.ErrorLog = "no candidates submitted"
		} else {
			job.ErrorLog = "no valid candidates: " + strings.Join(reasons, "; ")
		}
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return core.ImportJob{}, fmt.Errorf("create import job: %w", err)
	}

	s.logger.InfoContext(ctx, "Import job submitted",
		log.FieldJobID, job.ID,
		log.FieldJobStatus, job.Status,
		log.FieldCandidates, len(job.Candidates),
		"valid", valid,
		"source_type", job.SourceType)
	return job, nil
}

func (s *ImportService) GetJob(ctx context.Context, id string) (core.ImportJob, error) {
	job, err := s.store.GetJob(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return core.ImportJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return job, err
}

func (s *ImportService) Logs(ctx context.Context, jobID string) ([]core.ConfirmationLog, error) {
	logs, err := s.store.ListConfirmationLogs(ctx, jobID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	return logs, err
}

type parsedAction struct {
	Action
	kind core.RecordKind
	op   core.Operation
}

// Confirm applies the actions in one write transaction. Either every action
// takes effect and the store revision moves forward, or nothing changes.
func (s *ImportService) Confirm(ctx context.Context, req ConfirmRequest) (ConfirmResult, error) {
	if len(req.Actions) == 0 {
		return ConfirmResult{}, invalidRequest("actions", errEmpty)
	}
	actions := make([]parsedAction, 0, len(req.Actions))
	for i, a := range req.Actions {
		kind, err := core.ParseRecordKind(a.RecordType)
		if err != nil {
			return ConfirmResult{}, invalidRequest(fmt.Sprintf("actions[%d].recordType", i), err)
		}
		op, err := core.ParseOperation(a.Operation)
		if err != nil {
			return ConfirmResult{}, invalidRequest(fmt.Sprintf("actions[%d].operation", i), err)
		}
		actions = append(actions, parsedAction{Action: a, kind: kind, op: op})
	}

	var result ConfirmResult
	err := s.store.InTx(ctx, func(tx *storage.Tx) error {
		job, err := tx.Job(ctx, req.JobID)
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrJobNotFound, req.JobID)
		}
		if err != nil {
			return err
		}
		if job.Status != core.StatusPendingReview {
			return fmt.Errorf("%w: %s is %s", ErrJobClosed, job.ID, job.Status)
		}

		c := &confirmation{svc: s, tx: tx, job: &job, actor: req.Actor, claimed: make(map[int]bool)}
		for i, a := range actions {
			if err := c.apply(ctx, i, a); err != nil {
				return err
			}
		}

		status := c.nextStatus()
		if status != job.Status {
			if err := tx.SetJobStatus(ctx, job.ID, status); err != nil {
				return err
			}
		}
		rev, err := tx.BumpRevision(ctx)
		if err != nil {
			return err
		}

		result = ConfirmResult{
			JobID:         job.ID,
			Status:        status,
			ApprovedCount: c.approved,
			RejectedCount: c.rejected,
			Revision:      rev,
		}
		return nil
	})
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			s.logger.WarnContext(ctx, "Confirm rolled back on duplicate record",
				log.FieldJobID, req.JobID,
				log.FieldRecordKind, conflict.RecordKind,
				log.FieldNaturalKey, conflict.NaturalKey)
		}
		return ConfirmResult{}, err
	}

	s.logger.InfoContext(ctx, "Import job confirmed",
		log.FieldJobID, result.JobID,
		log.FieldJobStatus, result.Status,
		"approved", result.ApprovedCount,
		"rejected", result.RejectedCount,
		log.FieldRevision, result.Revision)

	s.publish(ctx, result)
	return result, nil
}

func (s *ImportService) publish(ctx context.Context, r ConfirmResult) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewImportConfirmedMessage(r.JobID, string(r.Status), r.ApprovedCount, r.RejectedCount, r.Revision)
	if err := s.publisher.PublishImportConfirmed(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish import confirmed event",
			log.FieldJobID, r.JobID,
			log.FieldError, err)
	}
}

// confirmation is the state of one Confirm call inside its transaction.
type confirmation struct {
	svc      *ImportService
	tx       *storage.Tx
	job      *core.ImportJob
	actor    string
	claimed  map[int]bool
	approved int
	rejected int
}

func (c *confirmation) apply(ctx context.Context, i int, a parsedAction) error {
	cand, err := c.pair(i, a)
	if err != nil {
		return err
	}

	if a.op == core.OpReject {
		return c.reject(ctx, a, cand, a.Comment, snapshotOf(a.Payload, cand))
	}

	payload := a.Payload
	var confidence *float64
	if cand != nil {
		if len(payload) == 0 {
			payload = cand.Payload
		}
		confidence = cand.Confidence
	}
	if len(payload) == 0 {
		return c.reject(ctx, a, cand, "missing payload", nil)
	}

	entry, err := core.ParseCandidate(a.kind, payload, confidence, c.svc.cfg.Rules)
	if err != nil {
		return c.reject(ctx, a, cand, err.Error(), snapshotOf(payload, nil))
	}
	return c.approve(ctx, a, cand, entry)
}

// pair finds the candidate an action decides on. Actions without a matching
// candidate are still applied; they just do not move a candidate state.
func (c *confirmation) pair(i int, a parsedAction) (*core.Candidate, error) {
	if a.CandidateIndex != nil {
		idx := *a.CandidateIndex
		field := fmt.Sprintf("actions[%d].candidateIndex", i)
		if idx < 0 || idx >= len(c.job.Candidates) {
			return nil, invalidRequest(field, fmt.Errorf("no candidate %d", idx))
		}
		cand := &c.job.Candidates[idx]
		if cand.State != core.CandidateProposed || c.claimed[idx] {
			return nil, invalidRequest(field, fmt.Errorf("candidate %d already %s", idx, cand.State))
		}
		if cand.RecordKind != a.kind {
			return nil, invalidRequest(field, fmt.Errorf("candidate %d is %s, not %s", idx, cand.RecordKind, a.kind))
		}
		c.claimed[idx] = true
		return cand, nil
	}
	for j := range c.job.Candidates {
		cand := &c.job.Candidates[j]
		if cand.State == core.CandidateProposed && cand.RecordKind == a.kind && !c.claimed[j] {
			c.claimed[j] = true
			return cand, nil
		}
	}
	return nil, nil
}

func (c *confirmation) approve(ctx context.Context, a parsedAction, cand *core.Candidate, e core.Entry) error {
	var categoryID *int64
	if e.Kind.HasCategory() {
		cat, err := c.tx.EnsureCategoryPath(ctx, e.Kind.CategoryKind(), e.CategoryPath)
		if err != nil {
			return err
		}
		if cat != nil {
			categoryID = &cat.ID
		}
	}

	key := c.svc.cfg.Keys.Key(e)
	existing, err := c.tx.ActiveRecord(ctx, e.Kind, key)
	if err != nil {
		return err
	}

	logEntry := core.ConfirmationLog{
		ImportJobID: c.job.ID,
		RecordKind:  e.Kind,
		NaturalKey:  key,
		Actor:       c.actor,
		Action:      core.ActionApproved,
		Comment:     a.Comment,
	}
	diff := map[string]any{"after": e.Snapshot()}

	switch {
	case existing == nil:
		logEntry.RecordID = uuid.NewString()
		if err := c.insert(ctx, logEntry.RecordID, key, categoryID, e); err != nil {
			return err
		}
	case !a.Overwrite:
		return newConflict(e, key, existing.ID)
	case sameContent(existing.Entry, e):
		logEntry.RecordID = existing.ID
		diff["unchanged"] = true
	default:
		logEntry.RecordID = uuid.NewString()
		logEntry.Action = core.ActionOverwritten
		diff["before"] = existing.Entry.Snapshot()
		diff["supersededId"] = existing.ID
		if err := c.tx.Supersede(ctx, e.Kind, existing.ID, logEntry.RecordID); err != nil {
			return err
		}
		if err := c.insert(ctx, logEntry.RecordID, key, categoryID, e); err != nil {
			return err
		}
	}

	if err := c.appendLog(ctx, logEntry, diff); err != nil {
		return err
	}
	if cand != nil {
		if err := c.tx.SetCandidateState(ctx, c.job.ID, cand.Index, core.CandidateApproved, ""); err != nil {
			return err
		}
		cand.State = core.CandidateApproved
	}
	c.approved++

	c.svc.logger.DebugContext(ctx, "Candidate approved",
		log.FieldJobID, c.job.ID,
		log.FieldRecordKind, e.Kind,
		log.FieldRecordID, logEntry.RecordID,
		log.FieldNaturalKey, key,
		log.FieldAmountMinor, e.Amount.Minor,
		"action", logEntry.Action)
	return nil
}

func (c *confirmation) insert(ctx context.Context, id, key string, categoryID *int64, e core.Entry) error {
	return c.tx.InsertRecord(ctx, storage.NewRecord{
		ID:         id,
		JobID:      c.job.ID,
		NaturalKey: key,
		CategoryID: categoryID,
		Entry:      e,
	})
}

func (c *confirmation) reject(ctx context.Context, a parsedAction, cand *core.Candidate, reason string, snapshot any) error {
	diff := map[string]any{}
	if snapshot != nil {
		diff["payload"] = snapshot
	}
	if reason != "" {
		diff["reason"] = reason
	}
	err := c.appendLog(ctx, core.ConfirmationLog{
		ImportJobID: c.job.ID,
		RecordKind:  a.kind,
		Actor:       c.actor,
		Action:      core.ActionRejected,
		Comment:     a.Comment,
	}, diff)
	if err != nil {
		return err
	}
	if cand != nil {
		if err := c.tx.SetCandidateState(ctx, c.job.ID, cand.Index, core.CandidateRejected, reason); err != nil {
			return err
		}
		cand.State = core.CandidateRejected
		cand.Reason = reason
	}
	c.rejected++
	return nil
}

func (c *confirmation) appendLog(ctx context.Context, l core.ConfirmationLog, diff map[string]any) error {
	raw, err := json.Marshal(diff)
	if err != nil {
		return fmt.Errorf("encode diff snapshot: %w", err)
	}
	l.DiffSnapshot = raw
	_, err = c.tx.AppendLog(ctx, l)
	return err
}

// nextStatus closes the job once no candidate is left to decide on.
func (c *confirmation) nextStatus() core.JobStatus {
	anyApproved := c.approved > 0
	for _, cand := range c.job.Candidates {
		switch cand.State {
		case core.CandidateProposed:
			return core.StatusPendingReview
		case core.CandidateApproved:
			anyApproved = true
		}
	}
	if anyApproved {
		return core.StatusApproved
	}
	return core.StatusRejected
}

// sameContent compares everything a record stores except its confidence.
func sameContent(a, b core.Entry) bool {
	return a.Kind == b.Kind &&
		a.CompanyID == b.CompanyID &&
		a.Date.String() == b.Date.String() &&
		a.Amount == b.Amount &&
		a.Currency == b.Currency &&
		slices.Equal(a.CategoryPath, b.CategoryPath) &&
		a.Description == b.Description &&
		a.AccountName == b.AccountName &&
		a.ProductLine == b.ProductLine &&
		a.ProductName == b.ProductName &&
		a.Certainty == b.Certainty &&
		a.Notes == b.Notes
}

func snapshotOf(payload json.RawMessage, cand *core.Candidate) any {
	if len(payload) == 0 && cand != nil {
		payload = cand.Payload
	}
	if len(payload) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return string(payload)
	}
	return v
}
