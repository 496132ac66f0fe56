package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/services"
)

type candidateRequest struct {
	RecordType string          `json:"recordType"`
	Payload    json.RawMessage `json:"payload"`
	Confidence *float64        `json:"confidence"`
	Warnings   []string        `json:"warnings"`
}

type submitRequest struct {
	SourceType       string             `json:"sourceType"`
	SourceDescriptor string             `json:"sourceDescriptor"`
	Actor            string             `json:"actor"`
	Model            string             `json:"model"`
	Candidates       []candidateRequest `json:"candidates"`
}

type actionRequest struct {
	RecordType     string          `json:"recordType"`
	Operation      string          `json:"operation"`
	Payload        json.RawMessage `json:"payload"`
	Overwrite      bool            `json:"overwrite"`
	CandidateIndex *int            `json:"candidateIndex"`
	Comment        string          `json:"comment"`
}

type confirmRequest struct {
	Actor   string          `json:"actor"`
	Actions []actionRequest `json:"actions"`
}

type candidateJSON struct {
	Index      int             `json:"index"`
	RecordType string          `json:"recordType"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
	State      string          `json:"state"`
	Reason     string          `json:"reason,omitempty"`
}

type jobJSON struct {
	ID               string          `json:"id"`
	Status           string          `json:"status"`
	SourceType       string          `json:"sourceType"`
	SourceDescriptor string          `json:"sourceDescriptor,omitempty"`
	Actor            string          `json:"actor,omitempty"`
	Model            string          `json:"model,omitempty"`
	ConfidenceScore  *float64        `json:"confidenceScore,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	CompletedAt      *time.Time      `json:"completedAt,omitempty"`
	ErrorLog         string          `json:"errorLog,omitempty"`
	Candidates       []candidateJSON `json:"candidates"`
}

type confirmJSON struct {
	JobID         string `json:"jobId"`
	Status        string `json:"status"`
	ApprovedCount int    `json:"approvedCount"`
	RejectedCount int    `json:"rejectedCount"`
	Revision      int64  `json:"revision"`
}

type logJSON struct {
	Sequence   int             `json:"sequence"`
	RecordType string          `json:"recordType"`
	RecordID   string          `json:"recordId,omitempty"`
	NaturalKey string          `json:"naturalKey,omitempty"`
	Actor      string          `json:"actor,omitempty"`
	Action     string          `json:"action"`
	Diff       json.RawMessage `json:"diff,omitempty"`
	Comment    string          `json:"comment,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// rawPayload treats an explicit JSON null like an absent payload.
func rawPayload(p json.RawMessage) json.RawMessage {
	if t := bytes.TrimSpace(p); len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return nil
	}
	return p
}

func toJobJSON(job core.ImportJob) jobJSON {
	out := jobJSON{
		ID:               job.ID,
		Status:           string(job.Status),
		SourceType:       string(job.SourceType),
		SourceDescriptor: job.SourceDescriptor,
		Actor:            job.Actor,
		Model:            job.Model,
		ConfidenceScore:  job.ConfidenceScore,
		CreatedAt:        job.CreatedAt,
		CompletedAt:      job.CompletedAt,
		ErrorLog:         job.ErrorLog,
		Candidates:       make([]candidateJSON, 0, len(job.Candidates)),
	}
	for _, c := range job.Candidates {
		out.Candidates = append(out.Candidates, candidateJSON{
			Index:      c.Index,
			RecordType: string(c.RecordKind),
			Payload:    rawPayload(c.Payload),
			Confidence: c.Confidence,
			Warnings:   c.Warnings,
			State:      string(c.State),
			Reason:     c.Reason,
		})
	}
	return out
}

// handleSubmitImport stores a candidate batch for review. A batch with no
// valid candidate still creates a job, in the failed state.
func (s *Server) handleSubmitImport(w http.ResponseWriter, r *http.Request) {
	var body submitRequest
	if err := DecodeJSON(w, r, &body); err != nil {
		writeError(w, r, log.OpSubmit, err)
		return
	}

	req := services.SubmitRequest{
		SourceType:       body.SourceType,
		SourceDescriptor: body.SourceDescriptor,
		Actor:            body.Actor,
		Model:            body.Model,
		Candidates:       make([]services.CandidateInput, 0, len(body.Candidates)),
	}
	for _, c := range body.Candidates {
		req.Candidates = append(req.Candidates, services.CandidateInput{
			RecordType: c.RecordType,
			Payload:    rawPayload(c.Payload),
			Confidence: c.Confidence,
			Warnings:   c.Warnings,
		})
	}

	job, err := s.deps.Imports.Submit(r.Context(), req)
	if err != nil {
		writeError(w, r, log.OpSubmit, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/v1/import-jobs/"+job.ID).
		Body(toJobJSON(job)).
		Write(w)
}

func (s *Server) handleGetImportJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.deps.Imports.GetJob(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, log.OpRead, err)
		return
	}
	NewJSONResponse().Body(toJobJSON(job)).Write(w)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	logs, err := s.deps.Imports.Logs(r.Context(), jobID)
	if err != nil {
		writeError(w, r, log.OpList, err)
		return
	}
	out := make([]logJSON, 0, len(logs))
	for _, l := range logs {
		out = append(out, logJSON{
			Sequence:   l.Sequence,
			RecordType: string(l.RecordKind),
			RecordID:   l.RecordID,
			NaturalKey: l.NaturalKey,
			Actor:      l.Actor,
			Action:     string(l.Action),
			Diff:       rawPayload(l.DiffSnapshot),
			Comment:    l.Comment,
			CreatedAt:  l.CreatedAt,
		})
	}
	NewJSONResponse().Body(map[string]any{"jobId": jobID, "logs": out}).Write(w)
}

// handleConfirmImport applies reviewer actions atomically. A duplicate
// without overwrite rolls back the whole call and answers 409.
func (s *Server) handleConfirmImport(w http.ResponseWriter, r *http.Request) {
	var body confirmRequest
	if err := DecodeJSON(w, r, &body); err != nil {
		writeError(w, r, log.OpConfirm, err)
		return
	}

	req := services.ConfirmRequest{
		JobID:   r.PathValue("id"),
		Actor:   body.Actor,
		Actions: make([]services.Action, 0, len(body.Actions)),
	}
	for _, a := range body.Actions {
		req.Actions = append(req.Actions, services.Action{
			RecordType:     a.RecordType,
			Operation:      a.Operation,
			Payload:        rawPayload(a.Payload),
			Overwrite:      a.Overwrite,
			CandidateIndex: a.CandidateIndex,
			Comment:        a.Comment,
		})
	}

	res, err := s.deps.Imports.Confirm(r.Context(), req)
	if err != nil {
		writeError(w, r, log.OpConfirm, err)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogConfirm(r.Context(), res.JobID, string(res.Status), res.ApprovedCount, res.RejectedCount, res.Revision)

	NewJSONResponse().Body(confirmJSON{
		JobID:         res.JobID,
		Status:        string(res.Status),
		ApprovedCount: res.ApprovedCount,
		RejectedCount: res.RejectedCount,
		Revision:      res.Revision,
	}).Write(w)
}
