package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"finledger/internal/core"
)

const timeLayout = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func ptrInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func ptrFloat64(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func toCoreCategory(c Category) core.Category {
	return core.Category{
		ID:       c.ID,
		Kind:     core.CategoryKind(c.Kind),
		ParentID: ptrInt64(c.ParentID),
		Level:    int(c.Level),
		Name:     c.Name,
		FullPath: c.FullPath,
		Enabled:  c.Enabled,
	}
}

func toCoreLedger(r LedgerRecord) (core.LedgerRecord, error) {
	d, err := core.ParseDate(r.OccurredOn)
	if err != nil {
		return core.LedgerRecord{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return core.LedgerRecord{
		ID:           r.ID,
		Kind:         core.RecordKind(r.Kind),
		CompanyID:    r.CompanyID,
		OccurredOn:   d,
		Amount:       core.Money{Minor: r.AmountMinor},
		Currency:     r.Currency,
		CategoryID:   ptrInt64(r.CategoryID),
		CategoryPath: r.CategoryPath,
		Description:  r.Description,
		AccountName:  r.AccountName,
		Confidence:   ptrFloat64(r.Confidence),
		Notes:        r.Notes,
		ImportJobID:  r.ImportJobID.String,
		NaturalKey:   r.NaturalKey,
		CreatedAt:    parseTime(r.CreatedAt),
	}, nil
}

func toCoreForecast(r ForecastRecord) (core.ForecastRecord, error) {
	d, err := core.ParseDate(r.TargetDate)
	if err != nil {
		return core.ForecastRecord{}, fmt.Errorf("forecast %s: %w", r.ID, err)
	}
	return core.ForecastRecord{
		ID:           r.ID,
		Kind:         core.RecordKind(r.Kind),
		CompanyID:    r.CompanyID,
		TargetDate:   d,
		Certainty:    core.Certainty(r.Certainty),
		Amount:       core.Money{Minor: r.AmountMinor},
		Currency:     r.Currency,
		CategoryID:   ptrInt64(r.CategoryID),
		CategoryPath: r.CategoryPath,
		Description:  r.Description,
		AccountName:  r.AccountName,
		ProductLine:  r.ProductLine,
		ProductName:  r.ProductName,
		Confidence:   ptrFloat64(r.Confidence),
		Notes:        r.Notes,
		ImportJobID:  r.ImportJobID.String,
		NaturalKey:   r.NaturalKey,
		CreatedAt:    parseTime(r.CreatedAt),
	}, nil
}

// entryFromLedger rebuilds the normalized content of a stored record so it
// can be compared with an incoming candidate.
func entryFromLedger(r LedgerRecord) (core.Entry, error) {
	d, err := core.ParseDate(r.OccurredOn)
	if err != nil {
		return core.Entry{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return core.Entry{
		Kind:         core.RecordKind(r.Kind),
		CompanyID:    r.CompanyID,
		Date:         d,
		Amount:       core.Money{Minor: r.AmountMinor},
		Currency:     r.Currency,
		CategoryPath: core.SplitPath(r.CategoryPath),
		Description:  r.Description,
		AccountName:  r.AccountName,
		Confidence:   ptrFloat64(r.Confidence),
		Notes:        r.Notes,
	}, nil
}

func entryFromForecast(r ForecastRecord) (core.Entry, error) {
	d, err := core.ParseDate(r.TargetDate)
	if err != nil {
		return core.Entry{}, fmt.Errorf("forecast %s: %w", r.ID, err)
	}
	return core.Entry{
		Kind:         core.RecordKind(r.Kind),
		CompanyID:    r.CompanyID,
		Date:         d,
		Amount:       core.Money{Minor: r.AmountMinor},
		Currency:     r.Currency,
		CategoryPath: core.SplitPath(r.CategoryPath),
		Description:  r.Description,
		AccountName:  r.AccountName,
		ProductLine:  r.ProductLine,
		ProductName:  r.ProductName,
		Certainty:    core.Certainty(r.Certainty),
		Confidence:   ptrFloat64(r.Confidence),
		Notes:        r.Notes,
	}, nil
}

func fromCoreCandidate(jobID string, c core.Candidate) (ImportCandidate, error) {
	warnings := c.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	w, err := json.Marshal(warnings)
	if err != nil {
		return ImportCandidate{}, fmt.Errorf("encode warnings: %w", err)
	}
	payload := string(c.Payload)
	if payload == "" {
		payload = "null"
	}
	return ImportCandidate{
		JobID:      jobID,
		Seq:        int64(c.Index),
		RecordKind: string(c.RecordKind),
		Payload:    payload,
		Confidence: nullFloat64(c.Confidence),
		Warnings:   string(w),
		State:      string(c.State),
		Reason:     c.Reason,
	}, nil
}

func toCoreCandidate(c ImportCandidate) core.Candidate {
	var warnings []string
	_ = json.Unmarshal([]byte(c.Warnings), &warnings)
	return core.Candidate{
		Index:      int(c.Seq),
		RecordKind: core.RecordKind(c.RecordKind),
		Payload:    json.RawMessage(c.Payload),
		Confidence: ptrFloat64(c.Confidence),
		Warnings:   warnings,
		State:      core.CandidateState(c.State),
		Reason:     c.Reason,
	}
}

func toCoreJob(j ImportJob, cands []ImportCandidate) (core.ImportJob, error) {
	job := core.ImportJob{
		ID:               j.ID,
		Status:           core.JobStatus(j.Status),
		SourceType:       core.SourceType(j.SourceType),
		SourceDescriptor: j.SourceDescriptor,
		Actor:            j.Actor,
		Model:            j.Model,
		ConfidenceScore:  ptrFloat64(j.ConfidenceScore),
		CreatedAt:        parseTime(j.CreatedAt),
		ErrorLog:         j.ErrorLog,
	}
	if j.CompletedAt.Valid {
		t := parseTime(j.CompletedAt.String)
		job.CompletedAt = &t
	}
	for _, c := range cands {
		job.Candidates = append(job.Candidates, toCoreCandidate(c))
	}
	return job, nil
}

func toCoreLog(l ConfirmationLog) core.ConfirmationLog {
	return core.ConfirmationLog{
		ID:           l.ID,
		ImportJobID:  l.ImportJobID,
		Sequence:     int(l.Seq),
		RecordKind:   core.RecordKind(l.RecordKind),
		RecordID:     l.RecordID,
		NaturalKey:   l.NaturalKey,
		Actor:        l.Actor,
		Action:       core.LogAction(l.Action),
		DiffSnapshot: []byte(l.DiffSnapshot),
		Comment:      l.Comment,
		CreatedAt:    parseTime(l.CreatedAt),
	}
}
