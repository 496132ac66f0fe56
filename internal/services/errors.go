package services

import (
	"errors"
	"fmt"

	"finledger/internal/core"
)

var (
	ErrJobNotFound = errors.New("import job not found")
	ErrJobClosed   = errors.New("import job is closed")

	ErrCategoryNotFound = errors.New("category not found")
	errEmpty            = errors.New("must not be empty")
)

// ConflictError reports that an approve would create a second active record
// for a natural key. The whole confirm call is rolled back.
type ConflictError struct {
	RecordKind core.RecordKind
	NaturalKey string
	ExistingID string
	// Fields describes the incoming record the way clients display duplicates.
	Fields map[string]any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("duplicate %s record %q", e.RecordKind, e.NaturalKey)
}

func newConflict(e core.Entry, key, existingID string) *ConflictError {
	fields := map[string]any{
		"recordType": string(e.Kind),
		"companyId":  e.CompanyID,
		"amount":     core.MinorToMajor(e.Amount.Minor, e.Currency),
		"currency":   e.Currency,
	}
	if e.Kind == core.Expense {
		fields["month"] = e.Date.Month().String()
	} else {
		fields["occurredOn"] = e.Date.String()
	}
	if len(e.CategoryPath) > 0 {
		fields["category"] = e.CategoryPath[0]
	}
	if len(e.CategoryPath) > 1 {
		fields["subcategory"] = core.JoinPath(e.CategoryPath[1:])
	}
	if e.Description != "" {
		fields["description"] = e.Description
	}
	if e.AccountName != "" {
		fields["accountName"] = e.AccountName
	}
	return &ConflictError{RecordKind: e.Kind, NaturalKey: key, ExistingID: existingID, Fields: fields}
}

func invalidRequest(field string, err error) error {
	return &core.ValidationError{Field: field, Err: err}
}
