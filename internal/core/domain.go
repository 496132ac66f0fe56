package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Revenue         RecordKind = "revenue"
	Expense         RecordKind = "expense"
	AccountBalance  RecordKind = "account_balance"
	IncomeForecast  RecordKind = "income_forecast"
	ExpenseForecast RecordKind = "expense_forecast"

	// revenueForecastAlias is accepted on input and stored as IncomeForecast.
	revenueForecastAlias RecordKind = "revenue_forecast"
)

const (
	RevenueCategories  CategoryKind = "revenue"
	ExpenseCategories  CategoryKind = "expense"
	ForecastCategories CategoryKind = "forecast"
)

const (
	Certain   Certainty = "certain"
	Uncertain Certainty = "uncertain"
)

const (
	StatusPendingReview JobStatus = "pending_review"
	StatusApproved      JobStatus = "approved"
	StatusRejected      JobStatus = "rejected"
	StatusFailed        JobStatus = "failed"
)

const (
	SourceManualUpload SourceType = "manual_upload"
	SourceWatchedDir   SourceType = "watched_dir"
	SourceAIChat       SourceType = "ai_chat"
	SourceQueue        SourceType = "queue"
)

const (
	CandidateProposed CandidateState = "proposed"
	CandidateApproved CandidateState = "approved"
	CandidateRejected CandidateState = "rejected"
)

const (
	OpApprove Operation = "approve"
	OpReject  Operation = "reject"
)

const (
	ActionApproved    LogAction = "approved"
	ActionRejected    LogAction = "rejected"
	ActionOverwritten LogAction = "overwritten"
)

// UncategorizedLabel is the root label used for records without any category.
const UncategorizedLabel = "Uncategorized"

type (
	RecordKind     string
	CategoryKind   string
	Certainty      string
	JobStatus      string
	SourceType     string
	CandidateState string
	Operation      string
	LogAction      string

	// Category is one node of a category forest. Level is 0 for roots.
	Category struct {
		ID       int64
		Kind     CategoryKind
		ParentID *int64
		Level    int
		Name     string
		FullPath string
		Enabled  bool
	}

	// LedgerRecord is a committed, dated, amount-bearing fact.
	LedgerRecord struct {
		ID           string
		Kind         RecordKind
		CompanyID    string
		OccurredOn   Date
		Amount       Money
		Currency     string
		CategoryID   *int64
		CategoryPath string
		Description  string
		AccountName  string
		Confidence   *float64
		Notes        string
		ImportJobID  string
		NaturalKey   string
		CreatedAt    time.Time
	}

	// ForecastRecord is a committed prediction of a future (or back-filled) cash movement.
	ForecastRecord struct {
		ID           string
		Kind         RecordKind
		CompanyID    string
		TargetDate   Date
		Certainty    Certainty
		Amount       Money
		Currency     string
		CategoryID   *int64
		CategoryPath string
		Description  string
		AccountName  string
		ProductLine  string
		ProductName  string
		Confidence   *float64
		Notes        string
		ImportJobID  string
		NaturalKey   string
		CreatedAt    time.Time
	}

	ImportJob struct {
		ID               string
		Status           JobStatus
		SourceType       SourceType
		SourceDescriptor string
		Actor            string
		Model            string
		ConfidenceScore  *float64
		CreatedAt        time.Time
		CompletedAt      *time.Time
		ErrorLog         string
		Candidates       []Candidate
	}

	ConfirmationLog struct {
		ID           int64
		ImportJobID  string
		Sequence     int
		RecordKind   RecordKind
		RecordID     string
		NaturalKey   string
		Actor        string
		Action       LogAction
		DiffSnapshot []byte
		Comment      string
		CreatedAt    time.Time
	}
)

var (
	ErrUnknownRecordKind = errors.New("unknown record kind")
	ErrInvalidCertainty  = errors.New("invalid certainty")
	ErrInvalidCategory   = errors.New("invalid category path")
	ErrEmptyCompany      = errors.New("empty company id")
	ErrInvalidConfidence = errors.New("confidence must be within [0,1]")
)

// ParseRecordKind normalizes an input kind, folding known aliases.
func ParseRecordKind(s string) (RecordKind, error) {
	k := RecordKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case Revenue, Expense, AccountBalance, IncomeForecast, ExpenseForecast:
		return k, nil
	case revenueForecastAlias:
		return IncomeForecast, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRecordKind, s)
}

// IsForecast reports whether records of this kind live in the forecast table.
func (k RecordKind) IsForecast() bool {
	return k == IncomeForecast || k == ExpenseForecast
}

// HasCategory reports whether records of this kind carry a category path.
func (k RecordKind) HasCategory() bool {
	return k != AccountBalance
}

// CategoryKind returns the forest that categories of this record kind belong to.
func (k RecordKind) CategoryKind() CategoryKind {
	switch k {
	case Revenue:
		return RevenueCategories
	case IncomeForecast:
		return ForecastCategories
	default:
		return ExpenseCategories
	}
}

// ForecastKind pairs an actual kind with the forecast kind overlaid on it.
func (k RecordKind) ForecastKind() (RecordKind, bool) {
	switch k {
	case Revenue:
		return IncomeForecast, true
	case Expense:
		return ExpenseForecast, true
	}
	return "", false
}

func ParseCertainty(s string) (Certainty, error) {
	switch c := Certainty(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return Certain, nil
	case Certain, Uncertain:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCertainty, s)
}

func ParseCategoryKind(s string) (CategoryKind, error) {
	switch k := CategoryKind(strings.ToLower(strings.TrimSpace(s))); k {
	case RevenueCategories, ExpenseCategories, ForecastCategories:
		return k, nil
	}
	return "", fmt.Errorf("unknown category kind %q", s)
}

// ParseSourceType accepts the known source types; empty means a manual upload.
func ParseSourceType(s string) (SourceType, error) {
	switch st := SourceType(strings.ToLower(strings.TrimSpace(s))); st {
	case "":
		return SourceManualUpload, nil
	case SourceManualUpload, SourceWatchedDir, SourceAIChat, SourceQueue:
		return st, nil
	}
	return "", fmt.Errorf("unknown source type %q", s)
}

func ParseOperation(s string) (Operation, error) {
	switch op := Operation(strings.ToLower(strings.TrimSpace(s))); op {
	case OpApprove, OpReject:
		return op, nil
	case "edit":
		// Edited payloads are approved with the edited content.
		return OpApprove, nil
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// Terminal reports whether the job can no longer transition.
func (s JobStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusFailed
}

// JoinPath renders category segments as "A/B".
func JoinPath(segments []string) string {
	return strings.Join(segments, "/")
}

// SplitPath parses "A/B" into trimmed, non-empty segments.
func SplitPath(path string) []string {
	var out []string
	for _, part := range strings.Split(path, "/") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
