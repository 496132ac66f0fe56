package storage

import (
	"database/sql"
)

type Category struct {
	ID        int64
	Kind      string
	ParentID  sql.NullInt64
	Level     int64
	Name      string
	FullPath  string
	Enabled   bool
	CreatedAt string
}

type ImportJob struct {
	ID               string
	Status           string
	SourceType       string
	SourceDescriptor string
	Actor            string
	Model            string
	ConfidenceScore  sql.NullFloat64
	ErrorLog         string
	CreatedAt        string
	CompletedAt      sql.NullString
}

type ImportCandidate struct {
	JobID      string
	Seq        int64
	RecordKind string
	Payload    string
	Confidence sql.NullFloat64
	Warnings   string
	State      string
	Reason     string
}

type LedgerRecord struct {
	ID           string
	Kind         string
	CompanyID    string
	OccurredOn   string
	AmountMinor  int64
	Currency     string
	CategoryID   sql.NullInt64
	CategoryPath string
	Description  string
	AccountName  string
	Confidence   sql.NullFloat64
	Notes        string
	ImportJobID  sql.NullString
	NaturalKey   string
	SupersededBy sql.NullString
	SupersededAt sql.NullString
	CreatedAt    string
}

type ForecastRecord struct {
	ID           string
	Kind         string
	CompanyID    string
	TargetDate   string
	Certainty    string
	AmountMinor  int64
	Currency     string
	CategoryID   sql.NullInt64
	CategoryPath string
	Description  string
	AccountName  string
	ProductLine  string
	ProductName  string
	Confidence   sql.NullFloat64
	Notes        string
	ImportJobID  sql.NullString
	NaturalKey   string
	SupersededBy sql.NullString
	SupersededAt sql.NullString
	CreatedAt    string
}

type ConfirmationLog struct {
	ID           int64
	ImportJobID  string
	Seq          int64
	RecordKind   string
	RecordID     string
	NaturalKey   string
	Actor        string
	Action       string
	DiffSnapshot string
	Comment      string
	CreatedAt    string
}
