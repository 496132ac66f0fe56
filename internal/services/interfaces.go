package services

import (
	"context"

	"finledger/internal/amqp"
	"finledger/internal/core"
	"finledger/internal/storage"
)

//go:generate mockgen -destination=mocks/mock_services.go -source=interfaces.go

// EventPublisher announces committed confirm calls. *amqp.Client implements it.
type EventPublisher interface {
	PublishImportConfirmed(ctx context.Context, msg *amqp.ImportConfirmedMessage) error
}

type SummaryStore interface {
	Revision(ctx context.Context) (int64, error)
	LoadLedgerSnapshot(ctx context.Context, q storage.SnapshotQuery) (storage.LedgerSnapshot, error)
	ListCategories(ctx context.Context, kind core.CategoryKind) ([]core.Category, error)
	DisableCategory(ctx context.Context, id int64) (core.Category, error)
}

type CashflowStore interface {
	LoadCashflowSnapshot(ctx context.Context, companyID string, asOf core.Date) (storage.CashflowSnapshot, error)
	ListBalances(ctx context.Context, companyID string, from, to core.Date) ([]core.LedgerRecord, error)
}

type OverviewStore interface {
	LoadOverviewSnapshot(ctx context.Context, companyID string, asOf core.Date) (storage.OverviewSnapshot, error)
}

// ImportStore is the persistence side of the reconciliation engine. InTx
// gives fn the write transaction every confirm runs in.
type ImportStore interface {
	CreateJob(ctx context.Context, job core.ImportJob) error
	GetJob(ctx context.Context, id string) (core.ImportJob, error)
	ListConfirmationLogs(ctx context.Context, jobID string) ([]core.ConfirmationLog, error)
	InTx(ctx context.Context, fn func(tx *storage.Tx) error) error
}
