// Package cashflow projects a running balance forward month by month.
package cashflow

import (
	"sort"

	"finledger/internal/core"
)

// Bucket is the forecast total of one month, split by stream.
type Bucket struct {
	Month           core.Month
	CertainIncome   int64
	UncertainIncome int64
	Expense         int64
}

type Options struct {
	IncludeCertain   bool
	IncludeUncertain bool
}

// DefaultOptions includes certain income and excludes uncertain income.
func DefaultOptions() Options {
	return Options{IncludeCertain: true}
}

// Row is one projected month. Income columns hold the amounts that actually
// entered the balance, zero when the stream is switched off.
type Row struct {
	Month           core.Month
	Opening         int64
	CertainIncome   int64
	UncertainIncome int64
	Expense         int64
	Closing         int64
}

// Project folds the buckets left to right starting from start. The months
// covered are asOf plus every later month that has a bucket; buckets before
// asOf are ignored. Several buckets for the same month are merged.
func Project(start int64, asOf core.Month, buckets []Bucket, opts Options) []Row {
	byMonth := make(map[core.Month]Bucket)
	for _, b := range buckets {
		if b.Month.Before(asOf) {
			continue
		}
		acc := byMonth[b.Month]
		acc.Month = b.Month
		acc.CertainIncome += b.CertainIncome
		acc.UncertainIncome += b.UncertainIncome
		acc.Expense += b.Expense
		byMonth[b.Month] = acc
	}
	if _, ok := byMonth[asOf]; !ok {
		byMonth[asOf] = Bucket{Month: asOf}
	}

	months := make([]core.Month, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	rows := make([]Row, 0, len(months))
	balance := start
	for _, m := range months {
		b := byMonth[m]
		row := Row{Month: m, Opening: balance, Expense: b.Expense}
		if opts.IncludeCertain {
			row.CertainIncome = b.CertainIncome
		}
		if opts.IncludeUncertain {
			row.UncertainIncome = b.UncertainIncome
		}
		row.Closing = row.Opening + row.CertainIncome + row.UncertainIncome - row.Expense
		balance = row.Closing
		rows = append(rows, row)
	}
	return rows
}
