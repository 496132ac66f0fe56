package core

import (
	"encoding/json"
	"errors"
	"testing"
)

var testRules = Rules{
	DefaultCompanyID: "company-unknown",
	DefaultCurrency:  "CNY",
	Currencies:       []string{"CNY", "USD"},
	MaxCategoryDepth: 3,
}

func TestParseCandidateRevenue(t *testing.T) {
	raw := json.RawMessage(`{"company_id":"acme","occurred_on":"2025-03-14","amount":"1234.50",
		"category_path":"Sales/Online","description":" Shop order ","account_name":"Main"}`)
	e, err := ParseCandidate(Revenue, raw, nil, testRules)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.CompanyID != "acme" || e.Amount.Minor != 123450 || e.Currency != "CNY" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if JoinPath(e.CategoryPath) != "Sales/Online" || e.Description != "Shop order" {
		t.Fatalf("unexpected category/description %+v", e)
	}
	if e.Date.String() != "2025-03-14" {
		t.Fatalf("unexpected date %s", e.Date)
	}
}

func TestParseCandidateDefaultsAndAliases(t *testing.T) {
	raw := json.RawMessage(`{"date":"2025-05-20","amount":99,"category":"Rent","subcategory":"Office","confidence":0.8}`)
	e, err := ParseCandidate(Expense, raw, nil, testRules)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.CompanyID != "company-unknown" {
		t.Fatalf("expected placeholder company, got %q", e.CompanyID)
	}
	if e.Date.String() != "2025-05-01" {
		t.Fatalf("expense dates fold to the month, got %s", e.Date)
	}
	if JoinPath(e.CategoryPath) != "Rent/Office" {
		t.Fatalf("unexpected path %q", e.CategoryPath)
	}
	if e.Confidence == nil || *e.Confidence != 0.8 {
		t.Fatalf("expected payload confidence")
	}
}

func TestParseCandidateForecast(t *testing.T) {
	raw := json.RawMessage(`{"cash_in_date":"2025-08","expected_amount":"20000","certainty":"uncertain","product_name":"Pro"}`)
	e, err := ParseCandidate("revenue_forecast", raw, nil, testRules)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Kind != IncomeForecast || e.Certainty != Uncertain || e.Amount.Minor != 2000000 {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.Date.String() != "2025-08-01" || e.ProductName != "Pro" {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestParseCandidateAccountBalanceAllowsZero(t *testing.T) {
	raw := json.RawMessage(`{"company_id":"acme","reported_at":"2025-01-31","total_balance":"0"}`)
	if _, err := ParseCandidate(AccountBalance, raw, nil, testRules); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseCandidateInvalid(t *testing.T) {
	bad := 1.5
	cases := []struct {
		name       string
		kind       RecordKind
		raw        string
		confidence *float64
		want       error
	}{
		{"unknown kind", "invoice", `{"amount":1,"date":"2025-01-01"}`, nil, ErrUnknownRecordKind},
		{"missing amount", Revenue, `{"date":"2025-01-01"}`, nil, ErrInvalidAmount},
		{"bad amount", Revenue, `{"amount":"x1","date":"2025-01-01"}`, nil, ErrInvalidAmount},
		{"decimal comma in CNY", Revenue, `{"amount":"12,5","date":"2025-01-01"}`, nil, ErrInvalidAmount},
		{"bad grouping", Revenue, `{"amount":"12,00","date":"2025-01-01"}`, nil, ErrInvalidAmount},
		{"negative amount", Revenue, `{"amount":"-3","date":"2025-01-01"}`, nil, ErrNegativeAmount},
		{"zero amount", Expense, `{"amount":0,"date":"2025-01-01"}`, nil, ErrNegativeAmount},
		{"overflow", Revenue, `{"amount":"999999999999999999999","date":"2025-01-01"}`, nil, ErrAmountOverflow},
		{"bad date", Revenue, `{"amount":1,"date":"yesterday"}`, nil, ErrInvalidDate},
		{"missing date", Revenue, `{"amount":1}`, nil, ErrInvalidDate},
		{"currency not allowed", Revenue, `{"amount":1,"date":"2025-01-01","currency":"JPY"}`, nil, ErrUnknownCurrency},
		{"too deep", Revenue, `{"amount":1,"date":"2025-01-01","category_path":"a/b/c/d"}`, nil, ErrInvalidCategory},
		{"bad certainty", IncomeForecast, `{"amount":1,"date":"2025-01-01","certainty":"maybe"}`, nil, ErrInvalidCertainty},
		{"bad confidence", Revenue, `{"amount":1,"date":"2025-01-01"}`, &bad, ErrInvalidConfidence},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCandidate(tc.kind, json.RawMessage(tc.raw), tc.confidence, testRules)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestParseCandidateThousandsSeparators(t *testing.T) {
	cases := map[string]int64{
		"12,000":       1200000,
		"1,234,567":    123456700,
		"1,234,567.89": 123456789,
	}
	for amount, want := range cases {
		raw := json.RawMessage(`{"occurred_on":"2025-03-14","amount":"` + amount + `"}`)
		e, err := ParseCandidate(Revenue, raw, nil, testRules)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", amount, err)
		}
		if e.Amount.Minor != want {
			t.Fatalf("%q: expected %d, got %d", amount, want, e.Amount.Minor)
		}
	}
}

func TestParseCandidateRejectsNonObject(t *testing.T) {
	for _, raw := range []string{``, `null`, `[1,2]`, `"x"`} {
		if _, err := ParseCandidate(Revenue, json.RawMessage(raw), nil, testRules); err == nil {
			t.Fatalf("%q expected error", raw)
		}
	}
}
