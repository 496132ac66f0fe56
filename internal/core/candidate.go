package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Candidate is an unconfirmed record produced by the extraction step.
type Candidate struct {
	Index      int
	RecordKind RecordKind
	Payload    json.RawMessage
	Confidence *float64
	Warnings   []string
	State      CandidateState
	Reason     string
}

// Entry is a validated, normalized candidate ready to be committed.
type Entry struct {
	Kind         RecordKind
	CompanyID    string
	Date         Date // occurrence, report or target date depending on Kind
	Amount       Money
	Currency     string
	CategoryPath []string
	Description  string
	AccountName  string
	ProductLine  string
	ProductName  string
	Certainty    Certainty
	Confidence   *float64
	Notes        string
}

// Rules carries the validation parameters that come from configuration.
type Rules struct {
	DefaultCompanyID string
	DefaultCurrency  string
	// Currencies restricts accepted codes; empty means every known currency.
	Currencies       []string
	MaxCategoryDepth int
}

// ValidationError explains why a candidate was rejected.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// DecodePayload decodes a JSON object keeping numbers as json.Number so
// amounts never pass through float64.
func DecodePayload(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, invalid("payload", errors.New("missing payload"))
	}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, invalid("payload", err)
	}
	if payload == nil {
		return nil, invalid("payload", errors.New("payload must be an object"))
	}
	return payload, nil
}

// ParseCandidate validates a raw payload of the given kind and normalizes it.
// Field aliases follow what the extraction step emits (snake_case and camelCase).
func ParseCandidate(kind RecordKind, raw json.RawMessage, confidence *float64, rules Rules) (Entry, error) {
	payload, err := DecodePayload(raw)
	if err != nil {
		return Entry{}, err
	}
	return ParsePayload(kind, payload, confidence, rules)
}

func ParsePayload(kind RecordKind, payload map[string]any, confidence *float64, rules Rules) (Entry, error) {
	kind, err := ParseRecordKind(string(kind))
	if err != nil {
		return Entry{}, invalid("recordType", err)
	}

	e := Entry{
		Kind:        kind,
		CompanyID:   firstString(payload, "company_id", "companyId"),
		Description: firstString(payload, "description", "item", "item_name"),
		AccountName: firstString(payload, "account_name", "account", "accountName"),
		Notes:       firstString(payload, "notes"),
	}
	if e.CompanyID == "" {
		e.CompanyID = rules.DefaultCompanyID
	}
	if e.CompanyID == "" {
		return Entry{}, invalid("companyId", ErrEmptyCompany)
	}

	e.Currency = strings.ToUpper(firstString(payload, "currency"))
	if e.Currency == "" {
		e.Currency = rules.DefaultCurrency
	}
	if !currencyAllowed(e.Currency, rules.Currencies) {
		return Entry{}, invalid("currency", fmt.Errorf("%w: %q", ErrUnknownCurrency, e.Currency))
	}

	if err := e.parseDate(payload); err != nil {
		return Entry{}, err
	}
	if err := e.parseAmount(payload); err != nil {
		return Entry{}, err
	}

	if kind.HasCategory() {
		e.CategoryPath = categoryPath(payload)
		if len(e.CategoryPath) > 0 && rules.MaxCategoryDepth > 0 && len(e.CategoryPath) > rules.MaxCategoryDepth {
			return Entry{}, invalid("category", fmt.Errorf("%w: %d levels exceeds limit %d",
				ErrInvalidCategory, len(e.CategoryPath), rules.MaxCategoryDepth))
		}
	}

	if kind.IsForecast() {
		c, err := ParseCertainty(firstString(payload, "certainty"))
		if err != nil {
			return Entry{}, invalid("certainty", err)
		}
		e.Certainty = c
		e.ProductLine = firstString(payload, "product_line", "productLine")
		e.ProductName = firstString(payload, "product_name", "productName")
	}

	if confidence == nil {
		if v, ok := payload["confidence"].(json.Number); ok {
			if f, err := v.Float64(); err == nil {
				confidence = &f
			}
		}
	}
	if confidence != nil {
		if *confidence < 0 || *confidence > 1 {
			return Entry{}, invalid("confidence", ErrInvalidConfidence)
		}
		c := *confidence
		e.Confidence = &c
	}

	return e, nil
}

func (e *Entry) parseDate(payload map[string]any) error {
	var keys []string
	switch e.Kind {
	case AccountBalance:
		keys = []string{"reported_at", "reportedAt", "date", "occurred_on"}
	case IncomeForecast:
		keys = []string{"cash_in_date", "cashInDate", "date", "occurred_on", "occurredOn", "forecast_date", "forecastDate", "month"}
	case ExpenseForecast:
		keys = []string{"cash_out_date", "cashOutDate", "date", "occurred_on", "occurredOn", "forecast_date", "forecastDate", "month"}
	case Expense:
		keys = []string{"occurred_on", "occurredOn", "date", "month"}
	default:
		keys = []string{"occurred_on", "occurredOn", "date"}
	}
	raw := firstString(payload, keys...)
	if raw == "" {
		return invalid("date", fmt.Errorf("%w: missing %s", ErrInvalidDate, keys[0]))
	}
	d, err := ParseDate(raw)
	if err != nil {
		return invalid("date", err)
	}
	if err := d.Validate(); err != nil {
		return invalid("date", err)
	}
	if e.Kind == Expense {
		// Expense records are monthly figures.
		d = d.Month().First()
	}
	e.Date = d
	return nil
}

func (e *Entry) parseAmount(payload map[string]any) error {
	var keys []string
	switch {
	case e.Kind == AccountBalance:
		keys = []string{"total_balance", "totalBalance", "amount"}
	case e.Kind.IsForecast():
		keys = []string{"expected_amount", "expectedAmount", "amount"}
	default:
		keys = []string{"amount"}
	}
	var raw any
	for _, k := range keys {
		if v, ok := payload[k]; ok && v != nil {
			raw = v
			break
		}
	}
	if raw == nil {
		return invalid("amount", fmt.Errorf("%w: missing %s", ErrInvalidAmount, keys[0]))
	}
	minor, err := AmountToMinor(raw, e.Currency)
	if err != nil {
		return invalid("amount", err)
	}
	if minor < 0 || (minor == 0 && e.Kind != AccountBalance) {
		return invalid("amount", ErrNegativeAmount)
	}
	e.Amount = Money{Minor: minor}
	return nil
}

// categoryPath reads "category_path" (string "A/B" or list) and falls back
// to the level fields.
func categoryPath(payload map[string]any) []string {
	for _, key := range []string{"category_path", "categoryPath", "category_path_text"} {
		switch v := payload[key].(type) {
		case string:
			if segs := SplitPath(v); len(segs) > 0 {
				return segs
			}
		case []any:
			var segs []string
			for _, item := range v {
				if s := strings.TrimSpace(fmt.Sprint(item)); s != "" && item != nil {
					segs = append(segs, s)
				}
			}
			if len(segs) > 0 {
				return segs
			}
		}
	}
	var segs []string
	for _, pair := range [][]string{
		{"category", "category_level1", "categoryLevel1"},
		{"subcategory", "category_level2", "categoryLevel2"},
	} {
		if s := firstString(payload, pair...); s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

func firstString(payload map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := payload[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		}
	}
	return ""
}

func currencyAllowed(code string, allowed []string) bool {
	if !KnownCurrency(code) {
		return false
	}
	if len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, code) {
			return true
		}
	}
	return false
}

// Snapshot renders the entry as a JSON object for confirmation logs and
// conflict reports. Amounts stay in minor units.
func (e Entry) Snapshot() map[string]any {
	out := map[string]any{
		"recordType":  string(e.Kind),
		"companyId":   e.CompanyID,
		"date":        e.Date.String(),
		"amountMinor": e.Amount.Minor,
		"currency":    e.Currency,
	}
	if len(e.CategoryPath) > 0 {
		out["categoryPath"] = JoinPath(e.CategoryPath)
	}
	if e.Description != "" {
		out["description"] = e.Description
	}
	if e.AccountName != "" {
		out["accountName"] = e.AccountName
	}
	if e.Certainty != "" {
		out["certainty"] = string(e.Certainty)
	}
	if e.ProductLine != "" {
		out["productLine"] = e.ProductLine
	}
	if e.ProductName != "" {
		out["productName"] = e.ProductName
	}
	if e.Notes != "" {
		out["notes"] = e.Notes
	}
	return out
}
