package core

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyField is one component of a natural key.
type KeyField string

const (
	KeyCompany     KeyField = "company"
	KeyDate        KeyField = "date"
	KeyMonth       KeyField = "month"
	KeyCategory    KeyField = "category"
	KeyDescription KeyField = "description"
	KeyAccount     KeyField = "account"
	KeyProduct     KeyField = "product"
	KeyCertainty   KeyField = "certainty"
	KeyAmount      KeyField = "amount"
)

// KeySpec maps each record kind to the fields of its natural key.
type KeySpec map[RecordKind][]KeyField

// DefaultKeySpec returns the natural-key fields used when nothing is configured.
func DefaultKeySpec() KeySpec {
	return KeySpec{
		Revenue:         {KeyCompany, KeyDate, KeyCategory, KeyDescription, KeyAccount},
		Expense:         {KeyCompany, KeyMonth, KeyCategory, KeyDescription},
		AccountBalance:  {KeyCompany, KeyDate},
		IncomeForecast:  {KeyCompany, KeyDate, KeyCategory, KeyProduct, KeyDescription},
		ExpenseForecast: {KeyCompany, KeyDate, KeyDescription, KeyAccount},
	}
}

// ParseKeyFields parses a comma separated field list such as "company,date".
func ParseKeyFields(s string) ([]KeyField, error) {
	var fields []KeyField
	seen := make(map[KeyField]bool)
	for _, part := range strings.Split(s, ",") {
		f := KeyField(strings.ToLower(strings.TrimSpace(part)))
		if f == "" {
			continue
		}
		switch f {
		case KeyCompany, KeyDate, KeyMonth, KeyCategory, KeyDescription,
			KeyAccount, KeyProduct, KeyCertainty, KeyAmount:
		default:
			return nil, fmt.Errorf("unknown natural key field %q", part)
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("natural key %q has no fields", s)
	}
	return fields, nil
}

// Fields returns the configured fields for kind, falling back to the defaults.
func (s KeySpec) Fields(kind RecordKind) []KeyField {
	if f, ok := s[kind]; ok && len(f) > 0 {
		return f
	}
	return DefaultKeySpec()[kind]
}

// Key builds the natural key of e. Values are lower-cased and trimmed so
// cosmetic differences in extracted text do not defeat duplicate detection.
func (s KeySpec) Key(e Entry) string {
	fields := s.Fields(e.Kind)
	parts := make([]string, 0, len(fields)+1)
	parts = append(parts, string(e.Kind))
	for _, f := range fields {
		parts = append(parts, string(f)+"="+keyValue(e, f))
	}
	return strings.Join(parts, "|")
}

func keyValue(e Entry, f KeyField) string {
	switch f {
	case KeyCompany:
		return normalize(e.CompanyID)
	case KeyDate:
		return e.Date.String()
	case KeyMonth:
		return e.Date.Month().String()
	case KeyCategory:
		segs := make([]string, len(e.CategoryPath))
		for i, s := range e.CategoryPath {
			segs[i] = normalize(s)
		}
		return JoinPath(segs)
	case KeyDescription:
		return normalize(e.Description)
	case KeyAccount:
		return normalize(e.AccountName)
	case KeyProduct:
		return normalize(e.ProductLine) + "/" + normalize(e.ProductName)
	case KeyCertainty:
		return string(e.Certainty)
	case KeyAmount:
		return strconv.FormatInt(e.Amount.Minor, 10)
	}
	return ""
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
