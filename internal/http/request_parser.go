// Package http serves the JSON API over the summary, cash-flow and import
// services.
//
// This file holds the query and body parsing helpers shared by handlers.
// Query errors are *core.ValidationError so they surface as 422.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"finledger/internal/core"
)

// maxBodyBytes bounds request bodies; candidate batches are the largest.
const maxBodyBytes = 4 << 20

var errMalformedBody = errors.New("malformed JSON body")

func invalidParam(name string, err error) error {
	return &core.ValidationError{Field: name, Err: err}
}

// QueryInt returns the integer value of name, or def when it is absent.
func QueryInt(q url.Values, name string, def int) (int, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, invalidParam(name, fmt.Errorf("not an integer: %q", v))
	}
	return n, nil
}

// QueryBool accepts the usual strconv spellings plus yes/no.
func QueryBool(q url.Values, name string, def bool) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(q.Get(name)))
	switch v {
	case "":
		return def, nil
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, invalidParam(name, fmt.Errorf("not a boolean: %q", v))
	}
	return b, nil
}

// QueryDate parses name as a calendar date, or returns def when absent.
func QueryDate(q url.Values, name string, def core.Date) (core.Date, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return def, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, invalidParam(name, err)
	}
	return d, nil
}

// QueryAmount parses a major-unit decimal ("1500.25") into minor units.
// A nil result means the parameter was absent.
func QueryAmount(q url.Values, name, currency string) (*int64, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return nil, nil
	}
	minor, err := core.ParseDecimalToMinor(v, currency)
	if err != nil {
		return nil, invalidParam(name, err)
	}
	return &minor, nil
}

// QueryUnit reads the unit parameter: "minor" (default) or "major".
func QueryUnit(q url.Values) (bool, error) {
	switch v := strings.ToLower(strings.TrimSpace(q.Get("unit"))); v {
	case "", "minor":
		return false, nil
	case "major":
		return true, nil
	default:
		return false, invalidParam("unit", fmt.Errorf("must be minor or major, got %q", v))
	}
}

// PathID parses an integer path value such as a category id.
func PathID(r *http.Request, name string) (int64, error) {
	v := r.PathValue(name)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, invalidParam(name, fmt.Errorf("not a positive integer: %q", v))
	}
	return id, nil
}

// DecodeJSON reads a single JSON document from the body into dst.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: body exceeds %d bytes", errMalformedBody, tooLarge.Limit)
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after document", errMalformedBody)
	}
	return nil
}
