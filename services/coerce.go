package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecordLookups bundles the per-batch reference resolvers. Each function
// maps a raw cell value to the id of a related record. The bundle is built
// once per batch so reference coercion never hits storage row by row.
type RecordLookups struct {
	funcs map[string]func(raw string) (string, bool)
}

// NewRecordLookups returns an empty bundle.
func NewRecordLookups() RecordLookups {
	return RecordLookups{funcs: make(map[string]func(string) (string, bool))}
}

// Register installs the resolver for a lookup key.
func (l RecordLookups) Register(key string, fn func(raw string) (string, bool)) {
	l.funcs[key] = fn
}

func (l RecordLookups) resolve(key, raw string) (string, bool) {
	fn, ok := l.funcs[key]
	if !ok {
		return "", false
	}
	return fn(raw)
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)
	nonDigits    = regexp.MustCompile(`[^0-9]`)
)

// dateFormats is the candidate parse ladder for date fields: ISO first,
// then day/month and month/day variants. First successful parse wins.
var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2006/01/02",
	"02 Jan 2006",
}

// CoercedRow is the outcome of coercing one file row against the template
// contract: the typed values that converted cleanly, keyed by reserved field
// name, and the set of field names that failed. Blank cells appear in
// neither; absence of a value is never an error here.
type CoercedRow struct {
	Values map[string]any
	Failed map[string]bool
}

// FailedNames returns the failed field names in template order.
func (c *CoercedRow) FailedNames(tpl *ResolvedTemplate) []string {
	var names []string
	for _, f := range tpl.Fields {
		if c.Failed[f.Spec.Name] {
			names = append(names, f.Spec.Name)
		}
	}
	return names
}

// HasRequiredFailure reports whether any failed field is required by the
// template. Only required failures escalate a record to ERROR status;
// optional failures surface in the error report without blocking the rest
// of the record.
func (c *CoercedRow) HasRequiredFailure(tpl *ResolvedTemplate) bool {
	for name := range c.Failed {
		if f, ok := tpl.Field(name); ok && f.Required {
			return true
		}
	}
	return false
}

// CoerceRecord converts every mapped cell of one row to its semantic type
// under the field's declared constraints. It never returns an error: each
// cell either produces a typed value, is skipped as blank, or lands in the
// failed set. Pseudo-fields are consistency-checked elsewhere and skipped.
func CoerceRecord(headers []string, row map[string]string, hm *HeaderMap, tpl *ResolvedTemplate, lookups RecordLookups) *CoercedRow {
	out := &CoercedRow{
		Values: make(map[string]any),
		Failed: make(map[string]bool),
	}

	for i, name := range hm.Columns {
		field, ok := tpl.Field(name)
		if !ok || field.Spec.Pseudo {
			continue
		}

		raw := strings.TrimSpace(row[headers[i]])
		if raw == "" {
			continue
		}

		value, ok := coerceValue(raw, field, lookups)
		if !ok {
			out.Failed[name] = true
			continue
		}
		out.Values[name] = value
	}

	return out
}

// coerceValue dispatches on the field's type variant. The second return is
// the success flag; conversion failures never propagate as errors.
func coerceValue(raw string, field MappedField, lookups RecordLookups) (any, bool) {
	switch t := field.Spec.Type.(type) {
	case TextType:
		return coerceText(raw, t)
	case IntegerType:
		return coerceInteger(raw)
	case DecimalType:
		return coerceDecimal(raw, t)
	case DateType:
		return coerceDate(raw, field.DateFormat)
	case ReferenceType:
		return lookups.resolve(t.LookupKey, raw)
	default:
		return nil, false
	}
}

func coerceText(raw string, t TextType) (any, bool) {
	value := raw
	switch t.Format {
	case FormatEmail:
		if !emailPattern.MatchString(value) {
			return nil, false
		}
	case FormatPhone:
		// Normalize to bare digits first, then validate; "+91-98765 43210"
		// and "9876543210" are the same number.
		value = nonDigits.ReplaceAllString(value, "")
		if len(value) == 12 && strings.HasPrefix(value, "91") {
			value = value[2:]
		}
		if len(value) == 11 && strings.HasPrefix(value, "0") {
			value = value[1:]
		}
		if !phonePattern.MatchString(value) {
			return nil, false
		}
	}
	if t.MaxLen > 0 && len(value) > t.MaxLen {
		return nil, false
	}
	return value, true
}

func coerceInteger(raw string) (any, bool) {
	n, err := strconv.ParseInt(strings.ReplaceAll(raw, ",", ""), 10, 64)
	if err != nil {
		return nil, false
	}
	return n, true
}

func coerceDecimal(raw string, t DecimalType) (any, bool) {
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return nil, false
	}
	if d.Exponent() < int32(-t.DecimalPlaces) {
		return nil, false
	}
	intDigits := len(d.Truncate(0).Abs().String())
	if d.Truncate(0).IsZero() {
		intDigits = 0
	}
	if intDigits > t.MaxDigits-t.DecimalPlaces {
		return nil, false
	}
	return d, true
}

func coerceDate(raw string, override string) (any, bool) {
	formats := dateFormats
	if override != "" {
		formats = append([]string{override}, dateFormats...)
	}
	for _, layout := range formats {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true
		}
	}
	return nil, false
}
