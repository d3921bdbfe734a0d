package services

import "strings"

// HeaderMap relates each file column to a reserved field name, in column
// order. The slice is parallel to TableData.Headers.
type HeaderMap struct {
	Columns []string // reserved field name per column
}

// MapHeaders reconciles the file's headers against the resolved template.
// The checks run cheapest-first: column count before name matching, names
// before any cell content. A header matches a template field by its display
// label or by the reserved field name itself, case-insensitively; a trailing
// " *" (the required marker our generated templates add) is ignored.
func MapHeaders(headers []string, tpl *ResolvedTemplate) (*HeaderMap, error) {
	if len(headers) > len(tpl.Fields) {
		return nil, inputErr(ErrExtraHeaders, "file_url",
			"file has %d columns but the template defines %d", len(headers), len(tpl.Fields))
	}

	nameFor := make(map[string]string, len(tpl.Fields)*2)
	for _, f := range tpl.Fields {
		nameFor[normalizeHeader(f.Label)] = f.Spec.Name
		nameFor[normalizeHeader(f.Spec.Name)] = f.Spec.Name
	}

	hm := &HeaderMap{Columns: make([]string, len(headers))}
	seen := make(map[string]bool, len(headers))
	for i, h := range headers {
		name, ok := nameFor[normalizeHeader(h)]
		if !ok {
			return nil, inputErr(ErrUnexpectedHeader, h,
				"header %q does not match any field of the template", h)
		}
		hm.Columns[i] = name
		seen[name] = true
	}

	for _, f := range tpl.Fields {
		if f.Required && !seen[f.Spec.Name] {
			return nil, inputErr(ErrMissingHeader, f.Spec.Name,
				"required field %q has no column in the file", f.Label)
		}
	}
	if !seen[FieldLoanAccount] {
		return nil, inputErr(ErrMissingAccountCol, FieldLoanAccount,
			"file has no loan account number column")
	}

	return hm, nil
}

// FieldValue returns the raw cell of a reserved field in one row, going
// through the header that mapped to it.
func (hm *HeaderMap) FieldValue(headers []string, row map[string]string, fieldName string) string {
	for i, name := range hm.Columns {
		if name == fieldName {
			return strings.TrimSpace(row[headers[i]])
		}
	}
	return ""
}

// ValidateRows runs the batch-level structural checks that need row content:
// the PROCESS_NAME / PRODUCT_TYPE pseudo-fields must be single-valued across
// the whole file, every row must carry a loan account number, and account
// numbers must be unique within the file. Any violation is batch-fatal; no
// per-row error reporting happens here.
func ValidateRows(table *TableData, hm *HeaderMap) error {
	for _, pseudo := range []string{FieldProcessName, FieldProductType} {
		if !hm.hasField(pseudo) {
			continue
		}
		distinct := ""
		for _, row := range table.Rows {
			v := hm.FieldValue(table.Headers, row, pseudo)
			if v == "" {
				continue
			}
			if distinct == "" {
				distinct = v
				continue
			}
			if !strings.EqualFold(distinct, v) {
				return inputErr(ErrInconsistentPseudo, pseudo,
					"%s carries both %q and %q; one value per file is allowed", pseudo, distinct, v)
			}
		}
	}

	seen := make(map[string]int, len(table.Rows))
	for i, row := range table.Rows {
		account := hm.FieldValue(table.Headers, row, FieldLoanAccount)
		if account == "" {
			return inputErr(ErrMissingAccountCol, FieldLoanAccount,
				"row %d has no loan account number", i+2)
		}
		if prev, dup := seen[account]; dup {
			return inputErr(ErrDuplicateAccounts, FieldLoanAccount,
				"loan account number %q appears on rows %d and %d", account, prev, i+2)
		}
		seen[account] = i + 2
	}

	return nil
}

func (hm *HeaderMap) hasField(name string) bool {
	for _, n := range hm.Columns {
		if n == name {
			return true
		}
	}
	return false
}

func normalizeHeader(h string) string {
	h = strings.TrimSpace(h)
	h = strings.TrimSuffix(h, " *")
	h = strings.TrimSpace(h)
	h = strings.ToLower(h)
	return strings.ReplaceAll(h, "_", " ")
}
