package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"

	"casetrack/storage"
)

// Batch statuses.
const (
	BatchUploaded  = "uploaded"
	BatchInProcess = "in_process"
	BatchClosed    = "closed"
)

// Case field-mapping statuses.
const (
	CaseStatusError = "ERROR"
	CaseStatusSaved = "SAVED"
)

// indefiniteExpiry is the sentinel expiry for cycles with no day count.
var indefiniteExpiry = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// UploadRequest is the payload for a first upload.
type UploadRequest struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name"`
	Process  string `json:"process"`
	Product  string `json:"product"`
	Cycle    string `json:"cycle"`
}

// BatchResult is returned to the caller after an upload or re-upload pass.
type BatchResult struct {
	BatchID      string `json:"allocation_file_id"`
	ErrorFileURL string `json:"error_file_url"`
	Status       string `json:"status"`
	Total        int    `json:"total_records"`
	Valid        int    `json:"valid_records"`
	Errors       int    `json:"error_records"`
	Duplicates   int    `json:"duplicate_records"`
}

// rowOutcome is the in-memory validation result for one file row, computed
// before anything is written.
type rowOutcome struct {
	account        string
	raw            map[string]string
	values         map[string]any
	failedNames    []string
	requiredFailed bool
	risk           *RiskResult
	resArea        string
	offArea        string
}

// batchRun is the per-batch validation context. A fresh one is built for
// every upload or re-upload pass; nothing here is shared across batches.
type batchRun struct {
	tpl      *ResolvedTemplate
	table    *TableData
	hm       *HeaderMap
	lookups  RecordLookups
	areas    *AreaIndex
	outcomes []rowOutcome
	valid    int
	failed   int
}

// UploadBatch runs the full first-upload pipeline: resolve the template,
// fetch and parse the file once, validate structure, coerce and score every
// row in memory, then create the batch and all its case records in one
// transaction. Structural and referential failures return before any write.
func UploadBatch(ctx context.Context, app core.App, client *http.Client, store storage.Store, req UploadRequest) (*BatchResult, error) {
	tpl, err := ResolveTemplate(app, req.Process, req.Product)
	if err != nil {
		return nil, err
	}

	cycle, err := findCycle(app, req.Cycle)
	if err != nil {
		return nil, err
	}

	run, err := newBatchRun(ctx, app, client, tpl, req.FileURL, req.FileName)
	if err != nil {
		return nil, err
	}
	run.execute(time.Now(), knownCRNs(app, ""))

	errorFileURL, err := GenerateErrorArtifact(store, req.FileName, run.table.Headers, run.errorRows())
	if err != nil {
		return nil, err
	}

	duplicates := countKnownAccounts(app, run.accounts())

	var batch *core.Record
	err = app.RunInTransaction(func(txApp core.App) error {
		col, err := txApp.FindCollectionByNameOrId("allocation_batches")
		if err != nil {
			return fmt.Errorf("allocation_batches collection: %w", err)
		}

		batch = core.NewRecord(col)
		batch.Set("file_name", req.FileName)
		batch.Set("file_url", req.FileURL)
		batch.Set("monthly_cycle", cycle.Id)
		batch.Set("product_assignment", tpl.AssignmentID)
		batch.Set("status", BatchUploaded)
		batch.Set("total_records", len(run.outcomes))
		batch.Set("duplicate_records", duplicates)
		// Expiry is fixed at first save and never recomputed.
		batch.Set("expiry_date", expiryFor(time.Now(), cycle.GetInt("days")))
		if err := txApp.Save(batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}

		caseCol, err := txApp.FindCollectionByNameOrId("case_records")
		if err != nil {
			return fmt.Errorf("case_records collection: %w", err)
		}

		// Reserve one ERROR row per account before any business data lands,
		// then run the validation pass over the reserved rows.
		cases := make([]*core.Record, len(run.outcomes))
		for i, o := range run.outcomes {
			rec := core.NewRecord(caseCol)
			rec.Set("batch", batch.Id)
			rec.Set("loan_account_number", o.account)
			rec.Set("field_mapping_status", CaseStatusError)
			if err := txApp.Save(rec); err != nil {
				return fmt.Errorf("reserve case %s: %w", o.account, err)
			}
			cases[i] = rec
		}

		for i, o := range run.outcomes {
			run.applyOutcome(cases[i], o)
			if err := txApp.Save(cases[i]); err != nil {
				return fmt.Errorf("save case %s: %w", o.account, err)
			}
		}

		finishBatch(batch, run.valid, run.failed, errorFileURL)
		return txApp.Save(batch)
	})
	if err != nil {
		return nil, err
	}

	return resultFor(batch), nil
}

// ReuploadBatch repeats coercion, scoring and persistence against an
// existing batch. Rows are matched to existing case records by loan account
// number and mutated in place; the batch's total never changes and no case
// record is created or deleted.
func ReuploadBatch(ctx context.Context, app core.App, client *http.Client, store storage.Store, batchID, fileURL, fileName string) (*BatchResult, error) {
	batch, err := app.FindRecordById("allocation_batches", batchID)
	if err != nil {
		return nil, inputErr(ErrBatchNotFound, "allocation_file_id", "batch %q not found", batchID)
	}

	process, product, err := assignmentTitles(app, batch.GetString("product_assignment"))
	if err != nil {
		return nil, err
	}
	tpl, err := ResolveTemplate(app, process, product)
	if err != nil {
		return nil, err
	}

	run, err := newBatchRun(ctx, app, client, tpl, fileURL, fileName)
	if err != nil {
		return nil, err
	}

	existing, err := app.FindRecordsByFilter("case_records",
		"batch = {:batch}", "", 0, 0, map[string]any{"batch": batch.Id})
	if err != nil {
		return nil, fmt.Errorf("load batch cases: %w", err)
	}
	byAccount := make(map[string]*core.Record, len(existing))
	for _, rec := range existing {
		byAccount[rec.GetString("loan_account_number")] = rec
	}
	for _, row := range run.table.Rows {
		account := run.hm.FieldValue(run.table.Headers, row, FieldLoanAccount)
		if _, ok := byAccount[account]; !ok {
			return nil, inputErr(ErrUnknownAccount, FieldLoanAccount,
				"loan account number %q is not part of batch %s", account, batch.Id)
		}
	}

	run.execute(time.Now(), knownCRNs(app, batch.Id))

	errorFileURL, err := GenerateErrorArtifact(store, fileName, run.table.Headers, run.errorRows())
	if err != nil {
		return nil, err
	}

	err = app.RunInTransaction(func(txApp core.App) error {
		for _, o := range run.outcomes {
			rec := byAccount[o.account]
			run.applyOutcome(rec, o)
			if err := txApp.Save(rec); err != nil {
				return fmt.Errorf("save case %s: %w", o.account, err)
			}
		}

		// Counters cover the whole batch, including rows the re-upload file
		// did not touch.
		valid, failed := 0, 0
		for _, rec := range existing {
			if rec.GetString("field_mapping_status") == CaseStatusSaved {
				valid++
			} else {
				failed++
			}
		}

		batch.Set("reupload_url", fileURL)
		finishBatch(batch, valid, failed, errorFileURL)
		return txApp.Save(batch)
	})
	if err != nil {
		return nil, err
	}

	return resultFor(batch), nil
}

// newBatchRun fetches and parses the file once, validates structure, and
// precomputes the reference lookups and area index the row pass needs.
func newBatchRun(ctx context.Context, app core.App, client *http.Client, tpl *ResolvedTemplate, fileURL, fileName string) (*batchRun, error) {
	table, err := ExtractFile(ctx, client, fileURL, fileName)
	if err != nil {
		return nil, err
	}

	hm, err := MapHeaders(table.Headers, tpl)
	if err != nil {
		return nil, err
	}
	if err := ValidateRows(table, hm); err != nil {
		return nil, err
	}

	lookups, err := buildLookups(app)
	if err != nil {
		return nil, err
	}
	areas, err := NewAreaIndex(app)
	if err != nil {
		return nil, err
	}

	return &batchRun{tpl: tpl, table: table, hm: hm, lookups: lookups, areas: areas}, nil
}

// execute coerces, scores and geo-resolves every row in memory. Persistence
// happens later, inside the caller's transaction. existingCRNs holds the
// CRNs already stored outside this batch; a collision with it, or between
// two rows of the file, fails the CRN field on the offending rows.
func (run *batchRun) execute(now time.Time, existingCRNs map[string]bool) {
	coerced := make([]*CoercedRow, len(run.table.Rows))
	crnCount := make(map[string]int)
	for i, row := range run.table.Rows {
		coerced[i] = CoerceRecord(run.table.Headers, row, run.hm, run.tpl, run.lookups)
		if crn, ok := coerced[i].Values[FieldCRN].(string); ok && crn != "" {
			crnCount[crn]++
		}
	}

	run.outcomes = make([]rowOutcome, 0, len(run.table.Rows))
	run.valid, run.failed = 0, 0

	for i, row := range run.table.Rows {
		c := coerced[i]
		if crn, ok := c.Values[FieldCRN].(string); ok && crn != "" {
			if crnCount[crn] > 1 || existingCRNs[crn] {
				delete(c.Values, FieldCRN)
				c.Failed[FieldCRN] = true
			}
		}

		o := rowOutcome{
			account:        run.hm.FieldValue(run.table.Headers, row, FieldLoanAccount),
			raw:            row,
			values:         c.Values,
			failedNames:    c.FailedNames(run.tpl),
			requiredFailed: c.HasRequiredFailure(run.tpl),
			risk:           ScoreCase(riskInputsFrom(c.Values), now),
			resArea:        run.areas.Resolve(stringValue(c.Values, FieldResidentialAddr)),
			offArea:        run.areas.Resolve(stringValue(c.Values, FieldOfficeAddr)),
		}
		if o.requiredFailed {
			run.failed++
		} else {
			run.valid++
		}
		run.outcomes = append(run.outcomes, o)
	}
}

// applyOutcome writes one row's validation result onto its case record:
// business fields, derived risk, sub-areas and the resulting status. The
// record is escalated to ERROR only when a required field failed.
func (run *batchRun) applyOutcome(rec *core.Record, o rowOutcome) {
	for _, f := range ReservedFields {
		if f.Pseudo || f.Name == FieldLoanAccount {
			continue
		}
		rec.Set(f.Column(), nil)
	}

	for name, value := range o.values {
		spec, ok := ReservedField(name)
		if !ok || spec.Name == FieldLoanAccount {
			continue
		}
		switch v := value.(type) {
		case decimal.Decimal:
			rec.Set(spec.Column(), v.String())
		case time.Time:
			rec.Set(spec.Column(), v)
		default:
			rec.Set(spec.Column(), v)
		}
	}

	rec.Set("residential_sub_area", o.resArea)
	rec.Set("office_sub_area", o.offArea)

	if o.risk != nil {
		rec.Set("risk", o.risk.Tier)
		rec.Set("risk_points", o.risk.Points)
	} else {
		rec.Set("risk", "")
		rec.Set("risk_points", nil)
	}

	if o.requiredFailed {
		rec.Set("field_mapping_status", CaseStatusError)
	} else {
		rec.Set("field_mapping_status", CaseStatusSaved)
	}
	if len(o.failedNames) > 0 {
		rec.Set("error_message", "validation failed: "+strings.Join(o.failedNames, ", "))
	} else {
		rec.Set("error_message", "")
	}
}

// errorRows collects the outcomes that left their case in ERROR status, for
// the error artifact. A row whose only failures are optional fields is still
// valid and stays out; its dropped fields are listed on the record's
// error_message instead.
func (run *batchRun) errorRows() []ErrorRow {
	var rows []ErrorRow
	for _, o := range run.outcomes {
		if o.requiredFailed {
			rows = append(rows, ErrorRow{Raw: o.raw, Fields: o.failedNames})
		}
	}
	return rows
}

func (run *batchRun) accounts() map[string]bool {
	set := make(map[string]bool, len(run.outcomes))
	for _, o := range run.outcomes {
		set[o.account] = true
	}
	return set
}

// finishBatch applies the counter update and status transition: a batch
// whose rows all validated moves on to in_process.
func finishBatch(batch *core.Record, valid, failed int, errorFileURL string) {
	batch.Set("valid_records", valid)
	batch.Set("error_records", failed)
	batch.Set("error_file_url", errorFileURL)
	if valid == batch.GetInt("total_records") {
		batch.Set("status", BatchInProcess)
	} else {
		batch.Set("status", BatchUploaded)
	}
}

func resultFor(batch *core.Record) *BatchResult {
	return &BatchResult{
		BatchID:      batch.Id,
		ErrorFileURL: batch.GetString("error_file_url"),
		Status:       batch.GetString("status"),
		Total:        batch.GetInt("total_records"),
		Valid:        batch.GetInt("valid_records"),
		Errors:       batch.GetInt("error_records"),
		Duplicates:   batch.GetInt("duplicate_records"),
	}
}

// expiryFor computes the batch expiry from the cycle's day count. Zero days
// means the batch never expires, expressed as the sentinel date.
func expiryFor(created time.Time, cycleDays int) time.Time {
	if cycleDays <= 0 {
		return indefiniteExpiry
	}
	return created.AddDate(0, 0, cycleDays)
}

// buildLookups preloads the reference lookup tables for one batch pass:
// monthly cycle titles and pincode codes.
func buildLookups(app core.App) (RecordLookups, error) {
	lookups := NewRecordLookups()

	cycles, err := app.FindRecordsByFilter("monthly_cycles", "id != ''", "", 0, 0, nil)
	if err != nil {
		return lookups, fmt.Errorf("load monthly cycles: %w", err)
	}
	cycleByTitle := make(map[string]string, len(cycles))
	for _, c := range cycles {
		cycleByTitle[strings.ToLower(c.GetString("title"))] = c.Id
	}
	lookups.Register(LookupCycle, func(raw string) (string, bool) {
		id, ok := cycleByTitle[strings.ToLower(strings.TrimSpace(raw))]
		return id, ok
	})

	pincodes, err := app.FindRecordsByFilter("pincodes", "id != ''", "", 0, 0, nil)
	if err != nil {
		return lookups, fmt.Errorf("load pincodes: %w", err)
	}
	pincodeByCode := make(map[string]string, len(pincodes))
	for _, p := range pincodes {
		pincodeByCode[p.GetString("code")] = p.Id
	}
	lookups.Register(LookupPincode, func(raw string) (string, bool) {
		id, ok := pincodeByCode[strings.TrimSpace(raw)]
		return id, ok
	})

	return lookups, nil
}

// knownCRNs returns the CRNs already stored on case records outside the
// given batch. Empty excludeBatch means every existing case counts. CRNs are
// globally unique; the pipeline is the only writer of case records, so
// failing colliding rows here keeps the constraint.
func knownCRNs(app core.App, excludeBatch string) map[string]bool {
	filter := "crn != ''"
	params := map[string]any{}
	if excludeBatch != "" {
		filter = "crn != '' && batch != {:batch}"
		params["batch"] = excludeBatch
	}
	records, err := app.FindRecordsByFilter("case_records", filter, "", 0, 0, params)
	if err != nil {
		log.Printf("batch_upload: load existing crns: %v", err)
		return nil
	}
	set := make(map[string]bool, len(records))
	for _, rec := range records {
		set[rec.GetString("crn")] = true
	}
	return set
}

// countKnownAccounts reports how many of the incoming accounts already have
// a case record in another batch. Informational only; it never fails the
// upload.
func countKnownAccounts(app core.App, accounts map[string]bool) int {
	existing, err := app.FindRecordsByFilter("case_records", "id != ''", "", 0, 0, nil)
	if err != nil {
		log.Printf("batch_upload: count duplicate accounts: %v", err)
		return 0
	}
	count := 0
	seen := make(map[string]bool)
	for _, rec := range existing {
		account := rec.GetString("loan_account_number")
		if accounts[account] && !seen[account] {
			seen[account] = true
			count++
		}
	}
	return count
}

func findCycle(app core.App, title string) (*core.Record, error) {
	cycles, err := app.FindRecordsByFilter("monthly_cycles",
		"title = {:title}", "", 1, 0, map[string]any{"title": title})
	if err != nil || len(cycles) == 0 {
		return nil, inputErr(ErrUnknownCycle, "cycle", "unknown monthly cycle %q", title)
	}
	return cycles[0], nil
}

// assignmentTitles expands a product assignment into its process and
// product titles, used when a re-upload has to re-resolve the template.
func assignmentTitles(app core.App, assignmentID string) (string, string, error) {
	assignment, err := app.FindRecordById("product_assignments", assignmentID)
	if err != nil {
		return "", "", inputErr(ErrTemplateNotFound, "product", "assignment %q not found", assignmentID)
	}
	process, err := app.FindRecordById("processes", assignment.GetString("process"))
	if err != nil {
		return "", "", inputErr(ErrTemplateNotFound, "process", "process of assignment %q not found", assignmentID)
	}
	product, err := app.FindRecordById("products", assignment.GetString("product"))
	if err != nil {
		return "", "", inputErr(ErrTemplateNotFound, "product", "product of assignment %q not found", assignmentID)
	}
	return process.GetString("title"), product.GetString("title"), nil
}

// riskInputsFrom pulls the scored fields out of a coerced value map.
func riskInputsFrom(values map[string]any) RiskInputs {
	return RiskInputs{
		TotalLoanAmount: decimalValue(values, FieldTotalLoanAmount),
		PosValue:        decimalValue(values, FieldPosValue),
		MinimumDue:      decimalValue(values, FieldMinimumDue),
		PenaltyAmount:   decimalValue(values, FieldPenaltyAmount),
		LateFee:         decimalValue(values, FieldLateFee),
		LateCharges:     decimalValue(values, FieldLateCharges),
		Tenure:          intValue(values, FieldTenure),
		EMIsPaid:        intValue(values, FieldEMIsPaid),
		LastPaymentDate: timeValue(values, FieldLastPaymentDate),
	}
}

func decimalValue(values map[string]any, name string) *decimal.Decimal {
	if v, ok := values[name].(decimal.Decimal); ok {
		return &v
	}
	return nil
}

func intValue(values map[string]any, name string) *int64 {
	if v, ok := values[name].(int64); ok {
		return &v
	}
	return nil
}

func timeValue(values map[string]any, name string) *time.Time {
	if v, ok := values[name].(time.Time); ok {
		return &v
	}
	return nil
}

func stringValue(values map[string]any, name string) string {
	if v, ok := values[name].(string); ok {
		return v
	}
	return ""
}
