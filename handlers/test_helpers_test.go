package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"casetrack/testhelpers"
)

// newTestRequestEvent creates a RequestEvent suitable for handler tests.
func newTestRequestEvent(app *pocketbase.PocketBase, req *http.Request, rec *httptest.ResponseRecorder) *core.RequestEvent {
	e := &core.RequestEvent{}
	e.App = app
	e.Request = req
	e.Response = rec
	return e
}

// newBatchFixtures creates the assignment, template and cycle a batch upload
// needs. The template maps three required fields and one optional amount.
func newBatchFixtures(t *testing.T, app *pocketbase.PocketBase) {
	t.Helper()

	assignment := testhelpers.CreateTestAssignment(t, app, "Tele Calling", "Personal Loan")
	testhelpers.CreateTestTemplate(t, app, assignment.Id, []testhelpers.TemplateFieldDef{
		{Name: "LOAN_ACCOUNT_NUMBER", Required: true},
		{Name: "CUSTOMER_NAME", Required: true},
		{Name: "TOTAL_LOAN_AMOUNT", Required: true},
		{Name: "POS_VALUE", Required: false},
	})
	testhelpers.CreateTestCycle(t, app, "30 Day", 30)
}

// serveFixtureFile exposes body on a throwaway HTTP server and returns its URL.
func serveFixtureFile(t *testing.T, body string) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/cases.csv"
}

const fixtureCSV = "Loan Account Number,Customer Name,Total Loan Amount,POS Value\n" +
	"LN-1,Asha Verma,150000,120000\n" +
	"LN-2,Rahul Nair,95000,80000\n"
