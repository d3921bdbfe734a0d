package services

import "strings"

// Reserved logical field names. Upload templates may only reference names
// from this vocabulary; the uploader's column headers are reconciled against
// it before any cell is inspected.
const (
	FieldCustomerName    = "CUSTOMER_NAME"
	FieldCRN             = "CRN"
	FieldLoanAccount     = "LOAN_ACCOUNT_NUMBER"
	FieldCustomerEmail   = "CUSTOMER_EMAIL"
	FieldCustomerPhone   = "CUSTOMER_PHONE"
	FieldAlternatePhone  = "ALTERNATE_PHONE"
	FieldResidentialAddr = "RESIDENTIAL_ADDRESS"
	FieldOfficeAddr      = "OFFICE_ADDRESS"
	FieldResidentialPin  = "RESIDENTIAL_PINCODE"
	FieldOfficePin       = "OFFICE_PINCODE"
	FieldLoanProduct     = "LOAN_PRODUCT"
	FieldBranchName      = "BRANCH_NAME"
	FieldBucket          = "BUCKET"
	FieldTotalLoanAmount = "TOTAL_LOAN_AMOUNT"
	FieldPosValue        = "POS_VALUE"
	FieldEMIAmount       = "EMI_AMOUNT"
	FieldMinimumDue      = "MINIMUM_DUE_AMOUNT"
	FieldPenaltyAmount   = "PENALTY_AMOUNT"
	FieldLateFee         = "LATE_FEE"
	FieldLateCharges     = "LATE_CHARGES"
	FieldLastPaymentAmt  = "LAST_PAYMENT_AMOUNT"
	FieldTenure          = "TENURE"
	FieldEMIsPaid        = "EMIS_PAID"
	FieldDPD             = "DPD"
	FieldDisbursalDate   = "LOAN_DISBURSEMENT_DATE"
	FieldEMIStartDate    = "EMI_START_DATE"
	FieldDueDate         = "DUE_DATE"
	FieldLastPaymentDate = "LAST_PAYMENT_DATE"
	FieldMonthlyCycle    = "MONTHLY_CYCLE"

	// Pseudo-fields let the uploaded sheet self-identify its process and
	// product. They are never written to a case record and must carry a
	// single distinct value across all rows of one file.
	FieldProcessName = "PROCESS_NAME"
	FieldProductType = "PRODUCT_TYPE"
)

// FieldType is the semantic type of a reserved field. Each variant carries
// its own constraint bundle; CoerceRecord switches on the concrete type.
type FieldType interface {
	isFieldType()
}

// TextType is free text with a length cap and an optional format rule.
type TextType struct {
	MaxLen int
	Format TextFormat
}

// TextFormat names an optional format validator applied to text fields.
type TextFormat int

const (
	FormatNone TextFormat = iota
	FormatEmail
	FormatPhone // normalized to digits before validation
)

// IntegerType is a whole number.
type IntegerType struct{}

// DecimalType is a fixed-point amount. MaxDigits counts all digits; at most
// DecimalPlaces of them may sit after the point.
type DecimalType struct {
	MaxDigits     int
	DecimalPlaces int
}

// DateType is parsed against the candidate format ladder (ISO first); a
// template mapping may prepend its own format.
type DateType struct{}

// ReferenceType resolves the raw value against a related entity through a
// lookup function supplied per batch. LookupKey selects the function from
// the RecordLookups bundle.
type ReferenceType struct {
	LookupKey string
}

func (TextType) isFieldType()      {}
func (IntegerType) isFieldType()   {}
func (DecimalType) isFieldType()   {}
func (DateType) isFieldType()      {}
func (ReferenceType) isFieldType() {}

// Lookup keys used by ReferenceType fields.
const (
	LookupPincode = "pincode"
	LookupCycle   = "monthly_cycle"
)

// FieldSpec declares one reserved field: its display label, semantic type
// and whether it is a pseudo-field.
type FieldSpec struct {
	Name   string
	Label  string
	Type   FieldType
	Pseudo bool
}

// Column returns the case_records column the field is persisted to.
func (s FieldSpec) Column() string {
	return strings.ToLower(s.Name)
}

const amountDigits = 14

func amount() DecimalType { return DecimalType{MaxDigits: amountDigits, DecimalPlaces: 2} }

// ReservedFields is the ordered reserved-field vocabulary.
var ReservedFields = []FieldSpec{
	{Name: FieldCustomerName, Label: "Customer Name", Type: TextType{MaxLen: 120}},
	{Name: FieldCRN, Label: "CRN", Type: TextType{MaxLen: 40}},
	{Name: FieldLoanAccount, Label: "Loan Account Number", Type: TextType{MaxLen: 40}},
	{Name: FieldCustomerEmail, Label: "Customer Email", Type: TextType{MaxLen: 120, Format: FormatEmail}},
	{Name: FieldCustomerPhone, Label: "Customer Phone", Type: TextType{MaxLen: 15, Format: FormatPhone}},
	{Name: FieldAlternatePhone, Label: "Alternate Phone", Type: TextType{MaxLen: 15, Format: FormatPhone}},
	{Name: FieldResidentialAddr, Label: "Residential Address", Type: TextType{MaxLen: 500}},
	{Name: FieldOfficeAddr, Label: "Office Address", Type: TextType{MaxLen: 500}},
	{Name: FieldResidentialPin, Label: "Residential Pincode", Type: ReferenceType{LookupKey: LookupPincode}},
	{Name: FieldOfficePin, Label: "Office Pincode", Type: ReferenceType{LookupKey: LookupPincode}},
	{Name: FieldLoanProduct, Label: "Loan Product", Type: TextType{MaxLen: 80}},
	{Name: FieldBranchName, Label: "Branch Name", Type: TextType{MaxLen: 80}},
	{Name: FieldBucket, Label: "Bucket", Type: TextType{MaxLen: 20}},
	{Name: FieldTotalLoanAmount, Label: "Total Loan Amount", Type: amount()},
	{Name: FieldPosValue, Label: "POS Value", Type: amount()},
	{Name: FieldEMIAmount, Label: "EMI Amount", Type: amount()},
	{Name: FieldMinimumDue, Label: "Minimum Due Amount", Type: amount()},
	{Name: FieldPenaltyAmount, Label: "Penalty Amount", Type: amount()},
	{Name: FieldLateFee, Label: "Late Fee", Type: amount()},
	{Name: FieldLateCharges, Label: "Late Charges", Type: amount()},
	{Name: FieldLastPaymentAmt, Label: "Last Payment Amount", Type: amount()},
	{Name: FieldTenure, Label: "Tenure", Type: IntegerType{}},
	{Name: FieldEMIsPaid, Label: "EMIs Paid", Type: IntegerType{}},
	{Name: FieldDPD, Label: "DPD", Type: IntegerType{}},
	{Name: FieldDisbursalDate, Label: "Loan Disbursement Date", Type: DateType{}},
	{Name: FieldEMIStartDate, Label: "EMI Start Date", Type: DateType{}},
	{Name: FieldDueDate, Label: "Due Date", Type: DateType{}},
	{Name: FieldLastPaymentDate, Label: "Last Payment Date", Type: DateType{}},
	{Name: FieldMonthlyCycle, Label: "Monthly Cycle", Type: ReferenceType{LookupKey: LookupCycle}},
	{Name: FieldProcessName, Label: "Process Name", Type: TextType{MaxLen: 80}, Pseudo: true},
	{Name: FieldProductType, Label: "Product Type", Type: TextType{MaxLen: 80}, Pseudo: true},
}

// reservedByName indexes ReservedFields by field name.
var reservedByName = func() map[string]FieldSpec {
	m := make(map[string]FieldSpec, len(ReservedFields))
	for _, f := range ReservedFields {
		m[f.Name] = f
	}
	return m
}()

// ReservedField returns the spec for a reserved field name.
func ReservedField(name string) (FieldSpec, bool) {
	f, ok := reservedByName[name]
	return f, ok
}
