package complaints

import (
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/raushankrgupta/maternity-matters/apperr"
	"github.com/raushankrgupta/maternity-matters/models"
	"github.com/raushankrgupta/maternity-matters/utils"
)

// CreateRequest is the complaint form as submitted by the client. Dates are
// accepted as RFC 3339 timestamps or plain YYYY-MM-DD.
type CreateRequest struct {
	ComplainantName           string   `json:"complainantName" validate:"required"`
	ComplainantContact        string   `json:"complainantContact" validate:"required,in_mobile"`
	ComplainantEmail          string   `json:"complainantEmail" validate:"required,email"`
	CompanyName               string   `json:"companyName" validate:"required"`
	CompanyAddress            string   `json:"companyAddress" validate:"required"`
	CompanyPincode            string   `json:"companyPincode" validate:"required,in_pincode"`
	DateOfJoining             string   `json:"dateOfJoining" validate:"required"`
	ExpectedDeliveryDate      string   `json:"expectedDeliveryDate"`
	ActualDeliveryDate        string   `json:"actualDeliveryDate"`
	NumberOfSurvivingChildren *int     `json:"numberOfSurvivingChildren" validate:"required,min=0"`
	IssuesFaced               []string `json:"issuesFaced" validate:"required,min=1,dive,required"`
	AdditionalInputs          string   `json:"additionalInputs"`
	SupportingDocumentsInfo   string   `json:"supportingDocumentsInfo"`
	ConsentToShare            *bool    `json:"consentToShare"`
}

// Patch holds the owner-editable fields of a complaint. Nil fields are left
// unchanged. Status, owner and timestamps are not part of it.
type Patch struct {
	ComplainantName           *string   `json:"complainantName"`
	ComplainantContact        *string   `json:"complainantContact"`
	ComplainantEmail          *string   `json:"complainantEmail"`
	CompanyName               *string   `json:"companyName"`
	CompanyAddress            *string   `json:"companyAddress"`
	CompanyPincode            *string   `json:"companyPincode"`
	DateOfJoining             *string   `json:"dateOfJoining"`
	ExpectedDeliveryDate      *string   `json:"expectedDeliveryDate"`
	ActualDeliveryDate        *string   `json:"actualDeliveryDate"`
	NumberOfSurvivingChildren *int      `json:"numberOfSurvivingChildren"`
	IssuesFaced               *[]string `json:"issuesFaced"`
	AdditionalInputs          *string   `json:"additionalInputs"`
	SupportingDocumentsInfo   *string   `json:"supportingDocumentsInfo"`
	ConsentToShare            *bool     `json:"consentToShare"`
}

var fieldMessages = map[string]string{
	"complainantName":             "Complainant name is required.",
	"complainantContact":          "Enter a valid 10-digit Indian mobile number.",
	"complainantContact.required": "Contact number is required.",
	"complainantEmail":            "Valid Email ID is required.",
	"companyName":                 "Company name is required.",
	"companyAddress":              "Company address is required.",
	"companyPincode":              "Enter a valid 6-digit PIN code.",
	"companyPincode.required":     "PIN code is required.",
	"dateOfJoining":               "Valid date of joining is required.",
	"numberOfSurvivingChildren":   "Number of surviving children must be a non-negative integer.",
	"issuesFaced":                 "At least one issue faced must be selected.",
	"issuesFaced[]":               "Invalid issue format.",
}

const (
	msgConsent          = "You must consent to share your information."
	msgExpectedDelivery = "Valid expected delivery date required if provided."
	msgActualDelivery   = "Valid actual delivery date required if provided."
)

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02"}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// sanitizer trims whitespace and strips markup from client supplied text.
// The result is plain text: entities are decoded again so output layers
// escape it exactly once.
type sanitizer struct {
	policy *bluemonday.Policy
}

func newSanitizer() sanitizer {
	return sanitizer{policy: bluemonday.StrictPolicy()}
}

func (s sanitizer) text(v string) string {
	// Decoding first keeps entity-encoded tags from surviving as markup.
	v = html.UnescapeString(strings.TrimSpace(v))
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

func (s sanitizer) request(req *CreateRequest) {
	req.ComplainantName = s.text(req.ComplainantName)
	req.ComplainantContact = strings.TrimSpace(req.ComplainantContact)
	req.ComplainantEmail = strings.ToLower(strings.TrimSpace(req.ComplainantEmail))
	req.CompanyName = s.text(req.CompanyName)
	req.CompanyAddress = s.text(req.CompanyAddress)
	req.CompanyPincode = strings.TrimSpace(req.CompanyPincode)
	req.DateOfJoining = strings.TrimSpace(req.DateOfJoining)
	req.ExpectedDeliveryDate = strings.TrimSpace(req.ExpectedDeliveryDate)
	req.ActualDeliveryDate = strings.TrimSpace(req.ActualDeliveryDate)
	req.AdditionalInputs = s.text(req.AdditionalInputs)
	req.SupportingDocumentsInfo = s.text(req.SupportingDocumentsInfo)
	req.IssuesFaced = s.issues(req.IssuesFaced)
}

func (s sanitizer) issues(issues []string) []string {
	if issues == nil {
		return nil
	}
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = s.text(issue)
	}
	return out
}

// apply overlays the sanitized patch values onto req.
func (s sanitizer) apply(req *CreateRequest, p Patch) {
	str := func(dst *string, v *string, clean func(string) string) {
		if v != nil {
			*dst = clean(*v)
		}
	}
	lower := func(v string) string { return strings.ToLower(strings.TrimSpace(v)) }

	str(&req.ComplainantName, p.ComplainantName, s.text)
	str(&req.ComplainantContact, p.ComplainantContact, strings.TrimSpace)
	str(&req.ComplainantEmail, p.ComplainantEmail, lower)
	str(&req.CompanyName, p.CompanyName, s.text)
	str(&req.CompanyAddress, p.CompanyAddress, s.text)
	str(&req.CompanyPincode, p.CompanyPincode, strings.TrimSpace)
	str(&req.DateOfJoining, p.DateOfJoining, strings.TrimSpace)
	str(&req.ExpectedDeliveryDate, p.ExpectedDeliveryDate, strings.TrimSpace)
	str(&req.ActualDeliveryDate, p.ActualDeliveryDate, strings.TrimSpace)
	str(&req.AdditionalInputs, p.AdditionalInputs, s.text)
	str(&req.SupportingDocumentsInfo, p.SupportingDocumentsInfo, s.text)
	if p.NumberOfSurvivingChildren != nil {
		n := *p.NumberOfSurvivingChildren
		req.NumberOfSurvivingChildren = &n
	}
	if p.IssuesFaced != nil {
		req.IssuesFaced = s.issues(*p.IssuesFaced)
		if req.IssuesFaced == nil {
			req.IssuesFaced = []string{}
		}
	}
	if p.ConsentToShare != nil {
		consent := *p.ConsentToShare
		req.ConsentToShare = &consent
	}
}

// requestFromComplaint is the inverse of build for stored complaints.
func requestFromComplaint(c *models.Complaint) CreateRequest {
	children := c.NumberOfSurvivingChildren
	consent := c.ConsentToShare
	req := CreateRequest{
		ComplainantName:           c.ComplainantName,
		ComplainantContact:        c.ComplainantContact,
		ComplainantEmail:          c.ComplainantEmail,
		CompanyName:               c.CompanyName,
		CompanyAddress:            c.CompanyAddress,
		CompanyPincode:            c.CompanyPincode,
		DateOfJoining:             formatDate(c.DateOfJoining),
		NumberOfSurvivingChildren: &children,
		IssuesFaced:               append([]string(nil), c.IssuesFaced...),
		AdditionalInputs:          c.AdditionalInputs,
		SupportingDocumentsInfo:   c.SupportingDocumentsInfo,
		ConsentToShare:            &consent,
	}
	if c.ExpectedDeliveryDate != nil {
		req.ExpectedDeliveryDate = formatDate(*c.ExpectedDeliveryDate)
	}
	if c.ActualDeliveryDate != nil {
		req.ActualDeliveryDate = formatDate(*c.ActualDeliveryDate)
	}
	return req
}

// build validates a sanitized request and copies it onto c. Every violation
// is collected into a single ValidationError.
func build(req CreateRequest, c *models.Complaint) error {
	fields := utils.ValidateStruct(req, fieldMessages)
	failed := make(map[string]bool, len(fields))
	for _, f := range fields {
		failed[f.Field] = true
	}

	doj, ok := parseDate(req.DateOfJoining)
	if !ok && !failed["dateOfJoining"] {
		fields = append(fields, apperr.Field("dateOfJoining", fieldMessages["dateOfJoining"]))
	}

	optionalDate := func(name, value, msg string) *time.Time {
		if value == "" {
			return nil
		}
		t, ok := parseDate(value)
		if !ok {
			fields = append(fields, apperr.Field(name, msg))
			return nil
		}
		return &t
	}
	expected := optionalDate("expectedDeliveryDate", req.ExpectedDeliveryDate, msgExpectedDelivery)
	actual := optionalDate("actualDeliveryDate", req.ActualDeliveryDate, msgActualDelivery)

	if req.ConsentToShare == nil || !*req.ConsentToShare {
		fields = append(fields, apperr.Field("consentToShare", msgConsent))
	}
	if len(fields) > 0 {
		return apperr.Validation(fields...)
	}

	c.ComplainantName = req.ComplainantName
	c.ComplainantContact = req.ComplainantContact
	c.ComplainantEmail = req.ComplainantEmail
	c.CompanyName = req.CompanyName
	c.CompanyAddress = req.CompanyAddress
	c.CompanyPincode = req.CompanyPincode
	c.DateOfJoining = doj
	c.ExpectedDeliveryDate = expected
	c.ActualDeliveryDate = actual
	c.NumberOfSurvivingChildren = *req.NumberOfSurvivingChildren
	c.IssuesFaced = req.IssuesFaced
	c.AdditionalInputs = req.AdditionalInputs
	c.SupportingDocumentsInfo = req.SupportingDocumentsInfo
	c.ConsentToShare = true
	return nil
}
