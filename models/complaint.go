package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ComplaintStatus is the lifecycle stage of a complaint.
type ComplaintStatus string

const (
	StatusSubmitted            ComplaintStatus = "submitted"
	StatusUnderReview          ComplaintStatus = "under_review"
	StatusInformationRequested ComplaintStatus = "information_requested"
	StatusLegalNoticeDrafted   ComplaintStatus = "legal_notice_drafted"
	StatusLegalNoticeSent      ComplaintStatus = "legal_notice_sent"
	StatusEmployerResponded    ComplaintStatus = "employer_responded"
	StatusResolved             ComplaintStatus = "resolved"
	StatusClosed               ComplaintStatus = "closed"
)

// Statuses lists every status in lifecycle order.
var Statuses = []ComplaintStatus{
	StatusSubmitted,
	StatusUnderReview,
	StatusInformationRequested,
	StatusLegalNoticeDrafted,
	StatusLegalNoticeSent,
	StatusEmployerResponded,
	StatusResolved,
	StatusClosed,
}

// Valid reports whether s is one of the known statuses.
func (s ComplaintStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Issue tags offered by the complaint form. "other_issue" is the catch-all;
// its details go in AdditionalInputs.
const (
	IssueNonPaymentSalary     = "non_payment_salary"
	IssuePartialLeaveGranted  = "partial_leave_granted"
	IssueDenialOfLeave        = "denial_of_leave"
	IssueTerminationDismissal = "termination_dismissal"
	IssueForcefulResignation  = "forceful_resignation"
	IssueUnfavorableTreatment = "unfavorable_treatment_post_resuming"
	IssueOther                = "other_issue"
)

// IssueLabels maps issue tags to the human readable text used in emails.
var IssueLabels = map[string]string{
	IssueNonPaymentSalary:     "Non-payment or Partial payment of Salary during Leave",
	IssuePartialLeaveGranted:  "Partial Leave Granted (Less than Entitled)",
	IssueDenialOfLeave:        "Complete Denial of Maternity Leave",
	IssueTerminationDismissal: "Termination or Dismissal due to Pregnancy/Maternity",
	IssueForcefulResignation:  "Forceful Resignation due to Maternity/Pregnancy",
	IssueUnfavorableTreatment: "Unfavourable Treatment post resuming work",
	IssueOther:                "Other",
}

// StatusChange records one privileged status transition.
type StatusChange struct {
	From      ComplaintStatus `bson:"from" json:"from"`
	To        ComplaintStatus `bson:"to" json:"to"`
	Note      string          `bson:"note,omitempty" json:"note,omitempty"`
	ChangedAt time.Time       `bson:"changed_at" json:"changedAt"`
}

// Complaint is a maternity-benefit grievance filed by a user against an employer.
type Complaint struct {
	ID                        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID                    primitive.ObjectID `bson:"user_id" json:"userId"`
	ComplainantName           string             `bson:"complainant_name" json:"complainantName"`
	ComplainantContact        string             `bson:"complainant_contact" json:"complainantContact"`
	ComplainantEmail          string             `bson:"complainant_email" json:"complainantEmail"`
	CompanyName               string             `bson:"company_name" json:"companyName"`
	CompanyAddress            string             `bson:"company_address" json:"companyAddress"`
	CompanyPincode            string             `bson:"company_pincode" json:"companyPincode"`
	DateOfJoining             time.Time          `bson:"date_of_joining" json:"dateOfJoining"`
	ExpectedDeliveryDate      *time.Time         `bson:"expected_delivery_date,omitempty" json:"expectedDeliveryDate,omitempty"`
	ActualDeliveryDate        *time.Time         `bson:"actual_delivery_date,omitempty" json:"actualDeliveryDate,omitempty"`
	NumberOfSurvivingChildren int                `bson:"number_of_surviving_children" json:"numberOfSurvivingChildren"`
	IssuesFaced               []string           `bson:"issues_faced" json:"issuesFaced"`
	AdditionalInputs          string             `bson:"additional_inputs,omitempty" json:"additionalInputs,omitempty"`
	SupportingDocumentsInfo   string             `bson:"supporting_documents_info,omitempty" json:"supportingDocumentsInfo,omitempty"`
	ConsentToShare            bool               `bson:"consent_to_share" json:"consentToShare"`
	Status                    ComplaintStatus    `bson:"status" json:"status"`
	StatusHistory             []StatusChange     `bson:"status_history,omitempty" json:"statusHistory,omitempty"`
	SubmittedAt               time.Time          `bson:"submitted_at" json:"submittedAt"`
	UpdatedAt                 time.Time          `bson:"updated_at" json:"updatedAt"`
}
