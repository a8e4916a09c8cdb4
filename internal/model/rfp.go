package model

import "rfpdesk/api/internal/apperr"

type RFP struct {
	ID                     string   `json:"id"`
	Title                  string   `json:"title"`
	ClientName             string   `json:"clientName"`
	ProjectType            string   `json:"projectType,omitempty"`
	Location               string   `json:"location,omitempty"`
	Budget                 string   `json:"budget,omitempty"`
	Description            string   `json:"description,omitempty"`
	IssueDate              string   `json:"issueDate,omitempty"`
	QuestionsDeadline      string   `json:"questionsDeadline,omitempty"`
	SubmissionDeadline     string   `json:"submissionDeadline,omitempty"`
	ProjectStartDate       string   `json:"projectStartDate,omitempty"`
	Requirements           []string `json:"requirements"`
	Deliverables           []string `json:"deliverables"`
	RequiredCertifications []string `json:"requiredCertifications"`
	EvaluationCriteria     []string `json:"evaluationCriteria"`
	SourceURL              string   `json:"sourceUrl,omitempty"`
	CreatedBy              string   `json:"createdBy,omitempty"`
	CreatedAt              string   `json:"createdAt"`
	UpdatedAt              string   `json:"updatedAt"`
}

// DateMeta is the normalized view of an RFP's schedule.
type DateMeta struct {
	SubmissionDeadline string `json:"submissionDeadline,omitempty"`
	DaysUntilDeadline  *int   `json:"daysUntilDeadline,omitempty"`
	IsPastDue          bool   `json:"isPastDue"`
}

// RFPDerived is computed on every read and never stored.
type RFPDerived struct {
	IsDisqualified bool     `json:"isDisqualified"`
	DateWarnings   []string `json:"dateWarnings"`
	DateMeta       DateMeta `json:"dateMeta"`
	FitScore       int      `json:"fitScore"`
	FitReasons     []string `json:"fitReasons"`
}

type RFPView struct {
	RFP
	RFPDerived
}

// RFPPatch lists the mutable RFP fields. Nil fields are left unchanged.
type RFPPatch struct {
	Title                  *string
	ClientName             *string
	ProjectType            *string
	Location               *string
	Budget                 *string
	Description            *string
	IssueDate              *string
	QuestionsDeadline      *string
	SubmissionDeadline     *string
	ProjectStartDate       *string
	Requirements           *[]string
	Deliverables           *[]string
	RequiredCertifications *[]string
	EvaluationCriteria     *[]string
	SourceURL              *string
}

func (p RFPPatch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return apperr.Validation("title must not be empty")
	}
	return nil
}

func (p RFPPatch) Apply(r *RFP) {
	applyTrimmed(&r.Title, p.Title)
	applyTrimmed(&r.ClientName, p.ClientName)
	applyTrimmed(&r.ProjectType, p.ProjectType)
	applyTrimmed(&r.Location, p.Location)
	apply(&r.Budget, p.Budget)
	apply(&r.Description, p.Description)
	applyTrimmed(&r.IssueDate, p.IssueDate)
	applyTrimmed(&r.QuestionsDeadline, p.QuestionsDeadline)
	applyTrimmed(&r.SubmissionDeadline, p.SubmissionDeadline)
	applyTrimmed(&r.ProjectStartDate, p.ProjectStartDate)
	applyList(&r.Requirements, p.Requirements)
	applyList(&r.Deliverables, p.Deliverables)
	applyList(&r.RequiredCertifications, p.RequiredCertifications)
	applyList(&r.EvaluationCriteria, p.EvaluationCriteria)
	applyTrimmed(&r.SourceURL, p.SourceURL)
}

// Validate checks a new RFP before it is stored.
func (r RFP) Validate() error {
	if r.Title == "" {
		return apperr.Validation("title is required")
	}
	return nil
}
