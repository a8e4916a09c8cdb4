package model

import "rfpdesk/api/internal/apperr"

type ProposalStatus string

const (
	StatusDraft     ProposalStatus = "draft"
	StatusInReview  ProposalStatus = "in_review"
	StatusSubmitted ProposalStatus = "submitted"
	StatusWon       ProposalStatus = "won"
	StatusLost      ProposalStatus = "lost"
	StatusArchived  ProposalStatus = "archived"
)

func (s ProposalStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusInReview, StatusSubmitted, StatusWon, StatusLost, StatusArchived:
		return true
	}
	return false
}

type ProposalSection struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

type ReviewDecision string

const (
	ReviewPending  ReviewDecision = "pending"
	ReviewApproved ReviewDecision = "approved"
	ReviewChanges  ReviewDecision = "changes_requested"
	ReviewRejected ReviewDecision = "rejected"
)

type Review struct {
	Decision   ReviewDecision `json:"decision"`
	Score      *int           `json:"score,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	ReviewedBy string         `json:"reviewedBy,omitempty"`
	ReviewedAt string         `json:"reviewedAt,omitempty"`
}

func (r Review) Validate() error {
	switch r.Decision {
	case ReviewPending, ReviewApproved, ReviewChanges, ReviewRejected:
	default:
		return apperr.Validation("unknown review decision")
	}
	if r.Score != nil && (*r.Score < 0 || *r.Score > 100) {
		return apperr.Validation("review score must be 0-100")
	}
	return nil
}

type Proposal struct {
	ID         string            `json:"id"`
	RFPID      string            `json:"rfpId"`
	TemplateID string            `json:"templateId,omitempty"`
	CompanyID  string            `json:"companyId,omitempty"`
	Title      string            `json:"title"`
	Status     ProposalStatus    `json:"status"`
	Sections   []ProposalSection `json:"sections"`
	Review     *Review           `json:"review,omitempty"`
	CreatedBy  string            `json:"createdBy,omitempty"`
	CreatedAt  string            `json:"createdAt"`
	UpdatedAt  string            `json:"updatedAt"`
}

func (p Proposal) Validate() error {
	if p.RFPID == "" {
		return apperr.Validation("rfpId is required")
	}
	if p.Title == "" {
		return apperr.Validation("title is required")
	}
	if p.Status != "" && !p.Status.Valid() {
		return apperr.Validation("unknown proposal status")
	}
	return nil
}

// ProposalLink is the summary of a proposal stored under its RFP.
type ProposalLink struct {
	ProposalID string         `json:"proposalId"`
	RFPID      string         `json:"rfpId"`
	Title      string         `json:"title"`
	Status     ProposalStatus `json:"status"`
	CompanyID  string         `json:"companyId,omitempty"`
	TemplateID string         `json:"templateId,omitempty"`
	Review     *Review        `json:"review,omitempty"`
	UpdatedAt  string         `json:"updatedAt"`
}

func LinkOf(p Proposal) ProposalLink {
	return ProposalLink{
		ProposalID: p.ID,
		RFPID:      p.RFPID,
		Title:      p.Title,
		Status:     p.Status,
		CompanyID:  p.CompanyID,
		TemplateID: p.TemplateID,
		Review:     p.Review,
		UpdatedAt:  p.UpdatedAt,
	}
}

// ProposalPatch lists the mutable proposal fields. The owning RFP is fixed.
type ProposalPatch struct {
	Title      *string
	Status     *ProposalStatus
	TemplateID *string
	CompanyID  *string
	Sections   *[]ProposalSection
}

func (p ProposalPatch) Validate() error {
	if p.Title != nil && *p.Title == "" {
		return apperr.Validation("title must not be empty")
	}
	if p.Status != nil && !p.Status.Valid() {
		return apperr.Validation("unknown proposal status")
	}
	return nil
}

func (p ProposalPatch) Apply(dst *Proposal) {
	applyTrimmed(&dst.Title, p.Title)
	apply(&dst.Status, p.Status)
	applyTrimmed(&dst.TemplateID, p.TemplateID)
	applyTrimmed(&dst.CompanyID, p.CompanyID)
	if p.Sections != nil {
		dst.Sections = append([]ProposalSection(nil), (*p.Sections)...)
	}
}
