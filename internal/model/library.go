package model

import "rfpdesk/api/internal/apperr"

type TemplateSection struct {
	Title    string `json:"title"`
	Guidance string `json:"guidance,omitempty"`
	Required bool   `json:"required"`
}

type Template struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Version     int               `json:"version"`
	Sections    []TemplateSection `json:"sections"`
	CreatedAt   string            `json:"createdAt"`
	UpdatedAt   string            `json:"updatedAt"`
}

func (t Template) Validate() error {
	if t.Name == "" {
		return apperr.Validation("template name is required")
	}
	for _, s := range t.Sections {
		if s.Title == "" {
			return apperr.Validation("template section title is required")
		}
	}
	return nil
}

type TemplatePatch struct {
	Name        *string
	Description *string
	Sections    *[]TemplateSection
}

func (p TemplatePatch) Apply(t *Template) {
	applyTrimmed(&t.Name, p.Name)
	apply(&t.Description, p.Description)
	if p.Sections != nil {
		t.Sections = append([]TemplateSection(nil), (*p.Sections)...)
	}
}

// Company is also the profile RFPs are scored against.
type Company struct {
	Meta
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Website        string   `json:"website,omitempty"`
	Certifications []string `json:"certifications"`
	Capabilities   []string `json:"capabilities"`
	ProjectTypes   []string `json:"projectTypes"`
	Locations      []string `json:"locations"`
}

func (c Company) Validate() error {
	if c.Name == "" {
		return apperr.Validation("company name is required")
	}
	return nil
}

type CompanyPatch struct {
	Name           *string
	Description    *string
	Website        *string
	Certifications *[]string
	Capabilities   *[]string
	ProjectTypes   *[]string
	Locations      *[]string
}

func (p CompanyPatch) Apply(c *Company) {
	applyTrimmed(&c.Name, p.Name)
	apply(&c.Description, p.Description)
	applyTrimmed(&c.Website, p.Website)
	applyList(&c.Certifications, p.Certifications)
	applyList(&c.Capabilities, p.Capabilities)
	applyList(&c.ProjectTypes, p.ProjectTypes)
	applyList(&c.Locations, p.Locations)
}

// TeamMember, ProjectReference and PastProject point at a company softly;
// nothing checks that the company exists.
type TeamMember struct {
	Meta
	CompanyID      string   `json:"companyId,omitempty"`
	Name           string   `json:"name"`
	Title          string   `json:"title,omitempty"`
	Bio            string   `json:"bio,omitempty"`
	Skills         []string `json:"skills"`
	Certifications []string `json:"certifications"`
}

func (m TeamMember) Validate() error {
	if m.Name == "" {
		return apperr.Validation("team member name is required")
	}
	return nil
}

type TeamMemberPatch struct {
	CompanyID      *string
	Name           *string
	Title          *string
	Bio            *string
	Skills         *[]string
	Certifications *[]string
}

func (p TeamMemberPatch) Apply(m *TeamMember) {
	applyTrimmed(&m.CompanyID, p.CompanyID)
	applyTrimmed(&m.Name, p.Name)
	applyTrimmed(&m.Title, p.Title)
	apply(&m.Bio, p.Bio)
	applyList(&m.Skills, p.Skills)
	applyList(&m.Certifications, p.Certifications)
}

type ProjectReference struct {
	Meta
	CompanyID    string `json:"companyId,omitempty"`
	ProjectName  string `json:"projectName"`
	ClientName   string `json:"clientName,omitempty"`
	ContactName  string `json:"contactName,omitempty"`
	ContactEmail string `json:"contactEmail,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
	Summary      string `json:"summary,omitempty"`
}

func (r ProjectReference) Validate() error {
	if r.ProjectName == "" {
		return apperr.Validation("project name is required")
	}
	return nil
}

type ProjectReferencePatch struct {
	CompanyID    *string
	ProjectName  *string
	ClientName   *string
	ContactName  *string
	ContactEmail *string
	ContactPhone *string
	Summary      *string
}

func (p ProjectReferencePatch) Apply(r *ProjectReference) {
	applyTrimmed(&r.CompanyID, p.CompanyID)
	applyTrimmed(&r.ProjectName, p.ProjectName)
	applyTrimmed(&r.ClientName, p.ClientName)
	applyTrimmed(&r.ContactName, p.ContactName)
	applyTrimmed(&r.ContactEmail, p.ContactEmail)
	applyTrimmed(&r.ContactPhone, p.ContactPhone)
	apply(&r.Summary, p.Summary)
}

type PastProject struct {
	Meta
	CompanyID   string `json:"companyId,omitempty"`
	Title       string `json:"title"`
	ClientName  string `json:"clientName,omitempty"`
	ProjectType string `json:"projectType,omitempty"`
	Location    string `json:"location,omitempty"`
	Value       string `json:"value,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

func (p PastProject) Validate() error {
	if p.Title == "" {
		return apperr.Validation("project title is required")
	}
	return nil
}

type PastProjectPatch struct {
	CompanyID   *string
	Title       *string
	ClientName  *string
	ProjectType *string
	Location    *string
	Value       *string
	CompletedAt *string
	Summary     *string
}

func (p PastProjectPatch) Apply(pp *PastProject) {
	applyTrimmed(&pp.CompanyID, p.CompanyID)
	applyTrimmed(&pp.Title, p.Title)
	applyTrimmed(&pp.ClientName, p.ClientName)
	applyTrimmed(&pp.ProjectType, p.ProjectType)
	applyTrimmed(&pp.Location, p.Location)
	applyTrimmed(&pp.Value, p.Value)
	applyTrimmed(&pp.CompletedAt, p.CompletedAt)
	apply(&pp.Summary, p.Summary)
}
