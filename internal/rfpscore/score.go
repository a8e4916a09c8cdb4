// Package rfpscore computes the read-time fields of an RFP: date sanity
// warnings, disqualification and a fit score against a company profile.
// Score is a pure function of its input and the reference clock.
package rfpscore

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"rfpdesk/api/internal/model"
	"rfpdesk/api/internal/util"
)

// Date warnings.
const (
	WarnMissingDeadline       = "missing_submission_deadline"
	WarnPastDue               = "past_due"
	WarnQuestionsAfterDue     = "questions_deadline_after_submission"
	WarnStartBeforeSubmission = "project_start_before_submission"
	WarnIssuedAfterDue        = "issue_date_after_submission"
	warnUnparseablePrefix     = "unparseable_date:"
)

var dateLayouts = []string{
	util.TimestampLayout,
	time.RFC3339Nano,
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// Profile is what an RFP is matched against.
type Profile struct {
	Certifications       []string
	ProjectTypes         []string
	ExcludedProjectTypes []string
	Locations            []string
	Capabilities         []string
}

// ProfileFromCompany builds a profile from a content-library company record.
func ProfileFromCompany(c model.Company) Profile {
	return Profile{
		Certifications: c.Certifications,
		ProjectTypes:   c.ProjectTypes,
		Locations:      c.Locations,
		Capabilities:   c.Capabilities,
	}
}

type Scorer struct {
	Profile Profile
	// Now is the reference date. Defaults to time.Now.
	Now func() time.Time
}

func New(profile Profile, now func() time.Time) *Scorer {
	return &Scorer{Profile: profile, Now: now}
}

func (s *Scorer) now() time.Time {
	if s == nil || s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// ParseDate accepts the date formats seen in imported RFPs.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Scorer) Score(rfp model.RFP) model.RFPDerived {
	now := s.now()
	out := model.RFPDerived{DateWarnings: []string{}, FitReasons: []string{}}

	parsed := map[string]time.Time{}
	fields := []struct{ name, value string }{
		{"issueDate", rfp.IssueDate},
		{"questionsDeadline", rfp.QuestionsDeadline},
		{"submissionDeadline", rfp.SubmissionDeadline},
		{"projectStartDate", rfp.ProjectStartDate},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			continue
		}
		t, ok := ParseDate(f.value)
		if !ok {
			out.DateWarnings = append(out.DateWarnings, warnUnparseablePrefix+f.name)
			continue
		}
		parsed[f.name] = t
	}

	deadline, hasDeadline := parsed["submissionDeadline"]
	if strings.TrimSpace(rfp.SubmissionDeadline) == "" {
		out.DateWarnings = append(out.DateWarnings, WarnMissingDeadline)
	}
	if hasDeadline {
		days := int(day(deadline).Sub(day(now)).Hours() / 24)
		out.DateMeta = model.DateMeta{
			SubmissionDeadline: util.Timestamp(deadline),
			DaysUntilDeadline:  &days,
			IsPastDue:          deadline.Before(now),
		}
		if out.DateMeta.IsPastDue {
			out.DateWarnings = append(out.DateWarnings, WarnPastDue)
		}
		if q, ok := parsed["questionsDeadline"]; ok && q.After(deadline) {
			out.DateWarnings = append(out.DateWarnings, WarnQuestionsAfterDue)
		}
		if st, ok := parsed["projectStartDate"]; ok && st.Before(deadline) {
			out.DateWarnings = append(out.DateWarnings, WarnStartBeforeSubmission)
		}
		if iss, ok := parsed["issueDate"]; ok && iss.After(deadline) {
			out.DateWarnings = append(out.DateWarnings, WarnIssuedAfterDue)
		}
	}

	out.FitScore, out.FitReasons = s.fit(rfp)
	out.IsDisqualified = out.DateMeta.IsPastDue || s.excluded(rfp) || len(s.missingCertifications(rfp)) > 0
	return out
}

func (s *Scorer) profile() Profile {
	if s == nil {
		return Profile{}
	}
	return s.Profile
}

func (s *Scorer) excluded(rfp model.RFP) bool {
	return rfp.ProjectType != "" && containsFold(s.profile().ExcludedProjectTypes, rfp.ProjectType)
}

func (s *Scorer) missingCertifications(rfp model.RFP) []string {
	var missing []string
	for _, c := range rfp.RequiredCertifications {
		if !containsFold(s.profile().Certifications, c) {
			missing = append(missing, c)
		}
	}
	sort.Strings(missing)
	return missing
}

// fit weighs project type 25, location 15, certifications 30 and
// requirement coverage 30.
func (s *Scorer) fit(rfp model.RFP) (int, []string) {
	p := s.profile()
	score := 0
	reasons := []string{}

	switch {
	case rfp.ProjectType == "":
	case s.excluded(rfp):
		reasons = append(reasons, fmt.Sprintf("excluded project type: %s", rfp.ProjectType))
	case containsFold(p.ProjectTypes, rfp.ProjectType):
		score += 25
		reasons = append(reasons, fmt.Sprintf("project type matches: %s", rfp.ProjectType))
	}

	if rfp.Location != "" {
		for _, loc := range p.Locations {
			if loc != "" && strings.Contains(strings.ToLower(rfp.Location), strings.ToLower(loc)) {
				score += 15
				reasons = append(reasons, fmt.Sprintf("serves location: %s", loc))
				break
			}
		}
	}

	if len(rfp.RequiredCertifications) == 0 {
		score += 30
	} else {
		missing := s.missingCertifications(rfp)
		held := len(rfp.RequiredCertifications) - len(missing)
		score += 30 * held / len(rfp.RequiredCertifications)
		for _, c := range missing {
			reasons = append(reasons, fmt.Sprintf("missing certification: %s", c))
		}
	}

	if len(rfp.Requirements) > 0 && len(p.Capabilities) > 0 {
		covered := 0
		for _, req := range rfp.Requirements {
			for _, capability := range p.Capabilities {
				if capability != "" && strings.Contains(strings.ToLower(req), strings.ToLower(capability)) {
					covered++
					break
				}
			}
		}
		score += 30 * covered / len(rfp.Requirements)
		reasons = append(reasons, fmt.Sprintf("covers %d of %d requirements", covered, len(rfp.Requirements)))
	}

	if score > 100 {
		score = 100
	}
	return score, reasons
}

func containsFold(list []string, v string) bool {
	v = strings.TrimSpace(v)
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}
