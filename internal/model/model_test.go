package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfpdesk/api/internal/apperr"
)

func ptr[T any](v T) *T { return &v }

func TestRFPPatchAppliesOnlySetFields(t *testing.T) {
	rfp := RFP{
		ID:           "rfp_1",
		Title:        "Bridge design",
		ClientName:   "City of Springfield",
		Requirements: []string{"PE stamp"},
		CreatedAt:    "2026-01-01T00:00:00.000Z",
	}
	patch := RFPPatch{
		Title:        ptr("  Bridge redesign "),
		Requirements: &[]string{" PE stamp ", "", "Bonding"},
	}
	require.NoError(t, patch.Validate())
	patch.Apply(&rfp)

	assert.Equal(t, "Bridge redesign", rfp.Title)
	assert.Equal(t, "City of Springfield", rfp.ClientName)
	assert.Equal(t, []string{"PE stamp", "Bonding"}, rfp.Requirements)
	assert.Equal(t, "rfp_1", rfp.ID)
	assert.Equal(t, "2026-01-01T00:00:00.000Z", rfp.CreatedAt)
}

func TestRFPPatchRejectsEmptyTitle(t *testing.T) {
	err := RFPPatch{Title: ptr("")}.Validate()
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestProposalValidation(t *testing.T) {
	p := Proposal{RFPID: "rfp_1", Title: "Response", Status: StatusDraft}
	require.NoError(t, p.Validate())

	p.Status = "pending_magic"
	assert.ErrorIs(t, p.Validate(), apperr.ErrValidation)

	bad := ProposalStatus("shipped")
	assert.ErrorIs(t, ProposalPatch{Status: &bad}.Validate(), apperr.ErrValidation)
	assert.ErrorIs(t, Proposal{Title: "x"}.Validate(), apperr.ErrValidation)
}

func TestProposalPatchCopiesSections(t *testing.T) {
	sections := []ProposalSection{{ID: "s1", Title: "Approach"}}
	var p Proposal
	ProposalPatch{Sections: &sections}.Apply(&p)
	sections[0].Title = "mutated"
	assert.Equal(t, "Approach", p.Sections[0].Title)
}

func TestLinkOf(t *testing.T) {
	p := Proposal{
		ID: "proposal_1", RFPID: "rfp_1", Title: "P1", Status: StatusInReview,
		CompanyID: "company_1", TemplateID: "template_1",
		Review:    &Review{Decision: ReviewApproved},
		UpdatedAt: "2026-02-01T00:00:00.000Z",
	}
	link := LinkOf(p)
	assert.Equal(t, "proposal_1", link.ProposalID)
	assert.Equal(t, StatusInReview, link.Status)
	assert.Equal(t, ReviewApproved, link.Review.Decision)
}

func TestReviewValidate(t *testing.T) {
	assert.NoError(t, Review{Decision: ReviewApproved, Score: ptr(90)}.Validate())
	assert.Error(t, Review{Decision: "maybe"}.Validate())
	assert.Error(t, Review{Decision: ReviewPending, Score: ptr(101)}.Validate())
}

func TestUserPublicDropsHash(t *testing.T) {
	u := User{ID: "user_1", Username: "alice", PasswordHash: "$2a$..."}
	raw, err := json.Marshal(u.Public())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "passwordHash")
	assert.Equal(t, "$2a$...", u.PasswordHash)
}

func TestResetTokenUsable(t *testing.T) {
	tok := PasswordResetToken{ExpiresAt: "2026-05-01T10:00:00.000Z"}
	assert.True(t, tok.Usable("2026-05-01T09:00:00.000Z"))
	assert.False(t, tok.Usable("2026-05-01T10:00:00.000Z"))
	tok.UsedAt = "2026-05-01T08:00:00.000Z"
	assert.False(t, tok.Usable("2026-05-01T09:00:00.000Z"))
}

func TestIdentityValidation(t *testing.T) {
	assert.Equal(t, "alice", NormalizeIdentity("  Alice "))
	assert.NoError(t, ValidateUsername("alice.b-c_1"))
	assert.Error(t, ValidateUsername("al"))
	assert.Error(t, ValidateUsername("alice#admin"))
	assert.NoError(t, ValidateEmail("a@x.com"))
	assert.Error(t, ValidateEmail("Alice <a@x.com>"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.NoError(t, ValidatePassword("correct horse"))
	assert.Error(t, ValidatePassword("short"))
}

func TestCompanyMetaIsFlattened(t *testing.T) {
	c := Company{Meta: Meta{ID: "company_1"}, Name: "Acme"}
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"id":"company_1"`)
	assert.Same(t, &c.Meta, c.Metadata())
}

func TestIntegrationRecord(t *testing.T) {
	r := IntegrationRecord{OwnerKind: "USER", OwnerID: "u1", Provider: "canva", Kind: IntegrationCache, Name: "designs"}
	assert.NoError(t, r.Validate())
	assert.False(t, r.Expired("2026-01-01T00:00:00.000Z"))
	r.ExpiresAt = "2026-01-01T00:00:00.000Z"
	assert.True(t, r.Expired("2026-01-01T00:00:00.000Z"))
	r.Kind = "blob"
	assert.Error(t, r.Validate())
}
