package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfpdesk/api/internal/apperr"
	"rfpdesk/api/internal/model"
	"rfpdesk/api/internal/store"
)

func TestTemplateVersioning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tpl, err := f.repos.Templates.Create(ctx, model.Template{
		Name:     "Engineering RFP",
		Sections: []model.TemplateSection{{Title: "Approach", Required: true}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, tpl.Version)

	name := "Engineering RFP v2"
	next, err := f.repos.Templates.Update(ctx, tpl.ID, 1, model.TemplatePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, 2, next.Version)
	assert.Equal(t, tpl.CreatedAt, next.CreatedAt)
	assert.Len(t, next.Sections, 1)

	_, err = f.repos.Templates.Update(ctx, tpl.ID, 1, model.TemplatePatch{Name: &name})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, "version_conflict", apperr.CodeOf(err))

	latest, err := f.repos.Templates.Update(ctx, tpl.ID, 0, model.TemplatePatch{})
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Version)
}

func TestTemplateVersionGuardCatchesLostRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tpl, err := f.repos.Templates.Create(ctx, model.Template{Name: "T"})
	require.NoError(t, err)

	// another writer bumps the version between our read and write
	raced := *tpl
	raced.Version = 7
	item, err := f.repos.Templates.encode(raced)
	require.NoError(t, err)

	bumped := false
	faults := &faultyTable{Table: f.table}
	faults.failPut = func(store.Item) bool {
		if !bumped {
			bumped = true
			require.NoError(t, f.table.Put(ctx, item, nil))
		}
		return false
	}
	f.repos.Templates.table = faults

	name := "mine"
	_, err = f.repos.Templates.Update(ctx, tpl.ID, 0, model.TemplatePatch{Name: &name})
	assert.Equal(t, "version_conflict", apperr.CodeOf(err))
}

func TestTemplateListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, err := f.repos.Templates.Create(ctx, model.Template{Name: "A"})
	require.NoError(t, err)
	b, err := f.repos.Templates.Create(ctx, model.Template{Name: "B"})
	require.NoError(t, err)

	page, err := f.repos.Templates.List(ctx, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, a.ID}, templateIDs(page.Items))

	require.NoError(t, f.repos.Templates.Delete(ctx, a.ID))
	got, err := f.repos.Templates.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	page, err = f.repos.Templates.List(ctx, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, templateIDs(page.Items))

	_, err = f.repos.Templates.Create(ctx, model.Template{})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
