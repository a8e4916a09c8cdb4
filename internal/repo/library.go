package repo

import (
	"context"
	"errors"

	"rfpdesk/api/internal/apperr"
	"rfpdesk/api/internal/keys"
	"rfpdesk/api/internal/model"
	"rfpdesk/api/internal/store"
)

// record is a content-library entity: it carries model.Meta and validates
// itself.
type record[T any] interface {
	*T
	Metadata() *model.Meta
	Validate() error
}

type patcher[T any] interface {
	Apply(*T)
}

// Collection is the CRUD repository shared by the content-library kinds.
type Collection[T any, R record[T], P patcher[T]] struct {
	*deps
	kind   keys.Kind
	prefix string
}

type (
	Companies         = Collection[model.Company, *model.Company, model.CompanyPatch]
	TeamMembers       = Collection[model.TeamMember, *model.TeamMember, model.TeamMemberPatch]
	ProjectReferences = Collection[model.ProjectReference, *model.ProjectReference, model.ProjectReferencePatch]
	PastProjects      = Collection[model.PastProject, *model.PastProject, model.PastProjectPatch]
)

func newCollection[T any, R record[T], P patcher[T]](d *deps, kind keys.Kind, idPrefix string) *Collection[T, R, P] {
	return &Collection[T, R, P]{deps: d, kind: kind, prefix: idPrefix}
}

func (c *Collection[T, R, P]) label() string {
	return string(c.kind)
}

func (c *Collection[T, R, P]) put(ctx context.Context, v *T, cond *store.Condition) error {
	meta := R(v).Metadata()
	key, err := keys.Primary(c.kind, meta.ID)
	if err != nil {
		return err
	}
	item, err := encode(v, key, string(c.kind), listedBy(c.kind, meta.CreatedAt, meta.ID))
	if err != nil {
		return err
	}
	return c.table.Put(ctx, item, cond)
}

func (c *Collection[T, R, P]) Create(ctx context.Context, in T) (*T, error) {
	v := in
	if err := R(&v).Validate(); err != nil {
		return nil, err
	}
	meta := R(&v).Metadata()
	now := c.now()
	meta.ID = c.newID(c.prefix)
	meta.CreatedAt = now
	meta.UpdatedAt = now
	if err := c.put(ctx, &v, store.ItemNotExists()); err != nil {
		return nil, storageErr("create "+c.label(), err)
	}
	return &v, nil
}

func (c *Collection[T, R, P]) Get(ctx context.Context, id string) (*T, error) {
	if err := requireID("id", id); err != nil {
		return nil, err
	}
	key, err := keys.Primary(c.kind, id)
	if err != nil {
		return nil, storageErr("get "+c.label(), err)
	}
	item, err := c.getItem(ctx, "get "+c.label(), key)
	if err != nil || item == nil {
		return nil, err
	}
	v, err := decodeAs[T](item)
	if err != nil {
		return nil, storageErr("get "+c.label(), err)
	}
	return &v, nil
}

func (c *Collection[T, R, P]) List(ctx context.Context, req PageRequest) (Page[T], error) {
	return paginate(ctx, c.deps, c.kind, req, decodeAs[T])
}

// Update merges patch into the stored record, last writer wins.
func (c *Collection[T, R, P]) Update(ctx context.Context, id string, patch P) (*T, error) {
	v, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperr.NotFound(c.label() + " not found")
	}
	meta := *R(v).Metadata()
	patch.Apply(v)
	*R(v).Metadata() = model.Meta{ID: meta.ID, CreatedAt: meta.CreatedAt, UpdatedAt: c.now()}
	if err := R(v).Validate(); err != nil {
		return nil, err
	}
	err = c.put(ctx, v, store.ItemExists())
	if errors.Is(err, store.ErrConditionFailed) {
		return nil, apperr.NotFound(c.label() + " not found")
	}
	if err != nil {
		return nil, storageErr("update "+c.label(), err)
	}
	return v, nil
}

func (c *Collection[T, R, P]) Delete(ctx context.Context, id string) error {
	if err := requireID("id", id); err != nil {
		return err
	}
	key, err := keys.Primary(c.kind, id)
	if err != nil {
		return storageErr("delete "+c.label(), err)
	}
	return storageErr("delete "+c.label(), c.table.Delete(ctx, key, nil))
}
