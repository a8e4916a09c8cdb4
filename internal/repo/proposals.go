package repo

import (
	"context"
	"errors"

	"rfpdesk/api/internal/apperr"
	"rfpdesk/api/internal/keys"
	"rfpdesk/api/internal/model"
	"rfpdesk/api/internal/store"
)

type Proposals struct {
	*deps
	links *Links
}

func (r *Proposals) encode(p model.Proposal) (store.Item, error) {
	key, err := keys.Primary(keys.Proposal, p.ID)
	if err != nil {
		return nil, err
	}
	return encode(p, key, string(keys.Proposal), listedBy(keys.Proposal, p.CreatedAt, p.ID))
}

// Create stores the proposal only if its RFP exists, then writes the link.
func (r *Proposals) Create(ctx context.Context, in model.Proposal) (*model.Proposal, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := r.now()
	p := in
	p.ID = r.newID("proposal")
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = model.StatusDraft
	}
	if p.Sections == nil {
		p.Sections = []model.ProposalSection{}
	}

	item, err := r.encode(p)
	if err != nil {
		return nil, storageErr("create proposal", err)
	}
	rfpKey, err := keys.Primary(keys.RFP, p.RFPID)
	if err != nil {
		return nil, storageErr("create proposal", err)
	}
	err = r.table.TransactWrite(ctx, []store.Write{
		store.PutWrite(item, store.ItemNotExists()),
		store.CheckWrite(rfpKey, store.ItemExists()),
	})
	var canceled *store.TxCanceledError
	if errors.As(err, &canceled) && canceled.Index == 1 {
		return nil, apperr.NotFound("rfp not found")
	}
	if err != nil {
		return nil, storageErr("create proposal", err)
	}

	r.links.Sync(ctx, p)
	return &p, nil
}

func (r *Proposals) Get(ctx context.Context, id string) (*model.Proposal, error) {
	if err := requireID("proposal id", id); err != nil {
		return nil, err
	}
	key, err := keys.Primary(keys.Proposal, id)
	if err != nil {
		return nil, storageErr("get proposal", err)
	}
	item, err := r.getItem(ctx, "get proposal", key)
	if err != nil || item == nil {
		return nil, err
	}
	p, err := decodeAs[model.Proposal](item)
	if err != nil {
		return nil, storageErr("get proposal", err)
	}
	return &p, nil
}

func (r *Proposals) List(ctx context.Context, req PageRequest) (Page[model.Proposal], error) {
	return paginate(ctx, r.deps, keys.Proposal, req, decodeAs[model.Proposal])
}

// ListForRFP reads the summaries kept under the RFP.
func (r *Proposals) ListForRFP(ctx context.Context, rfpID string) ([]model.ProposalLink, error) {
	return r.links.List(ctx, rfpID)
}

func (r *Proposals) Update(ctx context.Context, id string, patch model.ProposalPatch) (*model.Proposal, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	return r.modify(ctx, "update proposal", id, func(p *model.Proposal) {
		patch.Apply(p)
	})
}

func (r *Proposals) SetReview(ctx context.Context, id string, review model.Review) (*model.Proposal, error) {
	if err := review.Validate(); err != nil {
		return nil, err
	}
	if review.ReviewedAt == "" {
		review.ReviewedAt = r.now()
	}
	return r.modify(ctx, "review proposal", id, func(p *model.Proposal) {
		p.Review = &review
	})
}

// modify is read, change, write. Field updates are last-writer-wins.
func (r *Proposals) modify(ctx context.Context, op, id string, change func(*model.Proposal)) (*model.Proposal, error) {
	p, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("proposal not found")
	}
	change(p)
	p.UpdatedAt = r.now()

	item, err := r.encode(*p)
	if err != nil {
		return nil, storageErr(op, err)
	}
	err = r.table.Put(ctx, item, store.ItemExists())
	if errors.Is(err, store.ErrConditionFailed) {
		return nil, apperr.NotFound("proposal not found")
	}
	if err != nil {
		return nil, storageErr(op, err)
	}

	r.links.Sync(ctx, *p)
	return p, nil
}

// Delete removes the proposal and its link together. Deleting a missing
// proposal is a no-op.
func (r *Proposals) Delete(ctx context.Context, id string) error {
	p, err := r.Get(ctx, id)
	if err != nil || p == nil {
		return err
	}
	key, err := keys.Primary(keys.Proposal, id)
	if err != nil {
		return storageErr("delete proposal", err)
	}
	link, err := linkKey(p.RFPID, p.ID)
	if err != nil {
		return storageErr("delete proposal", err)
	}
	if err := r.table.TransactWrite(ctx, []store.Write{
		store.DeleteWrite(key, nil),
		store.DeleteWrite(link, nil),
	}); err != nil {
		return storageErr("delete proposal", err)
	}
	return nil
}
