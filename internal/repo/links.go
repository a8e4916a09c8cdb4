package repo

import (
	"context"
	"errors"

	"rfpdesk/api/internal/keys"
	"rfpdesk/api/internal/model"
	"rfpdesk/api/internal/store"
)

// Links maintains the proposal summaries stored under each RFP. Proposals
// are the source of truth; Sync only logs its failures and Reconcile repairs
// whatever drifted. Proposals.Delete drops the link in its own transaction.
type Links struct {
	*deps
}

func linkKey(rfpID, proposalID string) (store.Key, error) {
	return keys.Child(keys.RFP, rfpID, keys.Proposal, proposalID)
}

func encodeLink(p model.Proposal) (store.Item, error) {
	key, err := linkKey(p.RFPID, p.ID)
	if err != nil {
		return nil, err
	}
	return encode(model.LinkOf(p), key, entityLink, nil)
}

func (l *Links) Sync(ctx context.Context, p model.Proposal) {
	item, err := encodeLink(p)
	if err == nil {
		err = l.table.Put(ctx, item, nil)
	}
	if err != nil {
		l.log.Warnw("proposal link sync failed", "rfp_id", p.RFPID, "proposal_id", p.ID, "error", err)
	}
}

// List returns the proposal summaries stored under an RFP.
func (l *Links) List(ctx context.Context, rfpID string) ([]model.ProposalLink, error) {
	if err := requireID("rfp id", rfpID); err != nil {
		return nil, err
	}
	partition, prefix, err := keys.ChildPrefix(keys.RFP, rfpID, keys.Proposal)
	if err != nil {
		return nil, storageErr("list proposal links", err)
	}
	items, err := l.queryAll(ctx, "list proposal links", store.Query{Partition: partition, SortPrefix: prefix})
	if err != nil {
		return nil, err
	}
	out := make([]model.ProposalLink, 0, len(items))
	for _, item := range items {
		link, err := decodeAs[model.ProposalLink](item)
		if err != nil {
			return nil, storageErr("list proposal links", err)
		}
		out = append(out, link)
	}
	return out, nil
}

type ReconcileReport struct {
	Proposals int `json:"proposals"`
	Rewritten int `json:"rewritten"`
	Removed   int `json:"removed"`
	// Orphaned counts proposals whose RFP no longer exists; they get no link.
	Orphaned int `json:"orphaned"`
}

// Reconcile rewrites the link of every proposal whose RFP exists and deletes
// links whose proposal is gone or now belongs to another RFP.
func (l *Links) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	rfps, err := l.queryAll(ctx, "reconcile links", store.Query{
		Index:     store.IndexGSI1,
		Partition: keys.IndexPartition(keys.RFP),
	})
	if err != nil {
		return report, err
	}
	live := make(map[string]bool, len(rfps))
	for _, item := range rfps {
		if id, ok := item.StringAttr("id"); ok && id != "" {
			live[id] = true
		}
	}

	proposals, err := l.queryAll(ctx, "reconcile links", store.Query{
		Index:     store.IndexGSI1,
		Partition: keys.IndexPartition(keys.Proposal),
	})
	if err != nil {
		return report, err
	}
	owner := make(map[string]string, len(proposals))
	for _, item := range proposals {
		p, err := decodeAs[model.Proposal](item)
		if err != nil {
			return report, storageErr("reconcile links", err)
		}
		report.Proposals++
		if !live[p.RFPID] {
			report.Orphaned++
			continue
		}
		owner[p.ID] = p.RFPID
		link, err := encodeLink(p)
		if err != nil {
			l.log.Warnw("skipping proposal with bad identity", "proposal_id", p.ID, "error", err)
			continue
		}
		if err := l.table.Put(ctx, link, nil); err != nil {
			return report, storageErr("reconcile links", err)
		}
		report.Rewritten++
	}

	for rfpID := range live {
		links, err := l.List(ctx, rfpID)
		if err != nil {
			return report, err
		}
		for _, link := range links {
			if owner[link.ProposalID] == rfpID {
				continue
			}
			key, err := linkKey(rfpID, link.ProposalID)
			if err != nil {
				continue
			}
			err = l.table.Delete(ctx, key, nil)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return report, storageErr("reconcile links", err)
			}
			report.Removed++
		}
	}
	return report, nil
}
