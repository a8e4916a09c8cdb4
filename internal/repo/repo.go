// Package repo implements the entity repositories on top of the single-table
// store. Store errors never leave this package; they are translated into the
// apperr taxonomy at each method boundary.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"rfpdesk/api/internal/apperr"
	"rfpdesk/api/internal/keys"
	"rfpdesk/api/internal/model"
	"rfpdesk/api/internal/rfpscore"
	"rfpdesk/api/internal/store"
	"rfpdesk/api/internal/util"
)

// Scorer computes the read-time fields of an RFP. It must be pure.
type Scorer interface {
	Score(rfp model.RFP) model.RFPDerived
}

// ObjectStore holds attachment content.
type ObjectStore interface {
	PresignUpload(ctx context.Context, objectKey string) (string, error)
	PresignDownload(ctx context.Context, objectKey, fileName string) (string, error)
	Remove(ctx context.Context, objectKey string) error
}

// Config is built once at startup and shared by every repository.
type Config struct {
	Table  store.Table
	Logger *zap.SugaredLogger
	Now    func() time.Time
	NewID  func(prefix string) string
	Scorer Scorer
	// Objects is optional; attachments then carry metadata only.
	Objects ObjectStore
}

type deps struct {
	table   store.Table
	log     *zap.SugaredLogger
	clock   func() time.Time
	newID   func(prefix string) string
	scorer  Scorer
	objects ObjectStore
}

func (d *deps) now() string {
	return util.Timestamp(d.clock())
}

type Repositories struct {
	Users             *Users
	ResetTokens       *ResetTokens
	RFPs              *RFPs
	Proposals         *Proposals
	Links             *Links
	Attachments       *Attachments
	Templates         *Templates
	Companies         *Companies
	TeamMembers       *TeamMembers
	ProjectReferences *ProjectReferences
	PastProjects      *PastProjects
	Integrations      *Integrations
}

func New(cfg Config) (*Repositories, error) {
	if cfg.Table == nil {
		return nil, errors.New("repo: table is required")
	}
	d := &deps{
		table:   cfg.Table,
		log:     cfg.Logger,
		clock:   cfg.Now,
		newID:   cfg.NewID,
		scorer:  cfg.Scorer,
		objects: cfg.Objects,
	}
	if d.log == nil {
		d.log = zap.NewNop().Sugar()
	}
	if d.clock == nil {
		d.clock = func() time.Time { return time.Now().UTC() }
	}
	if d.newID == nil {
		d.newID = util.NewID
	}
	if d.scorer == nil {
		d.scorer = rfpscore.New(rfpscore.Profile{}, d.clock)
	}

	links := &Links{deps: d}
	return &Repositories{
		Users:             &Users{deps: d},
		ResetTokens:       &ResetTokens{deps: d},
		RFPs:              &RFPs{deps: d},
		Proposals:         &Proposals{deps: d, links: links},
		Links:             links,
		Attachments:       &Attachments{deps: d},
		Templates:         &Templates{deps: d},
		Companies:         newCollection[model.Company, *model.Company, model.CompanyPatch](d, keys.Company, "company"),
		TeamMembers:       newCollection[model.TeamMember, *model.TeamMember, model.TeamMemberPatch](d, keys.TeamMember, "member"),
		ProjectReferences: newCollection[model.ProjectReference, *model.ProjectReference, model.ProjectReferencePatch](d, keys.ProjectReference, "ref"),
		PastProjects:      newCollection[model.PastProject, *model.PastProject, model.PastProjectPatch](d, keys.PastProject, "project"),
		Integrations:      &Integrations{deps: d},
	}, nil
}

func requireID(name, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation(name + " is required")
	}
	return nil
}

// storageErr translates a store failure for op. apperr values pass through.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, keys.ErrInvalidKeyPart) {
		return apperr.Validation("invalid identity")
	}
	return apperr.Transient(op, err)
}

// getItem returns a nil item when nothing is stored at key.
func (d *deps) getItem(ctx context.Context, op string, key store.Key) (store.Item, error) {
	item, err := d.table.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr(op, err)
	}
	return item, nil
}

// queryAll follows cursors until the partition range is exhausted.
func (d *deps) queryAll(ctx context.Context, op string, q store.Query) ([]store.Item, error) {
	var out []store.Item
	for {
		page, err := d.table.Query(ctx, q)
		if err != nil {
			return nil, storageErr(op, err)
		}
		out = append(out, page.Items...)
		if page.Cursor == "" {
			return out, nil
		}
		q.Cursor = page.Cursor
	}
}

// deleteAll removes keys in transactions of at most MaxTransactionWrites.
func (d *deps) deleteAll(ctx context.Context, op string, keyList []store.Key) error {
	for start := 0; start < len(keyList); start += store.MaxTransactionWrites {
		end := min(start+store.MaxTransactionWrites, len(keyList))
		writes := make([]store.Write, 0, end-start)
		for _, k := range keyList[start:end] {
			writes = append(writes, store.DeleteWrite(k, nil))
		}
		if err := d.table.TransactWrite(ctx, writes); err != nil {
			return storageErr(op, err)
		}
	}
	return nil
}
