// Package model holds the public shape of every stored entity and the typed
// patches that may change them. Timestamps are ISO-8601 strings.
package model

import "strings"

// Meta is the identity and bookkeeping shared by content-library records.
type Meta struct {
	ID        string `json:"id"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func (m *Meta) Metadata() *Meta { return m }

func apply[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func applyTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func applyList(dst *[]string, v *[]string) {
	if v == nil {
		return
	}
	out := make([]string, 0, len(*v))
	for _, s := range *v {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}
