package store

import (
	"bytes"
	"encoding/json"
)

type existence int

const (
	existenceAny existence = iota
	existenceRequired
	existenceForbidden
)

type attrCompare struct {
	name  string
	value json.RawMessage
	op    compareOp
}

type compareOp int

const (
	opEquals compareOp = iota
	opGreater
)

// Condition is a precondition on the current state of one item. All parts
// must hold. The zero value always holds.
type Condition struct {
	existence existence
	absent    []string
	compares  []attrCompare
}

// ItemNotExists holds only when no item is stored at the key.
func ItemNotExists() *Condition {
	return &Condition{existence: existenceForbidden}
}

// ItemExists holds only when an item is stored at the key.
func ItemExists() *Condition {
	return &Condition{existence: existenceRequired}
}

// AttrNotExists requires the attribute to be absent. It implies the item exists.
func (c *Condition) AttrNotExists(name string) *Condition {
	next := c.clone()
	next.existence = existenceRequired
	next.absent = append(next.absent, name)
	return next
}

// AttrEquals requires the attribute's JSON encoding to equal value's.
func (c *Condition) AttrEquals(name string, value any) *Condition {
	raw, _ := json.Marshal(value)
	next := c.clone()
	next.existence = existenceRequired
	next.compares = append(next.compares, attrCompare{name: name, value: raw, op: opEquals})
	return next
}

// AttrGreaterThan requires a string attribute to sort strictly after value.
// ISO-8601 UTC timestamps of one layout compare correctly this way.
func (c *Condition) AttrGreaterThan(name, value string) *Condition {
	raw, _ := json.Marshal(value)
	next := c.clone()
	next.existence = existenceRequired
	next.compares = append(next.compares, attrCompare{name: name, value: raw, op: opGreater})
	return next
}

func (c *Condition) clone() *Condition {
	if c == nil {
		return &Condition{}
	}
	return &Condition{
		existence: c.existence,
		absent:    append([]string(nil), c.absent...),
		compares:  append([]attrCompare(nil), c.compares...),
	}
}

// Check evaluates the condition against current, which is nil when absent.
func (c *Condition) Check(current Item) bool {
	if c == nil {
		return true
	}
	switch c.existence {
	case existenceForbidden:
		if current != nil {
			return false
		}
	case existenceRequired:
		if current == nil {
			return false
		}
	}
	for _, name := range c.absent {
		if _, ok := current[name]; ok {
			return false
		}
	}
	for _, cmp := range c.compares {
		raw, ok := current[cmp.name]
		if !ok {
			return false
		}
		switch cmp.op {
		case opEquals:
			if !jsonEqual(raw, cmp.value) {
				return false
			}
		case opGreater:
			var have, want string
			if json.Unmarshal(raw, &have) != nil || json.Unmarshal(cmp.value, &want) != nil {
				return false
			}
			if have <= want {
				return false
			}
		}
	}
	return true
}

func jsonEqual(a, b json.RawMessage) bool {
	if bytes.Equal(a, b) {
		return true
	}
	var av, bv any
	if json.Unmarshal(a, &av) != nil || json.Unmarshal(b, &bv) != nil {
		return false
	}
	ac, _ := json.Marshal(av)
	bc, _ := json.Marshal(bv)
	return bytes.Equal(ac, bc)
}
