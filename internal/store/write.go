package store

import "fmt"

type WriteKind int

const (
	WritePut WriteKind = iota + 1
	WriteUpdate
	WriteDelete
	WriteCheck
)

// Write is one element of a transaction.
type Write struct {
	Kind      WriteKind
	Key       Key
	Item      Item
	Set       Item
	Remove    []string
	Condition *Condition
}

func PutWrite(item Item, cond *Condition) Write {
	key, _ := item.Key()
	return Write{Kind: WritePut, Key: key, Item: item, Condition: cond}
}

func UpdateWrite(key Key, set Item, remove []string, cond *Condition) Write {
	return Write{Kind: WriteUpdate, Key: key, Set: set, Remove: remove, Condition: cond}
}

func DeleteWrite(key Key, cond *Condition) Write {
	return Write{Kind: WriteDelete, Key: key, Condition: cond}
}

// CheckWrite asserts a condition on an item without changing it.
func CheckWrite(key Key, cond *Condition) Write {
	return Write{Kind: WriteCheck, Key: key, Condition: cond}
}

// apply evaluates the condition against current and returns the next state
// of the item. A nil result means the item is absent afterwards.
func (w Write) apply(current Item) (Item, error) {
	if !w.Condition.Check(current) {
		return nil, ErrConditionFailed
	}
	switch w.Kind {
	case WritePut:
		return w.Item.Clone(), nil
	case WriteUpdate:
		next := current.Clone()
		if next == nil {
			next = Item{}
		}
		for name, value := range w.Set {
			if name == AttrPK || name == AttrSK {
				continue
			}
			next[name] = value
		}
		for _, name := range w.Remove {
			if name == AttrPK || name == AttrSK {
				continue
			}
			delete(next, name)
		}
		return next.WithKey(w.Key), nil
	case WriteDelete:
		return nil, nil
	case WriteCheck:
		return current, nil
	default:
		return nil, fmt.Errorf("%w: unknown write kind %d", ErrInvalidItem, w.Kind)
	}
}

func validateWrites(writes []Write) error {
	if len(writes) == 0 {
		return fmt.Errorf("%w: empty transaction", ErrInvalidItem)
	}
	if len(writes) > MaxTransactionWrites {
		return ErrTooManyWrites
	}
	seen := make(map[Key]struct{}, len(writes))
	for i, w := range writes {
		if w.Key.PK == "" || w.Key.SK == "" {
			return fmt.Errorf("%w: write %d has no key", ErrInvalidItem, i)
		}
		if w.Kind == WritePut {
			key, err := w.Item.Key()
			if err != nil {
				return err
			}
			if key != w.Key {
				return fmt.Errorf("%w: write %d key mismatch", ErrInvalidItem, i)
			}
		}
		if _, dup := seen[w.Key]; dup {
			return ErrDuplicateWrite
		}
		seen[w.Key] = struct{}{}
	}
	return nil
}
