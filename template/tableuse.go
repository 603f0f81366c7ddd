package template

import "reflect"

// TableUse tracks which record types are referenced anywhere in the
// template of the current compilation (the compiler marks them all before
// emitting any element), used to prune an
// AutoJoin's JoinElement when nothing references its target type (§4.7,
// §8 "Join pruning", Glossary).
type TableUse struct {
	used map[reflect.Type]bool
}

// NewTableUse returns an empty TableUse tracker.
func NewTableUse() *TableUse {
	return &TableUse{used: make(map[reflect.Type]bool)}
}

// Mark records that t was referenced by some element.
func (u *TableUse) Mark(t reflect.Type) {
	u.used[t] = true
}

// Used reports whether t has been marked.
func (u *TableUse) Used(t reflect.Type) bool {
	return u.used[t]
}
