package template

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/syssam/sqltmpl"
	"github.com/syssam/sqltmpl/schema"
)

// JoinDeriver derives a join predicate between two record types from
// their FK/PK relationship, preferring a FK declared on the target side
// and falling back to one declared on the source side (§4.7).
type JoinDeriver struct {
	introspector schema.SchemaIntrospector
}

// NewJoinDeriver returns a JoinDeriver backed by introspector.
func NewJoinDeriver(introspector schema.SchemaIntrospector) *JoinDeriver {
	return &JoinDeriver{introspector: introspector}
}

// Predicate is one `left = right` conjunct of a derived join condition,
// named by unqualified column; the caller qualifies each side with the
// appropriate alias.
type Predicate struct {
	LeftColumn  string
	RightColumn string
}

// Derive computes the join predicates between source and target (§4.7
// steps 1-5). The returned predicates read "target.<col> = source.<col>"
// when the FK lives on target, or "source.<col> = target.<col>" when it
// lives on source instead — callers distinguish the two by FKOnTarget.
type DerivedJoin struct {
	Predicates []Predicate
	FKOnTarget bool
}

func (d *JoinDeriver) Derive(source, target reflect.Type) (DerivedJoin, error) {
	fkCols, pkCols, err := d.matchForeignKey(target, source)
	if err == nil {
		preds := make([]Predicate, len(fkCols))
		for i := range fkCols {
			preds[i] = Predicate{LeftColumn: fkCols[i].Name, RightColumn: pkCols[i].Name}
		}
		return DerivedJoin{Predicates: preds, FKOnTarget: true}, nil
	}

	fkCols, pkCols, err2 := d.matchForeignKey(source, target)
	if err2 == nil {
		preds := make([]Predicate, len(fkCols))
		for i := range fkCols {
			preds[i] = Predicate{LeftColumn: fkCols[i].Name, RightColumn: pkCols[i].Name}
		}
		return DerivedJoin{Predicates: preds, FKOnTarget: false}, nil
	}

	for _, e := range []error{err, err2} {
		if errors.Is(e, sqltmpl.ErrArityMismatch) {
			return DerivedJoin{}, e
		}
	}
	return DerivedJoin{}, sqltmpl.NewSchemaError(source.String(), fmt.Sprintf("no matching foreign key between %s and %s", source, target))
}

// matchForeignKey looks for a FK on referring pointing at owner, and
// returns it paired with owner's PK column (§4.7 step 5: "composite keys
// align positionally" — the reference SchemaIntrospector resolves a
// single FK column per relationship, so composite keys beyond arity 1
// surface as the arity-mismatch error rather than silently truncating).
func (d *JoinDeriver) matchForeignKey(referring, owner reflect.Type) (fk []schema.Column, pk []schema.Column, err error) {
	pkCols, err := d.introspector.PrimaryKeys(owner, nil)
	if err != nil {
		return nil, nil, err
	}

	col, ok, err := d.introspector.FindForeignKey(referring, owner, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, sqltmpl.NewSchemaError(referring.String(), "no foreign key referencing "+owner.String())
	}
	if len(pkCols) != 1 {
		return nil, nil, sqltmpl.NewTemplateErrorWrap("join", fmt.Sprintf("foreign key arity 1 does not match primary key arity %d between %s and %s", len(pkCols), referring, owner), sqltmpl.ErrArityMismatch)
	}
	return []schema.Column{col}, pkCols, nil
}
