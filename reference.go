package replica

import (
	"context"
	"fmt"
)

// FieldRef locates a field slot: the field plus an array index, or -1 for
// a scalar field.
type FieldRef struct {
	Field *Field
	Index int
}

// ObjectReference is a shared object captured from a pointer field.
type ObjectReference struct {
	FieldRef
	Object Reflectable
}

// LevelRecord holds what one type level of an object references.
type LevelRecord struct {
	Type       *Type
	References []ObjectReference
	Children   []*ObjectReferenceRecord
}

// ObjectReferenceRecord mirrors the field structure of one object, holding
// the shared objects its pointer fields referenced at gather time and a
// nested record for each value-owned sub-object.
//
// Levels appear in gather order, most-derived first; a level is present only
// if it recorded something. The record borrows its references from the
// source graph and owns nothing else.
type ObjectReferenceRecord struct {
	FieldRef
	Levels []LevelRecord
}

// Count returns the number of references captured in r and its children.
func (r *ObjectReferenceRecord) Count() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, lv := range r.Levels {
		n += len(lv.References)
		for _, child := range lv.Children {
			n += child.Count()
		}
	}
	return n
}

// referencer gathers and restores reference records.
type referencer struct {
	ctx context.Context
	reg *Registry
}

// gather records the pointer fields reachable from obj without following
// them. It fires the serialization hooks of every level, exactly as
// encoding would, and never mutates obj.
func (g *referencer) gather(obj Reflectable, rec *ObjectReferenceRecord) error {
	if isNil(obj) {
		return nil
	}
	t, err := g.reg.LookupInstance(obj)
	if err != nil {
		return err
	}

	return bracket(g.ctx, t.levels(obj), (*Type).onSerializationStarted, (*Type).onSerializationEnded, func(lv level) error {
		cur := LevelRecord{Type: lv.typ}
		for _, f := range lv.typ.fields {
			if err := g.gatherField(lv, f, &cur); err != nil {
				return err
			}
		}
		if len(cur.References) > 0 || len(cur.Children) > 0 {
			rec.Levels = append(rec.Levels, cur)
		}
		return nil
	})
}

func (g *referencer) gatherField(lv level, f *Field, cur *LevelRecord) error {
	visit := func(v any, index int) error {
		if isNil(v) {
			return nil
		}
		ref := FieldRef{Field: f, Index: index}
		switch f.kind {
		case KindReflectablePtr:
			cur.References = append(cur.References, ObjectReference{FieldRef: ref, Object: v})
		case KindReflectable:
			child := &ObjectReferenceRecord{FieldRef: ref}
			if err := g.gather(v, child); err != nil {
				return newFieldError("gather", lv.typ, f, index, err)
			}
			cur.Children = append(cur.Children, child)
		}
		return nil
	}

	if f.kind != KindReflectablePtr && f.kind != KindReflectable {
		return nil
	}
	if !f.array {
		return visit(f.get(lv.obj), -1)
	}
	n := f.size(lv.obj)
	for i := 0; i < n; i++ {
		if err := visit(f.getAt(lv.obj, i), i); err != nil {
			return err
		}
	}
	return nil
}

// restore re-attaches the references captured in rec onto obj, a freshly
// decoded copy of the gathered object.
//
// Pass one restores direct references, base-most level first, inside
// deserialization hooks. Pass two walks into value-owned children in gather
// order, inside serialization hooks.
func (g *referencer) restore(obj Reflectable, rec *ObjectReferenceRecord) error {
	if isNil(obj) || rec == nil || len(rec.Levels) == 0 {
		return nil
	}
	t, err := g.reg.LookupInstance(obj)
	if err != nil {
		return err
	}
	views := make(map[*Type]Reflectable)
	for _, lv := range t.levels(obj) {
		views[lv.typ] = lv.obj
	}
	viewOf := func(lt *Type) (Reflectable, error) {
		view, ok := views[lt]
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a level of %s", ErrTypeMismatch, lt.name, t.name)
		}
		return view, nil
	}

	for i := len(rec.Levels) - 1; i >= 0; i-- {
		lr := &rec.Levels[i]
		if len(lr.References) == 0 {
			continue
		}
		view, err := viewOf(lr.Type)
		if err != nil {
			return err
		}
		lr.Type.onDeserializationStarted(g.ctx, view)
		err = g.restoreReferences(view, lr)
		lr.Type.onDeserializationEnded(g.ctx, view)
		if err != nil {
			return err
		}
	}

	for i := range rec.Levels {
		lr := &rec.Levels[i]
		if len(lr.Children) == 0 {
			continue
		}
		view, err := viewOf(lr.Type)
		if err != nil {
			return err
		}
		lr.Type.onSerializationStarted(g.ctx, view)
		err = g.restoreChildren(view, lr)
		lr.Type.onSerializationEnded(g.ctx, view)
		if err != nil {
			return err
		}
	}
	return nil
}

func (g *referencer) restoreReferences(view Reflectable, lr *LevelRecord) error {
	for _, ref := range lr.References {
		var err error
		if ref.Field.array {
			err = ref.Field.setAt(view, ref.Index, ref.Object)
		} else {
			err = ref.Field.set(view, ref.Object)
		}
		if err != nil {
			return newFieldError("restore", lr.Type, ref.Field, ref.Index, err)
		}
	}
	return nil
}

func (g *referencer) restoreChildren(view Reflectable, lr *LevelRecord) error {
	for _, child := range lr.Children {
		var nested Reflectable
		if child.Field.array {
			nested = child.Field.getAt(view, child.Index)
		} else {
			nested = child.Field.get(view)
		}
		if err := g.restore(nested, child); err != nil {
			return newFieldError("restore", lr.Type, child.Field, child.Index, err)
		}
	}
	return nil
}
