package portals

import (
	"reflect"
	"slices"
)

// Queries visit matching entities in ascending EntityId order, which is the
// order entities were spawned in. Systems that must process entities "in
// registration order" rely on this.
type Query1[A any] struct{ ecs *Ecs }
type Query2[A, B any] struct{ ecs *Ecs }
type Query3[A, B, C any] struct{ ecs *Ecs }
type Query4[A, B, C, D any] struct{ ecs *Ecs }

func MakeQuery1[A any](cmd *Commands) Query1[A]             { return Query1[A]{ecs: cmd.app.ecs} }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B]       { return Query2[A, B]{ecs: cmd.app.ecs} }
func MakeQuery3[A, B, C any](cmd *Commands) Query3[A, B, C] { return Query3[A, B, C]{ecs: cmd.app.ecs} }
func MakeQuery4[A, B, C, D any](cmd *Commands) Query4[A, B, C, D] {
	return Query4[A, B, C, D]{ecs: cmd.app.ecs}
}

// GetComponent looks up a single component of a main-world entity.
func GetComponent[T any](cmd *Commands, entityId EntityId) (*T, bool) {
	return getComponent[T](cmd.app.ecs, entityId)
}

// column resolves one query argument against an archetype: the typed column,
// whether the archetype lacks it but it is optional, and whether it matches at all.
type column[T any] struct {
	data    []T
	missing bool
}

func resolveColumn[T any](arch *archetype, id componentId, opt set[componentId]) (column[T], bool) {
	if data, ok := arch.columns[id]; ok {
		return column[T]{data: data.([]T)}, true
	}
	if _, ok := opt[id]; ok {
		return column[T]{missing: true}, true
	}
	return column[T]{}, false
}

func (c column[T]) at(r row) *T {
	if c.missing {
		return nil
	}
	return &c.data[r]
}

type match struct {
	entity EntityId
	arch   *archetype
	row    row
}

// collect returns every (entity, row) of archetypes accepted by keep, sorted by EntityId.
func collect(ecs *Ecs, keep func(*archetype) bool) []match {
	var res []match
	for _, arch := range ecs.archetypes {
		if !keep(arch) {
			continue
		}
		for eid, r := range arch.rows {
			res = append(res, match{entity: eid, arch: arch, row: r})
		}
	}
	slices.SortFunc(res, func(a, b match) int {
		switch {
		case a.entity < b.entity:
			return -1
		case a.entity > b.entity:
			return 1
		}
		return 0
	})
	return res
}

func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	id1 := componentIdOf[A](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	cols1 := map[*archetype]column[A]{}
	matches := collect(q.ecs, func(arch *archetype) bool {
		c1, ok := resolveColumn[A](arch, id1, opt)
		if ok {
			cols1[arch] = c1
		}
		return ok
	})

	for _, mt := range matches {
		if !m(mt.entity, cols1[mt.arch].at(mt.row)) {
			return
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	id1, id2 := componentIdOf[A](q.ecs), componentIdOf[B](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	cols1 := map[*archetype]column[A]{}
	cols2 := map[*archetype]column[B]{}
	matches := collect(q.ecs, func(arch *archetype) bool {
		c1, ok1 := resolveColumn[A](arch, id1, opt)
		c2, ok2 := resolveColumn[B](arch, id2, opt)
		if !ok1 || !ok2 {
			return false
		}
		cols1[arch], cols2[arch] = c1, c2
		return true
	})

	for _, mt := range matches {
		if !m(mt.entity, cols1[mt.arch].at(mt.row), cols2[mt.arch].at(mt.row)) {
			return
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	id1, id2, id3 := componentIdOf[A](q.ecs), componentIdOf[B](q.ecs), componentIdOf[C](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	cols1 := map[*archetype]column[A]{}
	cols2 := map[*archetype]column[B]{}
	cols3 := map[*archetype]column[C]{}
	matches := collect(q.ecs, func(arch *archetype) bool {
		c1, ok1 := resolveColumn[A](arch, id1, opt)
		c2, ok2 := resolveColumn[B](arch, id2, opt)
		c3, ok3 := resolveColumn[C](arch, id3, opt)
		if !ok1 || !ok2 || !ok3 {
			return false
		}
		cols1[arch], cols2[arch], cols3[arch] = c1, c2, c3
		return true
	})

	for _, mt := range matches {
		a := cols1[mt.arch].at(mt.row)
		b := cols2[mt.arch].at(mt.row)
		c := cols3[mt.arch].at(mt.row)
		if !m(mt.entity, a, b, c) {
			return
		}
	}
}

func (q Query4[A, B, C, D]) Map(m func(EntityId, *A, *B, *C, *D) bool, optionals ...any) {
	id1, id2 := componentIdOf[A](q.ecs), componentIdOf[B](q.ecs)
	id3, id4 := componentIdOf[C](q.ecs), componentIdOf[D](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	cols1 := map[*archetype]column[A]{}
	cols2 := map[*archetype]column[B]{}
	cols3 := map[*archetype]column[C]{}
	cols4 := map[*archetype]column[D]{}
	matches := collect(q.ecs, func(arch *archetype) bool {
		c1, ok1 := resolveColumn[A](arch, id1, opt)
		c2, ok2 := resolveColumn[B](arch, id2, opt)
		c3, ok3 := resolveColumn[C](arch, id3, opt)
		c4, ok4 := resolveColumn[D](arch, id4, opt)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			return false
		}
		cols1[arch], cols2[arch], cols3[arch], cols4[arch] = c1, c2, c3, c4
		return true
	})

	for _, mt := range matches {
		a := cols1[mt.arch].at(mt.row)
		b := cols2[mt.arch].at(mt.row)
		c := cols3[mt.arch].at(mt.row)
		d := cols4[mt.arch].at(mt.row)
		if !m(mt.entity, a, b, c, d) {
			return
		}
	}
}

// identifyOptionals takes zero values (or pointers to them) of the component
// types that may be absent from a matching entity.
func identifyOptionals(ecs *Ecs, components ...any) set[componentId] {
	res := make(set[componentId])
	for _, c := range components {
		res[ecs.getComponentId(componentType(c))] = struct{}{}
	}
	return res
}

func componentIdOf[T any](ecs *Ecs) componentId {
	return ecs.getComponentId(reflect.TypeFor[T]())
}
