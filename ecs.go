package portals

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"reflect"
	"slices"
	"sync"
)

type EntityId uint64
type archetypeId uint64
type archetypeKey []componentId
type componentId uint32
type row int
type set[T comparable] = map[T]struct{}

// Ecs is an archetype store: entities sharing the same component set live in
// one archetype whose columns are typed slices built through reflection.
type Ecs struct {
	archetypes  map[archetypeId]*archetype
	entityIndex map[EntityId]archetypeId

	idLock sync.Mutex
	nextId EntityId

	componentLock  sync.Mutex
	nextComponent  componentId
	componentIds   map[reflect.Type]componentId
	componentTypes map[componentId]reflect.Type
}

type archetype struct {
	id      archetypeId
	key     archetypeKey
	rows    map[EntityId]row
	columns map[componentId]any // []T per component
	size    int
	free    []row
}

func MakeEcs() Ecs {
	return Ecs{
		archetypes:     make(map[archetypeId]*archetype),
		entityIndex:    make(map[EntityId]archetypeId),
		componentIds:   make(map[reflect.Type]componentId),
		componentTypes: make(map[componentId]reflect.Type),
	}
}

func (ecs *Ecs) addEntity(components ...any) EntityId {
	return ecs.insertEntity(ecs.nextEntityId(), components...)
}

// insertEntity spawns the entity with the given id, or adds the components to it
// when it already exists.
func (ecs *Ecs) insertEntity(entityId EntityId, components ...any) EntityId {
	if ecs.hasEntity(entityId) {
		ecs.addComponents(entityId, components...)
		return entityId
	}

	archId, arch := ecs.getOrMakeArchetype(ecs.getArchetypeKey(components...))

	r := ecs.reserveRow(arch)
	arch.rows[entityId] = r
	for _, component := range components {
		ecs.writeComponent(arch, r, component)
	}
	ecs.entityIndex[entityId] = archId

	return entityId
}

func (ecs *Ecs) hasEntity(entityId EntityId) bool {
	_, ok := ecs.entityIndex[entityId]
	return ok
}

func (ecs *Ecs) removeEntity(entityId EntityId) {
	if !ecs.hasEntity(entityId) {
		return
	}
	ecs.releaseRow(entityId)
}

// clear drops every entity but keeps the component registry, so component ids
// stay stable across frames for a store that is rebuilt each frame.
func (ecs *Ecs) clear() {
	ecs.archetypes = make(map[archetypeId]*archetype)
	ecs.entityIndex = make(map[EntityId]archetypeId)
}

func (ecs *Ecs) addComponents(entityId EntityId, components ...any) {
	srcArchId, ok := ecs.entityIndex[entityId]
	if !ok {
		panic(fmt.Sprintf("entity %d does not exist", entityId))
	}
	srcArch := ecs.archetypes[srcArchId]
	srcRow := srcArch.rows[entityId]

	dstKey := dedupAndSortArchetypeKey(append(slices.Clone(srcArch.key), ecs.getArchetypeKey(components...)...))
	dstArchId, dstArch := ecs.getOrMakeArchetype(dstKey)

	if dstArchId == srcArchId {
		for _, component := range components {
			ecs.writeComponent(srcArch, srcRow, component)
		}
		return
	}

	dstRow := ecs.reserveRow(dstArch)
	ecs.moveComponents(srcArch, srcRow, dstArch, dstRow)
	for _, component := range components {
		ecs.writeComponent(dstArch, dstRow, component)
	}

	ecs.releaseRow(entityId)
	dstArch.rows[entityId] = dstRow
	ecs.entityIndex[entityId] = dstArchId
}

func (ecs *Ecs) removeComponents(entityId EntityId, components ...any) {
	srcArchId, ok := ecs.entityIndex[entityId]
	if !ok {
		return
	}
	srcArch := ecs.archetypes[srcArchId]
	srcRow := srcArch.rows[entityId]

	removeSet := make(set[componentId])
	for _, c := range components {
		removeSet[ecs.getComponentId(componentType(c))] = struct{}{}
	}

	dstKey := make(archetypeKey, 0, len(srcArch.key))
	for _, id := range srcArch.key {
		if _, drop := removeSet[id]; !drop {
			dstKey = append(dstKey, id)
		}
	}

	dstArchId, dstArch := ecs.getOrMakeArchetype(dstKey)
	if dstArchId == srcArchId {
		return
	}
	dstRow := ecs.reserveRow(dstArch)
	ecs.moveComponents(srcArch, srcRow, dstArch, dstRow)

	ecs.releaseRow(entityId)
	dstArch.rows[entityId] = dstRow
	ecs.entityIndex[entityId] = dstArchId
}

// moveComponents copies every column the destination shares with the source.
func (ecs *Ecs) moveComponents(srcArch *archetype, srcRow row, dstArch *archetype, dstRow row) {
	for _, id := range dstArch.key {
		src, ok := srcArch.columns[id]
		if !ok {
			continue
		}
		reflectSliceSet(dstArch.columns[id], int(dstRow), reflectSliceGet(src, int(srcRow)))
	}
}

func (ecs *Ecs) writeComponent(arch *archetype, r row, component any) {
	value := reflect.ValueOf(component)
	if value.Kind() == reflect.Pointer {
		value = value.Elem()
	}
	id := ecs.getComponentId(value.Type())
	reflectSliceSet(arch.columns[id], int(r), value)
}

func (ecs *Ecs) releaseRow(entityId EntityId) {
	arch := ecs.archetypes[ecs.entityIndex[entityId]]
	r := arch.rows[entityId]

	// Zero the row so released components do not pin memory.
	for id, column := range arch.columns {
		reflectSliceSet(column, int(r), reflect.Zero(ecs.componentTypes[id]))
	}
	arch.free = append(arch.free, r)

	delete(arch.rows, entityId)
	delete(ecs.entityIndex, entityId)
}

func (ecs *Ecs) reserveRow(arch *archetype) row {
	if n := len(arch.free); n > 0 {
		r := arch.free[n-1]
		arch.free = arch.free[:n-1]
		return r
	}

	r := row(arch.size)
	arch.size++
	for _, id := range arch.key {
		arch.columns[id] = reflectSliceAppend(arch.columns[id], reflect.Zero(ecs.componentTypes[id]))
	}
	return r
}

func (ecs *Ecs) getOrMakeArchetype(key archetypeKey) (archetypeId, *archetype) {
	id := getArchetypeId(key)
	if arch, ok := ecs.archetypes[id]; ok {
		return id, arch
	}

	arch := &archetype{
		id:      id,
		key:     key,
		rows:    make(map[EntityId]row),
		columns: make(map[componentId]any, len(key)),
	}
	for _, cid := range key {
		arch.columns[cid] = reflectSliceMake(ecs.componentTypes[cid])
	}

	ecs.archetypes[id] = arch
	return id, arch
}

// getArchetypeKey returns the canonical (sorted, deduplicated) key for a set of
// components. Components must be structs or pointers to structs.
func (ecs *Ecs) getArchetypeKey(components ...any) archetypeKey {
	key := make(archetypeKey, 0, len(components))
	for _, component := range components {
		t := componentType(component)
		if t.Kind() != reflect.Struct {
			panic(fmt.Sprintf("component should be a struct, got %s", t.Kind()))
		}
		key = append(key, ecs.getComponentId(t))
	}
	return dedupAndSortArchetypeKey(key)
}

func componentType(component any) reflect.Type {
	t := reflect.TypeOf(component)
	if t == nil {
		panic("component is nil")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func dedupAndSortArchetypeKey(key archetypeKey) archetypeKey {
	res := slices.Clone(key)
	slices.Sort(res)
	return slices.Compact(res)
}

func getArchetypeId(key archetypeKey) archetypeId {
	hash := fnv.New64a()
	b := make([]byte, 4)
	for _, cid := range key {
		binary.LittleEndian.PutUint32(b, uint32(cid))
		hash.Write(b)
	}
	return archetypeId(hash.Sum64())
}

func (ecs *Ecs) nextEntityId() EntityId {
	ecs.idLock.Lock()
	defer ecs.idLock.Unlock()

	id := ecs.nextId
	ecs.nextId++
	return id
}

func (ecs *Ecs) getComponentId(t reflect.Type) componentId {
	ecs.componentLock.Lock()
	defer ecs.componentLock.Unlock()

	if id, ok := ecs.componentIds[t]; ok {
		return id
	}
	id := ecs.nextComponent
	ecs.nextComponent++
	ecs.componentIds[t] = id
	ecs.componentTypes[id] = t
	return id
}

// getComponent returns a pointer into the entity's column. The pointer is valid
// until the next structural change of the store.
func getComponent[T any](ecs *Ecs, entityId EntityId) (*T, bool) {
	archId, ok := ecs.entityIndex[entityId]
	if !ok {
		return nil, false
	}
	arch := ecs.archetypes[archId]
	column, ok := arch.columns[ecs.getComponentId(reflect.TypeFor[T]())]
	if !ok {
		return nil, false
	}
	return &column.([]T)[arch.rows[entityId]], true
}
