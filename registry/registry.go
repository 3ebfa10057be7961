// Package registry implements the entity/component registry: typed
// storage keyed by (component-kind, entity), grounded on ecs_core.h's
// Registry, with reflect.Type standing in for typeid(Comp).hash_code().
package registry

import "reflect"

// Entity is a monotonically increasing identifier allocated by a
// Registry. Entity ids are never reused within a Registry's lifetime.
type Entity uint64

// Registry maps component kinds to per-entity component values. Each
// kind's storage is an independent map, so iterating one kind with
// ForEach never observes structural changes to another kind.
type Registry struct {
	lastID Entity
	stores map[reflect.Type]map[Entity]interface{}
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{stores: make(map[reflect.Type]map[Entity]interface{})}
}

// CreateEntity allocates and returns the next entity id.
func (r *Registry) CreateEntity() Entity {
	r.lastID++
	return r.lastID
}

func storeFor[K any](r *Registry) map[Entity]interface{} {
	typ := reflect.TypeOf((*K)(nil)).Elem()
	store, ok := r.stores[typ]
	if !ok {
		store = make(map[Entity]interface{})
		r.stores[typ] = store
	}
	return store
}

// Attach associates value with e under component kind K, overwriting any
// existing K component on e.
func Attach[K any](r *Registry, e Entity, value K) {
	storeFor[K](r)[e] = value
}

// Get returns e's K component and true, or the zero value and false if e
// has none.
func Get[K any](r *Registry, e Entity) (K, bool) {
	typ := reflect.TypeOf((*K)(nil)).Elem()
	store, ok := r.stores[typ]
	if !ok {
		var zero K
		return zero, false
	}
	v, ok := store[e]
	if !ok {
		var zero K
		return zero, false
	}
	return v.(K), true
}

// Detach removes e's K component, if present.
func Detach[K any](r *Registry, e Entity) {
	typ := reflect.TypeOf((*K)(nil)).Elem()
	if store, ok := r.stores[typ]; ok {
		delete(store, e)
	}
}

// ForEach visits every (entity, K-component) pair. Iteration order is
// unspecified but stable for the duration of a single call. The visitor
// must not attach or detach K components on r during iteration; doing so
// is undefined behavior, matching ecs_core.h's for_each contract.
func ForEach[K any](r *Registry, visit func(Entity, K)) {
	typ := reflect.TypeOf((*K)(nil)).Elem()
	store, ok := r.stores[typ]
	if !ok {
		return
	}
	for e, v := range store {
		visit(e, v.(K))
	}
}
