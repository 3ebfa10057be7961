package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type position struct{ X, Y int }
type label string

func TestCreateEntityIsMonotonic(t *testing.T) {
	r := New()
	a := r.CreateEntity()
	b := r.CreateEntity()
	assert.Less(t, a, b)
}

func TestAttachGetDetach(t *testing.T) {
	r := New()
	e := r.CreateEntity()

	_, ok := Get[position](r, e)
	assert.False(t, ok)

	Attach(r, e, position{1, 2})
	got, ok := Get[position](r, e)
	assert.True(t, ok)
	assert.Equal(t, position{1, 2}, got)

	Attach(r, e, position{3, 4})
	got, ok = Get[position](r, e)
	assert.True(t, ok)
	assert.Equal(t, position{3, 4}, got)

	Detach[position](r, e)
	_, ok = Get[position](r, e)
	assert.False(t, ok)
}

func TestComponentKindsAreIndependent(t *testing.T) {
	r := New()
	e := r.CreateEntity()

	Attach(r, e, position{1, 1})
	Attach(r, e, label("bus-10"))

	_, ok := Get[position](r, e)
	assert.True(t, ok)
	l, ok := Get[label](r, e)
	assert.True(t, ok)
	assert.Equal(t, label("bus-10"), l)

	Detach[position](r, e)
	_, ok = Get[position](r, e)
	assert.False(t, ok)
	_, ok = Get[label](r, e)
	assert.True(t, ok, "detaching one kind must not affect another")
}

func TestForEachVisitsAllEntitiesOfAKind(t *testing.T) {
	r := New()
	var entities []Entity
	for i := 0; i < 5; i++ {
		e := r.CreateEntity()
		Attach(r, e, position{X: int(e)})
		entities = append(entities, e)
	}

	visited := make(map[Entity]position)
	ForEach(r, func(e Entity, p position) {
		visited[e] = p
	})

	assert.Len(t, visited, len(entities))
	for _, e := range entities {
		assert.Equal(t, int(e), visited[e].X)
	}
}
