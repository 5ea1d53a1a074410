package list

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	id   int
	node Node[widget]
}

func TestPushBackFIFO(t *testing.T) {
	var l List[widget]
	a := &widget{id: 1}
	a.node = NewNode(a)
	b := &widget{id: 2}
	b.node = NewNode(b)

	l.PushBack(&a.node)
	l.PushBack(&b.node)
	require.Equal(t, 2, l.Len())

	first := l.PopFront()
	assert.Equal(t, 1, first.Owner().id)
	second := l.PopFront()
	assert.Equal(t, 2, second.Owner().id)
	assert.True(t, l.Empty())
}

func TestRemoveMiddle(t *testing.T) {
	var l List[widget]
	items := make([]*widget, 3)
	for i := range items {
		items[i] = &widget{id: i}
		items[i].node = NewNode(items[i])
		l.PushBack(&items[i].node)
	}
	l.Remove(&items[1].node)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 0, l.PopFront().Owner().id)
	assert.Equal(t, 2, l.PopFront().Owner().id)
}

func TestPushBackAlreadyLinkedPanics(t *testing.T) {
	var l List[widget]
	a := &widget{id: 1}
	a.node = NewNode(a)
	l.PushBack(&a.node)
	assert.Panics(t, func() { l.PushBack(&a.node) })
}

func TestFind(t *testing.T) {
	var l List[widget]
	for i := 0; i < 3; i++ {
		w := &widget{id: i}
		w.node = NewNode(w)
		l.PushBack(&w.node)
	}
	found := l.Find(func(w *widget) bool { return w.id == 2 })
	require.NotNil(t, found)
	assert.Equal(t, 2, found.id)
	assert.Nil(t, l.Find(func(w *widget) bool { return w.id == 99 }))
}
