package container_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/adaptive-signal-sim/utils/container"
)

type testNode = container.ListNode[string]

func keys(l *container.List[string]) []float64 {
	var s []float64
	for node := l.First(); node != nil; node = node.Next() {
		s = append(s, node.S)
	}
	return s
}

func TestListInit(t *testing.T) {
	l := &container.List[string]{}
	assert.Nil(t, l.First())
	assert.Nil(t, l.Last())
	assert.Empty(t, l.Values())
	assert.Equal(t, 0, l.Len())
}

func TestListOperation(t *testing.T) {
	l := &container.List[string]{}

	// test: push back

	n3 := &testNode{S: 3, Value: "c"}
	n2 := &testNode{S: 2, Value: "b"}
	n15 := &testNode{S: 1.5, Value: "x"}
	n1 := &testNode{S: 1, Value: "a"}
	for _, n := range []*testNode{n3, n2, n15, n1} {
		l.PushBack(n)
	}
	assert.Equal(t, 4, l.Len())
	assert.Equal(t, []float64{3, 2, 1.5, 1}, keys(l))
	assert.Equal(t, []string{"c", "b", "x", "a"}, l.Values())

	// test: first last next prev

	n := l.First()
	assert.Equal(t, n3, n)
	assert.Nil(t, n.Prev())
	n = n.Next()
	assert.Equal(t, n2, n)
	assert.Equal(t, n, n.Next().Prev())
	assert.Equal(t, n, n.Prev().Next())
	assert.Equal(t, n1, l.Last())
	assert.Equal(t, l, n.Parent())

	// test: remove

	l.Remove(n3)
	assert.Nil(t, n3.Parent())
	assert.Equal(t, n2, l.First())
	assert.Nil(t, n2.Prev())
	l.Remove(n15)
	assert.Equal(t, []float64{2, 1}, keys(l))
	l.Remove(n1)
	assert.Equal(t, n2, l.Last())
	assert.Equal(t, 1, l.Len())

	// test: clear

	l.PushBack(n1)
	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Nil(t, l.First())
	assert.Nil(t, n1.Parent())
	assert.Nil(t, n2.Next())
	// 清空后节点可以重新入队
	l.PushBack(n1)
	assert.Equal(t, n1, l.First())
	assert.Equal(t, n1, l.Last())
}

func TestListPanicsOnForeignNode(t *testing.T) {
	a := &container.List[string]{ID: "a"}
	b := &container.List[string]{ID: "b"}
	n := &testNode{S: 1}
	a.PushBack(n)
	assert.Panics(t, func() { b.Remove(n) })
	assert.Panics(t, func() { b.PushBack(n) })
}

func TestPriorityQueue(t *testing.T) {
	q := container.NewPriorityQueue[string]()
	q.HeapPush("c", 3)
	q.HeapPush("a", 1)
	q.HeapPush("b", 2)
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 1., q.FirstPriority())
	for i, want := range []string{"a", "b", "c"} {
		v, p := q.HeapPop()
		assert.Equal(t, want, v)
		assert.Equal(t, float64(i+1), p)
	}
	assert.Equal(t, 0, q.Len())

	q.HeapPush("d", 4)
	q.Clear()
	assert.Equal(t, 0, q.Len())
}
