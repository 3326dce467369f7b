package container

import "container/heap"

type item[T any] struct {
	value    T
	priority float64
}

// items 按优先级排列的最小堆，实现heap.Interface
type items[T any] []item[T]

func (h items[T]) Len() int           { return len(h) }
func (h items[T]) Less(i, j int) bool { return h[i].priority < h[j].priority }
func (h items[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *items[T]) Push(x any) {
	*h = append(*h, x.(item[T]))
}

func (h *items[T]) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = item[T]{}
	*h = old[:n-1]
	return it
}

// PriorityQueue 优先队列
// 功能：按优先级（越小越先）保存待处理事件，例如各进口道下一次车辆到达的时刻
type PriorityQueue[T any] struct {
	h items[T]
}

func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{}
}

func (q *PriorityQueue[T]) Len() int {
	return len(q.h)
}

// FirstPriority 最小的优先级，不移除元素，队列为空时panic
func (q *PriorityQueue[T]) FirstPriority() float64 {
	return q.h[0].priority
}

// Clear 清空队列
func (q *PriorityQueue[T]) Clear() {
	clear(q.h)
	q.h = q.h[:0]
}

// HeapPush 加入元素并维护堆结构
func (q *PriorityQueue[T]) HeapPush(value T, priority float64) {
	heap.Push(&q.h, item[T]{value: value, priority: priority})
}

// HeapPop 移除并返回优先级最小的元素
func (q *PriorityQueue[T]) HeapPop() (value T, priority float64) {
	it := heap.Pop(&q.h).(item[T])
	return it.value, it.priority
}
