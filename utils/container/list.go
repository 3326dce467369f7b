package container

import (
	"fmt"
	"log"
)

// ListNode 车辆队列中的节点，S为车头沿进口道行驶的距离
type ListNode[T any] struct {
	parent     *List[T]
	prev, next *ListNode[T] // 前驱（更靠前的车）和后继（更靠后的车）
	S          float64
	Value      T
}

func (n *ListNode[T]) String() string {
	return fmt.Sprintf("Node{S:%v, Value:%+v}", n.S, n.Value)
}

// Prev 队列中更靠前的节点
func (n *ListNode[T]) Prev() *ListNode[T] {
	return n.prev
}

// Next 队列中更靠后的节点
func (n *ListNode[T]) Next() *ListNode[T] {
	return n.next
}

// Parent 节点所在的队列，不在任何队列中时为nil
func (n *ListNode[T]) Parent() *List[T] {
	return n.parent
}

// List 双向链表
// 功能：按到达顺序保存进口道上的车辆，头部为最靠近停车线的车辆
// 说明：车辆只能从尾部加入，可以从任意位置离开（或整体清空）
type List[T any] struct {
	ID         string
	head, tail *ListNode[T]
	length     int
}

func (l *List[T]) String() string {
	return fmt.Sprintf("List{ID:%v}", l.ID)
}

// Values 从头到尾的所有值
func (l *List[T]) Values() []T {
	values := make([]T, 0, l.length)
	for node := l.head; node != nil; node = node.next {
		values = append(values, node.Value)
	}
	return values
}

func (l *List[T]) Len() int {
	return l.length
}

// PushBack 新到达的车辆排到队尾
// 说明：节点已在其他队列中时panic
func (l *List[T]) PushBack(add *ListNode[T]) {
	if add.parent != nil {
		log.Panic("push back node who already in list")
	}
	add.parent = l
	add.prev, add.next = l.tail, nil
	if l.tail == nil {
		l.head = add
	} else {
		l.tail.next = add
	}
	l.tail = add
	l.length++
}

// Remove 从队列中移除节点
// 说明：节点不属于本队列时panic
func (l *List[T]) Remove(node *ListNode[T]) {
	if node.parent != l {
		log.Panic("remove node from wrong list")
	}
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	node.prev, node.next, node.parent = nil, nil, nil
	l.length--
}

// Clear 清空队列，所有节点可以重新加入其他队列
func (l *List[T]) Clear() {
	for node := l.head; node != nil; {
		next := node.next
		node.prev, node.next, node.parent = nil, nil, nil
		node = next
	}
	l.head, l.tail, l.length = nil, nil, 0
}

func (l *List[T]) First() *ListNode[T] {
	return l.head
}

func (l *List[T]) Last() *ListNode[T] {
	return l.tail
}
