package replay

import (
	"container/heap"
	"time"
)

// firing is one scheduled transmission of frame index in loop round.
type firing struct {
	at    time.Time
	round int
	index int
}

// fireQueue is a min-heap of firings ordered by time, then round, then
// frame index, so equal times keep the sorted recording order.
type fireQueue []firing

var _ heap.Interface = (*fireQueue)(nil)

func (q fireQueue) Len() int { return len(q) }

func (q fireQueue) Less(i, j int) bool {
	if !q[i].at.Equal(q[j].at) {
		return q[i].at.Before(q[j].at)
	}
	if q[i].round != q[j].round {
		return q[i].round < q[j].round
	}
	return q[i].index < q[j].index
}

func (q fireQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *fireQueue) Push(x interface{}) { *q = append(*q, x.(firing)) }

func (q *fireQueue) Pop() interface{} {
	old := *q
	n := len(old)
	f := old[n-1]
	*q = old[:n-1]
	return f
}

func (q fireQueue) peek() firing { return q[0] }
