package domain

import "container/heap"

// RebalanceItem is a position waiting to be rebalanced.
type RebalanceItem struct {
	PositionID string
	Loss       float64
	index      int
}

type itemHeap []*RebalanceItem

func (h itemHeap) Len() int           { return len(h) }
func (h itemHeap) Less(i, j int) bool { return h[i].Loss > h[j].Loss }
func (h itemHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *itemHeap) Push(x any) {
	item := x.(*RebalanceItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

// RebalanceQueue pops the position with the largest impermanent loss first.
// A position is queued at most once; pushing it again updates its loss.
// Not safe for concurrent use.
type RebalanceQueue struct {
	items itemHeap
	byID  map[string]*RebalanceItem
}

// NewRebalanceQueue returns an empty queue.
func NewRebalanceQueue() *RebalanceQueue {
	return &RebalanceQueue{byID: make(map[string]*RebalanceItem)}
}

// Push queues positionID or updates its loss.
func (q *RebalanceQueue) Push(positionID string, loss float64) {
	if item, ok := q.byID[positionID]; ok {
		item.Loss = loss
		heap.Fix(&q.items, item.index)
		return
	}
	item := &RebalanceItem{PositionID: positionID, Loss: loss}
	heap.Push(&q.items, item)
	q.byID[positionID] = item
}

// Pop removes the highest-loss position.
func (q *RebalanceQueue) Pop() (RebalanceItem, bool) {
	if len(q.items) == 0 {
		return RebalanceItem{}, false
	}
	item := heap.Pop(&q.items).(*RebalanceItem)
	delete(q.byID, item.PositionID)
	return *item, true
}

// Remove drops positionID if queued.
func (q *RebalanceQueue) Remove(positionID string) {
	if item, ok := q.byID[positionID]; ok {
		heap.Remove(&q.items, item.index)
		delete(q.byID, positionID)
	}
}

// Len is the number of queued positions.
func (q *RebalanceQueue) Len() int { return len(q.items) }
