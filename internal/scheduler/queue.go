package scheduler

import (
	"container/heap"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/mod-bot/internal/domain/actions"
)

type item struct {
	id    uuid.UUID
	key   actions.Key
	due   time.Time
	index int
}

// queue min-heap по due + индекс по id для удаления при отмене.
type queue struct {
	items []*item
	byID  map[uuid.UUID]*item
}

func newQueue() *queue { return &queue{byID: make(map[uuid.UUID]*item)} }

func (q *queue) Len() int { return len(q.items) }

func (q *queue) Less(i, j int) bool { return q.items[i].due.Before(q.items[j].due) }

func (q *queue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

func (q *queue) Push(x any) {
	it := x.(*item)
	it.index = len(q.items)
	q.items = append(q.items, it)
}

func (q *queue) Pop() any {
	old := q.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	q.items = old[:n-1]
	it.index = -1
	return it
}

// upsert ставит или переносит будильник записи.
func (q *queue) upsert(id uuid.UUID, key actions.Key, due time.Time) {
	if it, ok := q.byID[id]; ok {
		it.due = due
		heap.Fix(q, it.index)
		return
	}
	it := &item{id: id, key: key, due: due}
	heap.Push(q, it)
	q.byID[id] = it
}

func (q *queue) remove(id uuid.UUID) bool {
	it, ok := q.byID[id]
	if !ok {
		return false
	}
	heap.Remove(q, it.index)
	delete(q.byID, id)
	return true
}

// popDue снимает все записи с due <= now.
func (q *queue) popDue(now time.Time) []*item {
	var out []*item
	for len(q.items) > 0 && !q.items[0].due.After(now) {
		it := heap.Pop(q).(*item)
		delete(q.byID, it.id)
		out = append(out, it)
	}
	return out
}

// next время ближайшего будильника, ok=false если очередь пуста.
func (q *queue) next() (time.Time, bool) {
	if len(q.items) == 0 {
		return time.Time{}, false
	}
	return q.items[0].due, true
}
