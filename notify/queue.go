package notify

import (
	"sort"
	"sync"

	"github.com/saiset-co/sai-freshness/types"
)

// requestQueue orders pending notifications by priority, preserving
// submission order within a priority. Arrivals during a drain simply join
// the next sort pass; there is no strict global FIFO across priorities.
type requestQueue struct {
	mu    sync.Mutex
	items []types.NotificationRequest
}

func newRequestQueue() *requestQueue {
	return &requestQueue{}
}

func (q *requestQueue) push(request types.NotificationRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, request)
}

func (q *requestQueue) pop() (types.NotificationRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return types.NotificationRequest{}, false
	}

	sort.SliceStable(q.items, func(i, j int) bool {
		return q.items[i].Priority > q.items[j].Priority
	})

	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

func (q *requestQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

func (q *requestQueue) clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = nil
}
