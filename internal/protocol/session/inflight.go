package session

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// PendingCall tracks one RPC call that has not returned yet.
type PendingCall struct {
	CallID        uint64
	Method        string
	Attempts      int
	Refreshes     int
	StartedAt     time.Time
	LastAttemptAt time.Time
	LastError     string
}

// InFlight stores pending calls by call id.
type InFlight struct {
	mu    sync.RWMutex
	items map[uint64]PendingCall
}

func NewInFlight() *InFlight {
	return &InFlight{
		items: make(map[uint64]PendingCall),
	}
}

func (f *InFlight) Begin(callID uint64, method string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[callID] = PendingCall{
		CallID:    callID,
		Method:    strings.TrimSpace(method),
		StartedAt: at,
	}
}

// MarkAttempt records one POST for the call.
func (f *InFlight) MarkAttempt(callID uint64, at time.Time) (PendingCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[callID]
	if !ok {
		return PendingCall{}, false
	}
	item.Attempts++
	item.LastAttemptAt = at
	f.items[callID] = item
	return item, true
}

// MarkRefresh records a stale-session rejection and the error it produced.
func (f *InFlight) MarkRefresh(callID uint64, lastErr string) (PendingCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[callID]
	if !ok {
		return PendingCall{}, false
	}
	item.Refreshes++
	item.LastError = strings.TrimSpace(lastErr)
	f.items[callID] = item
	return item, true
}

func (f *InFlight) End(callID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, callID)
}

func (f *InFlight) Get(callID uint64) (PendingCall, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	item, ok := f.items[callID]
	return item, ok
}

// List returns a snapshot ordered by call id.
func (f *InFlight) List() []PendingCall {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]PendingCall, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CallID < out[j].CallID
	})
	return out
}
