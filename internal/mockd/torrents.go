package mockd

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Torrent is one registry entry. Status always uses the sequential codes;
// the daemon translates on the way out for legacy rpc versions.
type Torrent struct {
	ID             int
	Name           string
	HashString     string
	DownloadDir    string
	Status         int
	TotalSize      int64
	HaveValid      int64
	PercentDone    float64
	DoneDate       int64
	PeersConnected int
	ETA            int64
	Labels         []string
	AddedAt        time.Time
}

// TorrentRegistry stores torrents by id and hash.
type TorrentRegistry struct {
	mu     sync.RWMutex
	repo   map[int]Torrent
	byHash map[string]int
	nextID int
}

func NewTorrentRegistry() *TorrentRegistry {
	return &TorrentRegistry{
		repo:   make(map[int]Torrent),
		byHash: make(map[string]int),
		nextID: 1,
	}
}

// Add stores t under a fresh id. A torrent with the same hash is returned
// unchanged with duplicate set.
func (r *TorrentRegistry) Add(t Torrent) (Torrent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hash := strings.ToLower(strings.TrimSpace(t.HashString))
	if id, ok := r.byHash[hash]; ok && hash != "" {
		return r.repo[id], true
	}
	t.ID = r.nextID
	t.HashString = hash
	if t.AddedAt.IsZero() {
		t.AddedAt = time.Now()
	}
	r.nextID++
	r.repo[t.ID] = t
	if hash != "" {
		r.byHash[hash] = t.ID
	}
	return t, false
}

// Get returns a torrent by id.
func (r *TorrentRegistry) Get(id int) (Torrent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.repo[id]
	return t, ok
}

// Resolve maps wire ids (numbers or hashes) to registry ids. A nil
// selector selects every torrent; unknown ids are skipped.
func (r *TorrentRegistry) Resolve(selector []any) []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if selector == nil {
		out := make([]int, 0, len(r.repo))
		for id := range r.repo {
			out = append(out, id)
		}
		sort.Ints(out)
		return out
	}
	seen := make(map[int]bool, len(selector))
	out := make([]int, 0, len(selector))
	for _, raw := range selector {
		id, ok := r.lookup(raw)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (r *TorrentRegistry) lookup(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		_, ok := r.repo[int(v)]
		return int(v), ok
	case int:
		_, ok := r.repo[v]
		return v, ok
	case string:
		id, ok := r.byHash[strings.ToLower(strings.TrimSpace(v))]
		return id, ok
	default:
		return 0, false
	}
}

// Update applies fn to the torrent with id.
func (r *TorrentRegistry) Update(id int, fn func(*Torrent)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.repo[id]
	if !ok {
		return false
	}
	fn(&t)
	r.repo[id] = t
	return true
}

func (r *TorrentRegistry) Remove(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.repo[id]
	if !ok {
		return false
	}
	delete(r.repo, id)
	delete(r.byHash, t.HashString)
	return true
}

// All returns a snapshot ordered by id.
func (r *TorrentRegistry) All() []Torrent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Torrent, 0, len(r.repo))
	for _, t := range r.repo {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *TorrentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.repo)
}
