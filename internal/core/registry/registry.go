// Package registry holds the process-wide pod state: pods by id, per-pod
// operation locks, cancellation tokens for background work, and log buffers.
//
// Everything is guarded by one mutex that is only held for bookkeeping.
// Callers must not perform blocking I/O inside Update.
package registry

import (
	"sort"
	"sync"

	"github.com/snjax/nook/internal/core/domain"
)

// ProxyKey identifies a port proxy by pod and container port.
type ProxyKey struct {
	PodID string
	Port  uint16
}

type Registry struct {
	mu          sync.Mutex
	pods        map[string]*domain.Pod
	podLocks    map[string]*sync.Mutex
	monitors    map[string]*Token
	builds      map[string]*Token
	proxies     map[ProxyKey]*Token
	logs        map[string]*LogBuffer
	logCapacity int
}

func New(logCapacity int) *Registry {
	return &Registry{
		pods:        make(map[string]*domain.Pod),
		podLocks:    make(map[string]*sync.Mutex),
		monitors:    make(map[string]*Token),
		builds:      make(map[string]*Token),
		proxies:     make(map[ProxyKey]*Token),
		logs:        make(map[string]*LogBuffer),
		logCapacity: logCapacity,
	}
}

// Update runs fn with the registry lock held. Pointers obtained from the Txn
// must not escape fn.
func (r *Registry) Update(fn func(tx *Txn) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(&Txn{r: r})
}

// Get returns a copy of the pod with the given id.
func (r *Registry) Get(id string) (domain.Pod, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pods[id]
	if !ok {
		return domain.Pod{}, false
	}
	return p.Clone(), true
}

// List returns copies of all pods ordered by name, then id.
func (r *Registry) List() []domain.Pod {
	r.mu.Lock()
	out := make([]domain.Pod, 0, len(r.pods))
	for _, p := range r.pods {
		out = append(out, p.Clone())
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AppendLogs pushes entries into the pod's log buffer, creating it on first
// use. It reports false if the pod no longer exists.
func (r *Registry) AppendLogs(podID string, entries []domain.LogEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pods[podID]; !ok {
		return false
	}
	(&Txn{r: r}).Logs(podID).PushBatch(entries)
	return true
}

// Txn is the view of the registry available inside Update.
type Txn struct {
	r *Registry
}

// Pod returns the live pod entry. The pointer is only valid inside Update.
func (tx *Txn) Pod(id string) (*domain.Pod, bool) {
	p, ok := tx.r.pods[id]
	return p, ok
}

// FindPod returns the first pod for which match reports true.
func (tx *Txn) FindPod(match func(*domain.Pod) bool) (*domain.Pod, bool) {
	for _, p := range tx.r.pods {
		if match(p) {
			return p, true
		}
	}
	return nil, false
}

func (tx *Txn) Insert(p domain.Pod) {
	tx.r.pods[p.ID] = &p
}

// Delete removes the pod together with its lock, log buffer and tokens. The
// removed tokens are cancelled and returned so the caller can wait on them
// after releasing the registry lock.
func (tx *Txn) Delete(id string) []*Token {
	var cancelled []*Token
	if t := tx.TakeMonitor(id); t != nil {
		cancelled = append(cancelled, t)
	}
	if t := tx.TakeBuild(id); t != nil {
		cancelled = append(cancelled, t)
	}
	cancelled = append(cancelled, tx.TakeProxies(id)...)
	for _, t := range cancelled {
		t.Cancel()
	}
	delete(tx.r.pods, id)
	delete(tx.r.podLocks, id)
	delete(tx.r.logs, id)
	return cancelled
}

// PodLock returns the operation lock for id, creating it on first use.
func (tx *Txn) PodLock(id string) *sync.Mutex {
	l, ok := tx.r.podLocks[id]
	if !ok {
		l = &sync.Mutex{}
		tx.r.podLocks[id] = l
	}
	return l
}

// Logs returns the pod's log buffer, creating it on first use.
func (tx *Txn) Logs(id string) *LogBuffer {
	b, ok := tx.r.logs[id]
	if !ok {
		b = NewLogBuffer(tx.r.logCapacity)
		tx.r.logs[id] = b
	}
	return b
}

// SetMonitor stores the monitoring token for a pod, cancelling any previous one.
func (tx *Txn) SetMonitor(id string, t *Token) {
	if old, ok := tx.r.monitors[id]; ok && old != t {
		old.Cancel()
	}
	tx.r.monitors[id] = t
}

// TakeMonitor removes and returns the monitoring token, or nil.
func (tx *Txn) TakeMonitor(id string) *Token {
	t, ok := tx.r.monitors[id]
	if !ok {
		return nil
	}
	delete(tx.r.monitors, id)
	return t
}

func (tx *Txn) Monitor(id string) *Token { return tx.r.monitors[id] }

// SetBuild stores the build token for a pod, cancelling any previous one.
func (tx *Txn) SetBuild(id string, t *Token) {
	if old, ok := tx.r.builds[id]; ok && old != t {
		old.Cancel()
	}
	tx.r.builds[id] = t
}

func (tx *Txn) Build(id string) *Token { return tx.r.builds[id] }

func (tx *Txn) TakeBuild(id string) *Token {
	t, ok := tx.r.builds[id]
	if !ok {
		return nil
	}
	delete(tx.r.builds, id)
	return t
}

// SetProxy stores the proxy token for key, cancelling any previous one.
func (tx *Txn) SetProxy(key ProxyKey, t *Token) {
	if old, ok := tx.r.proxies[key]; ok && old != t {
		old.Cancel()
	}
	tx.r.proxies[key] = t
}

func (tx *Txn) Proxy(key ProxyKey) *Token { return tx.r.proxies[key] }

func (tx *Txn) TakeProxy(key ProxyKey) *Token {
	t, ok := tx.r.proxies[key]
	if !ok {
		return nil
	}
	delete(tx.r.proxies, key)
	return t
}

// ProxyCount reports how many proxy tokens the pod has registered.
func (tx *Txn) ProxyCount(podID string) int {
	n := 0
	for k := range tx.r.proxies {
		if k.PodID == podID {
			n++
		}
	}
	return n
}

// TakeProxies removes and returns every proxy token belonging to the pod.
func (tx *Txn) TakeProxies(podID string) []*Token {
	var out []*Token
	for k, t := range tx.r.proxies {
		if k.PodID == podID {
			out = append(out, t)
			delete(tx.r.proxies, k)
		}
	}
	return out
}
