package backends

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Observer is notified after a backend's availability or failure count
// changes. Observers run synchronously under no lock and must not call
// back into mutating Registry methods.
type Observer func(Descriptor)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// UnhealthyAfter is the number of consecutive failures after which a
	// degraded backend becomes unhealthy. Default: 3, minimum: 2
	UnhealthyAfter int

	Logger *slog.Logger

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// Registry holds the ordered set of backends and their health. Health is
// mutated only through RecordSuccess, RecordFailure, RecordProbe, Restore
// and SetPriorities.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	order     []string // names sorted by priority, then registration order
	observers []Observer

	unhealthyAfter int
	logger         *slog.Logger
	now            func() time.Time
}

type entry struct {
	backend Backend
	desc    Descriptor
	seq     int
}

// NewRegistry creates an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.UnhealthyAfter <= 0 {
		opts.UnhealthyAfter = 3
	}
	if opts.UnhealthyAfter < 2 {
		opts.UnhealthyAfter = 2
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Registry{
		entries:        make(map[string]*entry),
		unhealthyAfter: opts.UnhealthyAfter,
		logger:         opts.Logger.With("component", "backends"),
		now:            opts.Now,
	}
}

// Add registers b with the given type label and priority (lower first).
// Backends start healthy.
func (r *Registry) Add(b Backend, typ string, priority int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := b.Name()
	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateBackend, name)
	}

	r.entries[name] = &entry{
		backend: b,
		seq:     len(r.entries),
		desc: Descriptor{
			Name:         name,
			Type:         typ,
			Priority:     priority,
			Availability: Healthy,
		},
	}
	r.order = append(r.order, name)
	r.sortLocked()
	return nil
}

// OnChange registers an observer.
func (r *Registry) OnChange(fn Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.backend, true
}

// Len returns the number of registered backends.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// TryOrder returns the backends to attempt, in order: preferred first when
// it is registered and not unhealthy, then every other backend that is not
// unhealthy in priority order.
func (r *Registry) TryOrder(preferred string) []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Backend, 0, len(r.order))
	if e, ok := r.entries[preferred]; ok && e.desc.Availability != Unhealthy {
		out = append(out, e.backend)
	}
	for _, name := range r.order {
		if name == preferred {
			continue
		}
		if e := r.entries[name]; e.desc.Availability != Unhealthy {
			out = append(out, e.backend)
		}
	}
	return out
}

// Descriptor returns a copy of the named backend's descriptor.
func (r *Registry) Descriptor(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return Descriptor{}, false
	}
	return e.desc, true
}

// Descriptors returns copies of all descriptors in priority order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.entries[name].desc)
	}
	return out
}

// Available returns the number of backends that are not unhealthy.
func (r *Registry) Available() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.entries {
		if e.desc.Availability != Unhealthy {
			n++
		}
	}
	return n
}

// RecordSuccess resets the backend to healthy.
func (r *Registry) RecordSuccess(name string) {
	r.update(name, func(d *Descriptor) {
		d.Availability = Healthy
		d.ConsecutiveFailures = 0
		d.LastError = ""
	})
}

// RecordFailure counts a failed attempt. A recoverable failure degrades a
// healthy backend, and it becomes unhealthy once consecutive failures reach
// the configured threshold. A fatal failure makes it unhealthy immediately.
// An unhealthy backend stays unhealthy until a success is recorded.
func (r *Registry) RecordFailure(name string, kind ErrorKind, err error) {
	r.update(name, func(d *Descriptor) {
		d.ConsecutiveFailures++
		if err != nil {
			d.LastError = err.Error()
		}
		switch {
		case d.Availability == Unhealthy, kind == KindFatal:
			d.Availability = Unhealthy
		case d.Availability == Healthy:
			d.Availability = Degraded
		case d.ConsecutiveFailures >= r.unhealthyAfter:
			d.Availability = Unhealthy
		default:
			d.Availability = Degraded
		}
	})
}

// RecordProbe applies a health probe result. A pass resets the backend to
// healthy; a failure counts as a recoverable failure.
func (r *Registry) RecordProbe(name string, err error) {
	if err == nil {
		r.RecordSuccess(name)
		return
	}
	r.RecordFailure(name, KindRecoverable, err)
}

// Restore seeds descriptor health from a previous snapshot. Entries for
// unknown backends are ignored; names, types and priorities come from
// configuration, not the snapshot.
func (r *Registry) Restore(snapshot []Descriptor) {
	for _, s := range snapshot {
		r.mu.Lock()
		e, ok := r.entries[s.Name]
		if !ok {
			r.mu.Unlock()
			continue
		}
		e.desc.Availability = s.Availability
		e.desc.ConsecutiveFailures = s.ConsecutiveFailures
		e.desc.LastCheckedAt = s.LastCheckedAt
		e.desc.LastError = s.LastError
		desc := e.desc
		observers := r.observers
		r.mu.Unlock()

		r.logger.Info("restored backend health",
			"backend", desc.Name,
			"availability", desc.Availability.String(),
			"consecutive_failures", desc.ConsecutiveFailures,
		)
		notify(observers, desc)
	}
}

// SetPriorities replaces backend priorities. Names not in the map keep
// their priority.
func (r *Registry) SetPriorities(priorities map[string]int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for name, p := range priorities {
		if e, ok := r.entries[name]; ok && e.desc.Priority != p {
			e.desc.Priority = p
			changed = true
		}
	}
	if changed {
		r.sortLocked()
		r.logger.Info("backend priorities updated", "order", append([]string(nil), r.order...))
	}
}

// Close closes every backend that holds resources.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var firstErr error
	for _, name := range r.order {
		if c, ok := r.entries[name].backend.(Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// update applies fn to the named descriptor and notifies observers when the
// availability or failure count changed.
func (r *Registry) update(name string, fn func(*Descriptor)) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return
	}

	before := e.desc
	fn(&e.desc)
	e.desc.LastCheckedAt = r.now()
	after := e.desc
	observers := r.observers
	r.mu.Unlock()

	if before.Availability != after.Availability {
		r.logTransition(before, after)
	}
	if before.Availability != after.Availability || before.ConsecutiveFailures != after.ConsecutiveFailures {
		notify(observers, after)
	}
}

func (r *Registry) logTransition(before, after Descriptor) {
	attrs := []any{
		"backend", after.Name,
		"from", before.Availability.String(),
		"to", after.Availability.String(),
		"consecutive_failures", after.ConsecutiveFailures,
	}
	switch after.Availability {
	case Unhealthy:
		r.logger.Error("backend marked unhealthy", append(attrs, "error", after.LastError)...)
	case Degraded:
		r.logger.Warn("backend degraded", append(attrs, "error", after.LastError)...)
	default:
		r.logger.Info("backend recovered", attrs...)
	}
}

func (r *Registry) sortLocked() {
	sort.SliceStable(r.order, func(i, j int) bool {
		a, b := r.entries[r.order[i]], r.entries[r.order[j]]
		if a.desc.Priority != b.desc.Priority {
			return a.desc.Priority < b.desc.Priority
		}
		return a.seq < b.seq
	})
}

func notify(observers []Observer, d Descriptor) {
	for _, fn := range observers {
		fn(d)
	}
}
