package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrActivityNotFound = errors.New("activity not found")
	ErrAlreadySignedUp  = errors.New("student is already signed up")
	ErrNotRegistered    = errors.New("student is not registered for this activity")
)

// Kind classifies registry errors for transport layers.
type Kind int

const (
	KindNone Kind = iota
	KindNotFound
	KindConflict
)

// KindOf reports which kind of registry failure err wraps.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrActivityNotFound):
		return KindNotFound
	case errors.Is(err, ErrAlreadySignedUp), errors.Is(err, ErrNotRegistered):
		return KindConflict
	default:
		return KindNone
	}
}

const (
	ActionSignup     = "signup"
	ActionUnregister = "unregister"
)

// Activity is a named extracurricular offering with its roster.
// MaxParticipants is advisory and never checked against the roster.
type Activity struct {
	Name            string   `json:"-" toml:"name"`
	Description     string   `json:"description" toml:"description"`
	Schedule        string   `json:"schedule" toml:"schedule"`
	MaxParticipants int      `json:"max_participants" toml:"max_participants"`
	Participants    []string `json:"participants" toml:"participants"`
}

// Change describes one successful roster mutation.
type Change struct {
	// Seq increases by one per mutation across the registry. Observers run
	// outside the lock and may see changes out of Seq order.
	Seq      uint64
	At       time.Time
	Action   string
	Activity string
	Email    string
	// Participants is the roster size after the change.
	Participants int
}

// Observer is notified after each successful mutation, outside the
// registry lock. Observers must not block for long.
type Observer func(Change)

type entry struct {
	name            string
	description     string
	schedule        string
	maxParticipants int
	roster          *Roster
}

func (e *entry) snapshot() Activity {
	return Activity{
		Name:            e.name,
		Description:     e.description,
		Schedule:        e.schedule,
		MaxParticipants: e.maxParticipants,
		Participants:    e.roster.Emails(),
	}
}

// Registry owns the in-memory mapping from activity name to activity.
type Registry struct {
	mu         sync.RWMutex
	seed       []Activity
	activities map[string]*entry
	observers  []Observer
	seq        uint64
	now        func() time.Time
}

// New builds a registry seeded with activities. The seed is kept so
// Reset can restore it.
func New(seed []Activity) (*Registry, error) {
	entries, err := buildEntries(seed)
	if err != nil {
		return nil, err
	}
	r := &Registry{
		seed:       cloneActivities(seed),
		activities: entries,
		now:        time.Now,
	}
	return r, nil
}

func buildEntries(seed []Activity) (map[string]*entry, error) {
	entries := make(map[string]*entry, len(seed))
	for _, a := range seed {
		name := a.Name
		if strings.TrimSpace(name) == "" {
			return nil, errors.New("activity name is required")
		}
		if _, dup := entries[name]; dup {
			return nil, fmt.Errorf("duplicate activity %q", name)
		}
		roster, ok := NewRoster(a.Participants...)
		if !ok {
			return nil, fmt.Errorf("activity %q: duplicate participant in roster", name)
		}
		entries[name] = &entry{
			name:            name,
			description:     a.Description,
			schedule:        a.Schedule,
			maxParticipants: a.MaxParticipants,
			roster:          roster,
		}
	}
	return entries, nil
}

func cloneActivities(in []Activity) []Activity {
	out := make([]Activity, len(in))
	for i, a := range in {
		a.Participants = append([]string(nil), a.Participants...)
		out[i] = a
	}
	return out
}

// Observe registers fn to be called after every successful mutation.
func (r *Registry) Observe(fn Observer) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

// List returns a snapshot of every activity keyed by name.
func (r *Registry) List() map[string]Activity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Activity, len(r.activities))
	for name, e := range r.activities {
		out[name] = e.snapshot()
	}
	return out
}

// Get looks up a single activity by its exact name.
func (r *Registry) Get(name string) (Activity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.activities[name]
	if !ok {
		return Activity{}, false
	}
	return e.snapshot(), true
}

// Names returns the activity names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.activities))
	for name := range r.activities {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Signup appends email to the roster of the named activity.
func (r *Registry) Signup(activity, email string) (string, error) {
	r.mu.Lock()
	e, ok := r.activities[activity]
	if !ok {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: %q", ErrActivityNotFound, activity)
	}
	if !e.roster.Add(email) {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: %s in %q", ErrAlreadySignedUp, email, activity)
	}
	change := r.recordLocked(ActionSignup, activity, email, e.roster.Len())
	observers := r.observers
	r.mu.Unlock()

	notify(observers, change)
	return fmt.Sprintf("Signed up %s for %s", email, activity), nil
}

// Unregister removes email from the roster of the named activity.
func (r *Registry) Unregister(activity, email string) (string, error) {
	r.mu.Lock()
	e, ok := r.activities[activity]
	if !ok {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: %q", ErrActivityNotFound, activity)
	}
	if !e.roster.Remove(email) {
		r.mu.Unlock()
		return "", fmt.Errorf("%w: %s in %q", ErrNotRegistered, email, activity)
	}
	change := r.recordLocked(ActionUnregister, activity, email, e.roster.Len())
	observers := r.observers
	r.mu.Unlock()

	notify(observers, change)
	return fmt.Sprintf("Unregistered %s from %s", email, activity), nil
}

// recordLocked stamps a mutation. Callers hold r.mu.
func (r *Registry) recordLocked(action, activity, email string, participants int) Change {
	r.seq++
	return Change{
		Seq:          r.seq,
		At:           r.now().UTC(),
		Action:       action,
		Activity:     activity,
		Email:        email,
		Participants: participants,
	}
}

// Reset discards every mutation and restores the seed. Observers and the
// change sequence are kept.
func (r *Registry) Reset() {
	// The seed was validated by New.
	entries, _ := buildEntries(r.seed)
	r.mu.Lock()
	r.activities = entries
	r.mu.Unlock()
}

func notify(observers []Observer, change Change) {
	for _, fn := range observers {
		fn(change)
	}
}
