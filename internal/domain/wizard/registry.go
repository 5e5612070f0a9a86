package wizard

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrWizardNotFound = errors.New("wizard not found")
	ErrSubmitting     = errors.New("wizard submission in progress")
)

// Instance is one open wizard held for its owner.
type Instance struct {
	ID         string    `json:"id"`
	Owner      string    `json:"-"`
	State      State     `json:"state"`
	Submitting bool      `json:"submitting"`
	Touched    time.Time `json:"-"`
}

// Registry keeps at most one open wizard per owner. Opening a new one
// discards the previous draft unless it is being submitted, and drafts idle
// longer than the TTL are dropped.
type Registry struct {
	mu      sync.Mutex
	byID    map[string]*Instance
	byOwner map[string]string
	ttl     time.Duration
	now     func() time.Time
}

func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		byID:    map[string]*Instance{},
		byOwner: map[string]string{},
		ttl:     ttl,
		now:     time.Now,
	}
}

// Open starts a wizard for owner. It fails with ErrSubmitting while the
// owner's current wizard is mid-submission.
func (r *Registry) Open(owner string, state State) (Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if previous, ok := r.byID[r.byOwner[owner]]; ok {
		if previous.Submitting {
			return Instance{}, ErrSubmitting
		}
		r.remove(previous)
	}
	inst := &Instance{
		ID:      uuid.NewString(),
		Owner:   owner,
		State:   state,
		Touched: r.now(),
	}
	r.byID[inst.ID] = inst
	r.byOwner[owner] = inst.ID
	return *inst, nil
}

func (r *Registry) Get(owner, id string) (Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, err := r.lookup(owner, id)
	if err != nil {
		return Instance{}, err
	}
	return *inst, nil
}

// Current returns the owner's open wizard, if any.
func (r *Registry) Current(owner string) (Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byOwner[owner]
	if !ok {
		return Instance{}, false
	}
	inst, err := r.lookup(owner, id)
	if err != nil {
		return Instance{}, false
	}
	return *inst, true
}

// Update replaces the state with fn's result. The stored state only changes
// when fn returns a state; its error is passed back either way.
func (r *Registry) Update(owner, id string, fn func(State) (State, error)) (Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, err := r.lookup(owner, id)
	if err != nil {
		return Instance{}, err
	}
	if inst.Submitting {
		return *inst, ErrSubmitting
	}
	next, fnErr := fn(inst.State)
	inst.State = next
	inst.Touched = r.now()
	return *inst, fnErr
}

// BeginSubmit marks the wizard as submitting; further changes are refused
// until EndSubmit.
func (r *Registry) BeginSubmit(owner, id string) (Instance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, err := r.lookup(owner, id)
	if err != nil {
		return Instance{}, err
	}
	if inst.Submitting {
		return *inst, ErrSubmitting
	}
	inst.Submitting = true
	inst.Touched = r.now()
	return *inst, nil
}

// EndSubmit closes the wizard on success and reopens it for edits otherwise.
func (r *Registry) EndSubmit(owner, id string, succeeded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, ok := r.byID[id]
	if !ok || inst.Owner != owner {
		return
	}
	if succeeded {
		r.remove(inst)
		return
	}
	inst.Submitting = false
	inst.Touched = r.now()
}

func (r *Registry) Close(owner, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inst, err := r.lookup(owner, id)
	if err != nil {
		return err
	}
	if inst.Submitting {
		return ErrSubmitting
	}
	r.remove(inst)
	return nil
}

// Sweep drops idle wizards and reports how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for _, inst := range r.byID {
		if r.expired(inst) {
			r.remove(inst)
			removed++
		}
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *Registry) lookup(owner, id string) (*Instance, error) {
	inst, ok := r.byID[id]
	if !ok || inst.Owner != owner {
		return nil, ErrWizardNotFound
	}
	if r.expired(inst) {
		r.remove(inst)
		return nil, ErrWizardNotFound
	}
	return inst, nil
}

func (r *Registry) expired(inst *Instance) bool {
	return r.ttl > 0 && !inst.Submitting && r.now().Sub(inst.Touched) > r.ttl
}

func (r *Registry) remove(inst *Instance) {
	delete(r.byID, inst.ID)
	if r.byOwner[inst.Owner] == inst.ID {
		delete(r.byOwner, inst.Owner)
	}
}
