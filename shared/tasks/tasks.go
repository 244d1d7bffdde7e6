package tasks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/roomly/booking-system/shared/models"
)

// Signature identifies a registered task together with its serialized
// arguments. Signatures are built once, at chain-construction time.
type Signature struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// NewSignature creates a signature for the named task with the given
// arguments marshaled as JSON.
func NewSignature(name string, args interface{}) (Signature, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return Signature{}, errors.Wrapf(err, "failed to marshal args for task %s", name)
	}
	return Signature{Name: name, Args: raw}, nil
}

// Task is the wire envelope for one schedulable unit of work. Remaining
// holds the not-yet-dispatched tail of the chain; OnError is the failure
// route, dispatched at most once if this task (or any later link) fails
// unrecoverably.
type Task struct {
	Signature
	ID            models.ID   `json:"id"`
	Remaining     []Signature `json:"remaining,omitempty"`
	OnError       *Signature  `json:"on_error,omitempty"`
	CorrelationID models.ID   `json:"correlation_id,omitempty"`
	EnqueuedAt    time.Time   `json:"enqueued_at"`
}

// FailureArgs is the payload delivered to an on-error signature. Args
// carries the arguments bound to the signature when the chain was built.
type FailureArgs struct {
	FailedTask string          `json:"failed_task"`
	Reason     string          `json:"reason"`
	Args       json.RawMessage `json:"args"`
}

// Chain composes an ordered list of signatures with an optional failure
// route. Links execute strictly in order: link N+1 is enqueued only after
// link N succeeds.
type Chain struct {
	steps   []Signature
	onError *Signature
}

// NewChain creates a chain from the given signatures.
func NewChain(steps ...Signature) *Chain {
	return &Chain{steps: steps}
}

// OnError sets the signature dispatched when any link fails unrecoverably.
func (c *Chain) OnError(sig Signature) *Chain {
	c.onError = &sig
	return c
}

// Task converts the chain into its first dispatchable task.
func (c *Chain) Task(correlationID models.ID) (*Task, error) {
	if len(c.steps) == 0 {
		return nil, errors.New("chain has no steps")
	}
	return &Task{
		Signature:     c.steps[0],
		ID:            models.GenerateUUID(),
		Remaining:     c.steps[1:],
		OnError:       c.onError,
		CorrelationID: correlationID,
		EnqueuedAt:    time.Now(),
	}, nil
}

// Queue dispatches tasks onto the broker.
type Queue interface {
	Enqueue(ctx context.Context, task *Task) error
}

// Handler executes one task given its serialized arguments.
type Handler interface {
	Handle(ctx context.Context, args json.RawMessage) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, args json.RawMessage) error

func (f HandlerFunc) Handle(ctx context.Context, args json.RawMessage) error {
	return f(ctx, args)
}

type registration struct {
	handler Handler
	policy  *RetryPolicy
}

// RegisterOption customizes a task registration.
type RegisterOption func(*registration)

// WithRetryPolicy attaches a per-task retry policy. Tasks registered
// without one execute exactly once per delivery.
func WithRetryPolicy(policy RetryPolicy) RegisterOption {
	return func(r *registration) {
		r.policy = &policy
	}
}

// Registry maps task names to handlers and their execution policies.
type Registry struct {
	mux           sync.RWMutex
	registrations map[string]registration
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{registrations: make(map[string]registration)}
}

// Register binds a handler to a task name.
func (r *Registry) Register(name string, handler Handler, opts ...RegisterOption) {
	reg := registration{handler: handler}
	for _, opt := range opts {
		opt(&reg)
	}

	r.mux.Lock()
	defer r.mux.Unlock()
	r.registrations[name] = reg
}

func (r *Registry) lookup(name string) (registration, bool) {
	r.mux.RLock()
	defer r.mux.RUnlock()
	reg, ok := r.registrations[name]
	return reg, ok
}
