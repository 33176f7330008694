// Package fsm provides a small declarative finite-state machine: named
// states with entry/exit/update hooks and ordered guarded transitions, all
// parameterized over an arbitrary mutable context type.
package fsm

// Condition guards a transition. Conditions must be read-only predicates
// over the context.
type Condition[T any] func(*T) bool

// Action is a side effect run while taking a transition. Actions may mutate
// the context.
type Action[T any] func(*T)

// Behavior is the hook set attached to one state. Hooks may mutate the
// context.
type Behavior[T any] interface {
	Entry(*T)
	Exit(*T)
	Update(*T)
}

// Funcs adapts optional closures into a Behavior. Nil hooks are no-ops.
type Funcs[T any] struct {
	OnEntry  func(*T)
	OnExit   func(*T)
	OnUpdate func(*T)
}

func (f Funcs[T]) Entry(ctx *T) {
	if f.OnEntry != nil {
		f.OnEntry(ctx)
	}
}

func (f Funcs[T]) Exit(ctx *T) {
	if f.OnExit != nil {
		f.OnExit(ctx)
	}
}

func (f Funcs[T]) Update(ctx *T) {
	if f.OnUpdate != nil {
		f.OnUpdate(ctx)
	}
}

type transition[K comparable, T any] struct {
	to        K
	condition Condition[T]
	actions   []Action[T]
}

// State is one node of the machine: a behavior plus its ordered transitions.
type State[K comparable, T any] struct {
	behavior    Behavior[T]
	transitions []transition[K, T]
}

// NewState creates a state around the given behavior.
func NewState[K comparable, T any](behavior Behavior[T]) *State[K, T] {
	return &State[K, T]{behavior: behavior}
}

// Transition appends a guarded transition. Declaration order matters:
// Decide scans transitions in order and the first matching condition wins.
func (s *State[K, T]) Transition(to K, condition Condition[T], actions ...Action[T]) *State[K, T] {
	s.transitions = append(s.transitions, transition[K, T]{
		to:        to,
		condition: condition,
		actions:   actions,
	})
	return s
}

func (s *State[K, T]) decide(ctx *T) (transition[K, T], bool) {
	for _, t := range s.transitions {
		if t.condition(ctx) {
			return t, true
		}
	}
	return transition[K, T]{}, false
}

// Machine is a state/transition graph with exactly one active state. The
// initial active state is caller-supplied; there is no terminal-state
// concept, a state with zero transitions is implicitly terminal.
type Machine[K comparable, T any] struct {
	states map[K]*State[K, T]
	active K
}

// New creates a machine with the given initial active state.
func New[K comparable, T any](initial K) *Machine[K, T] {
	return &Machine[K, T]{
		states: make(map[K]*State[K, T]),
		active: initial,
	}
}

// State registers a state under an identifier, replacing any previous
// registration.
func (m *Machine[K, T]) State(id K, state *State[K, T]) *Machine[K, T] {
	m.states[id] = state
	return m
}

// Active returns the identifier of the active state.
func (m *Machine[K, T]) Active() K {
	return m.active
}

// Decide evaluates the active state's transitions in declaration order and
// takes the first whose condition holds. No transition matching leaves the
// machine untouched.
func (m *Machine[K, T]) Decide(ctx *T) {
	state, ok := m.states[m.active]
	if !ok {
		return
	}
	if selected, ok := state.decide(ctx); ok {
		m.SetActiveState(selected.to, selected.actions, ctx)
	}
}

// SetActiveState performs a transition: the current state's exit hook runs
// first, then the actions in order, then the target's entry hook, and only
// then does the target become active.
//
// A target missing from the state map leaves the machine in the old state
// after exit and actions have already run; callers must not rely on this
// silent-failure edge.
func (m *Machine[K, T]) SetActiveState(to K, actions []Action[T], ctx *T) {
	if state, ok := m.states[m.active]; ok {
		state.behavior.Exit(ctx)
	}
	for _, action := range actions {
		action(ctx)
	}
	if state, ok := m.states[to]; ok {
		state.behavior.Entry(ctx)
		m.active = to
	}
}

// Update invokes the active state's update hook only; transitions are not
// evaluated.
func (m *Machine[K, T]) Update(ctx *T) {
	if state, ok := m.states[m.active]; ok {
		state.behavior.Update(ctx)
	}
}
