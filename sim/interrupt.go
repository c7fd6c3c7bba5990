package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when an argument is out of its valid
	// range, for example a negative delay.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrProgramming is returned when the API is used in a context where it
	// cannot work, for example suspending outside of a process.
	ErrProgramming = errors.New("programming error")

	// ErrNoEvent is returned by Step when there is no event to execute.
	ErrNoEvent = errors.New("no pending event")
)

// InterruptKind discriminates interrupts so that handlers can tell why a wait
// was cut short.
type InterruptKind int

// Built-in interrupt kinds. Models can define their own kinds starting from
// InterruptUser.
const (
	InterruptGeneric InterruptKind = iota
	InterruptTimeout
	InterruptTerminated

	InterruptUser InterruptKind = 100
)

func (k InterruptKind) String() string {
	switch k {
	case InterruptGeneric:
		return "interrupt"
	case InterruptTimeout:
		return "timeout"
	case InterruptTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("interrupt(%d)", int(k))
	}
}

// An Interrupt is delivered asynchronously to a suspended process. It surfaces
// as the error returned by whichever suspending call the process was in.
//
// A process body that returns an Interrupt terminates cleanly.
type Interrupt struct {
	Kind   InterruptKind
	Reason any
}

// ErrTimeout matches, through errors.Is, any interrupt of kind
// InterruptTimeout.
var ErrTimeout error = &Interrupt{Kind: InterruptTimeout}

// ErrTerminated matches the interrupt a process sees when its simulator is
// closed while the process is still running deferred code.
var ErrTerminated error = &Interrupt{Kind: InterruptTerminated}

// NewInterrupt creates an interrupt of the given kind.
func NewInterrupt(kind InterruptKind, reason any) *Interrupt {
	return &Interrupt{Kind: kind, Reason: reason}
}

// NewTimeout creates a timeout interrupt.
func NewTimeout(reason any) *Interrupt {
	return &Interrupt{Kind: InterruptTimeout, Reason: reason}
}

func (i *Interrupt) Error() string {
	if i.Reason == nil {
		return i.Kind.String()
	}

	return fmt.Sprintf("%s: %v", i.Kind, i.Reason)
}

// Is reports whether target is an interrupt of the same kind.
func (i *Interrupt) Is(target error) bool {
	t, ok := target.(*Interrupt)
	if !ok {
		return false
	}

	return t.Kind == i.Kind
}

// IsInterrupt tells if the error is, or wraps, an interrupt of any kind.
func IsInterrupt(err error) bool {
	var i *Interrupt
	return errors.As(err, &i)
}

// AsInterrupt extracts the interrupt carried by the error.
func AsInterrupt(err error) (*Interrupt, bool) {
	var i *Interrupt
	ok := errors.As(err, &i)
	return i, ok
}
