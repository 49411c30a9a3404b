// Package options implements the functional-option pattern shared by the
// configurable entry points of this module (array constructors, container
// packing, top-level compression).
//
// A consumer package declares a config struct and a type alias
// `type Option = options.Option[*Config]`, exposes `WithXxx` constructors
// built on New or NoError, and applies them with Apply. Options that can
// reject their argument validate inside New and return a sentinel error;
// the first failing option aborts Apply.
package options

// Option configures a target of type T. Implementations are created with
// New or NoError; the interface is sealed by the unexported method.
type Option[T any] interface {
	apply(T) error
}

// Func adapts a plain function into an Option.
type Func[T any] struct {
	applyFunc func(T) error
}

func (f *Func[T]) apply(target T) error {
	return f.applyFunc(target)
}

// New wraps a fallible configuration function. Use it for options that
// validate their argument, e.g. a negative cache size.
func New[T any](fn func(T) error) *Func[T] {
	return &Func[T]{applyFunc: fn}
}

// NoError wraps an infallible configuration function.
func NoError[T any](fn func(T)) *Func[T] {
	return &Func[T]{
		applyFunc: func(target T) error {
			fn(target)
			return nil
		},
	}
}

// Apply runs the options against target in order, stopping at the first
// error. Later options override earlier ones for the same field.
func Apply[T any](target T, opts ...Option[T]) error {
	for _, opt := range opts {
		if err := opt.apply(target); err != nil {
			return err
		}
	}

	return nil
}
