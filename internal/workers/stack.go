package workers

import (
	"fmt"
	"sync"

	"github.com/gabrier01/tcpscan01/internal/errors"
)

// Stack is a bounded LIFO work queue with two phases. During the build phase
// a single goroutine pushes up to Cap items. Seal ends the build phase, after
// which any number of goroutines may pop until the stack is empty. Empty is
// terminal: nothing is ever pushed after Seal.
type Stack[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	sealed   bool
}

// NewStack allocates a stack that holds exactly capacity items.
func NewStack[T any](capacity int) (*Stack[T], error) {
	if capacity < 0 {
		return nil, errors.NewResourceError(errors.CodeResource,
			fmt.Sprintf("allocate work queue of capacity %d", capacity), nil)
	}
	return &Stack[T]{items: make([]T, 0, capacity), capacity: capacity}, nil
}

// Push adds item to the top of the stack. Pushing onto a full or sealed stack
// means the capacity was computed wrong and is reported as a resource error.
func (s *Stack[T]) Push(item T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return errors.NewResourceError(errors.CodeQueueSealed, "push onto sealed work queue", nil)
	}
	if len(s.items) == s.capacity {
		return errors.NewResourceError(errors.CodeQueueOverflow,
			fmt.Sprintf("push onto full work queue (capacity %d)", s.capacity), nil)
	}
	s.items = append(s.items, item)
	return nil
}

// Seal ends the build phase. It is safe to call more than once.
func (s *Stack[T]) Seal() {
	s.mu.Lock()
	s.sealed = true
	s.mu.Unlock()
}

// Sealed reports whether Seal has been called.
func (s *Stack[T]) Sealed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sealed
}

// Pop removes and returns the top item. It reports false when the stack is
// empty or has not been sealed yet; it never blocks.
func (s *Stack[T]) Pop() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	if !s.sealed || len(s.items) == 0 {
		return zero, false
	}

	top := len(s.items) - 1
	item := s.items[top]
	s.items[top] = zero
	s.items = s.items[:top]
	return item, true
}

// Len returns the number of items still queued.
func (s *Stack[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Cap returns the fixed capacity.
func (s *Stack[T]) Cap() int {
	return s.capacity
}
