package util

// Stack is a slice backed LIFO.
type Stack[T any] struct {
	buf []T
}

func NewStack[T any]() *Stack[T] {
	return &Stack[T]{buf: make([]T, 0, 16)}
}

func (s *Stack[T]) Push(item T) {
	s.buf = append(s.buf, item)
}

// Pop returns nil when the stack is empty.
func (s *Stack[T]) Pop() *T {
	if len(s.buf) == 0 {
		return nil
	}
	item := s.buf[len(s.buf)-1]
	s.buf = s.buf[:len(s.buf)-1]
	return &item
}

func (s *Stack[T]) IsEmpty() bool {
	return len(s.buf) == 0
}

func (s *Stack[T]) Size() int {
	return len(s.buf)
}
