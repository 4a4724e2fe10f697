package util

func IfThenElse[T any](condition bool, a T, b T) T {
	if condition {
		return a
	}
	return b
}

// TrimTrailingZeros returns a view of a without its trailing zero entries.
func TrimTrailingZeros[T comparable](a []T) []T {
	var zero T
	n := len(a)
	for n > 0 && a[n-1] == zero {
		n--
	}
	return a[:n]
}
