package utils

func Ptr[T any](v T) *T {
	return &v
}

func Map[T any, U any](src []T, mapper func(T) U) []U {
	dst := make([]U, 0, len(src))
	for _, item := range src {
		dst = append(dst, mapper(item))
	}
	return dst
}

// Uniq returns the distinct items of src, first occurrence order.
func Uniq[T comparable](src []T) []T {
	seen := make(map[T]bool, len(src))
	dst := make([]T, 0, len(src))
	for _, item := range src {
		if !seen[item] {
			seen[item] = true
			dst = append(dst, item)
		}
	}
	return dst
}
