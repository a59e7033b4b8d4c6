package window

// Last returns the most recent n items in original order. The input is
// never mutated; histories shorter than n pass through whole.
func Last[T any](items []T, n int) []T {
	if n <= 0 {
		return nil
	}
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
