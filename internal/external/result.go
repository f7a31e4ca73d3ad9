package external

// Result is the typed outcome of an external fetch. External sources are
// best-effort: a failure marks the result unavailable instead of
// propagating an error the dashboard cannot act on, and callers must
// check Available before using Value.
type Result[T any] struct {
	Value     T
	Available bool
	Err       error
}

// Available wraps a successful fetch.
func Available[T any](value T) Result[T] {
	return Result[T]{Value: value, Available: true}
}

// Unavailable wraps a failed fetch with the cause for diagnostics.
func Unavailable[T any](err error) Result[T] {
	return Result[T]{Err: err}
}
