package types

// ParseResult is either a decoded value or the reason the model output was
// rejected. Callers branch on OK instead of on an error.
type ParseResult[T any] struct {
	Value   T
	Failure string
}

func Parsed[T any](v T) ParseResult[T] {
	return ParseResult[T]{Value: v}
}

func ParseFailure[T any](reason string) ParseResult[T] {
	if reason == "" {
		reason = "unparseable output"
	}
	return ParseResult[T]{Failure: reason}
}

func (r ParseResult[T]) OK() bool {
	return r.Failure == ""
}
