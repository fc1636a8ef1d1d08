package models

// Result is the per-item batch envelope. Data is omitted when the item failed.
type Result[T any] struct {
	Succeed bool   `json:"succeed"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func Succeeded[T any](v T) Result[T] {
	return Result[T]{Succeed: true, Data: &v}
}

func Failed[T any](err error) Result[T] {
	return Result[T]{Error: ErrorMessage(err)}
}

// SearchResult is the envelope of a keyword search. Data is null when the
// catalog returned no product boxes at all.
type SearchResult struct {
	Success bool      `json:"success"`
	Data    []Product `json:"data"`
	Error   string    `json:"error,omitempty"`
}
