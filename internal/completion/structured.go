package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Result is the outcome of validating a decoded response:
// either a valid value or the reason it was rejected.
type Result[T any] struct {
	value  T
	reason string
	valid  bool
}

// Valid wraps an accepted value.
func Valid[T any](v T) Result[T] {
	return Result[T]{value: v, valid: true}
}

// Invalid rejects a response with a human-readable reason.
func Invalid[T any](reason string) Result[T] {
	return Result[T]{reason: reason}
}

// IsValid reports whether the value was accepted.
func (r Result[T]) IsValid() bool { return r.valid }

// Value returns the accepted value, or the zero value if invalid.
func (r Result[T]) Value() T { return r.value }

// Reason returns why the value was rejected.
func (r Result[T]) Reason() string { return r.reason }

// Validator checks a decoded response.
type Validator[T any] interface {
	Validate(v T) Result[T]
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc[T any] func(v T) Result[T]

// Validate calls f(v).
func (f ValidatorFunc[T]) Validate(v T) Result[T] { return f(v) }

// CompleteStructured asks c for a JSON answer, decodes the first JSON object
// or array found in the response into T and runs validator on it.
// Unparseable or rejected responses fail with apierr.ErrInvalidResponse.
// A nil validator accepts any decodable value.
func CompleteStructured[T any](ctx context.Context, c Completer, prompt string, validator Validator[T]) (T, error) {
	var out T
	_, err := c.CompleteChecked(ctx, prompt, func(resp string) error {
		v, err := DecodeJSON[T](resp)
		if err != nil {
			return err
		}
		if validator != nil {
			res := validator.Validate(v)
			if !res.IsValid() {
				return errors.New(res.Reason())
			}
			v = res.Value()
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// DecodeJSON decodes the first JSON value embedded in text.
func DecodeJSON[T any](text string) (T, error) {
	var v T
	raw, err := extractJSON(text)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("decode JSON: %w", err)
	}
	return v, nil
}

// extractJSON returns the first balanced {...} or [...] in s.
// Brackets inside JSON strings are ignored.
func extractJSON(s string) (string, error) {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated JSON value: %w", ErrNoJSON)
}
