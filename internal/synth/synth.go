// Package synth handles speech synthesis requests: validating text, calling the upstream
// provider, and serving the proxy endpoint the client talks to.
package synth

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxTextLength      = 300
	DefaultContentType = "audio/mpeg"
)

var (
	ErrInvalidText = errors.New("invalid text")
	// ErrUnavailable covers upstream transport failures and non-2xx answers.
	ErrUnavailable = errors.New("speech synthesis unavailable")
)

// Request is the JSON body of a synthesis call.
type Request struct {
	Text string `json:"text"`
}

// Validate rejects empty text and text over MaxTextLength characters.
func Validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidText)
	}
	if n := utf8.RuneCountInString(text); n > MaxTextLength {
		return fmt.Errorf("%w: %d characters, max %d", ErrInvalidText, n, MaxTextLength)
	}
	return nil
}

// StatusError is a non-2xx answer from a synthesis endpoint.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string { return fmt.Sprintf("synthesis returned status %d", e.Code) }

func (e *StatusError) Unwrap() error { return ErrUnavailable }
