package security

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a token was rejected.
type FailureKind int

const (
	KindMalformed FailureKind = iota + 1
	KindInvalidSignature
	KindExpired
)

var (
	ErrMalformed        = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpired          = errors.New("token expired")
)

func (k FailureKind) String() string {
	switch k {
	case KindMalformed:
		return "malformed"
	case KindInvalidSignature:
		return "invalid_signature"
	case KindExpired:
		return "expired"
	}
	return "unknown"
}

// Suspicious reports whether the failure points at a forged or tampered token
// rather than a benign one such as an expired session.
func (k FailureKind) Suspicious() bool {
	return k == KindInvalidSignature
}

func (k FailureKind) sentinel() error {
	switch k {
	case KindMalformed:
		return ErrMalformed
	case KindInvalidSignature:
		return ErrInvalidSignature
	case KindExpired:
		return ErrExpired
	}
	return ErrMalformed
}

// TokenError is returned by TokenCodec.Decode. It matches ErrMalformed,
// ErrInvalidSignature or ErrExpired with errors.Is.
type TokenError struct {
	Kind FailureKind
	Err  error
}

func newTokenError(kind FailureKind, err error) *TokenError {
	return &TokenError{Kind: kind, Err: err}
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return e.Kind.sentinel().Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind.sentinel(), e.Err)
}

func (e *TokenError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// FailureKindOf extracts the failure kind from a decode error, or 0 if err is not a TokenError.
func FailureKindOf(err error) FailureKind {
	var tokenErr *TokenError
	if errors.As(err, &tokenErr) {
		return tokenErr.Kind
	}
	return 0
}
