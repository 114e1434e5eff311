package codec

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes codec failures.
type ErrorCode string

const (
	// ErrCodeMalformed indicates a missing or mistyped field.
	ErrCodeMalformed ErrorCode = "MALFORMED"

	// ErrCodeUnknownKind indicates a kind name outside the catalog.
	ErrCodeUnknownKind ErrorCode = "UNKNOWN_KIND"

	// ErrCodeUnknownClassifier indicates a classifier key the decoding
	// language does not declare.
	ErrCodeUnknownClassifier ErrorCode = "UNKNOWN_CLASSIFIER"

	// ErrCodeUnknownFeature indicates a feature key the decoding language
	// does not declare.
	ErrCodeUnknownFeature ErrorCode = "UNKNOWN_FEATURE"
)

// CodecError is returned by Encode and Decode.
type CodecError struct {
	Code    ErrorCode
	Kind    string
	Field   string
	Message string
}

func (e *CodecError) Error() string {
	switch {
	case e.Kind != "" && e.Field != "":
		return fmt.Sprintf("%s: %s (kind=%s, field=%s)", e.Code, e.Message, e.Kind, e.Field)
	case e.Kind != "":
		return fmt.Sprintf("%s: %s (kind=%s)", e.Code, e.Message, e.Kind)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func hasCode(err error, code ErrorCode) bool {
	var ce *CodecError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsMalformed returns true if err is a MALFORMED error.
func IsMalformed(err error) bool { return hasCode(err, ErrCodeMalformed) }

// IsUnknownKind returns true if err is an UNKNOWN_KIND error.
func IsUnknownKind(err error) bool { return hasCode(err, ErrCodeUnknownKind) }

// IsUnknownClassifier returns true if err is an UNKNOWN_CLASSIFIER error.
func IsUnknownClassifier(err error) bool { return hasCode(err, ErrCodeUnknownClassifier) }

// IsUnknownFeature returns true if err is an UNKNOWN_FEATURE error.
func IsUnknownFeature(err error) bool { return hasCode(err, ErrCodeUnknownFeature) }
