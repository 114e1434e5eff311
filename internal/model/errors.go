package model

import (
	"errors"
	"fmt"

	"github.com/roach88/modelsync/internal/language"
)

// ErrorCode categorizes node store failures.
type ErrorCode string

const (
	// ErrCodeUnknownFeature indicates the feature is not declared by the
	// node's classifier lineage, or is used as the wrong kind.
	ErrCodeUnknownFeature ErrorCode = "UNKNOWN_FEATURE"

	// ErrCodeInvalidValue indicates a value of the wrong datatype, a link
	// target of the wrong classifier, or a structural violation.
	ErrCodeInvalidValue ErrorCode = "INVALID_VALUE"

	// ErrCodeIndexOutOfRange indicates an insert, replace or move index
	// outside the valid range.
	ErrCodeIndexOutOfRange ErrorCode = "INDEX_OUT_OF_RANGE"

	// ErrCodeUnsetFeature indicates a read of a required feature that
	// holds no value.
	ErrCodeUnsetFeature ErrorCode = "UNSET_FEATURE"
)

// NodeError is returned by every failing node store operation.
// State is never modified when a NodeError is returned.
type NodeError struct {
	Code    ErrorCode
	Message string
	NodeID  string
	Feature string
}

func (e *NodeError) Error() string {
	if e.Feature != "" {
		return fmt.Sprintf("%s: %s (node=%s, feature=%s)", e.Code, e.Message, e.NodeID, e.Feature)
	}
	return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.NodeID)
}

func hasCode(err error, code ErrorCode) bool {
	var ne *NodeError
	if errors.As(err, &ne) {
		return ne.Code == code
	}
	return false
}

// IsUnknownFeature returns true if err is an UNKNOWN_FEATURE error.
func IsUnknownFeature(err error) bool { return hasCode(err, ErrCodeUnknownFeature) }

// IsInvalidValue returns true if err is an INVALID_VALUE error.
func IsInvalidValue(err error) bool { return hasCode(err, ErrCodeInvalidValue) }

// IsIndexOutOfRange returns true if err is an INDEX_OUT_OF_RANGE error.
func IsIndexOutOfRange(err error) bool { return hasCode(err, ErrCodeIndexOutOfRange) }

// IsUnsetFeature returns true if err is an UNSET_FEATURE error.
func IsUnsetFeature(err error) bool { return hasCode(err, ErrCodeUnsetFeature) }

func (n *Node) fail(code ErrorCode, f *language.Feature, format string, args ...any) *NodeError {
	e := &NodeError{Code: code, Message: fmt.Sprintf(format, args...), NodeID: n.id}
	if f != nil {
		e.Feature = f.String()
	}
	return e
}

func (n *Node) outOfRange(f *language.Feature, index, lo, hi int) *NodeError {
	return n.fail(ErrCodeIndexOutOfRange, f, "index %d outside [%d, %d]", index, lo, hi)
}
