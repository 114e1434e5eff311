package replicator

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes replication failures.
type ErrorCode string

const (
	// ErrCodeUnknownNotification indicates a notification shape outside the
	// catalog, i.e. a protocol version mismatch.
	ErrCodeUnknownNotification ErrorCode = "UNKNOWN_NOTIFICATION"

	// ErrCodeDesynchronized indicates the mirror no longer matches its
	// origin. The session must be rebuilt.
	ErrCodeDesynchronized ErrorCode = "DESYNCHRONIZED"
)

// ReplicationError is returned by Apply.
type ReplicationError struct {
	Code      ErrorCode
	Message   string
	Partition string
	Kind      string
	Cause     string
	Err       error
}

func (e *ReplicationError) Error() string {
	msg := fmt.Sprintf("%s: %s (partition=%s", e.Code, e.Message, e.Partition)
	if e.Kind != "" {
		msg += ", kind=" + e.Kind
	}
	if e.Cause != "" {
		msg += ", cause=" + e.Cause
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ReplicationError) Unwrap() error { return e.Err }

// IsUnknownNotification returns true if err is an UNKNOWN_NOTIFICATION error.
func IsUnknownNotification(err error) bool {
	var re *ReplicationError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnknownNotification
	}
	return false
}

// IsDesynchronized returns true if err is a DESYNCHRONIZED error.
func IsDesynchronized(err error) bool {
	var re *ReplicationError
	if errors.As(err, &re) {
		return re.Code == ErrCodeDesynchronized
	}
	return false
}

// errProtocol marks translation failures that are protocol violations
// rather than divergence.
type errProtocol struct{ msg string }

func (e *errProtocol) Error() string { return e.msg }

func protocolf(format string, args ...any) error {
	return &errProtocol{msg: fmt.Sprintf(format, args...)}
}
