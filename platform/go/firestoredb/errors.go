package firestoredb

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// StoreError wraps a Firestore read/write failure with the operation that
// produced it. Domain repositories surface these unmodified; no retries.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// WrapStoreError classifies err under the given operation. Nil stays nil so
// call sites can wrap unconditionally.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsNotFound reports whether err is the Firestore document-missing condition.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var se *StoreError
	if errors.As(err, &se) {
		err = se.Err
	}
	return status.Code(err) == codes.NotFound
}
