package store

import "fmt"

// StoreWriteError reports a failed flat-store insert. It is fatal for the
// unit: remaining chunks are not written.
type StoreWriteError struct {
	ExternalID string
	Err        error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("flat store write failed for %q: %v", e.ExternalID, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// GraphWriteError reports a failed graph write. It aborts the remaining
// graph writes for the unit; the session is still released.
type GraphWriteError struct {
	Op  string
	Err error
}

func (e *GraphWriteError) Error() string {
	return fmt.Sprintf("graph write failed during %s: %v", e.Op, e.Err)
}

func (e *GraphWriteError) Unwrap() error {
	return e.Err
}
