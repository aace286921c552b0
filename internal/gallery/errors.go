package gallery

import (
	"errors"
	"fmt"

	"github.com/pranathisri21/frame-vault/internal/storage"
)

// ValidationError reports bad caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports an operation against an id that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// UploadError reports that the media host rejected a file or could not be
// reached. Nothing was persisted.
type UploadError struct {
	Name string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q failed: %v", e.Name, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// StoreError reports a failed database call.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// CountRefreshError is returned alongside a persisted item when the owning
// set's media count could not be recomputed. The item exists; the count is
// stale until the next refresh.
type CountRefreshError struct {
	SetID string
	Err   error
}

func (e *CountRefreshError) Error() string {
	return fmt.Sprintf("item saved but media count of set %s was not refreshed: %v", e.SetID, e.Err)
}

func (e *CountRefreshError) Unwrap() error {
	return e.Err
}

// storeFailure turns a storage error into a NotFoundError or StoreError.
func storeFailure(op, resource, id string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return &NotFoundError{Resource: resource, ID: id, Err: err}
	}
	return &StoreError{Op: op, Err: err}
}
