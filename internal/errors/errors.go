package errors

import "errors"

// Navigation errors.
var (
	// ErrDirectoryFetch signals that a node or photo listing could not be
	// fetched. Navigation state is left at its last-known-good value and
	// the user decides whether to retry.
	ErrDirectoryFetch = errors.New("directory fetch failed")

	// ErrContextRestore signals that the snapshot replay could not relocate
	// the prior position. The session falls back to the root view.
	ErrContextRestore = errors.New("could not restore previous position")
)

// Selection and batch errors.
var (
	// ErrSelectionRejected is returned when an explicit user action tries
	// to select a photo that has not been synced into the processing
	// database.
	ErrSelectionRejected = errors.New("photo is not synced and cannot be selected")

	// ErrBatchRefused is returned when a batch submission is attempted
	// with no resolvable local photo ids.
	ErrBatchRefused = errors.New("no synced photos selected, sync the album before processing")

	// ErrBatchFailed signals that the batch-process call itself failed and
	// no authoritative result was obtained.
	ErrBatchFailed = errors.New("batch processing request failed")
)

// Client/transport errors.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrAPIRequest         = errors.New("API request failed")
	ErrAPIResponse        = errors.New("unexpected API response")
)
