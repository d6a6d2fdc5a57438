package workflow

import "errors"

var (
	// ErrBatchAlreadyRunning rejects work that needs the page while a batch
	// or an exclusive operation holds it.
	ErrBatchAlreadyRunning = errors.New("a batch is already running")
	// ErrEmptyInput rejects a Start with no identifiers left after
	// normalisation.
	ErrEmptyInput = errors.New("no identifiers to process")
	// ErrNavigationFailed aborts a batch whose navigation did not complete.
	ErrNavigationFailed = errors.New("navigation failed")
	// ErrClassifyIndeterminate marks an entry that showed neither control.
	ErrClassifyIndeterminate = errors.New("could not determine membership")
	// ErrVerificationTimeout marks an add whose effect never rendered.
	ErrVerificationTimeout = errors.New("add was not confirmed")
)
