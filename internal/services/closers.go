package services

import (
	"errors"
	"log/slog"
)

// closeAll runs closers in reverse order of creation and joins their errors.
func closeAll(closers []func() error) error {
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i]())
	}
	return errors.Join(errs...)
}

// releaseOnError closes every client in closers when *errp is set. Constructors that open
// several clients defer it.
func releaseOnError(errp *error, closers *[]func() error) {
	if *errp == nil {
		return
	}
	if err := closeAll(*closers); err != nil {
		slog.Warn("Failed to release clients after initialization error.", "error", err)
	}
	*closers = nil
}
