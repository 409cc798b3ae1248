package errors

import (
	"github.com/pingcap/errors"
)

// WrapError generates a new error based on the given `*errors.Error`, wraps the
// original error as its cause and keeps the stack of the wrapping point. The
// message of the new error is the message of the cause.
func WrapError(rfcError *errors.Error, err error) error {
	if err == nil {
		return nil
	}
	return rfcError.Wrap(err).GenWithStackByCause()
}

// Trace annotates err with the stack of the caller.
func Trace(err error) error {
	return errors.Trace(err)
}
