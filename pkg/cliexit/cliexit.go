// Package cliexit maps cmd/memoryd subcommand failures to the exit codes
// spec.md §6 assigns the Controller/Worker CLIs: 0 success, 1 backend
// unavailable, 2 argument error.
package cliexit

// CodedError is an error that carries the process exit code main.go should
// use, instead of the default "any error means exit 1" cobra behavior.
type CodedError struct {
	Code int
	Err  error
}

func (e *CodedError) Error() string { return e.Err.Error() }
func (e *CodedError) Unwrap() error { return e.Err }

// BackendUnavailable wraps err as exit code 1.
func BackendUnavailable(err error) error {
	return &CodedError{Code: 1, Err: err}
}

// ArgumentError wraps err as exit code 2.
func ArgumentError(err error) error {
	return &CodedError{Code: 2, Err: err}
}

// Code returns err's exit code, or 1 for any other non-nil error (cobra's
// usual convention), or 0 for a nil error.
func Code(err error) int {
	if err == nil {
		return 0
	}
	var coded *CodedError
	if ok := asCodedError(err, &coded); ok {
		return coded.Code
	}
	return 1
}

func asCodedError(err error, target **CodedError) bool {
	for err != nil {
		if c, ok := err.(*CodedError); ok {
			*target = c
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}
