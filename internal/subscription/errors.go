package subscription

import "errors"

// Kind classifies a subscription failure so transport code can map it to a
// status code without matching on message text.
type Kind int

const (
	// KindUnexpected covers storage and mail transport failures.
	KindUnexpected Kind = iota
	// KindValidation covers bad user input; storage is never touched.
	KindValidation
	// KindMalformedToken covers tokens that fail shape validation.
	KindMalformedToken
	// KindInvalidToken covers well-formed tokens that do not resolve to a
	// live subscriber, whether they never existed or were superseded.
	KindInvalidToken
)

// ErrTokenNotValid is the cause carried by KindInvalidToken errors. It is
// deliberately identical for unknown and invalidated tokens so callers
// cannot probe whether a token ever existed.
var ErrTokenNotValid = errors.New("subscription token is not valid")

// Error pairs a failure kind with its underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind from err, defaulting to KindUnexpected for
// errors that did not originate in this package.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnexpected
}

func validationErr(err error) error { return &Error{Kind: KindValidation, Err: err} }

func unexpectedErr(err error) error { return &Error{Kind: KindUnexpected, Err: err} }
