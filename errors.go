package reflex

import "errors"

var (
	// Notification errors.
	ErrNilNotification       = errors.New("reflex: nil notification")
	ErrMalformedNotification = errors.New("reflex: malformed notification")
	ErrImageMismatch         = errors.New("reflex: image presence does not match operation kind")
	ErrUnknownOp             = errors.New("reflex: unknown operation kind")
)
