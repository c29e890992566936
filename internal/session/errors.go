package session

import "errors"

// ErrUnknownSession is returned when an event or request references a session
// id the registry does not hold. Ingest connections carrying this error are
// closed at the boundary.
var ErrUnknownSession = errors.New("unknown session")

// ErrSessionClosed is returned when an operation targets a session that has
// already been torn down.
var ErrSessionClosed = errors.New("session closed")
