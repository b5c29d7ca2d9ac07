package protocol

// FormatError reports a malformed frame: bad JSON, a missing or invalid
// required field, or an identity-spoofing attempt. It is always recoverable;
// the dispatcher answers it with an ERROR frame and keeps the connection.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return e.Reason }

// RoutingError reports a structurally valid frame whose target does not
// exist or cannot be addressed: an unknown user or room, or a destination
// with an unusable prefix. Recoverable in the same way as FormatError.
type RoutingError struct {
	Reason string
}

func (e *RoutingError) Error() string { return e.Reason }
