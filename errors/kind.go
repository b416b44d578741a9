package errors

// Kind classifies where a call failed.
type Kind int

const (
	// KindBinding indicates a malformed declaration or missing argument.
	// Raised before any network activity and never retried.
	KindBinding Kind = iota + 1
	// KindTransport indicates a connectivity failure (refused, DNS, timeout).
	KindTransport
	// KindStatus indicates a response whose status code is not a success.
	KindStatus
	// KindValidation indicates a payload that failed to encode, decode or validate.
	KindValidation
	// KindSession indicates misuse of a client session (not started, wrong mode).
	KindSession
)

// StatusTransportFailure is the synthetic status code carried by transport
// errors. Retry mappings keyed by it apply to connectivity failures.
const StatusTransportFailure = 0

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindBinding:
		return "binding"
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindValidation:
		return "validation"
	case KindSession:
		return "session"
	default:
		return "unknown"
	}
}

// Retryable reports whether errors of this kind may enter the retry machine.
func (k Kind) Retryable() bool {
	return k == KindStatus || k == KindTransport
}

// Class is a sentinel naming a family of status-mapped errors.
type Class struct {
	name string
}

// NewClass creates a named error class.
func NewClass(name string) *Class {
	return &Class{name: name}
}

// Error implements the error interface so a Class can be used with errors.Is.
func (c *Class) Error() string { return c.name }

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Factory returns a Factory that tags the base error with this class.
func (c *Class) Factory() Factory {
	return func(e *CallError) error {
		e.Class = c
		return e
	}
}
