package engine

import "fmt"

// Error kinds reported to callers. The presentation layer maps validation and
// business kinds to corrective messages and transport kinds to a retry
// affordance; the engine never renders anything itself.
const (
	KindInvalidCode     = "invalid_code"
	KindServiceRejected = "service_rejected"
	KindNetworkError    = "network_error"
	KindOrderRefused    = "order_refused"
	KindTransportError  = "transport_error"
)

// ValidationError means the caller supplied an invalid argument. It is always
// detected before any remote call and never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StateError means the operation is meaningless against current state, e.g.
// checking out an empty cart. Caught locally before any remote call.
type StateError struct {
	Reason string
}

func (e *StateError) Error() string { return e.Reason }

// BusinessRejection means the remote collaborator explicitly refused the
// request. Cart and coupon state are left unchanged.
type BusinessRejection struct {
	Kind   string
	Reason string
}

func (e *BusinessRejection) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return e.Kind
}

// TransportError means the remote collaborator was unreachable or returned an
// unparseable response. Distinct from BusinessRejection so callers can offer
// a retry instead of "invalid input" messaging. Kind is network_error for
// coupon validation and transport_error for order submission.
type TransportError struct {
	Op   string
	Kind string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.ErrorKind(), e.Err)
}

// ErrorKind returns the kind, defaulting to transport_error.
func (e *TransportError) ErrorKind() string {
	if e.Kind == "" {
		return KindTransportError
	}
	return e.Kind
}

func (e *TransportError) Unwrap() error { return e.Err }
