// Package errors defines the error taxonomy of a lima client call.
//
// Every failure surfaced to a caller is, or wraps, an *CallError whose Kind tells
// where the call failed: before any network activity (KindBinding, KindSession),
// while talking to the server (KindTransport), after a non-success status
// (KindStatus), or while decoding a successful body (KindValidation).
//
// Status-mapped errors are produced by a Factory. A Factory can tag the base
// error with a *Class sentinel:
//
//	var PetNotFound = errors.NewClass("pet_not_found")
//	endpoint.MapStatus(http.StatusNotFound, PetNotFound.Factory())
//
//	if stderrors.Is(err, PetNotFound) { ... }
//
// or wrap it in a caller-defined type that embeds *CallError:
//
//	type PetNotFoundError struct{ *errors.CallError }
//	endpoint.MapStatus(http.StatusNotFound, func(e *errors.CallError) error {
//	    return &PetNotFoundError{e}
//	})
package errors
