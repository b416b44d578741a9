// Package retry decides whether a failed call is dispatched again.
//
// A Processor is registered per status code in the retry mapping of a
// client or endpoint. When a call fails with a status or transport error,
// the Machine looks the status up, instantiates the processor once for the
// logical call and asks it whether to retry:
//
//	Idle -> Evaluating -> Fixing -> Retrying      (async sessions)
//	Idle -> Evaluating -> Retrying                (sync sessions)
//	Idle -> Evaluating -> Propagating
//
// Synchronous sessions only call DoRetry, so it must perform any fix-up
// itself. Asynchronous sessions call Process after a positive DoRetry and
// retry only if it also returns true. The machine imposes no attempt limit;
// every built-in processor bounds itself.
package retry
