// Package binding maps call arguments onto an endpoint declaration and
// produces the request to send.
//
// Binding is a pure function of the descriptor and the arguments: it never
// touches the network, and binding the same arguments twice yields
// identical requests. Struct fields keep declaration order, map keys and
// passthrough arguments are sorted.
//
//	b := binding.New(model.JSON, nil)
//	bound, err := b.Bind(getPet, binding.Args{"petId": 1})
package binding
