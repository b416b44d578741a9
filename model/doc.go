// Package model is the data-model collaborator of the lima engine.
//
// It never defines schemas of its own: Go structs with json tags are the
// models, go-playground/validator tags are their constraints. The engine
// only calls into this package to serialize a value (Codec.Marshal, Dump),
// to flatten a value into ordered top-level fields (Fields), to decode a
// response body (Codec.Unmarshal) and to validate a value (Validate).
package model
