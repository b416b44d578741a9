package endpoint

import (
	"io"
	"reflect"
)

var (
	fileType   = reflect.TypeFor[File]()
	readerType = reflect.TypeFor[io.Reader]()
)

// Parameter is the declared metadata of one call argument. It holds no
// runtime value; values arrive through binding.Args at call time.
type Parameter struct {
	// Name is the argument key used by callers.
	Name string
	// Alias is the wire name. Defaults to Name.
	Alias string
	// Location is where the value is placed.
	Location Location
	// Type is the declared Go type, used to derive LocationAuto.
	Type reflect.Type
	// Default is used when the argument is absent. Only valid with HasDefault.
	Default    any
	HasDefault bool
	// Dump applies to structured query values.
	Dump DumpMode
}

// WireName returns the alias, or the name when no alias is set.
func (p Parameter) WireName() string {
	if p.Alias != "" {
		return p.Alias
	}
	return p.Name
}

// Required reports whether the argument must be supplied.
func (p Parameter) Required() bool { return !p.HasDefault }

// ParamOption configures a Parameter.
type ParamOption func(*Parameter)

// In sets an explicit location.
func In(l Location) ParamOption {
	return func(p *Parameter) { p.Location = l }
}

// Alias sets the wire name.
func Alias(name string) ParamOption {
	return func(p *Parameter) { p.Alias = name }
}

// Default makes the parameter optional with the given value.
func Default(v any) ParamOption {
	return func(p *Parameter) {
		p.Default = v
		p.HasDefault = true
	}
}

// Optional makes the parameter optional with a nil default, which is
// skipped at bind time.
func Optional() ParamOption { return Default(nil) }

// Dump sets the dump mode for a structured query value.
func Dump(m DumpMode) ParamOption {
	return func(p *Parameter) { p.Dump = m }
}

// Param declares a parameter of type T.
func Param[T any](name string, opts ...ParamOption) Parameter {
	p := Parameter{Name: name, Type: reflect.TypeFor[T]()}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// PathParam declares a path parameter of type T.
func PathParam[T any](name string, opts ...ParamOption) Parameter {
	return Param[T](name, append([]ParamOption{In(LocationPath)}, opts...)...)
}

// QueryParam declares a query parameter of type T.
func QueryParam[T any](name string, opts ...ParamOption) Parameter {
	return Param[T](name, append([]ParamOption{In(LocationQuery)}, opts...)...)
}

// BodyParam declares the body parameter of type T.
func BodyParam[T any](name string, opts ...ParamOption) Parameter {
	return Param[T](name, append([]ParamOption{In(LocationBody)}, opts...)...)
}

// HeaderParam declares a header parameter of type T.
func HeaderParam[T any](name string, opts ...ParamOption) Parameter {
	return Param[T](name, append([]ParamOption{In(LocationHeader)}, opts...)...)
}

// FileParam declares a multipart file parameter.
func FileParam(name string, opts ...ParamOption) Parameter {
	return Param[File](name, append([]ParamOption{In(LocationFile)}, opts...)...)
}

// IsFileLike reports whether t can be sent as a multipart file.
func IsFileLike(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if t == fileType || t == reflect.PointerTo(fileType) {
		return true
	}
	return t.Implements(readerType)
}
