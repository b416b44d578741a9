package endpoint

import (
	"maps"
	"net/http"
	"reflect"
	"slices"
	"strings"
	"time"

	limaerrors "github.com/kbukum/lima/errors"
	"github.com/kbukum/lima/model"
	"github.com/kbukum/lima/retry"
)

// Descriptor is the immutable declaration of one endpoint.
type Descriptor struct {
	name            string
	method          string
	path            string
	headers         map[string]string
	params          []Parameter
	returns         reflect.Type
	noContent       bool
	defaultStatus   int
	responseMapping map[int]limaerrors.Factory
	retryMapping    map[int]retry.Factory
	defaultError    limaerrors.Factory
	kwargs          KwargsMode
	mode            Mode
	timeout         time.Duration
	template        *Template
	dump            DumpMode
	undefined       []any
	placeholders    []string
}

// Option configures a Descriptor.
type Option func(*Descriptor)

// New declares an endpoint. The raw path may contain placeholders in the
// syntax of the endpoint's Template; spaces are stripped.
func New(method, path string, opts ...Option) (*Descriptor, error) {
	d := &Descriptor{
		method:          strings.ToUpper(strings.TrimSpace(method)),
		path:            strings.ReplaceAll(path, " ", ""),
		headers:         make(map[string]string),
		responseMapping: make(map[int]limaerrors.Factory),
		retryMapping:    make(map[int]retry.Factory),
		template:        DefaultTemplate,
		undefined:       []any{nil, ""},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.method == "" {
		return nil, limaerrors.Binding("endpoint %s: method is required", d.path)
	}
	if d.name == "" {
		d.name = d.method + " " + d.path
	}
	if d.dump == DumpDefault {
		d.dump = DefaultDumpMode
	}
	d.placeholders = d.template.Placeholders(d.path)

	if err := d.resolveParams(); err != nil {
		return nil, err
	}
	return d, nil
}

// MustNew is like New but panics on error. Intended for package-level vars.
func MustNew(method, path string, opts ...Option) *Descriptor {
	d, err := New(method, path, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

func (d *Descriptor) resolveParams() error {
	seen := make(map[string]bool, len(d.params))
	pathParams := make(map[string]bool)
	var body *Parameter

	for i := range d.params {
		p := &d.params[i]
		if p.Name == "" {
			return limaerrors.Binding("endpoint %s: parameter name is required", d.name)
		}
		if seen[p.Name] {
			return limaerrors.Binding("endpoint %s: duplicate parameter <%s>", d.name, p.Name)
		}
		seen[p.Name] = true

		if p.Location == LocationAuto {
			if p.Type == nil {
				return limaerrors.Binding("endpoint %s: parameter <%s> needs a type or an explicit location", d.name, p.Name)
			}
			p.Location = d.placement(p)
		}
		if p.Dump == DumpDefault {
			p.Dump = d.dump
		}

		switch p.Location {
		case LocationPath:
			if !slices.Contains(d.placeholders, p.WireName()) {
				return limaerrors.Binding("endpoint %s: path parameter <%s> not found in %q", d.name, p.WireName(), d.path)
			}
			pathParams[p.WireName()] = true
		case LocationBody:
			if body != nil {
				return limaerrors.Binding("endpoint %s: too many body params <%s>, <%s>", d.name, body.Name, p.Name)
			}
			if p.Type != nil && !isBodyType(p.Type) {
				return limaerrors.Binding("endpoint %s: body parameter <%s> must be a structured value, got %s", d.name, p.Name, p.Type)
			}
			body = p
		case LocationFile:
			if p.Type != nil && !IsFileLike(p.Type) {
				return limaerrors.Binding("endpoint %s: file parameter <%s> must be file-like, got %s", d.name, p.Name, p.Type)
			}
		case LocationQuery, LocationHeader:
		default:
			return limaerrors.Binding("endpoint %s: invalid location for <%s>", d.name, p.Name)
		}
	}

	var missing []string
	for _, name := range d.placeholders {
		if !pathParams[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return limaerrors.Binding("endpoint %s: path parameters need to be defined: <%s>", d.name, strings.Join(missing, ","))
	}
	if body != nil && d.kwargs == KwargsBody {
		return limaerrors.Binding("endpoint %s: body passthrough conflicts with body parameter <%s>", d.name, body.Name)
	}
	return nil
}

// placement derives the location of an un-annotated parameter.
func (d *Descriptor) placement(p *Parameter) Location {
	t := p.Type
	switch {
	case IsFileLike(t):
		return LocationFile
	case model.IsStructured(t):
		if d.method == http.MethodGet {
			return LocationQuery
		}
		return LocationBody
	case isCollection(t):
		if d.method == http.MethodGet {
			return LocationQuery
		}
		return LocationBody
	case slices.Contains(d.placeholders, p.WireName()):
		return LocationPath
	default:
		return LocationQuery
	}
}

func isCollection(t reflect.Type) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem().Kind() != reflect.Uint8
	case reflect.Map:
		return true
	}
	return false
}

func isBodyType(t reflect.Type) bool {
	if t.Kind() == reflect.Interface {
		return true
	}
	return model.IsStructured(t) || isCollection(t)
}

// --- Accessors ---

// Name returns the endpoint name used in logs.
func (d *Descriptor) Name() string { return d.name }

// Method returns the HTTP verb.
func (d *Descriptor) Method() string { return d.method }

// Path returns the raw path template.
func (d *Descriptor) Path() string { return d.path }

// Headers returns a copy of the static header overrides.
func (d *Descriptor) Headers() map[string]string { return maps.Clone(d.headers) }

// Params returns a copy of the resolved parameter specifications.
func (d *Descriptor) Params() []Parameter { return slices.Clone(d.params) }

// Returns returns the declared return type, or nil if none was declared.
func (d *Descriptor) Returns() reflect.Type { return d.returns }

// SkipsContent reports whether the response body is never decoded.
func (d *Descriptor) SkipsContent() bool { return d.noContent }

// DefaultStatus returns the success status, or 0 for any 2xx.
func (d *Descriptor) DefaultStatus() int { return d.defaultStatus }

// ResponseFactory returns the method-level mapping for a status code.
func (d *Descriptor) ResponseFactory(status int) (limaerrors.Factory, bool) {
	f, ok := d.responseMapping[status]
	return f, ok
}

// RetryFactory returns the method-level retry processor for a status code.
func (d *Descriptor) RetryFactory(status int) (retry.Factory, bool) {
	f, ok := d.retryMapping[status]
	return f, ok
}

// DefaultError returns the method-level factory for unmapped failures.
func (d *Descriptor) DefaultError() limaerrors.Factory { return d.defaultError }

// Kwargs returns the passthrough mode.
func (d *Descriptor) Kwargs() KwargsMode { return d.kwargs }

// Mode returns the session mode the endpoint binds to.
func (d *Descriptor) Mode() Mode { return d.mode }

// Timeout returns the per-endpoint timeout, or 0 to use the client default.
func (d *Descriptor) Timeout() time.Duration { return d.timeout }

// Template returns the placeholder syntax.
func (d *Descriptor) Template() *Template { return d.template }

// Placeholders returns the placeholder names found in the path.
func (d *Descriptor) Placeholders() []string { return slices.Clone(d.placeholders) }

// IsUndefined reports whether v is one of the values skipped at bind time.
func (d *Descriptor) IsUndefined(v any) bool {
	if model.IsNull(reflect.ValueOf(v)) {
		return true
	}
	t := reflect.TypeOf(v)
	for _, u := range d.undefined {
		if u != nil && reflect.TypeOf(u) == t && reflect.DeepEqual(u, v) {
			return true
		}
	}
	return false
}

// --- Options ---

// Named sets the endpoint name used in logs and spans.
func Named(name string) Option {
	return func(d *Descriptor) { d.name = name }
}

// Params appends parameter specifications.
func Params(params ...Parameter) Option {
	return func(d *Descriptor) { d.params = append(d.params, params...) }
}

// Returns declares T as the decoded return type.
func Returns[T any]() Option {
	return func(d *Descriptor) {
		d.returns = reflect.TypeFor[T]()
		d.noContent = false
	}
}

// NoContent declares that the response body is never decoded.
func NoContent() Option {
	return func(d *Descriptor) {
		d.returns = nil
		d.noContent = true
	}
}

// Headers merges static header overrides.
func Headers(headers map[string]string) Option {
	return func(d *Descriptor) {
		for k, v := range headers {
			d.headers[k] = v
		}
	}
}

// Header sets one static header.
func Header(key, value string) Option {
	return func(d *Descriptor) { d.headers[key] = value }
}

// DefaultStatus sets the single success status code.
func DefaultStatus(code int) Option {
	return func(d *Descriptor) { d.defaultStatus = code }
}

// MapStatus maps a status code to an error factory, overriding the client.
func MapStatus(code int, f limaerrors.Factory) Option {
	return func(d *Descriptor) { d.responseMapping[code] = f }
}

// RetryOn maps a status code to a retry processor, overriding the client.
func RetryOn(code int, f retry.Factory) Option {
	return func(d *Descriptor) { d.retryMapping[code] = f }
}

// DefaultError sets the factory for failures with no mapping entry.
func DefaultError(f limaerrors.Factory) Option {
	return func(d *Descriptor) { d.defaultError = f }
}

// Kwargs sets the passthrough mode for undeclared arguments.
func Kwargs(mode KwargsMode) Option {
	return func(d *Descriptor) { d.kwargs = mode }
}

// Async binds the endpoint to asynchronous sessions.
func Async() Option {
	return func(d *Descriptor) { d.mode = ModeAsync }
}

// Timeout overrides the client timeout for this endpoint.
func Timeout(timeout time.Duration) Option {
	return func(d *Descriptor) { d.timeout = timeout }
}

// WithTemplate sets the placeholder syntax, e.g. MustTemplate(`\[(.+?)\]`).
func WithTemplate(t *Template) Option {
	return func(d *Descriptor) {
		if t != nil {
			d.template = t
		}
	}
}

// DefaultDump sets the dump mode for structured query parameters that do
// not set their own.
func DefaultDump(m DumpMode) Option {
	return func(d *Descriptor) { d.dump = m }
}

// WithUndefined replaces the values skipped for query and header
// parameters. Nil values are always skipped.
func WithUndefined(values ...any) Option {
	return func(d *Descriptor) { d.undefined = values }
}
