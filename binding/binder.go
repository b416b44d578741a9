package binding

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/gorilla/schema"

	"github.com/kbukum/lima/endpoint"
	limaerrors "github.com/kbukum/lima/errors"
	"github.com/kbukum/lima/model"
	"github.com/kbukum/lima/transport"
)

const formContentType = "application/x-www-form-urlencoded"

// Binder binds call arguments. It is safe for concurrent use.
type Binder struct {
	codec   model.Codec
	headers map[string]string
	form    *schema.Encoder
}

// New creates a Binder. Session headers only take part in choosing the body
// encoding; the transport sends them.
func New(codec model.Codec, sessionHeaders map[string]string) *Binder {
	if codec == nil {
		codec = model.JSON
	}
	enc := schema.NewEncoder()
	enc.SetAliasTag("json")
	return &Binder{codec: codec, headers: sessionHeaders, form: enc}
}

// Bind maps args onto d.
func (b *Binder) Bind(d *endpoint.Descriptor, args Args) (*Bound, error) {
	bound := &Bound{
		Method:  d.Method(),
		Headers: make(http.Header),
		Timeout: d.Timeout(),
	}
	for k, v := range d.Headers() {
		bound.Headers.Set(k, v)
	}

	params := d.Params()
	declared := make(map[string]bool, len(params))
	pathValues := make(map[string]string)
	var body *bodyValue

	for _, p := range params {
		declared[p.Name] = true
		value, ok := args[p.Name]
		if !ok {
			if p.Required() {
				return nil, limaerrors.Binding("%s: missing required argument <%s>", d.Name(), p.Name)
			}
			value = p.Default
		}

		var err error
		switch p.Location {
		case endpoint.LocationPath:
			err = bindPath(d, p, value, pathValues)
		case endpoint.LocationQuery:
			bound.Query, err = b.appendQuery(bound.Query, d, p.WireName(), value, p.Dump)
		case endpoint.LocationHeader:
			err = bindHeader(d, p, value, bound.Headers)
		case endpoint.LocationBody:
			if !model.IsNull(reflect.ValueOf(value)) {
				body = &bodyValue{name: p.Name, value: value, includeNull: p.Dump.IncludeNull()}
			}
		case endpoint.LocationFile:
			var file *transport.FileField
			file, err = bindFile(d, p, value)
			if file != nil {
				bound.Files = append(bound.Files, *file)
			}
		}
		if err != nil {
			return nil, err
		}
	}

	extras := extraArgs(args, declared)
	if len(extras) > 0 {
		switch d.Kwargs() {
		case endpoint.KwargsNone:
			return nil, limaerrors.Binding("%s: unexpected arguments <%s>", d.Name(), strings.Join(extras, ","))
		case endpoint.KwargsQuery:
			for _, name := range extras {
				var err error
				if bound.Query, err = b.appendQuery(bound.Query, d, name, args[name], endpoint.DefaultDumpMode); err != nil {
					return nil, err
				}
			}
		case endpoint.KwargsBody:
			passthrough := make(map[string]any, len(extras))
			for _, name := range extras {
				passthrough[name] = args[name]
			}
			body = &bodyValue{name: "kwargs", value: passthrough}
		}
	}

	path, err := d.Template().Resolve(d.Path(), pathValues)
	if err != nil {
		return nil, err
	}
	bound.Path = path

	if body != nil {
		if err := b.bindBody(d, body, bound); err != nil {
			return nil, err
		}
	}
	return bound, nil
}

type bodyValue struct {
	name        string
	value       any
	includeNull bool
}

func bindPath(d *endpoint.Descriptor, p endpoint.Parameter, value any, values map[string]string) error {
	if model.IsNull(reflect.ValueOf(value)) {
		return limaerrors.Binding("%s: path parameter <%s> has no value", d.Name(), p.Name)
	}
	s, err := Stringify(value)
	if err != nil {
		return limaerrors.Binding("%s: path parameter <%s>: %v", d.Name(), p.Name, err)
	}
	values[p.WireName()] = s
	return nil
}

func bindHeader(d *endpoint.Descriptor, p endpoint.Parameter, value any, headers http.Header) error {
	if d.IsUndefined(value) {
		return nil
	}
	rv := reflect.ValueOf(value)
	items := []any{value}
	if isList(rv) {
		items = items[:0]
		for i := 0; i < rv.Len(); i++ {
			items = append(items, rv.Index(i).Interface())
		}
	}
	headers.Del(p.WireName())
	for _, item := range items {
		if d.IsUndefined(item) {
			continue
		}
		s, err := Stringify(item)
		if err != nil {
			return limaerrors.Binding("%s: header parameter <%s>: %v", d.Name(), p.Name, err)
		}
		headers.Add(p.WireName(), s)
	}
	return nil
}

// appendQuery renders one query argument. Scalars become one item, lists
// one item per element and structured values follow the dump mode.
func (b *Binder) appendQuery(items []transport.Field, d *endpoint.Descriptor, key string, value any, mode endpoint.DumpMode) ([]transport.Field, error) {
	if d.IsUndefined(value) {
		return items, nil
	}
	rv := reflect.ValueOf(value)

	switch {
	case model.IsStructured(rv.Type()):
		if mode == endpoint.DumpDefault {
			mode = endpoint.DefaultDumpMode
		}
		if mode.IsJSON() {
			data, err := model.Dump(b.codec, value, mode.IncludeNull())
			if err != nil {
				return nil, limaerrors.Validation(fmt.Sprintf("%s: encode query parameter <%s>", d.Name(), key), err)
			}
			return append(items, transport.Field{Key: key, Value: string(data)}), nil
		}
		fields, err := b.flatten(value, mode.IncludeNull())
		if err != nil {
			return nil, limaerrors.Validation(fmt.Sprintf("%s: flatten query parameter <%s>", d.Name(), key), err)
		}
		return append(items, fields...), nil

	case isList(rv):
		for i := 0; i < rv.Len(); i++ {
			elem := rv.Index(i).Interface()
			if d.IsUndefined(elem) {
				continue
			}
			s, err := b.scalar(elem)
			if err != nil {
				return nil, limaerrors.Binding("%s: query parameter <%s>: %v", d.Name(), key, err)
			}
			items = append(items, transport.Field{Key: key, Value: s})
		}
		return items, nil
	}

	s, err := Stringify(value)
	if err != nil {
		return nil, limaerrors.Binding("%s: query parameter <%s>: %v", d.Name(), key, err)
	}
	return append(items, transport.Field{Key: key, Value: s}), nil
}

// flatten turns the top-level fields of a structured value into items.
// Null fields become empty items when includeNull is set.
func (b *Binder) flatten(value any, includeNull bool) ([]transport.Field, error) {
	fields, err := model.Fields(value)
	if err != nil {
		return nil, err
	}
	items := make([]transport.Field, 0, len(fields))
	for _, f := range fields {
		if f.Null {
			if includeNull {
				items = append(items, transport.Field{Key: f.Name})
			}
			continue
		}
		if isList(f.Value) {
			for i := 0; i < f.Value.Len(); i++ {
				s, err := b.scalar(f.Value.Index(i).Interface())
				if err != nil {
					return nil, err
				}
				items = append(items, transport.Field{Key: f.Name, Value: s})
			}
			continue
		}
		s, err := b.scalar(f.Value.Interface())
		if err != nil {
			return nil, err
		}
		items = append(items, transport.Field{Key: f.Name, Value: s})
	}
	return items, nil
}

// scalar stringifies v, encoding nested structured values as JSON.
func (b *Binder) scalar(v any) (string, error) {
	if model.IsStructured(reflect.TypeOf(v)) {
		data, err := model.Dump(b.codec, v, false)
		return string(data), err
	}
	return Stringify(v)
}

func bindFile(d *endpoint.Descriptor, p endpoint.Parameter, value any) (*transport.FileField, error) {
	if model.IsNull(reflect.ValueOf(value)) {
		return nil, nil
	}
	field := &transport.FileField{FieldName: p.WireName(), FileName: p.WireName()}
	switch f := value.(type) {
	case endpoint.File:
		applyFile(field, f)
	case *endpoint.File:
		applyFile(field, *f)
	case io.Reader:
		field.Reader = f
	default:
		return nil, limaerrors.Binding("%s: file parameter <%s> is not file-like: %T", d.Name(), p.Name, value)
	}
	return field, nil
}

func applyFile(field *transport.FileField, f endpoint.File) {
	if f.Name != "" {
		field.FileName = f.Name
	}
	field.ContentType = f.ContentType
	field.Reader = f.Reader
}

func (b *Binder) bindBody(d *endpoint.Descriptor, body *bodyValue, bound *Bound) error {
	if err := model.Validate(body.value); err != nil {
		return limaerrors.Validation(fmt.Sprintf("%s: invalid body <%s>", d.Name(), body.name), err)
	}

	if len(bound.Files) > 0 {
		fields, err := b.flatten(body.value, false)
		if err != nil {
			return limaerrors.Validation(fmt.Sprintf("%s: flatten body <%s>", d.Name(), body.name), err)
		}
		bound.Form = fields
		return nil
	}

	if b.isForm(bound.Headers) {
		data, err := b.encodeForm(body.value)
		if err != nil {
			return limaerrors.Validation(fmt.Sprintf("%s: form-encode body <%s>", d.Name(), body.name), err)
		}
		bound.Body = data
		bound.ContentType = formContentType
		return nil
	}

	data, err := model.Dump(b.codec, body.value, body.includeNull)
	if err != nil {
		return limaerrors.Validation(fmt.Sprintf("%s: encode body <%s>", d.Name(), body.name), err)
	}
	bound.Body = data
	bound.ContentType = b.codec.ContentType()
	return nil
}

// isForm reports whether the effective content type is form-urlencoded.
func (b *Binder) isForm(headers http.Header) bool {
	ct := headers.Get("Content-Type")
	if ct == "" {
		for k, v := range b.headers {
			if http.CanonicalHeaderKey(k) == "Content-Type" {
				ct = v
			}
		}
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	return err == nil && mediaType == formContentType
}

// encodeForm encodes structs through gorilla/schema and maps key by key.
func (b *Binder) encodeForm(value any) ([]byte, error) {
	values := url.Values{}
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		if err := b.form.Encode(rv.Interface(), values); err != nil {
			return nil, err
		}
		return []byte(values.Encode()), nil
	}

	fields, err := b.flatten(value, false)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		values.Add(f.Key, f.Value)
	}
	return []byte(values.Encode()), nil
}

func extraArgs(args Args, declared map[string]bool) []string {
	var extras []string
	for name := range args {
		if !declared[name] {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	return extras
}
