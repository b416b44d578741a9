package model

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	jsonMarshalerType = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
	timeType          = reflect.TypeFor[time.Time]()
)

// Field is one top-level field of a structured value, in declaration order.
type Field struct {
	// Name is the wire name taken from the json tag.
	Name string
	// Value is the field value. It is the zero reflect.Value when Null is set.
	Value reflect.Value
	// Null is set for nil pointers, interfaces, maps and slices.
	Null bool
}

type fieldInfo struct {
	name      string
	index     []int
	omitEmpty bool
}

var fieldCache sync.Map // reflect.Type -> []fieldInfo

// IsStructured reports whether t is a model type: a struct (other than
// time.Time and text-marshaled types) or a map with string keys, possibly
// behind pointers.
func IsStructured(t reflect.Type) bool {
	if t == nil {
		return false
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		if t == timeType || t.Implements(textMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType) {
			return false
		}
		return true
	case reflect.Map:
		return t.Key().Kind() == reflect.String
	default:
		return false
	}
}

// IsNull reports whether rv holds a JSON null.
func IsNull(rv reflect.Value) bool {
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// Fields flattens a struct or string-keyed map into its top-level fields.
// Struct fields keep declaration order; map keys are sorted. Nil fields are
// returned with Null set even when tagged omitempty.
func Fields(v any) ([]Field, error) {
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return nil, nil
	}
	switch rv.Kind() {
	case reflect.Struct:
		return structFields(rv), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("model: map key must be a string, got %s", rv.Type().Key())
		}
		return mapFields(rv), nil
	default:
		return nil, fmt.Errorf("model: %s is not a structured type", rv.Type())
	}
}

// Dump serializes v with codec. When includeNull is false, null fields of
// structs and maps are dropped at every depth.
func Dump(codec Codec, v any, includeNull bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := dumpValue(&buf, codec, reflect.ValueOf(v), includeNull); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func dumpValue(buf *bytes.Buffer, codec Codec, rv reflect.Value, includeNull bool) error {
	if IsNull(rv) {
		buf.WriteString("null")
		return nil
	}
	if hasCustomMarshaler(rv) {
		return writeMarshaled(buf, codec, rv.Interface())
	}
	if rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		return dumpValue(buf, codec, rv.Elem(), includeNull)
	}

	switch rv.Kind() {
	case reflect.Struct:
		return dumpFields(buf, codec, structFields(rv), includeNull)
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			return dumpFields(buf, codec, mapFields(rv), includeNull)
		}
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			break
		}
		buf.WriteByte('[')
		for i := 0; i < rv.Len(); i++ {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := dumpValue(buf, codec, rv.Index(i), includeNull); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	}
	return writeMarshaled(buf, codec, rv.Interface())
}

func dumpFields(buf *bytes.Buffer, codec Codec, fields []Field, includeNull bool) error {
	buf.WriteByte('{')
	first := true
	for _, f := range fields {
		if f.Null && !includeNull {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := writeMarshaled(buf, codec, f.Name); err != nil {
			return err
		}
		buf.WriteByte(':')
		if f.Null {
			buf.WriteString("null")
			continue
		}
		if err := dumpValue(buf, codec, f.Value, includeNull); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeMarshaled(buf *bytes.Buffer, codec Codec, v any) error {
	data, err := codec.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

func hasCustomMarshaler(rv reflect.Value) bool {
	t := rv.Type()
	if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
		return true
	}
	return rv.CanAddr() && (reflect.PointerTo(t).Implements(jsonMarshalerType) || reflect.PointerTo(t).Implements(textMarshalerType))
}

func structFields(rv reflect.Value) []Field {
	infos := cachedFields(rv.Type())
	fields := make([]Field, 0, len(infos))
	for _, info := range infos {
		fv, ok := fieldByIndex(rv, info.index)
		if !ok {
			continue
		}
		// Null fields are always reported so IncludeNull dumps keep them;
		// omitempty only drops empty non-null values.
		if IsNull(fv) {
			fields = append(fields, Field{Name: info.name, Null: true})
			continue
		}
		if info.omitEmpty && isEmpty(fv) {
			continue
		}
		fields = append(fields, Field{Name: info.name, Value: fv})
	}
	return fields
}

// isEmpty follows the json omitempty rule.
func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Struct:
		return false
	}
	return v.IsZero()
}

func mapFields(rv reflect.Value) []Field {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	fields := make([]Field, 0, len(keys))
	for _, k := range keys {
		fv := rv.MapIndex(k)
		if fv.Kind() == reflect.Interface && !fv.IsNil() {
			fv = fv.Elem()
		}
		if IsNull(fv) {
			fields = append(fields, Field{Name: k.String(), Null: true})
			continue
		}
		fields = append(fields, Field{Name: k.String(), Value: fv})
	}
	return fields
}

// fieldByIndex walks an index path, stopping at nil embedded pointers.
func fieldByIndex(rv reflect.Value, index []int) (reflect.Value, bool) {
	for i, x := range index {
		if i > 0 && rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				return reflect.Value{}, false
			}
			rv = rv.Elem()
		}
		rv = rv.Field(x)
	}
	return rv, true
}

func cachedFields(t reflect.Type) []fieldInfo {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.([]fieldInfo)
	}
	infos := collectFields(t, nil)
	fieldCache.Store(t, infos)
	return infos
}

func collectFields(t reflect.Type, parent []int) []fieldInfo {
	var infos []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), parent...), i)

		name, opts, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "-" && opts == "" {
			continue
		}

		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				infos = append(infos, collectFields(ft, index)...)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		infos = append(infos, fieldInfo{
			name:      name,
			index:     index,
			omitEmpty: strings.Contains(","+opts+",", ",omitempty,"),
		})
	}
	return infos
}

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}
