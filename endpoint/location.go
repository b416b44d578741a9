package endpoint

import (
	"fmt"
	"io"
	"strings"
)

// Location is where a parameter is placed in the request.
type Location int

const (
	// LocationAuto derives the location from the parameter type and the verb.
	LocationAuto Location = iota
	LocationPath
	LocationQuery
	LocationBody
	LocationHeader
	LocationFile
)

// String returns the location name.
func (l Location) String() string {
	switch l {
	case LocationAuto:
		return "auto"
	case LocationPath:
		return "path"
	case LocationQuery:
		return "query"
	case LocationBody:
		return "body"
	case LocationHeader:
		return "header"
	case LocationFile:
		return "file"
	default:
		return "unknown"
	}
}

// DumpMode controls how a structured query value is flattened.
type DumpMode int

const (
	// DumpDefault inherits the endpoint (then package) default.
	DumpDefault DumpMode = iota
	// DumpDict sends one query item per non-null field.
	DumpDict
	// DumpDictNone sends one query item per field, null fields as empty values.
	DumpDictNone
	// DumpJSON sends the value as a single JSON item without null fields.
	DumpJSON
	// DumpJSONNone sends the value as a single JSON item keeping null fields.
	DumpJSONNone
)

// DefaultDumpMode is used when neither the parameter nor the endpoint sets one.
const DefaultDumpMode = DumpDict

// String returns the dump mode name.
func (m DumpMode) String() string {
	switch m {
	case DumpDict:
		return "dict"
	case DumpDictNone:
		return "dict_none"
	case DumpJSON:
		return "json"
	case DumpJSONNone:
		return "json_none"
	default:
		return "default"
	}
}

// IncludeNull reports whether null fields are kept.
func (m DumpMode) IncludeNull() bool { return m == DumpDictNone || m == DumpJSONNone }

// IsJSON reports whether the value is sent as a single JSON item.
func (m DumpMode) IsJSON() bool { return m == DumpJSON || m == DumpJSONNone }

// ParseDumpMode parses a dump mode name.
func ParseDumpMode(s string) (DumpMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return DumpDefault, nil
	case "dict":
		return DumpDict, nil
	case "dict_none":
		return DumpDictNone, nil
	case "json":
		return DumpJSON, nil
	case "json_none":
		return DumpJSONNone, nil
	default:
		return DumpDefault, fmt.Errorf("endpoint: unknown dump mode %q", s)
	}
}

// KwargsMode routes call arguments that match no declared parameter.
type KwargsMode int

const (
	// KwargsNone rejects undeclared arguments with a binding error.
	KwargsNone KwargsMode = iota
	// KwargsIgnore drops undeclared arguments.
	KwargsIgnore
	// KwargsQuery sends every undeclared argument as a query item.
	KwargsQuery
	// KwargsBody sends undeclared arguments as the fields of a JSON object body.
	KwargsBody
)

// Mode is the session mode an endpoint must be invoked from.
type Mode int

const (
	ModeSync Mode = iota
	ModeAsync
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModeAsync {
		return "async"
	}
	return "sync"
}

// File is a file payload for a File-location parameter.
type File struct {
	// Name is the file name sent to the server.
	Name string
	// ContentType defaults to application/octet-stream.
	ContentType string
	// Reader supplies the file content.
	Reader io.Reader
}
