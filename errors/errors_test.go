package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

type notFoundError struct{ *CallError }

type conflictError struct{ *CallError }

func (e *conflictError) Error() string { return "conflict: " + e.CallError.Error() }

func TestError_StatusMessage(t *testing.T) {
	err := Status("Http Code not in response_mapping", &Response{StatusCode: 418, Body: []byte("teapot")})
	if err.StatusCode != 418 {
		t.Errorf("expected 418, got %d", err.StatusCode)
	}
	if !strings.Contains(err.Error(), "HTTP 418") {
		t.Errorf("expected message to contain HTTP 418, got %q", err.Error())
	}
	if string(err.Content()) != "teapot" {
		t.Errorf("expected raw content, got %q", err.Content())
	}
}

func TestError_ClassFactory(t *testing.T) {
	class := NewClass("pet_not_found")
	err := class.Factory()(Status("mapped", &Response{StatusCode: http.StatusNotFound}))

	if !stderrors.Is(err, class) {
		t.Error("expected errors.Is to match the class")
	}
	if stderrors.Is(err, NewClass("pet_not_found")) {
		t.Error("a different class with the same name must not match")
	}
	if !strings.Contains(err.Error(), "pet_not_found") {
		t.Errorf("expected class name in message, got %q", err.Error())
	}
}

func TestBase_ThroughWrapperType(t *testing.T) {
	base := Status("mapped", &Response{StatusCode: http.StatusNotFound})
	var err error = &notFoundError{base}
	err = fmt.Errorf("get pet: %w", err)

	got, ok := Base(err)
	if !ok {
		t.Fatal("expected Base to find the embedded error")
	}
	if got != base {
		t.Error("expected Base to return the embedded pointer")
	}

	var nf *notFoundError
	if !stderrors.As(err, &nf) {
		t.Fatal("expected errors.As to find the wrapper type")
	}
	if nf.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", nf.StatusCode)
	}
	if !IsStatus(err) {
		t.Error("expected IsStatus=true")
	}
}

func TestBase_WrapperWithOwnMessage(t *testing.T) {
	base := Status("mapped", &Response{StatusCode: http.StatusConflict})
	var err error = &conflictError{base}

	if !strings.HasPrefix(err.Error(), "conflict: lima: status") {
		t.Errorf("unexpected message %q", err.Error())
	}
	got, ok := Base(err)
	if !ok || got != base {
		t.Fatal("expected Base to find the embedded error")
	}
	if status, ok := StatusOf(err); !ok || status != http.StatusConflict {
		t.Errorf("StatusOf = %d, %v", status, ok)
	}
}

func TestBase_PlainError(t *testing.T) {
	if _, ok := Base(stderrors.New("boom")); ok {
		t.Error("plain errors have no base")
	}
	if IsTransport(stderrors.New("boom")) {
		t.Error("plain errors are not transport errors")
	}
}

func TestError_LazyJSON(t *testing.T) {
	calls := 0
	err := Status("mapped", &Response{StatusCode: 400, Body: []byte(`{"code":"bad"}`)})
	err.WithDecoder(func(data []byte, v any) error {
		calls++
		return DefaultDecode(data, v)
	})

	for i := 0; i < 3; i++ {
		content, decErr := err.JSON()
		if decErr != nil {
			t.Fatalf("unexpected error: %v", decErr)
		}
		m, ok := content.(map[string]any)
		if !ok || m["code"] != "bad" {
			t.Fatalf("unexpected content: %#v", content)
		}
	}
	if calls != 1 {
		t.Errorf("expected one decode, got %d", calls)
	}
}

func TestError_DecodeWithoutContent(t *testing.T) {
	err := Transport(stderrors.New("connection refused"))
	var v map[string]any
	if decErr := err.Decode(&v); decErr == nil {
		t.Error("expected an error when there is no content")
	}
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		ok     bool
	}{
		{"status", Status("x", &Response{StatusCode: 429}), 429, true},
		{"transport", Transport(stderrors.New("refused")), StatusTransportFailure, true},
		{"binding", Binding("missing <%s>", "id"), 0, false},
		{"validation", Validation("decode", nil), 0, false},
		{"plain", stderrors.New("x"), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, ok := StatusOf(tt.err)
			if status != tt.status || ok != tt.ok {
				t.Errorf("StatusOf = (%d, %v), want (%d, %v)", status, ok, tt.status, tt.ok)
			}
		})
	}
}

func TestKind_Predicates(t *testing.T) {
	if !IsBinding(Binding("x")) {
		t.Error("expected IsBinding")
	}
	if !IsSession(Session("not started")) {
		t.Error("expected IsSession")
	}
	if !IsValidation(Validation("bad", nil)) {
		t.Error("expected IsValidation")
	}
	if KindValidation.Retryable() || KindBinding.Retryable() {
		t.Error("validation and binding errors are never retryable")
	}
}

func TestError_UnwrapCause(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	err := Transport(cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable through Unwrap")
	}
}
