package request

import (
	"io"
	"strings"
	"testing"
)

func TestFormatBodyRaw(t *testing.T) {
	d := &Descriptor{DataType: DataRaw, Data: "hello"}
	b, err := formatBody(d)
	if err != nil {
		t.Fatalf("formatBody: %v", err)
	}
	if b.text != "hello" {
		t.Fatalf("got text=%q", b.text)
	}
}

func TestFormatBodyRawNil(t *testing.T) {
	d := &Descriptor{DataType: DataRaw, Data: nil}
	b, err := formatBody(d)
	if err != nil {
		t.Fatalf("formatBody: %v", err)
	}
	if b.text != "" {
		t.Fatalf("expected empty text for nil raw data, got %q", b.text)
	}
}

func TestFormatBodyRawCoercion(t *testing.T) {
	d := &Descriptor{DataType: DataRaw, Data: 42}
	b, err := formatBody(d)
	if err != nil {
		t.Fatalf("formatBody: %v", err)
	}
	if b.text != "42" {
		t.Fatalf("got text=%q", b.text)
	}
}

func TestFormatBodyJSON(t *testing.T) {
	d := &Descriptor{DataType: DataJSON, Data: map[string]any{"a": 1}}
	b, err := formatBody(d)
	if err != nil {
		t.Fatalf("formatBody: %v", err)
	}
	if b.text != `{"a":1}` {
		t.Fatalf("got text=%q", b.text)
	}
	if b.contentType != "application/json" {
		t.Fatalf("got contentType=%q", b.contentType)
	}
}

func TestFormatBodyForm(t *testing.T) {
	d := &Descriptor{DataType: DataForm, Data: map[string]string{"a": "1"}}
	b, err := formatBody(d)
	if err != nil {
		t.Fatalf("formatBody: %v", err)
	}
	if b.text != "a=1" {
		t.Fatalf("got text=%q", b.text)
	}
	if b.contentType != "application/x-www-form-urlencoded" {
		t.Fatalf("got contentType=%q", b.contentType)
	}
}

func TestFormatBodyFormRepeatedKeys(t *testing.T) {
	d := &Descriptor{DataType: DataForm, Data: map[string][]string{"tag": {"a", "b"}}}
	b, err := formatBody(d)
	if err != nil {
		t.Fatalf("formatBody: %v", err)
	}
	if b.text != "tag=a&tag=b" {
		t.Fatalf("got text=%q", b.text)
	}
}

func TestFormatBodyBinary(t *testing.T) {
	d := &Descriptor{DataType: DataBinary, Data: []byte{1, 2, 3}}
	b, err := formatBody(d)
	if err != nil {
		t.Fatalf("formatBody: %v", err)
	}
	if !b.isBinary {
		t.Fatal("expected isBinary")
	}
	got, _ := io.ReadAll(b.newReader())
	if len(got) != 3 {
		t.Fatalf("got %d bytes", len(got))
	}
}

func TestFormatBodyBinaryWrongType(t *testing.T) {
	d := &Descriptor{DataType: DataBinary, Data: "not bytes"}
	_, err := formatBody(d)
	if err == nil || err.Kind() != InvalidInput {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestFormatBodyStream(t *testing.T) {
	d := &Descriptor{DataType: DataStream, Data: strings.NewReader("streamed")}
	b, err := formatBody(d)
	if err != nil {
		t.Fatalf("formatBody: %v", err)
	}
	if !b.isStream {
		t.Fatal("expected isStream")
	}
}

func TestFormatBodyUnknownDataType(t *testing.T) {
	d := &Descriptor{DataType: DataType(99), Data: "x"}
	_, err := formatBody(d)
	if err == nil || err.Kind() != InvalidInput {
		t.Fatalf("expected InvalidInput for unknown data type, got %v", err)
	}
}
