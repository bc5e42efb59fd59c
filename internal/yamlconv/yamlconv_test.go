package yamlconv_test

import (
	"errors"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/reoring/picoprompt/internal/yamlconv"
	"github.com/reoring/picoprompt/jsonschema"
)

func TestDecode_PreservesKeyOrder(t *testing.T) {
	src := "zeta: 1\nalpha: 2\nmiddle: 3\n"
	v, err := yamlconv.Decode([]byte(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	m, ok := v.(jsonschema.Map)
	if !ok {
		t.Fatalf("expected ordered map, got %T", v)
	}
	var keys []string
	for p := m.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	want := []string{"zeta", "alpha", "middle"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
}

func TestDecode_ScalarTypes(t *testing.T) {
	src := "s: hello\ni: 42\nf: 1.5\nb: true\nn: null\nseq: [a, b]\n"
	v, err := yamlconv.Decode([]byte(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"s":"hello","i":42,"f":1.5,"b":true,"n":null,"seq":["a","b"]}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}

func TestDecode_EmptyDocument(t *testing.T) {
	v, err := yamlconv.Decode(nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v != nil {
		t.Errorf("expected nil, got %#v", v)
	}
}

func TestDecode_DuplicateKeys(t *testing.T) {
	_, err := yamlconv.Decode([]byte("a: 1\nb: 2\na: 3\n"))
	var dup *yamlconv.DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateKeyError, got %v", err)
	}
	if dup.Key != "a" || dup.Line != 3 {
		t.Errorf("unexpected error detail: %+v", dup)
	}
}

func TestDecode_NestedMappingsAreOrdered(t *testing.T) {
	src := "outer:\n  b: 1\n  a: 2\n"
	v, err := yamlconv.Decode([]byte(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `{"outer":{"b":1,"a":2}}`; string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}
