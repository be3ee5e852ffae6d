package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator("occurrence")

	if first, second := gen.Next(), gen.Next(); first != "occurrence-1" || second != "occurrence-2" {
		t.Fatalf("unexpected identifiers: %q, %q", first, second)
	}
}

func TestIDGeneratorDefaultsPrefix(t *testing.T) {
	gen := NewIDGenerator("")

	if next := gen.Next(); next != "id-1" {
		t.Fatalf("expected id-1, got %q", next)
	}
}

func TestIDGeneratorNextFuncOnNil(t *testing.T) {
	var gen *IDGenerator

	fn := gen.NextFunc()
	if got := fn(); got != "" {
		t.Fatalf("expected empty identifier from nil generator, got %q", got)
	}
}
