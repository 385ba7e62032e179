package testfixtures

import "testing"

func TestIDGeneratorProducesSequentialIDs(t *testing.T) {
	gen := NewIDGenerator(0xaa)

	first := gen.Next()
	second := gen.Next()

	if first == second {
		t.Fatalf("identifiers repeat: %s", first)
	}
	if first != gen.At(1) || second != gen.At(2) {
		t.Fatalf("unexpected identifiers: %s, %s", first, second)
	}
	if first[0] != 0xaa || first[15] != 1 {
		t.Fatalf("unexpected layout: %x", first[:])
	}
}

func TestIDGeneratorCanReset(t *testing.T) {
	gen := NewIDGenerator(1)
	first := gen.Next()
	gen.SetCounter(0)

	if next := gen.Next(); next != first {
		t.Fatalf("expected %s after reset, got %s", first, next)
	}
}
