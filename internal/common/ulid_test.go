package common

import "testing"

func TestNewULID(t *testing.T) {
	a, err := NewULID()
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	if len(a) != 26 {
		t.Fatalf("len = %d, want 26", len(a))
	}

	b, err := NewULID()
	if err != nil {
		t.Fatalf("NewULID: %v", err)
	}
	if a == b {
		t.Fatal("two ids collided")
	}
}
