package debounce

import (
	"fmt"
	"testing"
	"time"
)

func testKey() Key {
	return Key{File: "src/app.ts", Line: 3, Pattern: "todo"}
}

func TestGateFirstOccurrencePasses(t *testing.T) {
	gate := NewGate(time.Minute, 0)

	if !gate.Allow(testKey()) {
		t.Error("first occurrence must pass")
	}
}

func TestGateSuppressesWithinWindow(t *testing.T) {
	gate := NewGate(time.Minute, 0)
	key := testKey()

	if !gate.Allow(key) {
		t.Fatal("first occurrence must pass")
	}
	if gate.Allow(key) {
		t.Error("repeat within window must be dropped")
	}
}

func TestGateReadmitsAfterWindow(t *testing.T) {
	gate := NewGate(20*time.Millisecond, 0)
	key := testKey()

	if !gate.Allow(key) {
		t.Fatal("first occurrence must pass")
	}

	time.Sleep(30 * time.Millisecond)

	if !gate.Allow(key) {
		t.Error("occurrence after the window must pass")
	}
}

func TestGateIndependentKeys(t *testing.T) {
	gate := NewGate(time.Minute, 0)

	if !gate.Allow(Key{File: "a.go", Line: 1, Pattern: "todo"}) {
		t.Error("first key must pass")
	}
	if !gate.Allow(Key{File: "a.go", Line: 2, Pattern: "todo"}) {
		t.Error("different line is a different key")
	}
	if !gate.Allow(Key{File: "a.go", Line: 1, Pattern: "fixme"}) {
		t.Error("different pattern is a different key")
	}
	if !gate.Allow(Key{File: "b.go", Line: 1, Pattern: "todo"}) {
		t.Error("different file is a different key")
	}
}

func TestGateDisabledWindowPassesEverything(t *testing.T) {
	gate := NewGate(0, 0)
	key := testKey()

	for i := 0; i < 5; i++ {
		if !gate.Allow(key) {
			t.Fatalf("occurrence %d dropped with debounce disabled", i)
		}
	}
	if gate.Len() != 0 {
		t.Error("disabled gate should not track keys")
	}
}

func TestGateBoundedKeySet(t *testing.T) {
	gate := NewGate(time.Minute, 8)

	for i := 0; i < 100; i++ {
		gate.Allow(Key{File: fmt.Sprintf("f%d.go", i), Line: 1, Pattern: "todo"})
	}

	if gate.Len() > 8 {
		t.Errorf("key set exceeded bound: %d", gate.Len())
	}
}

func TestGateReset(t *testing.T) {
	gate := NewGate(time.Minute, 0)
	key := testKey()

	gate.Allow(key)
	gate.Reset()

	if !gate.Allow(key) {
		t.Error("reset must clear suppression state")
	}
}
