package command

import (
	"errors"
	"sync"
	"testing"
)

func TestFutureResolvesExactlyOnce(t *testing.T) {
	f := NewFuture()
	f.Complete("first")
	f.Complete("second")
	f.Fail(errors.New("too late"))

	v, err := f.Await()
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if v != "first" {
		t.Errorf("Await = %v, want first resolution to win", v)
	}
}

func TestFutureFail(t *testing.T) {
	f := NewFuture()
	want := errors.New("handler exploded")
	f.Fail(want)

	if _, err := f.Await(); !errors.Is(err, want) {
		t.Errorf("Await error = %v, want %v", err, want)
	}
}

func TestFutureResolved(t *testing.T) {
	f := NewFuture()
	if f.Resolved() {
		t.Error("fresh future reports resolved")
	}
	f.Complete(nil)
	if !f.Resolved() {
		t.Error("completed future reports unresolved")
	}
}

func TestFutureConcurrentResolvers(t *testing.T) {
	f := NewFuture()

	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if n%2 == 0 {
				f.Complete(n)
			} else {
				f.Fail(errors.New("loser"))
			}
		}(i)
	}
	wg.Wait()

	v, err := f.Await()
	if (v == nil) == (err == nil) {
		t.Errorf("exactly one of value/error must be set: v=%v err=%v", v, err)
	}
}

func TestOutcomeCases(t *testing.T) {
	imm := Immediate(map[string]any{"ok": true})
	if _, ok := imm.Future(); ok {
		t.Error("immediate outcome reports a future")
	}
	if imm.Value() == nil {
		t.Error("immediate outcome lost its value")
	}

	inner := NewFuture()
	def := Deferred(inner)
	got, ok := def.Future()
	if !ok || got != inner {
		t.Error("deferred outcome does not carry its future")
	}
}
