package future

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestResolveOnce(t *testing.T) {
	f, resolve := New()
	if f.IsDone() {
		t.Fatal("new future should be pending")
	}
	if f.Err() != nil {
		t.Fatal("pending future should report nil Err")
	}

	boom := errors.New("boom")
	if !resolve(boom) {
		t.Fatal("first resolve should win")
	}
	if resolve(nil) {
		t.Fatal("second resolve should be ignored")
	}
	if !f.IsDone() || !f.Failed() {
		t.Fatal("future should be failed")
	}
	if !errors.Is(f.Err(), boom) {
		t.Fatalf("Err() = %v, want %v", f.Err(), boom)
	}
}

func TestCompletedAndFailed(t *testing.T) {
	if err := Completed().Wait(context.Background()); err != nil {
		t.Fatalf("Completed().Wait() = %v", err)
	}
	boom := errors.New("boom")
	f := Failed(boom)
	if !f.IsDone() {
		t.Fatal("Failed() should be resolved without waiting")
	}
	if !errors.Is(f.Err(), boom) {
		t.Fatalf("Err() = %v, want %v", f.Err(), boom)
	}
}

func TestWaitContextCancel(t *testing.T) {
	f, _ := New()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := f.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() = %v, want deadline exceeded", err)
	}
}

func TestJoinEmptyAndSingle(t *testing.T) {
	if !Join().IsDone() {
		t.Fatal("Join() of nothing should be complete")
	}
	if !Join(nil, nil).IsDone() {
		t.Fatal("Join() of nils should be complete")
	}
	f, _ := New()
	if Join(f) != f {
		t.Fatal("Join() of one future should return it")
	}
}

func TestJoinAlreadyDone(t *testing.T) {
	boom := errors.New("boom")
	j := Join(Completed(), Failed(boom), Completed())
	if !j.IsDone() {
		t.Fatal("join of resolved futures should be resolved immediately")
	}
	if !errors.Is(j.Err(), boom) {
		t.Fatalf("Err() = %v, want %v", j.Err(), boom)
	}
}

func TestJoinCompletesAtLast(t *testing.T) {
	a, resolveA := New()
	b, resolveB := New()
	j := Join(a, b)

	resolveA(nil)
	select {
	case <-j.Done():
		t.Fatal("join resolved before every participant completed")
	case <-time.After(20 * time.Millisecond):
	}

	resolveB(nil)
	select {
	case <-j.Done():
	case <-time.After(time.Second):
		t.Fatal("join did not resolve after last participant")
	}
	if j.Err() != nil {
		t.Fatalf("Err() = %v, want nil", j.Err())
	}
}

func TestJoinFailureWaitsForOthers(t *testing.T) {
	a, resolveA := New()
	b, resolveB := New()
	j := Join(a, b)

	boom := errors.New("boom")
	resolveA(boom)

	select {
	case <-j.Done():
		t.Fatal("join should still wait for b")
	case <-time.After(20 * time.Millisecond):
	}
	if b.IsDone() {
		t.Fatal("failure of a must not resolve b")
	}

	resolveB(nil)
	if err := j.Wait(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Wait() = %v, want %v", err, boom)
	}
}

func TestJoinNested(t *testing.T) {
	a, resolveA := New()
	b, resolveB := New()
	c, resolveC := New()

	combined := Join(Join(a, b), c)
	resolveC(nil)
	resolveA(nil)
	if combined.IsDone() {
		t.Fatal("combined resolved early")
	}
	resolveB(nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := combined.Wait(ctx); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
}
