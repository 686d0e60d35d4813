package ring

import "testing"

func TestPushAndOrder(t *testing.T) {
	b := New[int](3)
	for _, v := range []int{1, 2, 3} {
		if overflowed := b.Push(v); overflowed {
			t.Fatalf("unexpected overflow pushing %d", v)
		}
	}
	if got := b.Entries(); !equal(got, []int{1, 2, 3}) {
		t.Fatalf("got %v", got)
	}
}

func TestOverflowDropsOldest(t *testing.T) {
	b := New[int](3)
	b.Push(1)
	b.Push(2)
	b.Push(3)
	if overflowed := b.Push(4); !overflowed {
		t.Fatal("expected overflow on 4th push into capacity-3 buffer")
	}
	if got := b.Entries(); !equal(got, []int{2, 3, 4}) {
		t.Fatalf("got %v", got)
	}
	if b.Len() != 3 || b.Cap() != 3 {
		t.Fatalf("len=%d cap=%d", b.Len(), b.Cap())
	}
}

func TestReset(t *testing.T) {
	b := New[int](2)
	b.Push(1)
	b.Reset()
	if b.Len() != 0 {
		t.Fatalf("expected empty after reset, got len=%d", b.Len())
	}
	b.Push(9)
	if got := b.Entries(); !equal(got, []int{9}) {
		t.Fatalf("got %v", got)
	}
}

func equal(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
