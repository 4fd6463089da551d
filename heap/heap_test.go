package heap

import "testing"

func TestAllocFreeRoundTrip(t *testing.T) {
	h := New(1024, 8)

	p, code := h.Alloc(100)
	if code != 0 || p == NilPtr {
		t.Fatalf("Alloc(100) = (%d, %v)", p, code)
	}
	h.Write(p, []byte("hello"))
	got := make([]byte, 5)
	h.Read(p, got)
	if string(got) != "hello" {
		t.Fatalf("round trip got %q", got)
	}
	if code := h.Free(p); code != 0 {
		t.Fatalf("Free = %v", code)
	}
}

func TestZeroSizeAllocReturnsNil(t *testing.T) {
	h := New(1024, 8)
	p, code := h.Alloc(0)
	if code != 0 || p != NilPtr {
		t.Fatalf("Alloc(0) = (%d, %v), want (NilPtr, OK)", p, code)
	}
}

func TestFreeNilIsNoOp(t *testing.T) {
	h := New(1024, 8)
	if code := h.Free(NilPtr); code != 0 {
		t.Fatalf("Free(NilPtr) = %v, want OK", code)
	}
}

// TestFirstFitReusesFreedBlock: alloc 100,
// alloc 200, free the first, then alloc 100 again should reuse the freed
// leading block rather than carving a new one from the tail.
func TestFirstFitReusesFreedBlock(t *testing.T) {
	h := New(1024, 8)

	a, _ := h.Alloc(100)
	_, _ = h.Alloc(200)
	if code := h.Free(a); code != 0 {
		t.Fatalf("Free(a) = %v", code)
	}

	before := h.Stats()
	b, code := h.Alloc(100)
	if code != 0 {
		t.Fatalf("Alloc(100) = %v", code)
	}
	if b != a {
		t.Fatalf("expected first-fit reuse at offset %d, got %d", a, b)
	}
	after := h.Stats()
	if after.AllocCount != before.AllocCount+1 {
		t.Fatalf("AllocCount did not increase")
	}
}

func TestAllocTooLargeFails(t *testing.T) {
	h := New(1024, 8)
	_, _ = h.Alloc(100)
	_, _ = h.Alloc(200)

	var failedSize int
	h.SetFailHook(func(size int) { failedSize = size })

	p, code := h.Alloc(900)
	if code == 0 || p != NilPtr {
		t.Fatalf("Alloc(900) = (%d, %v), want out-of-memory", p, code)
	}
	if failedSize != 900 {
		t.Fatalf("fail hook saw size %d, want 900", failedSize)
	}
	if h.Stats().FailCount != 1 {
		t.Fatalf("FailCount = %d, want 1", h.Stats().FailCount)
	}
}

func TestCoalesceAcrossBothNeighbors(t *testing.T) {
	h := New(1024, 8)

	a, _ := h.Alloc(64)
	b, _ := h.Alloc(64)
	c, _ := h.Alloc(64)

	if code := h.Free(a); code != 0 {
		t.Fatalf("Free(a) = %v", code)
	}
	if code := h.Free(c); code != 0 {
		t.Fatalf("Free(c) = %v", code)
	}
	if code := h.Free(b); code != 0 {
		t.Fatalf("Free(b) = %v", code)
	}

	// After freeing all three in non-address order, the allocator should
	// have coalesced everything back into (close to) one free block: a
	// subsequent large allocation should succeed without hitting the
	// tail of the arena.
	if p, code := h.Alloc(900); code != 0 || p == NilPtr {
		t.Fatalf("Alloc(900) after full coalesce = (%d, %v)", p, code)
	}
}

func TestStatsConsistency(t *testing.T) {
	h := New(1024, 8)
	var ptrs []int
	for i := 0; i < 5; i++ {
		p, code := h.Alloc(32)
		if code != 0 {
			t.Fatalf("Alloc failed at i=%d: %v", i, code)
		}
		ptrs = append(ptrs, p)
	}
	for _, p := range ptrs {
		if code := h.Free(p); code != 0 {
			t.Fatalf("Free failed: %v", code)
		}
	}
	st := h.Stats()
	if st.CurrentUsed != 0 || st.UsedBlocks != 0 {
		t.Fatalf("after freeing everything, stats = %+v", st)
	}
	if st.AllocCount != 5 || st.FreeCount != 5 {
		t.Fatalf("alloc/free counts = %+v", st)
	}
}
