package kernel

import (
	"testing"

	"rtoscore/kerr"
)

func TestTimerCreateRejectsZeroInterval(t *testing.T) {
	k, _ := newTestKernel(t)
	if _, code := k.CreateTimer(0, OneShot, func(any) {}, nil); code != kerr.ErrInvalidParam {
		t.Fatalf("CreateTimer(0, ...) = %v, want ErrInvalidParam", code)
	}
}

func TestTimerCreateRejectsNilHandler(t *testing.T) {
	k, _ := newTestKernel(t)
	if _, code := k.CreateTimer(10, OneShot, nil, nil); code != kerr.ErrInvalidParam {
		t.Fatalf("CreateTimer with nil handler = %v, want ErrInvalidParam", code)
	}
}

func TestTimerOneShotFiresExactlyOnce(t *testing.T) {
	k, _ := newTestKernel(t)
	fired := 0
	timer, code := k.CreateTimer(10, OneShot, func(any) { fired++ }, nil)
	if code != kerr.OK {
		t.Fatalf("CreateTimer = %v", code)
	}
	if code := k.StartTimer(timer); code != kerr.OK {
		t.Fatalf("StartTimer = %v", code)
	}

	for i := 0; i < 9; i++ {
		k.Tick()
	}
	if fired != 0 {
		t.Fatalf("fired = %d before the 10th tick, want 0", fired)
	}

	k.Tick() // 10th tick: expiry reached
	if fired != 1 {
		t.Fatalf("fired = %d on the 10th tick, want 1", fired)
	}

	for i := 0; i < 20; i++ {
		k.Tick()
	}
	if fired != 1 {
		t.Fatalf("fired = %d after 20 more ticks, want 1 (one-shot must not refire)", fired)
	}
}

func TestTimerAutoReloadRepeats(t *testing.T) {
	k, _ := newTestKernel(t)
	fired := 0
	timer, _ := k.CreateTimer(5, AutoReload, func(any) { fired++ }, nil)
	if code := k.StartTimer(timer); code != kerr.OK {
		t.Fatalf("StartTimer = %v", code)
	}

	for i := 0; i < 25; i++ {
		k.Tick()
	}
	if fired != 5 {
		t.Fatalf("fired = %d after 25 ticks at interval 5, want 5", fired)
	}
}

func TestTimerStopPreventsFiring(t *testing.T) {
	k, _ := newTestKernel(t)
	fired := 0
	timer, _ := k.CreateTimer(5, AutoReload, func(any) { fired++ }, nil)
	k.StartTimer(timer)
	if code := k.StopTimer(timer); code != kerr.OK {
		t.Fatalf("StopTimer = %v", code)
	}

	for i := 0; i < 20; i++ {
		k.Tick()
	}
	if fired != 0 {
		t.Fatalf("fired = %d after stopping, want 0", fired)
	}
}

func TestTimerResetReschedulesFromNow(t *testing.T) {
	k, _ := newTestKernel(t)
	fired := 0
	timer, _ := k.CreateTimer(100, OneShot, func(any) { fired++ }, nil)
	k.StartTimer(timer)

	for i := 0; i < 3; i++ {
		k.Tick()
	}
	if code := k.ResetTimer(timer, 5); code != kerr.OK {
		t.Fatalf("ResetTimer = %v", code)
	}

	for i := 0; i < 4; i++ {
		k.Tick()
	}
	if fired != 0 {
		t.Fatalf("fired = %d before the rescheduled expiry, want 0", fired)
	}
	k.Tick()
	if fired != 1 {
		t.Fatalf("fired = %d at the rescheduled expiry, want 1", fired)
	}
}

func TestTimerDeleteReturnsSlotToPool(t *testing.T) {
	k, _ := newTestKernel(t)
	timer, _ := k.CreateTimer(10, OneShot, func(any) {}, nil)
	k.StartTimer(timer)
	if code := k.DeleteTimer(timer); code != kerr.OK {
		t.Fatalf("DeleteTimer = %v", code)
	}
	if code := k.StartTimer(timer); code != kerr.ErrInvalidHandle {
		t.Fatalf("StartTimer after delete = %v, want ErrInvalidHandle", code)
	}
}

func TestTimerPendingListOrdersByExpiry(t *testing.T) {
	k, _ := newTestKernel(t)
	var order []int
	late, _ := k.CreateTimer(20, OneShot, func(any) { order = append(order, 20) }, nil)
	early, _ := k.CreateTimer(5, OneShot, func(any) { order = append(order, 5) }, nil)
	k.StartTimer(late)
	k.StartTimer(early)

	for i := 0; i < 20; i++ {
		k.Tick()
	}
	if len(order) != 2 || order[0] != 5 || order[1] != 20 {
		t.Fatalf("fire order = %v, want [5 20]", order)
	}
}
