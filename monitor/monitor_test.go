package monitor

import (
	"io"
	"strings"
	"testing"

	"rtoscore/hal"
	"rtoscore/kconfig"
	"rtoscore/kernel"
	"rtoscore/kerr"
)

// lineSink records every line a Monitor prints.
type lineSink struct {
	lines []string
}

func (s *lineSink) WriteLineString(line string) { s.lines = append(s.lines, line) }

func (s *lineSink) contains(substr string) bool {
	for _, l := range s.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func newTestMonitor(t *testing.T) (*Monitor, *kernel.Kernel, *lineSink) {
	t.Helper()
	h := hal.NewHost(io.Discard, 1000)
	t.Cleanup(h.Stop)
	k, err := kernel.New(kconfig.Default(), h)
	if err != nil {
		t.Fatalf("kernel.New: %v", err)
	}
	sink := &lineSink{}
	return New(k, sink), k, sink
}

func TestExecPsListsTasks(t *testing.T) {
	m, k, sink := newTestMonitor(t)

	_, code := k.CreateTask(kernel.TaskParams{
		Name:      "worker",
		Priority:  4,
		StackSize: 512,
		Entry:     func(c *kernel.TaskCtx) {},
	})
	if code != kerr.OK {
		t.Fatalf("CreateTask = %v", code)
	}

	m.Exec("ps")
	if !sink.contains("worker") {
		t.Fatalf("ps output should list the worker task, got %q", sink.lines)
	}
}

func TestExecFreeReportsHeap(t *testing.T) {
	m, _, sink := newTestMonitor(t)
	m.Exec("free")
	if !sink.contains("heap:") || !sink.contains("blocks:") {
		t.Fatalf("free output missing heap summary, got %q", sink.lines)
	}
}

func TestExecEchoHonorsShellQuoting(t *testing.T) {
	m, _, sink := newTestMonitor(t)
	m.Exec(`echo "hello world" two`)
	if len(sink.lines) != 1 || sink.lines[0] != "hello world two" {
		t.Fatalf("echo output = %q", sink.lines)
	}
}

func TestExecRejectsUnterminatedQuote(t *testing.T) {
	m, _, sink := newTestMonitor(t)
	m.Exec(`echo "oops`)
	if !sink.contains("monitor:") {
		t.Fatalf("malformed quoting should report a parse error, got %q", sink.lines)
	}
}

func TestExecUnknownCommand(t *testing.T) {
	m, _, sink := newTestMonitor(t)
	m.Exec("frobnicate")
	if !sink.contains("unknown command") {
		t.Fatalf("unknown command should be reported, got %q", sink.lines)
	}
}

func TestExecEmptyLineIsSilent(t *testing.T) {
	m, _, sink := newTestMonitor(t)
	m.Exec("   ")
	if len(sink.lines) != 0 {
		t.Fatalf("blank input should print nothing, got %q", sink.lines)
	}
}
