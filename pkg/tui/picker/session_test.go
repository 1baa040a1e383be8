// ABOUTME: End-to-end tests for picker sessions over scripted terminals with a fake clock
// ABOUTME: Not parallel: sessions share the process-wide terminal guard

package picker

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mauromedda/termdrop/pkg/tui/key"
	"github.com/mauromedda/termdrop/pkg/tui/terminal"
)

// compile-time checks: both terminals can drive a session.
var (
	_ Driver = (*terminal.VirtualTerminal)(nil)
	_ Driver = (*terminal.ProcessTerminal)(nil)
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// step is one scripted input: after the delay elapses, ev (or err) is read.
type step struct {
	after time.Duration
	ev    key.Event
	err   error
}

func press(after time.Duration, kt key.KeyType) step {
	return step{after: after, ev: key.KeyEvent(key.Key{Type: kt})}
}

// scriptDriver replays steps against a fake clock and records output and
// raw-mode transitions through an embedded VirtualTerminal.
type scriptDriver struct {
	*terminal.VirtualTerminal
	clock *fakeClock
	mu    sync.Mutex
	steps []step
	reads int
}

func newScriptDriver(steps ...step) *scriptDriver {
	return &scriptDriver{
		VirtualTerminal: terminal.NewVirtualTerminal(80, 24),
		clock:           newFakeClock(),
		steps:           steps,
	}
}

func (d *scriptDriver) ReadEvent() (key.Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.reads++
	if len(d.steps) == 0 {
		return key.Event{}, io.EOF
	}
	s := d.steps[0]
	d.steps = d.steps[1:]
	d.clock.Advance(s.after)
	return s.ev, s.err
}

func (d *scriptDriver) Reads() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reads
}

// tracker records action invocations.
type tracker struct {
	mu    sync.Mutex
	calls []string
}

func (tr *tracker) action(k string) { tr.mu.Lock(); tr.calls = append(tr.calls, k); tr.mu.Unlock() }

func (tr *tracker) choices(keys ...string) map[string]func(string) {
	m := make(map[string]func(string), len(keys))
	for _, k := range keys {
		m[k] = tr.action
	}
	return m
}

func (tr *tracker) Calls() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.calls...)
}

// run launches a sorted session over d and waits for it.
func run(t *testing.T, choices map[string]func(string), viewport int, d *scriptDriver, opts ...Option) (Result[string], string) {
	t.Helper()
	var diag bytes.Buffer
	opts = append([]Option{
		WithDriver(d),
		WithClock(d.clock.Now),
		WithDiagnostics(&diag),
		WithLabelOrder(strings.Compare),
	}, opts...)

	s, err := Launch(choices, viewport, opts...)
	if err != nil {
		t.Fatalf("Launch() error: %v", err)
	}
	res, err := s.Wait()
	if err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	return res, diag.String()
}

func assertBalanced(t *testing.T, vt *terminal.VirtualTerminal, wantEnters int) {
	t.Helper()
	if vt.EnterCount() != wantEnters || vt.ExitCount() != wantEnters {
		t.Errorf("raw mode enter/exit = %d/%d, want %d/%d", vt.EnterCount(), vt.ExitCount(), wantEnters, wantEnters)
	}
	if vt.IsRawMode() {
		t.Error("raw mode still active after Wait")
	}
}

func TestSession_ConfirmFirst(t *testing.T) {
	var tr tracker
	d := newScriptDriver(press(300*time.Millisecond, key.KeyEnter))

	res, _ := run(t, tr.choices("a", "b", "c"), 10, d)

	if res.Outcome != Confirmed || res.Selected != "a" || !res.Invoked {
		t.Errorf("result = %+v, want confirmed a", res)
	}
	if got := tr.Calls(); len(got) != 1 || got[0] != "a" {
		t.Errorf("calls = %v, want [a]", got)
	}
	if !strings.HasSuffix(d.Output(), "\r\nConfirm delete: a\r\n") {
		t.Errorf("output should end with the confirmation, got %q", tail(d.Output()))
	}
	assertBalanced(t, d.VirtualTerminal, 1)
}

func TestSession_WrapUp(t *testing.T) {
	var tr tracker
	d := newScriptDriver(
		press(300*time.Millisecond, key.KeyUp),
		press(300*time.Millisecond, key.KeyEnter),
	)

	res, _ := run(t, tr.choices("a", "b", "c"), 10, d)

	if res.Selected != "c" {
		t.Errorf("Selected = %q, want c", res.Selected)
	}
	if got := tr.Calls(); len(got) != 1 || got[0] != "c" {
		t.Errorf("calls = %v, want [c]", got)
	}
	frames := strings.Split(d.Output(), "\x1b[2J\x1b[1;1H")
	if !strings.Contains(frames[len(frames)-1], "\x1b[7m> c\x1b[0m") {
		t.Error("last frame should highlight c after wrapping up from a")
	}
}

func TestSession_WrapDown(t *testing.T) {
	var tr tracker
	d := newScriptDriver(
		press(300*time.Millisecond, key.KeyDown),
		press(300*time.Millisecond, key.KeyDown),
		press(300*time.Millisecond, key.KeyDown),
		press(300*time.Millisecond, key.KeyEnter),
	)

	res, _ := run(t, tr.choices("a", "b", "c"), 10, d)

	if res.Selected != "a" {
		t.Errorf("Selected = %q, want a after wrapping down", res.Selected)
	}
}

func TestSession_Cancel(t *testing.T) {
	var tr tracker
	d := newScriptDriver(press(time.Second, key.KeyEscape))

	res, _ := run(t, tr.choices("x"), 10, d)

	if res.Outcome != Canceled {
		t.Errorf("Outcome = %v, want canceled", res.Outcome)
	}
	if len(tr.Calls()) != 0 {
		t.Errorf("no action should run, got %v", tr.Calls())
	}
	if !strings.HasSuffix(d.Output(), "\r\nDelete canceled.\r\n") {
		t.Errorf("output should end with the cancel line, got %q", tail(d.Output()))
	}
	assertBalanced(t, d.VirtualTerminal, 1)
}

func TestSession_Empty(t *testing.T) {
	var tr tracker
	d := newScriptDriver()

	res, _ := run(t, tr.choices(), 10, d)

	if res.Outcome != EmptyNoOp {
		t.Errorf("Outcome = %v, want empty", res.Outcome)
	}
	assertBalanced(t, d.VirtualTerminal, 0)
	if d.Reads() != 0 {
		t.Errorf("ReadEvent called %d times, want 0", d.Reads())
	}
	if d.Output() != "\r\nNo options available.\r\n" {
		t.Errorf("Output() = %q", d.Output())
	}
}

func TestSession_NilTable(t *testing.T) {
	d := newScriptDriver()

	res, _ := run(t, nil, 3, d)

	if res.Outcome != EmptyNoOp {
		t.Errorf("Outcome = %v, want empty", res.Outcome)
	}
}

func TestSession_Debounce(t *testing.T) {
	var tr tracker
	d := newScriptDriver(
		press(300*time.Millisecond, key.KeyDown),
		press(50*time.Millisecond, key.KeyDown),
		press(50*time.Millisecond, key.KeyDown),
		press(400*time.Millisecond, key.KeyEnter),
	)

	res, _ := run(t, tr.choices("a", "b"), 10, d)

	if res.Selected != "b" {
		t.Errorf("Selected = %q, want b: only the first Down may act", res.Selected)
	}
	if got := tr.Calls(); len(got) != 1 || got[0] != "b" {
		t.Errorf("calls = %v, want [b]", got)
	}
	// Initial frame plus one re-render for the single acted-upon Down.
	if frames := strings.Count(d.Output(), "\x1b[2J"); frames != 2 {
		t.Errorf("rendered %d frames, want 2", frames)
	}
}

func TestSession_InputRightAfterLaunchIsDebounced(t *testing.T) {
	var tr tracker
	d := newScriptDriver(
		press(100*time.Millisecond, key.KeyEnter),
		press(300*time.Millisecond, key.KeyEscape),
	)

	res, _ := run(t, tr.choices("a"), 10, d)

	if res.Outcome != Canceled {
		t.Errorf("Outcome = %v, want canceled: Enter inside the first window must be dropped", res.Outcome)
	}
}

func TestSession_IgnoredKeysDoNotAdvanceWindow(t *testing.T) {
	var tr tracker
	d := newScriptDriver(
		step{after: 400 * time.Millisecond, ev: key.KeyEvent(key.Key{Type: key.KeyRune, Rune: 'x'})},
		press(100*time.Millisecond, key.KeyDown),
		press(300*time.Millisecond, key.KeyEnter),
	)

	res, _ := run(t, tr.choices("a", "b"), 10, d)

	if res.Selected != "b" {
		t.Errorf("Selected = %q, want b: the ignored key must not restart the window", res.Selected)
	}
}

func TestSession_NonKeyEventsSkipDebounce(t *testing.T) {
	var tr tracker
	d := newScriptDriver(
		step{after: 350 * time.Millisecond, ev: key.Event{Kind: key.EventPaste}},
		press(0, key.KeyDown),
		press(300*time.Millisecond, key.KeyEnter),
	)

	res, _ := run(t, tr.choices("a", "b"), 10, d)

	if res.Selected != "b" {
		t.Errorf("Selected = %q, want b: a paste must not consume the window", res.Selected)
	}
}

func TestSession_OverflowCentering(t *testing.T) {
	var tr tracker
	keys := make([]string, 20)
	for i := range keys {
		keys[i] = fmt.Sprintf("item%02d", i)
	}
	var steps []step
	for range 10 {
		steps = append(steps, press(300*time.Millisecond, key.KeyDown))
	}
	steps = append(steps, press(300*time.Millisecond, key.KeyEscape))
	d := newScriptDriver(steps...)

	res, _ := run(t, tr.choices(keys...), 5, d)

	if res.Outcome != Canceled {
		t.Fatalf("Outcome = %v, want canceled", res.Outcome)
	}
	out := strings.TrimSuffix(d.Output(), "\r\nDelete canceled.\r\n")
	if !strings.Contains(out, "Total: 20 | Showing: 9 - 13") {
		t.Errorf("last frame should show 9 - 13, got %q", tail(out))
	}
	rows := optionRows(out)
	if len(rows) != 5 {
		t.Fatalf("got %d option rows, want 5: %q", len(rows), rows)
	}
	if rows[2] != "\x1b[7m> item10\x1b[0m" {
		t.Errorf("third row = %q, want highlighted item10", rows[2])
	}
}

func TestSession_EnableFailure(t *testing.T) {
	var tr tracker
	d := newScriptDriver(press(time.Second, key.KeyEnter))
	boom := errors.New("not a tty")
	d.FailEnter(boom)

	res, diag := run(t, tr.choices("a"), 10, d)

	if res.Outcome != Aborted {
		t.Fatalf("Outcome = %v, want aborted", res.Outcome)
	}
	var merr *TerminalModeError
	if !errors.As(res.Err, &merr) || merr.Op != "enable" || !errors.Is(res.Err, boom) {
		t.Errorf("Err = %v, want enable TerminalModeError wrapping cause", res.Err)
	}
	if d.Output() != "" {
		t.Errorf("no terminal output expected, got %q", d.Output())
	}
	if d.Reads() != 0 {
		t.Errorf("ReadEvent called %d times, want 0", d.Reads())
	}
	assertBalanced(t, d.VirtualTerminal, 0)
	if !strings.Contains(diag, "[ERROR] failed to enable raw mode") {
		t.Errorf("diagnostics = %q", diag)
	}
	if len(tr.Calls()) != 0 {
		t.Errorf("no action should run, got %v", tr.Calls())
	}
}

func TestSession_ReadFailure(t *testing.T) {
	var tr tracker
	boom := errors.New("input/output error")
	d := newScriptDriver(
		press(300*time.Millisecond, key.KeyDown),
		step{err: boom},
	)

	res, diag := run(t, tr.choices("a", "b"), 10, d)

	var rerr *InputReadError
	if res.Outcome != Aborted || !errors.As(res.Err, &rerr) || !errors.Is(res.Err, boom) {
		t.Errorf("result = %+v, want aborted InputReadError", res)
	}
	assertBalanced(t, d.VirtualTerminal, 1)
	if !strings.Contains(diag, "failed to read event: input/output error") {
		t.Errorf("diagnostics = %q", diag)
	}
	if len(tr.Calls()) != 0 {
		t.Errorf("no action should run, got %v", tr.Calls())
	}
}

func TestSession_DisableFailureIsNotFatal(t *testing.T) {
	var tr tracker
	d := newScriptDriver(press(300*time.Millisecond, key.KeyEnter))
	d.FailExit(errors.New("restore failed"))

	res, diag := run(t, tr.choices("a"), 10, d)

	if res.Outcome != Confirmed || !res.Invoked {
		t.Errorf("result = %+v, want confirmed", res)
	}
	if d.ExitCount() != 1 {
		t.Errorf("ExitCount() = %d, want 1", d.ExitCount())
	}
	if !strings.Contains(diag, "failed to disable raw mode: exiting raw mode: restore failed") {
		t.Errorf("diagnostics = %q", diag)
	}
}

func TestSession_FlushFailureIsNotFatal(t *testing.T) {
	var tr tracker
	d := newScriptDriver(
		press(300*time.Millisecond, key.KeyDown),
		press(300*time.Millisecond, key.KeyEnter),
	)
	d.FailFlush(errors.New("EAGAIN"))

	res, diag := run(t, tr.choices("a", "b"), 10, d)

	if res.Outcome != Confirmed || res.Selected != "b" {
		t.Errorf("result = %+v, want confirmed b", res)
	}
	if !strings.Contains(diag, "failed to flush stdout") {
		t.Errorf("diagnostics = %q", diag)
	}
}

func TestSession_MissingActionIsNotInvoked(t *testing.T) {
	d := newScriptDriver(press(300*time.Millisecond, key.KeyEnter))

	res, _ := run(t, map[string]func(string){"only": nil}, 10, d)

	if res.Outcome != Confirmed || res.Selected != "only" || res.Invoked {
		t.Errorf("result = %+v, want confirmed without invocation", res)
	}
}

func TestSession_ActionConsumedBeforeInvocation(t *testing.T) {
	d := newScriptDriver(press(300*time.Millisecond, key.KeyEnter))
	remaining := -1
	var choices map[string]func(string)
	choices = map[string]func(string){
		"a": func(string) { remaining = len(choices) },
		"b": func(string) {},
	}

	res, _ := run(t, choices, 10, d)

	if res.Selected != "a" {
		t.Fatalf("Selected = %q, want a", res.Selected)
	}
	if remaining != 1 {
		t.Errorf("table held %d entries during the action, want 1", remaining)
	}
}

func TestSession_ActionPanicIsWorkerFault(t *testing.T) {
	d := newScriptDriver(press(300*time.Millisecond, key.KeyEnter))
	var diag bytes.Buffer
	choices := map[string]func(string){
		"a": func(string) { panic("action exploded") },
	}

	s, err := Launch(choices, 10, WithDriver(d), WithClock(d.clock.Now), WithDiagnostics(&diag))
	if err != nil {
		t.Fatalf("Launch() error: %v", err)
	}
	res, err := s.Wait()
	if !errors.Is(err, ErrWorkerFault) {
		t.Fatalf("Wait() error = %v, want ErrWorkerFault", err)
	}
	var pe *terminal.PanicError
	if !errors.As(err, &pe) || pe.Value != "action exploded" {
		t.Errorf("Wait() error = %v, want wrapped PanicError", err)
	}
	if res.Outcome != Aborted {
		t.Errorf("Outcome = %v, want aborted", res.Outcome)
	}
	assertBalanced(t, d.VirtualTerminal, 1)
	if !strings.Contains(diag.String(), "goroutine panic: action exploded") {
		t.Errorf("diagnostics = %q", diag.String())
	}

	// The guard must be free again.
	s2, err := Launch(map[string]func(string){}, 1, WithDriver(newScriptDriver()), WithDiagnostics(io.Discard))
	if err != nil {
		t.Fatalf("Launch() after fault: %v", err)
	}
	_, _ = s2.Wait()
}

func TestSession_ActionEffectsVisibleAfterWait(t *testing.T) {
	d := newScriptDriver(press(300*time.Millisecond, key.KeyEnter))
	var deleted string // no lock: Wait orders the action before the read
	choices := map[string]func(string){
		"victim": func(k string) { deleted = k },
	}

	s, err := Launch(choices, 10, WithDriver(d), WithClock(d.clock.Now), WithDiagnostics(io.Discard))
	if err != nil {
		t.Fatalf("Launch() error: %v", err)
	}
	if _, err := s.Wait(); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if deleted != "victim" {
		t.Errorf("deleted = %q, want victim", deleted)
	}
}

func TestSession_DoubleJoin(t *testing.T) {
	d := newScriptDriver(press(300*time.Millisecond, key.KeyEscape))
	s, err := Launch(map[string]func(string){"a": nil}, 1, WithDriver(d), WithClock(d.clock.Now), WithDiagnostics(io.Discard))
	if err != nil {
		t.Fatalf("Launch() error: %v", err)
	}
	if _, err := s.Wait(); err != nil {
		t.Fatalf("first Wait() error: %v", err)
	}
	if _, err := s.Wait(); !errors.Is(err, ErrAlreadyJoined) {
		t.Errorf("second Wait() = %v, want ErrAlreadyJoined", err)
	}
	select {
	case <-s.Done():
	default:
		t.Error("Done() should be closed after Wait")
	}
}

func TestLaunch_InvalidViewport(t *testing.T) {
	for _, vp := range []int{0, -3} {
		_, err := Launch(map[string]func(string){"a": nil}, vp, WithDriver(newScriptDriver()))
		if !errors.Is(err, ErrInvalidViewport) {
			t.Errorf("Launch(viewport=%d) = %v, want ErrInvalidViewport", vp, err)
		}
	}
}

// blockingDriver hands out events only when the test sends them.
type blockingDriver struct {
	*terminal.VirtualTerminal
	events chan key.Event
}

func (d *blockingDriver) ReadEvent() (key.Event, error) {
	return <-d.events, nil
}

func TestLaunch_OneSessionAtATime(t *testing.T) {
	first := &blockingDriver{VirtualTerminal: terminal.NewVirtualTerminal(80, 24), events: make(chan key.Event)}
	s1, err := Launch(map[string]func(string){"a": nil}, 5, WithDriver(first), WithDebounce(0), WithDiagnostics(io.Discard))
	if err != nil {
		t.Fatalf("first Launch() error: %v", err)
	}

	if _, err := Launch(map[string]func(string){"b": nil}, 5, WithDriver(newScriptDriver())); !errors.Is(err, ErrSessionActive) {
		t.Errorf("second Launch() = %v, want ErrSessionActive", err)
	}

	first.events <- key.KeyEvent(key.Key{Type: key.KeyEscape})
	if res, err := s1.Wait(); err != nil || res.Outcome != Canceled {
		t.Fatalf("first Wait() = %+v, %v", res, err)
	}

	s3, err := Launch(map[string]func(string){}, 5, WithDriver(newScriptDriver()), WithDiagnostics(io.Discard))
	if err != nil {
		t.Fatalf("Launch() after Wait: %v", err)
	}
	_, _ = s3.Wait()
}

func TestSession_RandomKeyStreams(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	kinds := []key.KeyType{key.KeyUp, key.KeyDown, key.KeyUp, key.KeyDown, key.KeyRune, key.KeyEnter, key.KeyEscape}
	delays := []time.Duration{0, 50 * time.Millisecond, 299 * time.Millisecond, 300 * time.Millisecond, time.Second}

	for i := range 200 {
		n := 1 + rng.IntN(12)
		keys := make([]string, n)
		for j := range keys {
			keys[j] = fmt.Sprintf("k%02d", j)
		}
		var steps []step
		for range rng.IntN(30) {
			steps = append(steps, press(delays[rng.IntN(len(delays))], kinds[rng.IntN(len(kinds))]))
		}

		var tr tracker
		d := newScriptDriver(steps...)
		res, _ := run(t, tr.choices(keys...), 1+rng.IntN(6), d)

		calls := tr.Calls()
		if len(calls) > 1 {
			t.Fatalf("stream %d: %d actions invoked", i, len(calls))
		}
		if len(calls) == 1 && (res.Outcome != Confirmed || calls[0] != res.Selected) {
			t.Fatalf("stream %d: invoked %q but result is %+v", i, calls[0], res)
		}
		if res.Outcome == Confirmed && !strings.HasPrefix(res.Selected, "k") {
			t.Fatalf("stream %d: selected unknown key %q", i, res.Selected)
		}
		if d.EnterCount() != d.ExitCount() {
			t.Fatalf("stream %d: raw mode enter/exit = %d/%d", i, d.EnterCount(), d.ExitCount())
		}
		if !slices.ContainsFunc(optionRows(d.Output()), func(row string) bool {
			return strings.HasPrefix(row, "\x1b[7m> ")
		}) {
			t.Fatalf("stream %d: last frame has no highlighted row", i)
		}
	}
}

func TestSession_LineWidthTruncatesLabels(t *testing.T) {
	var tr tracker
	d := newScriptDriver(press(300*time.Millisecond, key.KeyEnter))

	res, _ := run(t, tr.choices("a-very-long-file-name.txt"), 10, d, WithLineWidth(10))

	if !strings.Contains(d.Output(), "\x1b[7m> a-very-…\x1b[0m") {
		t.Errorf("frame should carry the truncated label, got %q", d.Output())
	}
	if !strings.HasSuffix(d.Output(), "Confirm delete: a-very-long-file-name.txt\r\n") {
		t.Error("confirmation should carry the full label")
	}
	if res.Selected != "a-very-long-file-name.txt" {
		t.Errorf("Selected = %q", res.Selected)
	}
}

// stringerKey checks that keys are rendered through fmt.Stringer.
type stringerKey struct{ id int }

func (k stringerKey) String() string { return fmt.Sprintf("#%d", k.id) }

func TestSession_StringerKeys(t *testing.T) {
	d := newScriptDriver(press(300*time.Millisecond, key.KeyEnter))
	var got stringerKey
	choices := map[stringerKey]func(stringerKey){
		{id: 42}: func(k stringerKey) { got = k },
	}

	s, err := Launch(choices, 3, WithDriver(d), WithClock(d.clock.Now), WithDiagnostics(io.Discard))
	if err != nil {
		t.Fatalf("Launch() error: %v", err)
	}
	if _, err := s.Wait(); err != nil {
		t.Fatalf("Wait() error: %v", err)
	}
	if got.id != 42 {
		t.Errorf("action got %+v", got)
	}
	if !strings.Contains(d.Output(), "Confirm delete: #42") {
		t.Errorf("output = %q", tail(d.Output()))
	}
}

func TestSession_DebugTrace(t *testing.T) {
	var tr tracker
	d := newScriptDriver(
		press(10*time.Millisecond, key.KeyDown),
		press(300*time.Millisecond, key.KeyEscape),
	)

	_, diag := run(t, tr.choices("a", "b"), 10, d, WithLogLevel(slog.LevelDebug))

	for _, want := range []string{
		"[DEBUG] picker: uninitialized -> raw-acquired",
		"[DEBUG] picker: debounced Down",
		"[DEBUG] picker: running -> terminating",
		"[DEBUG] picker: terminating -> released",
	} {
		if !strings.Contains(diag, want) {
			t.Errorf("diagnostics missing %q:\n%s", want, diag)
		}
	}
}

// tail returns the last part of s for readable failure messages.
func tail(s string) string {
	if len(s) > 80 {
		return s[len(s)-80:]
	}
	return s
}
