package shutdown

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	appErrors "ipmitree/internal/errors"
)

type recordingCloser struct {
	requested []string
	fail      map[string]error
}

func (r *recordingCloser) RequestClose(id string) error {
	r.requested = append(r.requested, id)
	return r.fail[id]
}

func permutations(ids []string) [][]string {
	if len(ids) <= 1 {
		return [][]string{append([]string(nil), ids...)}
	}
	var out [][]string
	for i := range ids {
		rest := make([]string, 0, len(ids)-1)
		rest = append(rest, ids[:i]...)
		rest = append(rest, ids[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{ids[i]}, p...))
		}
	}
	return out
}

func TestBarrierFiresAfterEveryCloseInAnyOrder(t *testing.T) {
	ids := []string{"conn-a", "conn-b", "conn-c"}
	orders := permutations(ids)
	if len(orders) != 6 {
		t.Fatalf("expected 6 orders, got %d", len(orders))
	}
	for _, order := range orders {
		closer := &recordingCloser{}
		c := New(closer)
		fired := 0
		var got Result
		if err := c.Begin(ids, func(r Result) { fired++; got = r }); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		if !reflect.DeepEqual(closer.requested, ids) {
			t.Fatalf("expected close requests for %v, got %v", ids, closer.requested)
		}
		for i, id := range order {
			if fired != 0 {
				t.Fatalf("order %v: fired after only %d closes", order, i)
			}
			c.OnResourceClosed(id)
		}
		if fired != 1 {
			t.Fatalf("order %v: expected exactly one completion, got %d", order, fired)
		}
		if !reflect.DeepEqual(got.Closed, order) {
			t.Fatalf("order %v: result lists %v", order, got.Closed)
		}
		if c.Active() {
			t.Fatalf("barrier should be discarded after completion")
		}
	}
}

func TestBeginEmptyFiresSynchronously(t *testing.T) {
	c := New(nil)
	fired := false
	if err := c.Begin(nil, func(Result) { fired = true }); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !fired {
		t.Fatalf("empty shutdown should complete before Begin returns")
	}
	if c.Active() {
		t.Fatalf("empty shutdown should not leave a barrier behind")
	}
}

func TestSecondBeginIsRejected(t *testing.T) {
	c := New(nil)
	if err := c.Begin([]string{"a"}, nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	err := c.Begin([]string{"b"}, nil)
	if !appErrors.IsCode(err, appErrors.CodeDoubleShutdown) {
		t.Fatalf("expected double shutdown, got %v", err)
	}
	if !errors.Is(err, appErrors.ErrDoubleShutdown) {
		t.Fatalf("expected sentinel match")
	}

	c.OnResourceClosed("a")
	if err := c.Begin([]string{"b"}, nil); err != nil {
		t.Fatalf("a new shutdown after completion should be allowed: %v", err)
	}
}

func TestUnknownAndRepeatedClosesAreIgnored(t *testing.T) {
	c := New(nil)
	fired := 0
	if err := c.Begin([]string{"a", "b"}, func(Result) { fired++ }); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	c.OnResourceClosed("a")
	c.OnResourceClosed("a")
	c.OnResourceClosed("zzz")
	if fired != 0 || c.Pending() != 1 {
		t.Fatalf("repeat or unknown closes must not count, pending %d fired %d", c.Pending(), fired)
	}
	c.OnResourceClosed("b")
	c.OnResourceClosed("b")
	if fired != 1 {
		t.Fatalf("expected exactly one completion, got %d", fired)
	}
}

func TestDuplicateIDsCountOnce(t *testing.T) {
	c := New(nil)
	fired := false
	if err := c.Begin([]string{"a", "a"}, func(Result) { fired = true }); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	c.OnResourceClosed("a")
	if !fired {
		t.Fatalf("duplicate ids should collapse into one pending resource")
	}
}

func TestFailedCloseRequestCountsAsClosed(t *testing.T) {
	closer := &recordingCloser{fail: map[string]error{"b": errors.New("connection reset")}}
	c := New(closer)
	var got Result
	if err := c.Begin([]string{"a", "b"}, func(r Result) { got = r }); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if c.Pending() != 1 {
		t.Fatalf("failed request should be counted as closed, pending %d", c.Pending())
	}
	c.OnResourceClosed("a")
	if !reflect.DeepEqual(got.Closed, []string{"b", "a"}) {
		t.Fatalf("unexpected closed list %v", got.Closed)
	}
}

func TestSynchronousCloserCompletesDuringBegin(t *testing.T) {
	var c *Coordinator
	fired := false
	c = New(CloserFunc(func(id string) error {
		c.OnResourceClosed(id)
		return nil
	}))
	if err := c.Begin([]string{"a", "b"}, func(Result) { fired = true }); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if !fired {
		t.Fatalf("closer reporting inline should complete the barrier")
	}
}

func TestExpireListsStragglers(t *testing.T) {
	now := time.Unix(0, 0)
	c := New(nil, WithTimeout(5*time.Second), WithNow(func() time.Time { return now }))
	var got Result
	if err := c.Begin([]string{"a", "b", "c"}, func(r Result) { got = r }); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	timeout, gen, ok := c.Deadline()
	if !ok || timeout != 5*time.Second {
		t.Fatalf("expected armed 5s deadline, got %s %v", timeout, ok)
	}
	c.OnResourceClosed("b")
	now = now.Add(5 * time.Second)

	if !c.Expire(gen) {
		t.Fatalf("Expire should complete the outstanding barrier")
	}
	if !got.TimedOut || !reflect.DeepEqual(got.Stragglers, []string{"a", "c"}) {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.Elapsed != 5*time.Second {
		t.Fatalf("expected 5s elapsed, got %s", got.Elapsed)
	}
	if c.Expire(gen) {
		t.Fatalf("second Expire must be a no-op")
	}
	c.OnResourceClosed("a")
}

func TestExpireIgnoresStaleGeneration(t *testing.T) {
	c := New(nil, WithTimeout(time.Second))
	if err := c.Begin([]string{"a"}, nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	_, first, _ := c.Deadline()
	c.OnResourceClosed("a")

	fired := false
	if err := c.Begin([]string{"b"}, func(Result) { fired = true }); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if c.Expire(first) || fired {
		t.Fatalf("timer from a finished shutdown must not expire the next one")
	}
}

func TestNoDeadlineWithoutTimeout(t *testing.T) {
	c := New(nil)
	if err := c.Begin([]string{"a"}, nil); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, _, ok := c.Deadline(); ok {
		t.Fatalf("zero timeout should never arm a deadline")
	}
}

func TestConcurrentClosesFireOnce(t *testing.T) {
	const n = 64
	ids := make([]string, n)
	for i := range ids {
		ids[i] = string(rune('A' + i))
	}
	c := New(nil)
	var mu sync.Mutex
	fired := 0
	done := make(chan struct{})
	if err := c.Begin(ids, func(Result) {
		mu.Lock()
		fired++
		mu.Unlock()
		close(done)
	}); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(2)
		go func() { defer wg.Done(); c.OnResourceClosed(id) }()
		go func() { defer wg.Done(); c.OnResourceClosed(id) }()
	}
	wg.Wait()
	<-done
	mu.Lock()
	defer mu.Unlock()
	if fired != 1 {
		t.Fatalf("expected one completion, got %d", fired)
	}
}
