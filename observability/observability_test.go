package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/hydrate/kit"
)

var errNotFound = errors.New("not found")

func classify(err error) string {
	if errors.Is(err, errNotFound) {
		return "payload_not_found"
	}
	return "internal"
}

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics(classify)
	m.Observe("decode", 5*time.Millisecond, nil)
	m.Observe("decode", 12*time.Millisecond, errNotFound)
	m.Observe("decode", 1*time.Millisecond, errors.New("boom"))

	s := m.Snapshot().Ops["decode"]
	want := OpStats{
		Calls:     3,
		Failures:  map[string]int64{"payload_not_found": 1, "internal": 1},
		TotalMS:   18,
		MaxMS:     12,
		LastError: "boom",
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestMetrics_SnapshotIsACopy(t *testing.T) {
	m := NewMetrics(nil)
	m.Observe("locate", 0, errNotFound)

	snap := m.Snapshot()
	snap.Ops["locate"].Failures["error"] = 99

	if got := m.Snapshot().Ops["locate"].Failures["error"]; got != 1 {
		t.Errorf("snapshot aliased internal state: got %d", got)
	}
}

func TestMetrics_Instrument(t *testing.T) {
	m := NewMetrics(classify)
	ep := kit.Chain(m.Instrument("decode"))(func(context.Context, any) (any, error) {
		return nil, errNotFound
	})
	ep(context.Background(), nil)
	ep(context.Background(), nil)

	if diff := cmp.Diff([]string{"decode"}, m.Ops()); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
	if got := m.Snapshot().Ops["decode"].Failures["payload_not_found"]; got != 2 {
		t.Errorf("failures: got %d", got)
	}
}

func TestCollectRuntimeMetrics(t *testing.T) {
	rm := CollectRuntimeMetrics()
	if rm.Goroutines < 1 {
		t.Errorf("goroutines: got %d", rm.Goroutines)
	}
	if rm.MemorySysMB <= 0 {
		t.Errorf("memory_sys_mb: got %f", rm.MemorySysMB)
	}
}
