package maintenance

import (
	"testing"

	"socketpoold/internal/dispatcher"
	"socketpoold/internal/pool"
	"socketpoold/internal/stats"
)

func TestSampleMetricsInvokesPublisher(t *testing.T) {
	registry := pool.NewRegistry(5)
	statsTable := stats.NewTable()
	statsTable.RecordSuccess("127.0.0.1:9000")
	disp := dispatcher.New(registry, nil, statsTable, "")

	var published stats.Sample
	var calls int
	r := New(registry, statsTable, disp, 0, 0)
	r.Publish = func(s stats.Sample) { published = s; calls++ }

	r.sampleMetrics()

	if calls != 1 {
		t.Fatalf("expected publisher called once, got %d", calls)
	}
	if published.Instance != disp.InstanceID {
		t.Fatalf("expected sample instance %s, got %s", disp.InstanceID, published.Instance)
	}
	if len(published.Endpoints) != 1 || published.Endpoints[0].Success != 1 {
		t.Fatalf("expected one endpoint with 1 success, got %+v", published.Endpoints)
	}
}
