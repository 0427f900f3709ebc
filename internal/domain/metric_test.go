package domain

import "testing"

func TestMetricAddSuccess(t *testing.T) {
	// Advertised by B for destination C: hops [C, B].
	advertised := Metric{LatencyMs: 1, Bandwidth: 10, Hops: []NodeId{0x2, 0x1}}
	// Locally measured to B: hops [B, A].
	prefix := Metric{LatencyMs: 1, Bandwidth: 5, Hops: []NodeId{0x1, 0x0}}

	got, ok := advertised.Add(prefix)
	if !ok {
		t.Fatalf("expected Add to succeed")
	}
	want := []NodeId{0x2, 0x1, 0x0}
	if !hopsEqual(got.Hops, want) {
		t.Errorf("hops = %v, want %v", got.Hops, want)
	}
	if got.LatencyMs != 2 {
		t.Errorf("latency = %d, want 2", got.LatencyMs)
	}
	if got.Bandwidth != 5 {
		t.Errorf("bandwidth = %d, want 5", got.Bandwidth)
	}
}

func TestMetricAddRejectsLoop(t *testing.T) {
	// Advertised by B for destination A (our own node): hops [A, B].
	advertised := Metric{LatencyMs: 1, Hops: []NodeId{0x0, 0x1}}
	// Locally measured to B: hops [B, A].
	prefix := Metric{LatencyMs: 1, Hops: []NodeId{0x1, 0x0}}

	if _, ok := advertised.Add(prefix); ok {
		t.Fatalf("expected Add to reject the loop [A, B, A]")
	}
}

func TestMetricAddRejectsOverMaxHops(t *testing.T) {
	hops := make([]NodeId, MaxHopCount)
	for i := range hops {
		hops[i] = NodeId(i + 100)
	}
	advertised := Metric{Hops: hops}
	prefix := Metric{Hops: []NodeId{hops[len(hops)-1], 0x999}}

	if _, ok := advertised.Add(prefix); ok {
		t.Fatalf("expected Add to reject a metric exceeding MaxHopCount")
	}
}

func TestMetricBandwidthUnlimitedMin(t *testing.T) {
	advertised := Metric{Bandwidth: BandwidthUnlimited, Hops: []NodeId{0x2, 0x1}}
	prefix := Metric{Bandwidth: 7, Hops: []NodeId{0x1, 0x0}}
	got, ok := advertised.Add(prefix)
	if !ok {
		t.Fatalf("expected Add to succeed")
	}
	if got.Bandwidth != 7 {
		t.Errorf("bandwidth = %d, want 7 (finite beats unlimited)", got.Bandwidth)
	}
}

func TestMetricLessOrdering(t *testing.T) {
	fast := Metric{LatencyMs: 1, Bandwidth: 10, Hops: []NodeId{1}}
	slow := Metric{LatencyMs: 2, Bandwidth: 10, Hops: []NodeId{1}}
	if !fast.Less(slow) {
		t.Errorf("expected lower latency to sort first")
	}

	sameLatency1 := Metric{LatencyMs: 1, Bandwidth: 20, Hops: []NodeId{1}}
	sameLatency2 := Metric{LatencyMs: 1, Bandwidth: 10, Hops: []NodeId{1}}
	if !sameLatency1.Less(sameLatency2) {
		t.Errorf("expected higher bandwidth to sort first on latency tie")
	}

	shortHops := Metric{LatencyMs: 1, Bandwidth: 10, Hops: []NodeId{1}}
	longHops := Metric{LatencyMs: 1, Bandwidth: 10, Hops: []NodeId{1, 2}}
	if !shortHops.Less(longHops) {
		t.Errorf("expected fewer hops to sort first on latency+bandwidth tie")
	}
}
