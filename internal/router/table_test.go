package router

import (
	"testing"

	"github.com/8xFF/decentralized-sdn/internal/domain"
)

// S1. Three-node triangle.
func TestTableTriangleScenario(t *testing.T) {
	const A, B, C, D domain.NodeId = 0x0, 0x1, 0x2, 0x3
	table := NewTable(0, A, nil)

	table.AddDirect(1, B, domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{B, A}})
	table.AddDirect(2, C, domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{C, A}})

	sync := TableSync{
		{Slot: C.Layer(0), Metric: domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{C, B}}},
		{Slot: D.Layer(0), Metric: domain.Metric{LatencyMs: 2, Hops: []domain.NodeId{D, B}}},
	}
	table.ApplySync(1, B, domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{B, A}}, sync)

	if p, ok := table.NextPath(B, nil); !ok || p.Conn != 1 || p.NextHop != B {
		t.Fatalf("NextPath(B) = %+v, %v", p, ok)
	}
	if conn, next, ok := table.Next(C, nil); !ok || conn != 2 || next != C {
		t.Fatalf("Next(C) = conn %v next %v ok %v, want direct conn=2", conn, next, ok)
	}
	if conn, next, ok := table.Next(D, nil); !ok || conn != 1 || next != B {
		t.Fatalf("Next(D) = conn %v next %v ok %v, want via B conn=1", conn, next, ok)
	}
}

// S2. Withdraw via sync omission.
func TestTableWithdrawOnSyncOmission(t *testing.T) {
	const A, B, D domain.NodeId = 0x0, 0x1, 0x3
	table := NewTable(0, A, nil)
	table.AddDirect(1, B, domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{B, A}})

	over := domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{B, A}}
	table.ApplySync(1, B, over, TableSync{
		{Slot: D.Layer(0), Metric: domain.Metric{LatencyMs: 2, Hops: []domain.NodeId{D, B}}},
	})
	if _, _, ok := table.Next(D, nil); !ok {
		t.Fatalf("expected D reachable after first sync")
	}

	// Second sync from B omits D entirely: it must be withdrawn.
	table.ApplySync(1, B, over, TableSync{})
	if _, _, ok := table.Next(D, nil); ok {
		t.Fatalf("expected D withdrawn after sync omission")
	}
}

// S3. Loop suppression.
func TestTableRejectsLoopOnSync(t *testing.T) {
	const A, B domain.NodeId = 0x0, 0x1
	table := NewTable(0, A, nil)
	m1 := domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{B, A}}
	table.AddDirect(1, B, m1)

	// B advertises a route back to A (self) — must never be installed.
	table.ApplySync(1, B, m1, TableSync{
		{Slot: A.Layer(0), Metric: domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{A, B}}},
	})

	if !table.dests[A.Layer(0)].IsEmpty() {
		t.Fatalf("expected self slot to remain empty, loop must be rejected")
	}
}

// S4. Sync scope.
func TestTableSyncForOutOfScope(t *testing.T) {
	table := NewTable(0, 0, nil)
	if _, ok := table.SyncFor(0x10000000); ok {
		t.Fatalf("expected SyncFor to report out-of-scope remote")
	}
}

// Property 4: poisoned reverse — SyncFor(N) must never mention N in hops.
func TestTableSyncForPoisonedReverse(t *testing.T) {
	const A, B, C domain.NodeId = 0x0, 0x1, 0x2
	table := NewTable(0, A, nil)
	table.AddDirect(1, B, domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{B, A}})
	table.AddDirect(2, C, domain.Metric{LatencyMs: 5, Hops: []domain.NodeId{C, B, A}})

	sync, ok := table.SyncFor(B)
	if !ok {
		t.Fatalf("expected sync in scope")
	}
	for _, entry := range sync {
		for _, h := range entry.Metric.Hops {
			if h == B {
				t.Fatalf("SyncFor(B) leaked a path through B: %+v", entry)
			}
		}
	}
}

// Property 3: slot-set consistency after a sequence of operations.
func TestTableSlotSetConsistency(t *testing.T) {
	const A, B, C domain.NodeId = 0x0, 0x1, 0x2
	table := NewTable(0, A, nil)
	table.AddDirect(1, B, domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{B, A}})
	table.AddDirect(2, C, domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{C, A}})
	table.DelDirect(1)

	want := []uint8{C.Layer(0)}
	got := table.Slots()
	if len(got) != len(want) {
		t.Fatalf("slots = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slots = %v, want %v", got, want)
		}
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("slots not sorted ascending: %v", got)
		}
	}
}

// Property 5: apply_sync idempotence.
func TestTableApplySyncIdempotent(t *testing.T) {
	const A, B, C domain.NodeId = 0x0, 0x1, 0x2
	table := NewTable(0, A, nil)
	table.AddDirect(1, B, domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{B, A}})
	over := domain.Metric{LatencyMs: 1, Hops: []domain.NodeId{B, A}}
	sync := TableSync{{Slot: C.Layer(0), Metric: domain.Metric{LatencyMs: 3, Hops: []domain.NodeId{C, B}}}}

	table.ApplySync(1, B, over, sync)
	before, _ := table.NextPath(C, nil)
	table.ApplySync(1, B, over, sync)
	after, _ := table.NextPath(C, nil)

	if before.Conn != after.Conn || before.NextHop != after.NextHop || before.Metric.LatencyMs != after.Metric.LatencyMs {
		t.Fatalf("ApplySync not idempotent: before=%+v after=%+v", before, after)
	}
}
