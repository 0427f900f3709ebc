package router

import "github.com/8xFF/decentralized-sdn/internal/domain"

// TableSyncEntry is one advertised (slot, metric) pair.
type TableSyncEntry struct {
	Slot   uint8
	Metric domain.Metric
}

// TableSync is a periodic advertisement of one layer's best paths, with
// poisoned reverse already applied (see Table.SyncFor).
type TableSync []TableSyncEntry
