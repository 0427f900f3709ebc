package feature

import (
	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/feature/data"
	"github.com/8xFF/decentralized-sdn/internal/feature/dhtkv"
	"github.com/8xFF/decentralized-sdn/internal/feature/routersync"
	"github.com/8xFF/decentralized-sdn/internal/feature/vpn"
	"github.com/8xFF/decentralized-sdn/internal/logger"
	"github.com/8xFF/decentralized-sdn/internal/router"
)

// Config gathers the per-feature tunables needed to build the fixed
// four-feature set (§4.7). Every field maps to one feature's constructor
// arguments; there is no per-feature enable/disable, matching the fixed
// Count=4 layout RouterSync/Data/Vpn/DhtKv are indexed by.
type Config struct {
	RouterSyncIntervalMs int64
	DhtGetTimeoutMs       int64
	DhtSyncIntervalMs     int64
}

// BuildControllers constructs the fixed Controller array in Id order
// (RouterSync, Data, Vpn, DhtKv), wiring each sub-engine's constructor with
// the shared self NodeId, routing Table and logger.
func BuildControllers(self domain.NodeId, r *router.Router, cfg Config, lgr logger.Logger) [Count]Controller {
	return [Count]Controller{
		RouterSync: routersync.NewController(self, r, cfg.RouterSyncIntervalMs, lgr),
		Data:       data.NewController(lgr),
		Vpn:        vpn.NewController(lgr),
		DhtKv:      dhtkv.NewController(self, cfg.DhtGetTimeoutMs, cfg.DhtSyncIntervalMs, lgr),
	}
}

// BuildWorkers constructs the fixed Worker array. Every current feature's
// packet fast path is degenerate (no feature-private per-packet state
// survives between the worker receiving a datagram and the controller
// acting on it), so all four slots share PassthroughWorker.
func BuildWorkers() [Count]Worker {
	return [Count]Worker{
		RouterSync: &PassthroughWorker{},
		Data:       &PassthroughWorker{},
		Vpn:        &PassthroughWorker{},
		DhtKv:      &PassthroughWorker{},
	}
}
