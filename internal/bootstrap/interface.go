// Package bootstrap resolves the set of peer addresses a node should
// ConnectTo at startup. The teacher supported several discovery modes
// (static list, DNS SRV, Route53); this build only ever needs the
// statically configured list from config.NodeConfig.StaticPeers, so the
// other modes were dropped rather than carried as dead code (see
// DESIGN.md).
package bootstrap

import "github.com/8xFF/decentralized-sdn/internal/neighbours"

// Bootstrap discovers the peers a node should connect to at startup.
type Bootstrap interface {
	Discover() []neighbours.Addr
}
