package bootstrap

import "github.com/8xFF/decentralized-sdn/internal/neighbours"

// StaticBootstrap is a fixed, configured list of peer addresses.
type StaticBootstrap struct {
	peers []neighbours.Addr
}

func NewStaticBootstrap(peers []string) *StaticBootstrap {
	addrs := make([]neighbours.Addr, len(peers))
	for i, p := range peers {
		addrs[i] = neighbours.Addr(p)
	}
	return &StaticBootstrap{peers: addrs}
}

func (s *StaticBootstrap) Discover() []neighbours.Addr {
	return s.peers
}
