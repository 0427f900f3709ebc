package main

import (
	"context"
	"net"
	"time"

	"github.com/8xFF/decentralized-sdn/internal/admin"
	"github.com/8xFF/decentralized-sdn/internal/logger"
	"github.com/8xFF/decentralized-sdn/internal/neighbours"
	"github.com/8xFF/decentralized-sdn/internal/plane"
	"github.com/8xFF/decentralized-sdn/internal/wire"
)

// host owns the one goroutine that drives both planes (§5: "the host must
// serialize calls into it"). Every PinOut/UnpinOut/SnapshotOut/ToWorkersOut
// fans out to every worker rather than one, since Pin is never partitioned
// by worker - see DESIGN.md's Pin/UnPin decision - so any worker's
// connection table mirrors every other's and NetSendOut can be handed to
// whichever worker is next in the round-robin.
type host struct {
	lgr        logger.Logger
	conn       *net.UDPConn
	cplane     *plane.ControllerPlane
	workers    []*plane.DataPlane
	adminSrv   *admin.Server
	adminReqCh chan admin.Request

	nextWorker int
	shutdown   bool
}

func (h *host) submitExtIn(in plane.ExtIn) {
	h.adminReqCh <- admin.Request{In: in, Done: make(chan struct{})}
}

// readLoop is the only goroutine that touches the UDP socket for reads;
// writes happen from run() after draining plane outputs, which is safe
// since *net.UDPConn supports concurrent reads and writes from different
// goroutines.
func (h *host) readLoop(ctx context.Context, out chan<- udpDatagram) {
	buf := make([]byte, 64*1024)
	for {
		_ = h.conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, remote, err := h.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])
		select {
		case out <- udpDatagram{remote: neighbours.Addr(remote.String()), buf: cp}:
		case <-ctx.Done():
			return
		}
	}
}

// run exits only once the ControllerPlane has confirmed ShutdownResponse,
// never on ctx.Done() directly - a SIGINT/SIGTERM submits ShutdownRequest
// (see main) and this loop keeps serving ticks/datagrams/admin requests
// until that teardown actually completes, so in-flight neighbour
// disconnects are not cut short.
func (h *host) run(ctx context.Context, udpIn <-chan udpDatagram) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		if h.shutdown {
			return
		}
		select {
		case <-ticker.C:
			h.onTick()
		case req := <-h.adminReqCh:
			now := nowMs()
			h.cplane.OnExtIn(now, req.In)
			h.drainControllerOutputs(now)
			close(req.Done)
		case dg := <-udpIn:
			h.onUdp(dg)
		}
	}
}

func (h *host) onTick() {
	now := nowMs()
	for i, w := range h.workers {
		w.OnTick(now)
		h.drainWorkerOutputs(i, now)
	}
	h.cplane.OnTick(now)
	h.drainControllerOutputs(now)
}

func (h *host) onUdp(dg udpDatagram) {
	now := nowMs()
	idx := h.nextWorker
	h.nextWorker = (h.nextWorker + 1) % len(h.workers)
	h.workers[idx].OnUdp(now, dg.remote, dg.buf)
	h.drainWorkerOutputs(idx, now)
}

func (h *host) drainWorkerOutputs(idx int, now int64) {
	w := h.workers[idx]
	for {
		o, ok := w.PopOutput()
		if !ok {
			return
		}
		switch v := o.(type) {
		case plane.ToNet:
			h.writeUDP(v.Out.Remote, v.Out.Buf)
		case plane.ToControllerNet:
			h.cplane.OnNetIn(now, v.In)
			h.drainControllerOutputs(now)
		case plane.ToApp:
			h.lgr.Debug("worker event delivered to app", logger.F("feature", v.Feature.String()))
		}
	}
}

func (h *host) drainControllerOutputs(now int64) {
	for {
		o, ok := h.cplane.PopOutput()
		if !ok {
			return
		}
		switch v := o.(type) {
		case plane.NetNeighbourOut:
			h.writeUDP(v.Remote, wire.EncodeNeighboursControl(nil, v.Control))
		case plane.NetSendOut:
			idx := h.nextWorker
			h.nextWorker = (h.nextWorker + 1) % len(h.workers)
			h.workers[idx].OnNetSend(now, v)
			h.drainWorkerOutputs(idx, now)
		case plane.ToWorkersOut:
			for i, w := range h.workers {
				w.OnFromController(now, v)
				h.drainWorkerOutputs(i, now)
			}
		case plane.PinOut, plane.UnpinOut, plane.SnapshotOut:
			for _, w := range h.workers {
				w.OnControllerOutput(v)
			}
		case plane.Ext:
			h.adminSrv.Publish(v)
		case plane.ShutdownResponse:
			h.lgr.Info("controller plane shutdown complete")
			h.shutdown = true
		}
	}
}

func (h *host) writeUDP(remote neighbours.Addr, buf []byte) {
	addr, err := net.ResolveUDPAddr("udp", string(remote))
	if err != nil {
		h.lgr.Warn("failed to resolve remote address", logger.F("remote", string(remote)), logger.F("err", err.Error()))
		return
	}
	if _, err := h.conn.WriteToUDP(buf, addr); err != nil {
		h.lgr.Warn("failed to write UDP datagram", logger.F("remote", string(remote)), logger.F("err", err.Error()))
	}
}
