// Package feature defines the shared Feature plumbing (§4.7): a fixed set
// of named sub-engines, each split into a Controller half (owns logical
// state — the routing tables, DHT map, subscription lists) and a Worker
// half (owns the packet fast path: raw encode/decode, direct sends). The
// two managers in this package fan a single input out to the right
// sub-engine and fairly drain their outputs back, biasing towards whichever
// sub-engine most recently took an input.
package feature

import (
	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/neighbours"
	"github.com/8xFF/decentralized-sdn/internal/router"
	"github.com/8xFF/decentralized-sdn/internal/taskswitcher"
	"github.com/8xFF/decentralized-sdn/internal/wire"
)

// Id identifies one of the fixed features carried in TransportMsgHeader.FeatureId.
type Id uint8

const (
	RouterSync Id = 0
	Data       Id = 1
	Vpn        Id = 2
	DhtKv      Id = 3
)

const Count = 4

func (f Id) String() string {
	switch f {
	case RouterSync:
		return "router_sync"
	case Data:
		return "data"
	case Vpn:
		return "vpn"
	case DhtKv:
		return "dht_kv"
	default:
		return "unknown"
	}
}

// ControlActor identifies who originated a FeaturesControl call, so the
// resulting Event is routed back to the right place (an external caller on
// the controller, a specific worker, or a service that issued the control
// as a side effect of its own logic).
type ControlActor struct {
	Kind   ActorKind
	Worker int // valid when Kind == ActorWorker
	Service uint8
}

type ActorKind int

const (
	ActorController ActorKind = iota
	ActorWorker
	ActorService
)

// ControllerInput is delivered to a Feature Controller sub-engine.
type ControllerInput interface{ isControllerInput() }

// Control is a FeaturesControl call routed to this feature.
type Control struct {
	Actor   ControlActor
	Payload any
}

// FromWorker carries a logical event a worker forwarded up.
type FromWorker struct{ Payload any }

// NetRemote carries a raw network message decoded enough to know it
// targets this feature, from a known neighbour connection.
type NetRemote struct {
	Conn   domain.ConnId
	Header wire.TransportMsgHeader
	Body   []byte
}

// NetLocal carries a locally-addressed message (outgoing_route resolved
// RouteAction::Local).
type NetLocal struct {
	Header wire.TransportMsgHeader
	Body   []byte
}

func (Control) isControllerInput()    {}
func (FromWorker) isControllerInput() {}
func (NetRemote) isControllerInput()  {}
func (NetLocal) isControllerInput()   {}

// SharedInput is broadcast to every Controller/Worker sub-engine
// regardless of which one is addressed.
type SharedInput interface{ isSharedInput() }

type Tick struct{ NowMs int64 }
type Connection struct{ Event neighbours.ConnectionEvent }

func (Tick) isSharedInput()       {}
func (Connection) isSharedInput() {}

// ControllerOutput is produced by a Feature Controller sub-engine.
type ControllerOutput interface{ isControllerOutput() }

// ToWorkers is a logical instruction forwarded to every DataPlane worker.
type ToWorkers struct{ Payload any }

// Event reports a FeaturesEvent back to whoever issued the originating
// Control (see ControlActor).
type Event struct {
	Actor   ControlActor
	Payload any
}

// SendDirect asks the data plane to send buf over conn without routing.
// The data plane wraps Body in a TransportMsgHeader stamped with the
// dispatching feature's id and Flags; features never encode their own
// header (RouterSync is the one exception needing a per-message Flags
// value to carry its layer index — every other feature leaves Flags 0).
type SendDirect struct {
	Conn  domain.ConnId
	Flags uint8
	Body  []byte
}

// SendRoute asks the data plane to route buf per rule, wrapped the same
// way as SendDirect.
type SendRoute struct {
	Rule  router.RouteRule
	Ttl   uint8
	Flags uint8
	Body  []byte
}

func (ToWorkers) isControllerOutput()  {}
func (Event) isControllerOutput()      {}
func (SendDirect) isControllerOutput() {}
func (SendRoute) isControllerOutput()  {}

// Controller is the logical half of one feature sub-engine.
type Controller interface {
	OnTick(nowMs int64)
	OnSharedInput(in SharedInput)
	OnInput(nowMs int64, in ControllerInput)
	PopOutput() (ControllerOutput, bool)
}

// WorkerInput is delivered to a Feature Worker sub-engine.
type WorkerInput interface{ isWorkerInput() }

type FromController struct{ Payload any }
type NetworkRaw struct {
	Conn   domain.ConnId
	Remote neighbours.Addr
	Header wire.TransportMsgHeader
	Body   []byte
}
type Local struct{ Body []byte }

func (FromController) isWorkerInput() {}
func (NetworkRaw) isWorkerInput()     {}
func (Local) isWorkerInput()          {}

// WorkerOutput is produced by a Feature Worker sub-engine.
type WorkerOutput interface{ isWorkerOutput() }

type ForwardNetworkToController struct {
	Conn   domain.ConnId
	Header wire.TransportMsgHeader
	Body   []byte
}
type ForwardLocalToController struct {
	Body []byte
}
type ToController struct{ Payload any }
type WorkerEvent struct {
	Actor   ControlActor
	Payload any
}

func (ForwardNetworkToController) isWorkerOutput() {}
func (ForwardLocalToController) isWorkerOutput()   {}
func (ToController) isWorkerOutput()               {}
func (WorkerEvent) isWorkerOutput()                {}

// Worker is the packet-fast-path half of one feature sub-engine.
type Worker interface {
	OnTick(nowMs int64)
	OnSharedInput(in SharedInput)
	OnInput(nowMs int64, in WorkerInput)
	PopOutput() (WorkerOutput, bool)
}

// ControllerManager fans a single input stream out across every feature's
// Controller half and fairly drains their outputs, per §4.7/§4.8.
type ControllerManager struct {
	controllers [Count]Controller
	switcher    *taskswitcher.Switcher
}

func NewControllerManager(cs [Count]Controller) *ControllerManager {
	return &ControllerManager{controllers: cs, switcher: taskswitcher.New(Count)}
}

func (m *ControllerManager) OnTick(nowMs int64) {
	for _, c := range m.controllers {
		c.OnTick(nowMs)
	}
}

func (m *ControllerManager) OnSharedInput(in SharedInput) {
	for _, c := range m.controllers {
		c.OnSharedInput(in)
	}
}

func (m *ControllerManager) OnInput(f Id, nowMs int64, in ControllerInput) {
	m.controllers[f].OnInput(nowMs, in)
	m.switcher.SetLastTask(int(f))
}

func (m *ControllerManager) PopOutput() (Id, ControllerOutput, bool) {
	id, out, ok := m.switcher.Poll(func(i int) (any, bool) {
		return m.controllers[i].PopOutput()
	})
	if !ok {
		return 0, nil, false
	}
	return Id(id), out.(ControllerOutput), true
}

// PassthroughWorker is the degenerate Worker used by features whose packet
// fast path needs no local state: it simply forwards raw network/local
// input up to the Controller. RouterSync and Data both use this — neither
// has anything useful to do with a packet before the Controller has seen
// it, since the Table and the user-datagram delivery decision both live
// controller-side.
type PassthroughWorker struct {
	out []WorkerOutput
}

func (w *PassthroughWorker) OnTick(nowMs int64)           {}
func (w *PassthroughWorker) OnSharedInput(in SharedInput) {}
func (w *PassthroughWorker) OnInput(nowMs int64, in WorkerInput) {
	switch v := in.(type) {
	case NetworkRaw:
		w.out = append(w.out, ForwardNetworkToController{Conn: v.Conn, Header: v.Header, Body: v.Body})
	case Local:
		w.out = append(w.out, ForwardLocalToController{Body: v.Body})
	case FromController:
		// No packet fast path to apply this to; hand it straight to the
		// host as a WorkerEvent (e.g. a Data Received, a DhtKv GetResult,
		// a Vpn TunPkt bound for the device).
		w.out = append(w.out, WorkerEvent{Payload: v.Payload})
	}
}
func (w *PassthroughWorker) PopOutput() (WorkerOutput, bool) {
	if len(w.out) == 0 {
		return nil, false
	}
	o := w.out[0]
	w.out = w.out[1:]
	return o, true
}

// WorkerManager is the worker-side analogue of ControllerManager.
type WorkerManager struct {
	workers  [Count]Worker
	switcher *taskswitcher.Switcher
}

func NewWorkerManager(ws [Count]Worker) *WorkerManager {
	return &WorkerManager{workers: ws, switcher: taskswitcher.New(Count)}
}

func (m *WorkerManager) OnTick(nowMs int64) {
	for _, w := range m.workers {
		w.OnTick(nowMs)
	}
}

func (m *WorkerManager) OnSharedInput(in SharedInput) {
	for _, w := range m.workers {
		w.OnSharedInput(in)
	}
}

func (m *WorkerManager) OnInput(f Id, nowMs int64, in WorkerInput) {
	m.workers[f].OnInput(nowMs, in)
	m.switcher.SetLastTask(int(f))
}

func (m *WorkerManager) PopOutput() (Id, WorkerOutput, bool) {
	id, out, ok := m.switcher.Poll(func(i int) (any, bool) {
		return m.workers[i].PopOutput()
	})
	if !ok {
		return 0, nil, false
	}
	return Id(id), out.(WorkerOutput), true
}
