// Package service defines the shared Service plumbing (§4.7): like
// package feature, a fixed set of named sub-engines, fairly multiplexed by
// a TaskSwitcher. Services have a Controller half only (no Worker half).
// They never touch the wire directly: the ControllerPlane frames their
// sends, marking the service id in the header's FeatureId byte.
package service

import (
	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/neighbours"
	"github.com/8xFF/decentralized-sdn/internal/router"
	"github.com/8xFF/decentralized-sdn/internal/taskswitcher"
)

// Id identifies one of the fixed services; on the wire it is carried in the
// header's FeatureId byte with the service bit set (wire.EncodeServiceId).
type Id uint8

const PubSubRelay Id = 0

const Count = 1

func (s Id) String() string {
	switch s {
	case PubSubRelay:
		return "pub_sub_relay"
	default:
		return "unknown"
	}
}

// ControllerInput is delivered to a Service Controller sub-engine.
type ControllerInput interface{ isControllerInput() }

// Control is a ServicesControl call routed to this service.
type Control struct {
	Actor   domain.NodeId // issuing actor, echoed back on Event for correlation
	Payload any
}

// NetRemote carries a raw network message decoded enough to know it
// targets this service (ToService route resolved locally).
type NetRemote struct {
	From domain.NodeId
	Conn domain.ConnId
	Body []byte
}

func (Control) isControllerInput()   {}
func (NetRemote) isControllerInput() {}

// SharedInput is broadcast to every Controller/Worker sub-engine
// regardless of which one is addressed.
type SharedInput interface{ isSharedInput() }

type Tick struct{ NowMs int64 }
type Connection struct{ Event neighbours.ConnectionEvent }

func (Tick) isSharedInput()       {}
func (Connection) isSharedInput() {}

// ControllerOutput is produced by a Service Controller sub-engine.
type ControllerOutput interface{ isControllerOutput() }

type Event struct {
	Actor   domain.NodeId
	Payload any
}

// SendDirect asks the data plane to send buf over conn without routing.
type SendDirect struct {
	Conn domain.ConnId
	Body []byte
}

// SendRoute asks the data plane to route buf per Rule, framed with this
// service's id in the header's FeatureId byte.
type SendRoute struct {
	Rule router.RouteRule
	Ttl  uint8
	Body []byte
}

func (Event) isControllerOutput()      {}
func (SendDirect) isControllerOutput() {}
func (SendRoute) isControllerOutput()  {}

// Controller is the logical half of one service sub-engine.
type Controller interface {
	OnTick(nowMs int64)
	OnSharedInput(in SharedInput)
	OnInput(nowMs int64, in ControllerInput)
	PopOutput() (ControllerOutput, bool)
}

// ControllerManager fans a single input stream out across every service's
// Controller half and fairly drains their outputs.
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

func (m *ControllerManager) OnInput(s Id, nowMs int64, in ControllerInput) {
	m.controllers[s].OnInput(nowMs, in)
	m.switcher.SetLastTask(int(s))
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
