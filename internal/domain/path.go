package domain

// Path is one candidate route to a destination: the connection it was
// learned on, the next hop to take, and the metric describing its cost.
type Path struct {
	Conn    ConnId
	NextHop NodeId
	Metric  Metric
}
