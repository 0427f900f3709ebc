// Package routetrace emits spans for the two operations worth tracing
// end-to-end in this runtime: a RouterSync round and a DhtKv Get lookup.
//
// The teacher's lookuptrace traced gRPC unary calls, propagating span
// context over grpc-metadata between hops. This runtime's data plane has
// no equivalent carrier: TransportMsgHeader is a fixed binary layout with
// no room for a trace-context byte string, and a lookup may legitimately
// fan out over several UDP hops rather than one RPC. So these spans are
// local to the node that started the operation, annotated with the node
// id and operation parameters, rather than propagated across the wire -
// the wire-propagation half of the teacher's pattern does not survive the
// move from RPC to routed datagrams.
package routetrace

import (
	"context"

	"github.com/8xFF/decentralized-sdn/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sdn/routetrace"

var tracer = otel.Tracer(tracerName)

// StartRouterSyncRound starts a span covering one RouterSync round for a
// single hierarchical layer: encoding and sending SyncFor advertisements to
// every direct neighbour at that layer.
func StartRouterSyncRound(ctx context.Context, self domain.NodeId, layer int, neighbours int) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return tracer.Start(ctx, "router_sync.round",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("sdn.node.id", self.String()),
			attribute.Int("sdn.router_sync.layer", layer),
			attribute.Int("sdn.router_sync.neighbours", neighbours),
		),
	)
}

// StartDhtGet starts a span covering a DhtKv Get from the moment it misses
// the local replica and a network request is issued, until it resolves
// (found, not-found, or timeout). The caller ends the span from whichever
// of those three outcomes actually happens.
func StartDhtGet(ctx context.Context, self domain.NodeId, key string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return tracer.Start(ctx, "dhtkv.get",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("sdn.node.id", self.String()),
			attribute.String("sdn.dhtkv.key", key),
		),
	)
}

// EndDhtGet records the outcome of a Get span started by StartDhtGet.
func EndDhtGet(span trace.Span, found bool, err error) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.Bool("sdn.dhtkv.found", found))
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
