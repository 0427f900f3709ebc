// Command node boots one overlay participant (§4.9/§4.10): a
// ControllerPlane owning authoritative state and a pool of DataPlane
// workers, all driven from one host goroutine over one UDP socket (read by
// a separate reader goroutine), and an admin gRPC server for external
// control. Wiring style (flag-parsed config path,
// conditional zap-or-Nop logger, telemetry init, signal-driven graceful
// shutdown) is grounded on the teacher's own cmd/node/main.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/8xFF/decentralized-sdn/internal/admin"
	"github.com/8xFF/decentralized-sdn/internal/bootstrap"
	"github.com/8xFF/decentralized-sdn/internal/config"
	"github.com/8xFF/decentralized-sdn/internal/domain"
	"github.com/8xFF/decentralized-sdn/internal/feature"
	"github.com/8xFF/decentralized-sdn/internal/logger"
	zapfactory "github.com/8xFF/decentralized-sdn/internal/logger/zap"
	"github.com/8xFF/decentralized-sdn/internal/neighbours"
	"github.com/8xFF/decentralized-sdn/internal/plane"
	"github.com/8xFF/decentralized-sdn/internal/router"
	"github.com/8xFF/decentralized-sdn/internal/service"
	"github.com/8xFF/decentralized-sdn/internal/service/pubsubrelay"
	"github.com/8xFF/decentralized-sdn/internal/telemetry"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

var defaultConfigPath = "config/node/config.yaml"

// tickInterval drives every OnTick call across both planes; it does not
// need to track any single feature's own interval (RouterSync, Neighbours
// ping and DhtKv sync all run off their own nowMs deadlines), only be
// short enough that those deadlines are observed promptly.
const tickInterval = 50 * time.Millisecond

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %q: %v", *configPath, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer func() { _ = zapLog.Sync() }()
		lgr = zapfactory.NewAdapter(zapLog)
	} else {
		lgr = &logger.NopLogger{}
	}
	cfg.LogConfig(lgr)

	bindAddr := net.JoinHostPort(cfg.Node.Bind, strconv.Itoa(cfg.Node.Port))
	udpConn, err := net.ListenUDP("udp", mustResolveUDPAddr(bindAddr))
	if err != nil {
		lgr.Error("failed to open UDP listener", logger.F("addr", bindAddr), logger.F("err", err.Error()))
		os.Exit(1)
	}
	defer udpConn.Close()
	lgr.Info("UDP listener open", logger.F("addr", udpConn.LocalAddr().String()))

	self, err := resolveSelf(cfg.Node.Id, udpConn.LocalAddr().String())
	if err != nil {
		lgr.Error("invalid node.id", logger.F("err", err.Error()))
		os.Exit(1)
	}
	lgr = lgr.Named("node").With(logger.FNode("self", self))
	lgr.Info("node identity resolved")

	shutdownTracer := telemetry.InitTracer(cfg.Telemetry, "sdn-node", self)
	defer shutdownTracer(context.Background())

	r := router.New(self, lgr.Named("router"))
	nbrs := neighbours.New(self, neighbours.Config{
		TimeoutMs:  cfg.Engine.Neighbours.TimeoutMs,
		PingRateHz: cfg.Engine.Neighbours.PingRateHz,
		PingBurst:  cfg.Engine.Neighbours.PingBurst,
	}, lgr.Named("neighbours"))

	featCfg := feature.Config{
		RouterSyncIntervalMs: cfg.Engine.RouterSync.Interval.Milliseconds(),
		DhtGetTimeoutMs:      cfg.Engine.DhtKv.GetTimeoutMs,
		DhtSyncIntervalMs:    cfg.Engine.DhtKv.SyncInterval.Milliseconds(),
	}
	featControllers := feature.BuildControllers(self, r, featCfg, lgr.Named("feature"))
	feats := feature.NewControllerManager(featControllers)

	svcControllers := [service.Count]service.Controller{
		pubsubrelay.NewController(self, cfg.Engine.DataPlane.HistorySize, lgr.Named("service")),
	}
	svcs := service.NewControllerManager(svcControllers)

	cplane := plane.NewControllerPlane(self, r, nbrs, feats, svcs, lgr.Named("plane"))

	numWorkers := cfg.Engine.DataPlane.Workers
	workers := make([]*plane.DataPlane, numWorkers)
	for i := range workers {
		workerFeats := feature.NewWorkerManager(feature.BuildWorkers())
		workers[i] = plane.NewDataPlane(self, workerFeats, plane.PassthroughCipher{}, cfg.Engine.DataPlane.HistorySize, lgr.Named(fmt.Sprintf("data_plane.%d", i)))
	}

	adminReqCh := make(chan admin.Request, 64)
	adminSrv := admin.NewServer(self, adminReqCh, lgr.Named("admin"))

	var grpcServer *grpc.Server
	if cfg.Admin.Enabled {
		grpcServer = grpc.NewServer(
			grpc.ForceServerCodec(admin.Codec),
			grpc.StatsHandler(otelgrpc.NewServerHandler()),
		)
		grpcServer.RegisterService(&admin.ServiceDesc, adminSrv)
		adminLis, err := net.Listen("tcp", cfg.Admin.Bind)
		if err != nil {
			lgr.Error("failed to open admin listener", logger.F("addr", cfg.Admin.Bind), logger.F("err", err.Error()))
			os.Exit(1)
		}
		go func() {
			if err := grpcServer.Serve(adminLis); err != nil {
				lgr.Warn("admin server stopped", logger.F("err", err.Error()))
			}
		}()
		lgr.Info("admin server listening", logger.F("addr", cfg.Admin.Bind))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := &host{
		lgr:        lgr,
		conn:       udpConn,
		cplane:     cplane,
		workers:    workers,
		adminSrv:   adminSrv,
		adminReqCh: adminReqCh,
	}

	var wg sync.WaitGroup
	udpIn := make(chan udpDatagram, 256)
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.readLoop(ctx, udpIn)
	}()

	boot := bootstrap.NewStaticBootstrap(cfg.Node.StaticPeers)
	for _, addr := range boot.Discover() {
		h.submitExtIn(plane.ConnectTo{Addr: addr})
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.run(ctx, udpIn)
	}()

	<-ctx.Done()
	lgr.Info("shutdown signal received, draining")
	h.submitExtIn(plane.ShutdownRequest{})
	if cfg.Admin.Enabled {
		stopCh := make(chan struct{})
		go func() { grpcServer.GracefulStop(); close(stopCh) }()
		select {
		case <-stopCh:
		case <-time.After(5 * time.Second):
			grpcServer.Stop()
		}
	}
	waitDone := make(chan struct{})
	go func() { wg.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-time.After(10 * time.Second):
		lgr.Warn("shutdown timed out waiting for controller plane teardown")
	}
	lgr.Info("shutdown complete")
}

func mustResolveUDPAddr(addr string) *net.UDPAddr {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		log.Fatalf("invalid node bind address %q: %v", addr, err)
	}
	return a
}

// resolveSelf parses a configured hex node id, or derives a stable one
// from the bind address when none is configured - mirroring the teacher's
// own "derive from address if unset" fallback.
func resolveSelf(hexId, addr string) (domain.NodeId, error) {
	if hexId == "" {
		h := fnv.New32a()
		_, _ = h.Write([]byte(addr))
		return domain.NodeId(h.Sum32()), nil
	}
	v, err := strconv.ParseUint(hexId, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("node.id %q is not a valid hex uint32: %w", hexId, err)
	}
	return domain.NodeId(v), nil
}

func nowMs() int64 { return time.Now().UnixMilli() }

type udpDatagram struct {
	remote neighbours.Addr
	buf    []byte
}
