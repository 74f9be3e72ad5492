// Command arb-core wires Price State, the Feed Manager, the Scanner Loop,
// the Optimizer, and the Service Facade into a single long-running
// process, and exposes the facade over a gRPC listener.
package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/lowlatency-labs/arb-core/internal/arb"
	"github.com/lowlatency-labs/arb-core/pkg/config"
	"github.com/lowlatency-labs/arb-core/pkg/logger"
	"github.com/lowlatency-labs/arb-core/pkg/redis"
)

const serviceName = "arb-core"

func main() {
	cfgPath := os.Getenv("ARB_CORE_CONFIG")
	var cfg *config.Config
	var err error
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
	} else {
		cfg = config.Default()
	}
	log := logger.NewLogger(cfg.Logging).Named(serviceName)
	if err != nil {
		log.Fatal("failed to load configuration: " + err.Error())
	}

	metrics := arb.NewMetrics(prometheus.DefaultRegisterer)

	state := arb.NewPriceState().WithMetrics(metrics)

	var auditClient redis.Client
	if len(cfg.Redis.Addresses) > 0 || cfg.Redis.Host != "" {
		auditClient, err = redis.NewClientFromConfig(&cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, audit events will not be cached: " + err.Error())
			auditClient = nil
		} else {
			defer auditClient.Close()
		}
	}

	enabledChains := chainsFromConfig(cfg.Chains)
	defaultNotional := notionalFromConfig(cfg.Detection.DefaultNotionalWei)

	strategies := []arb.Strategy{
		arb.NewCrossVenueStrategy(cfg.Detection.MinSpreadBps, defaultNotional),
		arb.NewTriangularStrategy(cfg.Detection.MinTriangularBps, defaultNotional),
	}

	minProfitAfterGas := weiFromConfig(cfg.Execution.MinProfitAfterGas)
	optimizer := arb.NewOptimizer(minProfitAfterGas, log).WithMetrics(metrics)

	filter := arb.OpportunityFilter{
		MinProfitUSD: cfg.Execution.MinProfitUSD,
	}

	scanCfg := arb.ScannerConfig{
		ScanInterval:   time.Duration(cfg.Detection.ScanIntervalMs) * time.Millisecond,
		MaxPriceAge:    time.Duration(cfg.Detection.MaxPriceAgeMs) * time.Millisecond,
		EnabledChains:  enabledChains,
		ParallelChains: cfg.Detection.ParallelChains,
	}
	scanner := arb.NewScanner(scanCfg, state, strategies, filter, optimizer, nil, log).WithMetrics(metrics)

	facade := arb.NewFacade(state, scanner, auditClient, scanCfg.MaxPriceAge, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := facade.StartScanner(ctx, enabledChains); err != nil {
		log.Warn("scanner did not start: " + err.Error())
	}

	go serveMetrics(cfg.Monitoring.Prometheus.Port, log)
	go serveGRPC(cfg.Server, log)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("shutting down " + serviceName)
	_ = facade.StopScanner(ctx)
}

// serveGRPC scaffolds the Service Facade's RPC listener exactly as the
// upstream defi-service does: health checking and reflection wired
// for real, the generated service registration left for the codegen step
// that is out of this core's scope (spec.md's Service Facade is specified
// as a data contract, not a wire format).
func serveGRPC(cfg config.ServerConfig, log *logger.Logger) {
	server := grpc.NewServer()

	healthServer := health.NewServer()
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(server, healthServer)

	// pb.RegisterArbCoreServer(server, facadeAdapter) — registered once the
	// .proto-generated stub for spec.md §6's operation table exists.

	reflection.Register(server)

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.GRPCPort))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal("failed to listen: " + err.Error())
	}
	log.Info("facade listening on " + addr)
	if err := server.Serve(lis); err != nil {
		log.Error("grpc server stopped: " + err.Error())
	}
}

func serveMetrics(port int, log *logger.Logger) {
	if port == 0 {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := net.JoinHostPort("", strconv.Itoa(port))
	log.Info("metrics listening on " + addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped: " + err.Error())
	}
}

func chainsFromConfig(chains []config.ChainConfig) []arb.Chain {
	if len(chains) == 0 {
		return []arb.Chain{arb.ChainEthereum, arb.ChainArbitrum, arb.ChainBase, arb.ChainPolygon}
	}
	out := make([]arb.Chain, 0, len(chains))
	for _, c := range chains {
		if !c.Enabled {
			continue
		}
		chain, err := arb.ParseChain(c.Name)
		if err != nil {
			continue
		}
		out = append(out, chain)
	}
	return out
}

func weiFromConfig(s string) *arb.Amount256 {
	if s == "" {
		return uint256.NewInt(1_000_000_000_000_000) // 0.001 ETH
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return uint256.NewInt(1_000_000_000_000_000)
	}
	return v
}

func notionalFromConfig(s string) *arb.Amount256 {
	if s == "" {
		return uint256.NewInt(1_000_000_000) // 1000 USDC-equivalent at 6 decimals
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return uint256.NewInt(1_000_000_000)
	}
	return v
}

