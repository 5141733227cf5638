// Command oracled runs the attestation store and aggregation core: it
// wires Storage, the Wormhole Verifier, the Merkle Prover, the Ingestion
// Coordinator, and the Query & Health Surface together behind a single
// process.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/SEJeff/pyth-crosschain/internal/emitterconfig"
	"github.com/SEJeff/pyth-crosschain/internal/ingest"
	"github.com/SEJeff/pyth-crosschain/internal/query"
	"github.com/SEJeff/pyth-crosschain/internal/store"
	"github.com/SEJeff/pyth-crosschain/internal/verifier"
	"github.com/SEJeff/pyth-crosschain/sdk/vaa"
)

var (
	cacheSize             *uint64
	statusAddr            *string
	healthAddr            *string
	logLevel              *string
	unsafeDevMode         *bool
	environment           *string
	accumulatorEmitterHex *string
	guardianSetIndex      *uint32
	guardianSetKeysHex    *string
)

func init() {
	cacheSize = RootCmd.Flags().Uint64("cacheSize", 10_000, "Number of distinct slots retained in per-feed history")
	statusAddr = RootCmd.Flags().String("statusAddr", "[::]:6060", "Listen address for the Prometheus metrics endpoint (disabled if blank)")
	healthAddr = RootCmd.Flags().String("healthAddr", "[::]:7070", "Listen address for the gRPC health/readiness service")
	logLevel = RootCmd.Flags().String("logLevel", "info", "Logging level (debug, info, warn, error, dpanic, panic, fatal)")
	unsafeDevMode = RootCmd.Flags().Bool("unsafeDevMode", false, "Launch with devnet defaults (no production guardian set)")
	environment = RootCmd.Flags().String("environment", "mainnet", "Deployment environment used to resolve the default accumulator emitter (devnet, mainnet)")
	accumulatorEmitterHex = RootCmd.Flags().String("accumulatorEmitterAddress", "", "Override the accumulator emitter address (32-byte hex); defaults per --environment")
	guardianSetIndex = RootCmd.Flags().Uint32("guardianSetIndex", 0, "Index of the initial trusted guardian set")
	guardianSetKeysHex = RootCmd.Flags().String("guardianSetKeys", "", "Comma-separated 20-byte hex addresses of the initial guardian set's signers; defaults to the devnet set under --unsafeDevMode")
}

const devwarning = `
        +++++++++++++++++++++++++++++++++++++++++++++++++++
        |   ORACLED IS RUNNING IN INSECURE DEVELOPMENT MODE |
        |                                                   |
        |        Do not use --unsafeDevMode in prod.        |
        +++++++++++++++++++++++++++++++++++++++++++++++++++

`

// RootCmd is the oracled root command.
var RootCmd = &cobra.Command{
	Use:   "oracled",
	Short: "Run the attestation store and aggregation core",
	Run:   run,
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) {
	if *unsafeDevMode {
		fmt.Print(devwarning)
	}

	lvl, err := zapcore.ParseLevel(*logLevel)
	if err != nil {
		fmt.Println("invalid log level")
		os.Exit(1)
	}

	logger := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(zapcore.Lock(os.Stderr)),
		zap.NewAtomicLevelAt(lvl),
	))
	defer logger.Sync() //nolint:errcheck

	env := emitterconfig.Environment(*environment)
	if *unsafeDevMode {
		env = emitterconfig.EnvDevnet
	}
	emitter, ok := emitterconfig.Default(env)
	if !ok {
		logger.Fatal("unknown environment", zap.String("environment", string(env)))
	}
	if *accumulatorEmitterHex != "" {
		addr, err := parseEmitterAddress(*accumulatorEmitterHex)
		if err != nil {
			logger.Fatal("invalid accumulatorEmitterAddress", zap.Error(err))
		}
		emitter.Address = addr
	}

	rootCtx, rootCtxCancel := context.WithCancel(context.Background())
	defer rootCtxCancel()

	reg := prometheus.NewRegistry()

	storage := store.NewStorage(int(*cacheSize))
	guardianSets := verifier.NewGuardianSets()
	v := verifier.New(guardianSets, emitter.Chain, emitter.Address)
	coordinator := ingest.New(storage, v, 1024, logger, reg)
	queryServer := query.New(storage, guardianSets)

	initialGuardianSet, err := resolveInitialGuardianSet(*unsafeDevMode, *guardianSetIndex, *guardianSetKeysHex)
	if err != nil {
		logger.Fatal("invalid initial guardian set", zap.Error(err))
	}
	queryServer.UpdateGuardianSet(initialGuardianSet.Index, initialGuardianSet)
	logger.Info("loaded initial guardian set",
		zap.Uint32("index", initialGuardianSet.Index),
		zap.Strings("keys", initialGuardianSet.KeysAsHexStrings()),
	)

	healthServer := health.NewServer()
	readiness := query.MustRegisterReadinessSyncing(emitter.Chain, "oracled", healthServer)

	go forwardCompletions(rootCtx, coordinator, readiness, logger)
	go readiness.Sweep(rootCtx, logger, 5*time.Second)

	if *healthAddr != "" {
		go serveHealth(rootCtx, *healthAddr, healthServer, logger)
	}
	if *statusAddr != "" {
		go serveStatus(rootCtx, *statusAddr, reg, logger)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("oracled shutting down")
	logShutdownMetrics(logger, reg)
	rootCtxCancel()
}

// logShutdownMetrics dumps the completion/integrity/dedup counters at
// shutdown so a restart leaves a final tally in the logs.
func logShutdownMetrics(logger *zap.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		logger.Warn("failed to gather metrics for shutdown summary", zap.Error(err))
		return
	}

	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range mf.GetMetric() {
			logger.Info("shutdown metric",
				zap.String("name", mf.GetName()),
				zap.Float64("value", m.GetCounter().GetValue()),
			)
		}
	}
}

// forwardCompletions relays the coordinator's completion notifications
// into the readiness tracker, decoupling the two so each owns its own
// locking as the concurrency model requires.
func forwardCompletions(ctx context.Context, coordinator *ingest.Coordinator, readiness *query.Readiness, logger *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-coordinator.Completions():
			readiness.RecordCompletion(time.Now())
		}
	}
}

func serveHealth(ctx context.Context, addr string, healthServer *health.Server, logger *zap.Logger) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen for health service", zap.Error(err), zap.String("addr", addr))
		return
	}

	grpcServer := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	go func() {
		<-ctx.Done()
		grpcServer.GracefulStop()
	}()

	if err := grpcServer.Serve(lis); err != nil {
		logger.Error("health service stopped", zap.Error(err))
	}
}

func serveStatus(ctx context.Context, addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("status server stopped", zap.Error(err))
	}
}

// resolveInitialGuardianSet builds the guardian set oracled trusts from
// startup, since query.Server.UpdateGuardianSet is otherwise never called
// in production and the verifier would reject every VAA against an empty
// guardian-set table. --guardianSetKeys always wins when set; otherwise
// --unsafeDevMode falls back to the well-known devnet set, and mainnet
// with no keys given is a fatal misconfiguration.
func resolveInitialGuardianSet(devMode bool, index uint32, keysHex string) (vaa.GuardianSet, error) {
	if keysHex != "" {
		keys, err := parseGuardianKeys(keysHex)
		if err != nil {
			return vaa.GuardianSet{}, err
		}
		return vaa.GuardianSet{Index: index, Keys: keys}, nil
	}
	if devMode {
		return emitterconfig.DevnetGuardianSet(), nil
	}
	return vaa.GuardianSet{}, fmt.Errorf("no --guardianSetKeys given and --unsafeDevMode not set: refusing to start with an empty guardian set")
}

// parseGuardianKeys parses a comma-separated list of 20-byte hex addresses
// into guardian signer keys, in order.
func parseGuardianKeys(keysHex string) ([]ethcommon.Address, error) {
	parts := strings.Split(keysHex, ",")
	keys := make([]ethcommon.Address, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if !ethcommon.IsHexAddress(p) {
			return nil, fmt.Errorf("invalid guardian key address: %q", p)
		}
		keys = append(keys, ethcommon.HexToAddress(p))
	}
	return keys, nil
}

func parseEmitterAddress(hexAddr string) (vaa.Address, error) {
	var addr vaa.Address
	decoded, err := hex.DecodeString(hexAddr)
	if err != nil {
		return addr, err
	}
	if len(decoded) != len(addr) {
		return addr, fmt.Errorf("expected %d bytes, got %d", len(addr), len(decoded))
	}
	copy(addr[:], decoded)
	return addr, nil
}
