// Command bridged runs the cross-chain swap bridge daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/Ashar20/fusion-cross-chain-bridge/internal/adapter"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/adapter/algorand"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/adapter/eos"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/adapter/evm"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/chain"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/config"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/rpc"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/storage"
	"github.com/Ashar20/fusion-cross-chain-bridge/internal/swap"
	"github.com/Ashar20/fusion-cross-chain-bridge/pkg/logging"
)

const version = "0.3.1"

func main() {
	var (
		dataDir     = flag.String("datadir", "", "data directory (default ~/.bridged)")
		apiAddr     = flag.String("api", "", "API listen address (overrides config)")
		network     = flag.String("network", "", "mainnet or testnet (overrides config)")
		logLevel    = flag.String("loglevel", "", "debug, info, warn or error")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("bridged %s\n", version)
		return
	}

	cfg, err := config.Load(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *apiAddr != "" {
		cfg.APIAddr = *apiAddr
	}
	if *network != "" {
		cfg.Network = *network
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logging.SetDefault(logging.New(logCfg))
	log := logging.GetDefault().Component("main")
	log.Info("starting bridged", "version", version, "network", cfg.Network)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		log.Fatal("open storage", "error", err)
	}
	defer store.Close()

	adapters, err := buildAdapters(ctx, cfg)
	if err != nil {
		log.Fatal("build adapters", "error", err)
	}
	if len(adapters) < 2 {
		log.Fatal("need credentials for at least two chains in bridged.yaml",
			"configured", len(adapters))
	}

	coordinator := swap.NewCoordinator(cfg.SwapConfig(), store, adapters)
	if err := coordinator.LoadSessions(); err != nil {
		log.Fatal("restore sessions", "error", err)
	}

	monitor := swap.NewMonitor(coordinator)
	go monitor.Run(ctx)

	server := rpc.NewServer(cfg.APIAddr, coordinator, adapters)
	if err := server.Start(ctx); err != nil {
		log.Fatal("api server", "error", err)
	}
	log.Info("bridged stopped")
}

// buildAdapters connects one adapter per chain that has credentials in
// the config. Chains without credentials are skipped.
func buildAdapters(ctx context.Context, cfg *config.FileConfig) (map[string]adapter.ChainAdapter, error) {
	network := chain.Testnet
	if cfg.Network == "mainnet" {
		network = chain.Mainnet
	}

	log := logging.GetDefault().Component("main")
	adapters := make(map[string]adapter.ChainAdapter)

	for _, symbol := range []string{"ETH", "EOS", "ALGO"} {
		creds, ok := cfg.Chains[symbol]
		if !ok || creds.PrivateKey == "" {
			log.Debug("no credentials, skipping chain", "chain", symbol)
			continue
		}

		params, ok := chain.Get(symbol, network)
		if !ok {
			return nil, fmt.Errorf("chain %s not registered for %s", symbol, network)
		}
		endpoints := cfg.ChainEndpoints(symbol)
		if endpoints.RPCEndpoint == "" || endpoints.HTLCContract == "" {
			return nil, fmt.Errorf("chain %s: rpc endpoint and htlc contract required", symbol)
		}

		var (
			a   adapter.ChainAdapter
			err error
		)
		switch params.Type {
		case chain.TypeEVM:
			a, err = evm.New(ctx, params, endpoints.RPCEndpoint, endpoints.HTLCContract, creds.PrivateKey)
		case chain.TypeEOS:
			if creds.Account == "" {
				return nil, fmt.Errorf("chain %s: account is required", symbol)
			}
			a, err = eos.New(ctx, params, endpoints.RPCEndpoint, endpoints.HTLCContract, creds.Account, creds.PrivateKey)
		case chain.TypeAlgorand:
			var appID uint64
			appID, err = strconv.ParseUint(endpoints.HTLCContract, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("chain %s: htlc contract must be an application id: %w", symbol, err)
			}
			a, err = algorand.New(params, endpoints.RPCEndpoint, appID, creds.PrivateKey)
		default:
			return nil, fmt.Errorf("chain %s: unsupported type %s", symbol, params.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("connect %s: %w", symbol, err)
		}

		adapters[symbol] = a
		log.Info("chain connected", "chain", symbol, "network", params.Name)
	}
	return adapters, nil
}
