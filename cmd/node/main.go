// Command node runs a mintchain node: block production, contract execution
// and the JSON-RPC interface, backed by LevelDB or Pebble.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/opaline-labs/mintchain/config"
	"github.com/opaline-labs/mintchain/core"
	"github.com/opaline-labs/mintchain/events"
	"github.com/opaline-labs/mintchain/indexer"
	"github.com/opaline-labs/mintchain/rpc"
	"github.com/opaline-labs/mintchain/sealer"
	"github.com/opaline-labs/mintchain/storage"
	"github.com/opaline-labs/mintchain/vm"
	"github.com/opaline-labs/mintchain/wallet"

	// Contract modules self-register their handlers.
	_ "github.com/opaline-labs/mintchain/vm/modules/bank"
	_ "github.com/opaline-labs/mintchain/vm/modules/minter"
)

func main() {
	var (
		configPath   = flag.String("config", "", "path to config JSON (defaults apply if empty)")
		keystorePath = flag.String("keystore", "sealer.keystore.json", "path to the sealer keystore")
	)
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("[node] %v", err)
		}
		cfg = loaded
	}

	passphrase := os.Getenv("MINTCHAIN_PASSPHRASE")
	if passphrase == "" {
		log.Fatal("[node] MINTCHAIN_PASSPHRASE must be set")
	}
	w, err := loadOrCreateSealerKey(*keystorePath, passphrase)
	if err != nil {
		log.Fatalf("[node] sealer keystore: %v", err)
	}
	log.Printf("[node] sealer address %s", w.Address())

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		log.Fatalf("[node] create data dir: %v", err)
	}
	db, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("[node] open db: %v", err)
	}
	defer db.Close()

	chain := core.NewBlockchain(storage.NewBlockStore(db))
	if err := chain.Init(); err != nil {
		log.Fatalf("[node] init chain: %v", err)
	}
	state := storage.NewStateDB(db)
	emitter := events.NewEmitter()
	index := indexer.New(db, emitter)
	mempool := core.NewMempool()
	executor := vm.NewExecutor(state, emitter)

	genesis, err := config.CreateGenesisBlock(cfg, chain, state, w.PrivateKey())
	if err != nil {
		log.Fatalf("[node] genesis: %v", err)
	}
	log.Printf("[node] chain %s at height %d (genesis %s)", cfg.ChainID, chain.Height(), genesis.Hash[:12])

	seal := sealer.New(sealer.Config{
		ChainID:  cfg.ChainID,
		PrivKey:  w.PrivateKey(),
		Chain:    chain,
		Mempool:  mempool,
		State:    state,
		Executor: executor,
		Emitter:  emitter,
		Interval: cfg.SealIntervalDuration(),
		MaxTxs:   cfg.MaxBlockTxs,
	})
	seal.Start()

	if err := config.EnsureTLSCert(cfg.TLSCert, cfg.TLSKey); err != nil {
		log.Fatalf("[node] tls: %v", err)
	}
	server := rpc.NewServer(rpc.ServerConfig{
		Addr:      cfg.RPCAddr,
		AuthToken: cfg.RPCAuthToken,
		TLSCert:   cfg.TLSCert,
		TLSKey:    cfg.TLSKey,
	}, rpc.NewHandler(cfg.ChainID, chain, mempool, state, index))
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[node] rpc: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Println("[node] shutting down")

	seal.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[node] rpc shutdown: %v", err)
	}
}

func openBackend(cfg *config.Config) (storage.DB, error) {
	path := filepath.Join(cfg.DataDir, cfg.Backend)
	if cfg.Backend == config.BackendPebble {
		return storage.NewPebble(path)
	}
	return storage.NewLevelDB(path)
}

func loadOrCreateSealerKey(path, passphrase string) (*wallet.Wallet, error) {
	if _, err := os.Stat(path); err == nil {
		return wallet.LoadKeystore(path, passphrase)
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	w, err := wallet.New()
	if err != nil {
		return nil, err
	}
	if err := w.SaveKeystore(path, passphrase); err != nil {
		return nil, err
	}
	log.Printf("[node] generated new sealer keystore at %s", path)
	return w, nil
}
