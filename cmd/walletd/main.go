package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/stellar/go/keypair"

	"daogov/wallet-backend/internal/api"
	"daogov/wallet-backend/internal/authgate"
	"daogov/wallet-backend/internal/bootstrap/config"
	"daogov/wallet-backend/internal/keygen"
	"daogov/wallet-backend/internal/ledger"
	"daogov/wallet-backend/internal/platform/metrics"
	"daogov/wallet-backend/internal/platform/privacylog"
	"daogov/wallet-backend/internal/platform/ratelimiter"
	"daogov/wallet-backend/internal/securestore"
	"daogov/wallet-backend/internal/signing"
	"daogov/wallet-backend/internal/storage"
	"daogov/wallet-backend/internal/wallet"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// devJWTSecret keeps local runs working without configuration; validate()
// refuses to start production without a real secret.
const devJWTSecret = "insecure-local-dev-secret-do-not-deploy"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	genOperator := flag.Bool("gen-operator", false, "generate an operator keypair with a recovery phrase and exit")
	listenAddr := flag.String("addr", "", "HTTP listen address override")
	configPath := flag.String("config", "", "Path to config.yaml (optional)")
	envFile := flag.String("env-file", "", "Path to .env file (optional)")
	flag.Parse()
	if *showVersion {
		fmt.Printf("walletd version=%s commit=%s build_date=%s\n", version, commit, buildDate)
		return
	}
	if *genOperator {
		if err := printOperatorBootstrap(os.Stdout); err != nil {
			log.Fatalf("walletd failed to generate operator keys: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		log.Fatalf("walletd failed to initialize: %v", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	logger := slog.New(privacylog.WrapHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(logger)

	srv, err := buildServer(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("walletd failed to initialize: %v", err)
	}

	logger.Info("walletd starting", "env", cfg.Env, "version", version)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("walletd failed: %v", err)
	}
	logger.Info("walletd stopped")
}

// printOperatorBootstrap mints the service operator account for a new
// deployment: the address goes into the funding runbook, the seed into
// WALLET_OPERATOR_SEED, and the phrase onto paper. Nothing is persisted.
func printOperatorBootstrap(w io.Writer) error {
	kp, mnemonic, err := keygen.GenerateWithRecovery()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "operator address:  %s\n", kp.Public)
	fmt.Fprintf(w, "operator seed:     %s\n", kp.Seed)
	fmt.Fprintf(w, "recovery phrase:   %s\n", mnemonic)
	fmt.Fprintln(w, "store the seed and phrase offline; they are shown only once")
	return nil
}

func buildServer(ctx context.Context, cfg config.Config, logger *slog.Logger) (*api.Server, error) {
	cipher, err := securestore.NewCipher(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	identities, accounts, transactions, err := buildStores(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		logger.Warn("running with the built-in development token secret")
		jwtSecret = devJWTSecret
	}
	devices := authgate.NewDeviceRegistry()
	challenger, err := authgate.NewChallenger(jwtSecret, devices, cfg.ChallengeTTL)
	if err != nil {
		return nil, err
	}

	var operator *keypair.Full
	if cfg.OperatorSeed != "" {
		operator, err = keypair.ParseFull(cfg.OperatorSeed)
		if err != nil {
			return nil, err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	set := metrics.New(registry)

	ledgerClient := ledger.New(cfg.HorizonURL, cfg.FriendbotURL, nil, logger)
	wallets := wallet.NewService(wallet.Deps{
		Identities:        identities,
		Accounts:          accounts,
		Transactions:      transactions,
		Cipher:            cipher,
		Signer:            signing.NewSigner(accounts, cipher, ledgerClient, cfg.NetworkPassphrase),
		Ledger:            ledgerClient,
		Log:               logger,
		Metrics:           set,
		NetworkPassphrase: cfg.NetworkPassphrase,
		Operator:          operator,
	})

	handler := api.NewHandler(api.Config{
		Log:              logger,
		Bearer:           authgate.NewBearer(jwtSecret),
		Challenger:       challenger,
		Wallets:          wallets,
		ChallengeLimiter: ratelimiter.New(cfg.ChallengeRPS, cfg.ChallengeBurst, 10*time.Minute),
		Metrics:          set,
		Registry:         registry,
	})
	return api.NewServer(cfg.ListenAddr, handler, logger), nil
}

func buildStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.IdentityStore, storage.AccountStore, storage.TransactionStore, error) {
	if cfg.DatabaseURL == "" {
		// Only reachable in relaxed environments; validate() requires a
		// database everywhere else.
		logger.Warn("no DATABASE_URL set, using in-memory stores")
		return storage.NewMemoryIdentityStore(), storage.NewMemoryAccountStore(), storage.NewMemoryTransactionStore(), nil
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := storage.EnsureSchema(ctx, db); err != nil {
		return nil, nil, nil, err
	}
	return storage.NewPGIdentityStore(db), storage.NewPGAccountStore(db), storage.NewPGTransactionStore(db), nil
}
