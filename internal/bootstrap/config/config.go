// Package config assembles runtime configuration: defaults, then an optional
// YAML file, then environment overrides. Secrets come from the environment
// only and never from the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/stellar/go/network"
	"github.com/stellar/go/strkey"
	"gopkg.in/yaml.v3"

	"daogov/wallet-backend/internal/keygen"
	"daogov/wallet-backend/internal/securestore"
)

const minJWTSecretLen = 32

type Config struct {
	Env               string        `yaml:"env"`
	ListenAddr        string        `yaml:"listenAddr"`
	DatabaseURL       string        `yaml:"-"`
	HorizonURL        string        `yaml:"horizonUrl"`
	FriendbotURL      string        `yaml:"friendbotUrl"`
	NetworkPassphrase string        `yaml:"networkPassphrase"`
	ChallengeTTL      time.Duration `yaml:"challengeTTL"`
	ChallengeRPS      float64       `yaml:"challengeRPS"`
	ChallengeBurst    int           `yaml:"challengeBurst"`

	EncryptionKey []byte `yaml:"-"`
	JWTSecret     string `yaml:"-"`
	OperatorSeed  string `yaml:"-"`
}

func defaults() Config {
	return Config{
		Env:               "production",
		ListenAddr:        ":8080",
		HorizonURL:        "https://horizon-testnet.stellar.org",
		FriendbotURL:      "https://friendbot.stellar.org",
		NetworkPassphrase: network.TestNetworkPassphrase,
		ChallengeTTL:      2 * time.Minute,
		ChallengeRPS:      0.2,
		ChallengeBurst:    5,
	}
}

// Load reads configuration in layering order. envFile, when present, is
// loaded into the process environment first; a missing default env file is
// not an error.
func Load(configPath, envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: load env file: %w", err)
		}
	}

	cfg := defaults()
	if configPath == "" {
		// Conventional location; absence is fine, only an explicit path
		// is required to exist.
		if _, err := os.Stat("configs/config.yaml"); err == nil {
			configPath = "configs/config.yaml"
		}
	}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := loadSecrets(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func applyEnvOverrides(cfg *Config) {
	if v := getenv("WALLET_ENV"); v != "" {
		cfg.Env = strings.ToLower(v)
	}
	if v := getenv("WALLET_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := getenv("HORIZON_URL"); v != "" {
		cfg.HorizonURL = v
	}
	if v := getenv("FRIENDBOT_URL"); v != "" {
		cfg.FriendbotURL = v
	}
	if v := getenv("WALLET_NETWORK_PASSPHRASE"); v != "" {
		cfg.NetworkPassphrase = v
	}
	if v := getenv("WALLET_CHALLENGE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ChallengeTTL = d
		}
	}
	if v := getenv("WALLET_CHALLENGE_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.ChallengeRPS = f
		}
	}
	if v := getenv("WALLET_CHALLENGE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChallengeBurst = n
		}
	}
}

func loadSecrets(cfg *Config) error {
	key, err := securestore.ParseKey(getenv("WALLET_ENCRYPTION_KEY"))
	if err != nil {
		return fmt.Errorf("config: WALLET_ENCRYPTION_KEY: %w", err)
	}
	cfg.EncryptionKey = key

	cfg.JWTSecret = getenv("WALLET_JWT_SECRET")
	cfg.OperatorSeed = getenv("WALLET_OPERATOR_SEED")
	if mnemonic := getenv("WALLET_OPERATOR_MNEMONIC"); mnemonic != "" {
		if cfg.OperatorSeed != "" {
			return errors.New("config: set WALLET_OPERATOR_SEED or WALLET_OPERATOR_MNEMONIC, not both")
		}
		kp, err := keygen.FromMnemonic(mnemonic)
		if err != nil {
			return fmt.Errorf("config: WALLET_OPERATOR_MNEMONIC: %w", err)
		}
		cfg.OperatorSeed = kp.Seed
	}
	return nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		if !c.Relaxed() {
			return errors.New("config: WALLET_JWT_SECRET is required unless WALLET_ENV is test/development/local")
		}
	} else if len(c.JWTSecret) < minJWTSecretLen && !c.Relaxed() {
		return fmt.Errorf("config: WALLET_JWT_SECRET must be at least %d characters", minJWTSecretLen)
	}
	if c.DatabaseURL == "" && !c.Relaxed() {
		return errors.New("config: DATABASE_URL is required unless WALLET_ENV is test/development/local")
	}
	if c.OperatorSeed != "" && !strkey.IsValidEd25519SecretSeed(c.OperatorSeed) {
		return errors.New("config: WALLET_OPERATOR_SEED is not a valid secret seed")
	}
	return nil
}

// Relaxed reports whether this environment may run without the production
// hard requirements (external database, strong JWT secret).
func (c Config) Relaxed() bool {
	switch c.Env {
	case "test", "testing", "dev", "development", "local":
		return true
	default:
		return false
	}
}

func getenv(name string) string {
	return strings.TrimSpace(os.Getenv(name))
}
