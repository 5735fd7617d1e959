package wallet

import (
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config holds the settings the orchestrator needs before it can load a
// mint: where to keep wallet state on disk, which mint to talk to, and
// whether its logger should run at debug level.
type Config struct {
	WalletPath string
	MintURL    string
	Debug      bool
}

// LoadConfig builds a Config from environment variables, optionally
// loaded from a .env file at path (or the current working directory if
// path has none). Missing variables fall back to sane local defaults;
// LoadConfig never exits the process, unlike the mint-side config loader
// it is modeled on, since a wallet library must let its caller decide
// how to react to misconfiguration.
func LoadConfig(walletPath string) Config {
	if walletPath == "" {
		walletPath = defaultWalletPath()
	}
	if err := os.MkdirAll(walletPath, 0700); err != nil {
		log.Printf("wallet: could not create wallet directory %s: %v", walletPath, err)
	}

	envPath := filepath.Join(walletPath, ".env")
	if _, err := os.Stat(envPath); err != nil {
		if wd, err := os.Getwd(); err == nil {
			envPath = filepath.Join(wd, ".env")
		}
	}
	_ = godotenv.Load(envPath)

	mintURL := os.Getenv("MINT_URL")
	if mintURL == "" {
		mintURL = "http://127.0.0.1:3338"
	}

	debug := os.Getenv("WALLET_DEBUG") == "true"

	return Config{WalletPath: walletPath, MintURL: mintURL, Debug: debug}
}

func defaultWalletPath() string {
	homedir, err := os.UserHomeDir()
	if err != nil {
		return ".walletcore"
	}
	return filepath.Join(homedir, ".walletcore")
}
