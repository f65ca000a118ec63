package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer flavors, in selection priority order
const (
	FlavorPrivateKey = "private-key"
	FlavorKeystore   = "keystore"
)

// SignerConfig configures where the signing key comes from
type SignerConfig struct {
	PrivateKey       string
	KeystorePath     string
	KeystorePassword string
}

// loadSigner picks a signing backend once, in priority order: raw private
// key first, then keystore file. The chosen flavor sticks for the session.
func loadSigner(cfg SignerConfig) (*ecdsa.PrivateKey, string, error) {
	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, "", fmt.Errorf("invalid private key: %w", err)
		}
		return key, FlavorPrivateKey, nil
	}

	if cfg.KeystorePath != "" {
		data, err := os.ReadFile(cfg.KeystorePath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read keystore file: %w", err)
		}
		unlocked, err := keystore.DecryptKey(data, cfg.KeystorePassword)
		if err != nil {
			return nil, "", fmt.Errorf("failed to decrypt keystore: %w", err)
		}
		return unlocked.PrivateKey, FlavorKeystore, nil
	}

	return nil, "", fmt.Errorf("no wallet signer configured. Set TRON_BRIDGE_PRIVATE_KEY or TRON_BRIDGE_KEYSTORE_PATH")
}
