package app

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"github.com/portlink/interconsulta/pkg/idx"
	"github.com/portlink/interconsulta/pkg/jwtx"
)

// InitSigningKeys loads or creates the Ed25519 signing key.
//
// With ICS_SIGNING_KEY_FILE set, the key is loaded from the file; a missing
// file is generated and persisted so tokens survive restarts. Without it the
// key is ephemeral: every restart invalidates all outstanding tokens.
func InitSigningKeys(cfg Config, logger *slog.Logger) (*jwtx.EdDSASigner, *jwtx.KeySet, error) {
	signer, err := loadOrGenerateSigner(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	keys := jwtx.NewKeySet()
	if err := keys.AddSigner(signer); err != nil {
		return nil, nil, fmt.Errorf("register signing key: %w", err)
	}

	return signer, keys, nil
}

func loadOrGenerateSigner(cfg Config, logger *slog.Logger) (*jwtx.EdDSASigner, error) {
	if cfg.SigningKeyFile == "" {
		signer, err := jwtx.GenerateSignerEdDSA(idx.New().String())
		if err != nil {
			return nil, fmt.Errorf("generate ephemeral signing key: %w", err)
		}
		logger.Warn("ephemeral signing key generated, outstanding tokens are now invalid")
		return signer, nil
	}

	pemBytes, err := os.ReadFile(cfg.SigningKeyFile)
	if os.IsNotExist(err) {
		signer, err := jwtx.GenerateSignerEdDSA(keyID(cfg.SigningKeyFile))
		if err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}

		out, err := signer.MarshalPKCS8PEM()
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(cfg.SigningKeyFile, out, 0600); err != nil {
			return nil, fmt.Errorf("persist signing key: %w", err)
		}

		logger.Info("signing key generated and persisted", "path", cfg.SigningKeyFile)
		return signer, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}

	signer, err := jwtx.NewSignerEdDSA(keyIDFromPEM(pemBytes), pemBytes)
	if err != nil {
		return nil, fmt.Errorf("load signing key: %w", err)
	}

	logger.Info("signing key loaded", "path", cfg.SigningKeyFile)
	return signer, nil
}

// keyID derives a stable kid for a newly generated persistent key.
func keyID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:4])
}

// keyIDFromPEM derives the kid from the key material itself, so the same key
// file always yields the same kid across restarts.
func keyIDFromPEM(pemBytes []byte) string {
	sum := sha256.Sum256(pemBytes)
	return hex.EncodeToString(sum[:4])
}
