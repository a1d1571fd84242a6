package app

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/aussiebroadwan/quill/pkg/cryptox"
	"github.com/aussiebroadwan/quill/pkg/viewticket"
)

// InitViewTickets creates the view-ticket issuer.
//
// With VIEW_TICKET_KEY_PATH set the Ed25519 key is read from that PEM file,
// generating it on first start, so tickets keep verifying across restarts.
// Without it the key is ephemeral.
func InitViewTickets(cfg Config, logger *slog.Logger) (*viewticket.Issuer, error) {
	if cfg.MasterKeyPath != "" {
		cryptox.SetMasterKeyPath(cfg.MasterKeyPath)
		logger.Info("master key path configured", "path", cfg.MasterKeyPath)
	} else if os.Getenv("SIGNING_MASTER_KEY") == "" {
		logger.Warn("no master key configured - sealed signature images will not survive restart")
	}

	if cfg.ViewTicketKeyPath == "" {
		issuer, err := viewticket.NewEphemeralIssuer(cfg.ViewTicketIssuer, cfg.ViewTicketTTL)
		if err != nil {
			return nil, err
		}
		logger.Warn("view ticket key is ephemeral - outstanding tickets stop verifying on restart", "kid", issuer.KID())
		return issuer, nil
	}

	key, created, err := loadOrCreateKey(cfg.ViewTicketKeyPath)
	if err != nil {
		return nil, err
	}
	issuer, err := viewticket.NewIssuer(key, cfg.ViewTicketIssuer, cfg.ViewTicketTTL)
	if err != nil {
		return nil, err
	}
	logger.Info("view ticket key loaded",
		"kid", issuer.KID(),
		"path", cfg.ViewTicketKeyPath,
		"created", created,
		"ttl", cfg.ViewTicketTTL,
	)
	return issuer, nil
}

func loadOrCreateKey(path string) (ed25519.PrivateKey, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		key, err := writeNewKey(path)
		return key, true, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read view ticket key: %w", err)
	}

	key, err := cryptox.ParseEd25519PrivateKey(data)
	if err != nil {
		return nil, false, fmt.Errorf("view ticket key %s: %w", path, err)
	}
	return key, false, nil
}

func writeNewKey(path string) (ed25519.PrivateKey, error) {
	pemKey, err := cryptox.GenerateEd25519Key()
	if err != nil {
		return nil, err
	}

	// O_EXCL so two replicas racing on first start cannot clobber each other.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			key, _, err := loadOrCreateKey(path)
			return key, err
		}
		return nil, fmt.Errorf("failed to create view ticket key: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(pemKey); err != nil {
		return nil, fmt.Errorf("failed to write view ticket key: %w", err)
	}
	return cryptox.ParseEd25519PrivateKey(pemKey)
}
