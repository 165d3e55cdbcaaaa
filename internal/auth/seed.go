package auth

import (
	"context"
	"fmt"
	"log/slog"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/nerrad567/rentwise-core/internal/infrastructure/config"
)

// seedPasswordLength is the length of a generated bootstrap password.
const seedPasswordLength = 24

// SeedAdmin creates the bootstrap admin on first boot if no admins exist.
// When no password is configured one is generated and logged; it must be
// changed immediately. Returns the password used (empty if seeding was skipped).
func SeedAdmin(ctx context.Context, admins AdminRepository, hasher PasswordHasher, cfg config.BootstrapAdminConfig, logger *slog.Logger) (string, error) {
	if cfg.Username == "" {
		return "", nil
	}

	count, err := admins.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking admin count: %w", err)
	}
	if count > 0 {
		logger.Info("admins exist, skipping bootstrap admin seed")
		return "", nil
	}

	password := cfg.Password
	generated := password == ""
	if generated {
		password, err = gonanoid.New(seedPasswordLength)
		if err != nil {
			return "", fmt.Errorf("generating seed password: %w", err)
		}
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	if err := admins.Create(ctx, &Admin{Username: cfg.Username, PasswordHash: hash}); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	if generated {
		logger.Warn("bootstrap admin created",
			"username", cfg.Username,
			"password", password,
			"action_required", "change this password immediately",
		)
	} else {
		logger.Info("bootstrap admin created", "username", cfg.Username)
	}

	return password, nil
}
