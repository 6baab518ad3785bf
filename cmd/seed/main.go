// seed inserts development sample data for local testing: three users (USER,
// MODERATOR, ADMIN), each with a live session bound to a freshly issued access
// token. The tokens are printed so they can be pasted into a test client.
// Idempotent: skips inserts if the dev user (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"sockgate/internal/config"
	"sockgate/internal/db"
	"sockgate/internal/security"
	sessiondomain "sockgate/internal/session/domain"
	sessionrepo "sockgate/internal/session/repository"
	userdomain "sockgate/internal/user/domain"
	userrepo "sockgate/internal/user/repository"
)

const devPassword = "password123"

type seedUser struct {
	email       string
	displayName string
	role        userdomain.Role
}

var seedUsers = []seedUser{
	{"dev@example.com", "Dev User", userdomain.RoleUser},
	{"mod@example.com", "Dev Moderator", userdomain.RoleModerator},
	{"admin@example.com", "Dev Admin", userdomain.RoleAdmin},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}
	if cfg.JWTPrivateKey == "" {
		log.Fatal("JWT_PRIVATE_KEY is not set; seeding issues tokens and needs the signing key")
	}

	signer, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("JWT_PRIVATE_KEY: %v", err)
	}
	pub, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("JWT_PUBLIC_KEY: %v", err)
	}
	tokens := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	sessions := sessionrepo.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := users.GetByEmail(ctx, seedUsers[0].email)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	for _, su := range seedUsers {
		u := &userdomain.User{
			ID:           uuid.New().String(),
			Email:        su.email,
			DisplayName:  su.displayName,
			PasswordHash: passwordHash,
			Role:         su.role,
			Status:       userdomain.UserStatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := u.Validate(); err != nil {
			log.Fatalf("validate %s: %v", su.email, err)
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create %s: %v", su.email, err)
		}

		token, _, expiresAt, err := tokens.IssueAccess(u.ID, u.DisplayName, u.Email, string(u.Role))
		if err != nil {
			log.Fatalf("issue token for %s: %v", su.email, err)
		}
		if err := sessions.Create(ctx, &sessiondomain.Session{
			ID:        uuid.New().String(),
			UserID:    u.ID,
			TokenHash: security.HashToken(token),
			ExpiresAt: expiresAt,
			IPAddress: "127.0.0.1",
			CreatedAt: now,
		}); err != nil {
			log.Fatalf("create session for %s: %v", su.email, err)
		}

		log.Printf("%s (%s)\n  token: %s", su.email, su.role, token)
	}
}
