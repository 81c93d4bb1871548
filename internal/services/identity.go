// Package services contains the business logic of the civic complaint
// backend: identity resolution, the complaint lifecycle engine, the
// chatbot intent resolver, and the audit trail. Services are called by
// handlers and never touch the HTTP layer.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/nagarseva/civic-server/internal/models"
)

// IdentityDirectory resolves user ids to identities. The lifecycle engine
// consumes this narrow view when validating assignees.
type IdentityDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Identity, error)
}

// IdentityClaims is the JWT payload carried by bearer credentials.
type IdentityClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IdentityService manages user accounts and resolves bearer credentials
// to identities. Accounts live in PostgreSQL; roles are read fresh from
// the row on every resolution so a role change takes effect immediately.
type IdentityService struct {
	db        *pgxpool.Pool
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *zap.SugaredLogger
}

// NewIdentityService creates a new identity service.
func NewIdentityService(db *pgxpool.Pool, jwtSecret string, tokenTTL time.Duration, logger *zap.SugaredLogger) *IdentityService {
	return &IdentityService{db: db, jwtSecret: []byte(jwtSecret), tokenTTL: tokenTTL, logger: logger}
}

// Register creates an account and returns the identity with a signed
// token. The role defaults to citizen when absent.
func (s *IdentityService) Register(ctx context.Context, name, email, password, role string) (*models.Identity, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" || len(password) < 6 {
		return nil, "", fmt.Errorf("%w: name, email and a password of at least 6 characters are required", models.ErrInvalidInput)
	}
	parsedRole, ok := models.ParseRole(role)
	if !ok {
		return nil, "", fmt.Errorf("%w: unknown role %q", models.ErrInvalidInput, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	identity := &models.Identity{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Role:      parsedRole,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO users (id, name, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.Exec(ctx, query, identity.ID, identity.Name, identity.Email, string(hash), identity.Role, identity.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, "", models.ErrDuplicateEmail
		}
		return nil, "", fmt.Errorf("insert user: %w: %v", models.ErrStoreUnavailable, err)
	}

	token, err := s.signToken(identity)
	if err != nil {
		return nil, "", err
	}

	s.logger.Infow("User registered", "id", identity.ID, "role", identity.Role)
	return identity, token, nil
}

// Login verifies credentials and returns the identity with a fresh token.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*models.Identity, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var identity models.Identity
	var hash string
	query := `SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = $1`
	err := s.db.QueryRow(ctx, query, email).Scan(
		&identity.ID, &identity.Name, &identity.Email, &hash, &identity.Role, &identity.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, "", models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("find user: %w: %v", models.ErrStoreUnavailable, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, "", models.ErrInvalidCredentials
	}

	token, err := s.signToken(&identity)
	if err != nil {
		return nil, "", err
	}
	return &identity, token, nil
}

// ResolveToken maps a bearer credential to an identity, or fails with
// ErrUnauthenticated. The account row is the source of truth; a token for
// a deleted account does not resolve.
func (s *IdentityService) ResolveToken(ctx context.Context, tokenStr string) (*models.Identity, error) {
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, models.ErrUnauthenticated
	}

	identity, err := s.FindByID(ctx, claims.UserID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return identity, nil
}

// FindByID looks up an identity by its id.
func (s *IdentityService) FindByID(ctx context.Context, id string) (*models.Identity, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed user id %q", models.ErrNotFound, id)
	}

	var identity models.Identity
	query := `SELECT id, name, email, role, created_at FROM users WHERE id = $1`
	err = s.db.QueryRow(ctx, query, userID).Scan(
		&identity.ID, &identity.Name, &identity.Email, &identity.Role, &identity.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w: %v", models.ErrStoreUnavailable, err)
	}
	return &identity, nil
}

func (s *IdentityService) signToken(identity *models.Identity) (string, error) {
	now := time.Now()
	claims := IdentityClaims{
		UserID: identity.ID.String(),
		Email:  identity.Email,
		Role:   string(identity.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
