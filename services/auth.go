package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"justice_flow_go/config"
	"justice_flow_go/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// BcryptCost is the cost factor for bcrypt hashing
const BcryptCost = 10

// ErrInvalidCredentials is returned for any failed login, whatever the cause
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrAccountLocked is returned while an account is locked out
var ErrAccountLocked = errors.New("account temporarily locked after repeated failed logins")

// ErrInvalidToken is returned for malformed, expired or revoked credentials
var ErrInvalidToken = errors.New("invalid or expired token")

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

func timingHash() string {
	dummyHashOnce.Do(func() {
		dummyHash, _ = HashPassword("dummy_password_for_timing_mitigation")
	})
	return dummyHash
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword verifies a password against a hash
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Claims is the payload of an access token
type Claims struct {
	Name            string `json:"name"`
	Role            string `json:"role"`
	CourtID         string `json:"court_id,omitempty"`
	PoliceStationID string `json:"police_station_id,omitempty"`
	PrisonID        string `json:"prison_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor converts verified claims into the caller of an operation
func (c *Claims) Actor() Actor {
	return Actor{
		ID:              c.Subject,
		Name:            c.Name,
		Role:            c.Role,
		CourtID:         c.CourtID,
		PoliceStationID: c.PoliceStationID,
		PrisonID:        c.PrisonID,
	}
}

// TokenPair is returned by login and refresh
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// IssueTokens signs a new access token and persists a new refresh token for the user
func IssueTokens(db *gorm.DB, cfg *config.Config, user *models.User, ipAddress, userAgent string) (*TokenPair, error) {
	now := time.Now()
	accessExpiry := now.Add(time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute)
	refreshExpiry := now.Add(time.Duration(cfg.RefreshTokenTTLHours) * time.Hour)

	actor := ActorFromUser(user)
	access := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name:            user.Name,
		Role:            user.Role,
		CourtID:         actor.CourtID,
		PoliceStationID: actor.PoliceStationID,
		PrisonID:        actor.PrisonID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExpiry),
			ID:        uuid.New().String(),
		},
	})
	accessToken, err := access.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		return nil, Internal("failed to sign access token", err)
	}

	refreshID := uuid.New().String()
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(refreshExpiry),
		ID:        refreshID,
	})
	refreshToken, err := refresh.SignedString([]byte(cfg.JWTRefreshSecret))
	if err != nil {
		return nil, Internal("failed to sign refresh token", err)
	}

	record := models.RefreshToken{
		ID:        refreshID,
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: refreshExpiry,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
	if err := db.Create(&record).Error; err != nil {
		return nil, Internal("failed to store refresh token", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    accessExpiry,
	}, nil
}

// ParseAccessToken verifies an access token and returns its claims
func ParseAccessToken(cfg *config.Config, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func parseRefreshToken(cfg *config.Config, token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTRefreshSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Login checks credentials against the persisted lockout policy and issues tokens
func Login(ctx context.Context, db *gorm.DB, cfg *config.Config, email, password string, actor Actor) (*TokenPair, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	actor.Name = email

	settings, err := GetSettings(db)
	if err != nil {
		return nil, nil, err
	}
	policy := LockoutPolicy{
		MaxAttempts: settings.MaxLoginAttempts,
		Window:      time.Duration(settings.LockoutMinutes) * time.Minute,
	}

	if Monitor.IsLocked(email) {
		Audit.LogSecurityEvent(ctx, actor, "auth.login_locked", "login attempted on locked account")
		return nil, nil, ErrAccountLocked
	}

	var user models.User
	err = db.Where("email = ?", email).First(&user).Error
	if err != nil {
		// Unknown accounts cost the same bcrypt comparison as known ones
		CheckPassword(password, timingHash())
	}
	if err != nil || !user.IsActive || !CheckPassword(password, user.Password) {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, Internal("failed to load user", err)
		}
		if user.ID != "" {
			actor.ID = user.ID
		}
		Monitor.TrackFailedLogin(email, actor.IPAddress, policy)
		Audit.LogSecurityEvent(ctx, actor, "auth.login_failed", "invalid credentials")
		return nil, nil, ErrInvalidCredentials
	}

	Monitor.Reset(email)
	pair, err := IssueTokens(db, cfg, &user, actor.IPAddress, actor.UserAgent)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	db.Model(&user).UpdateColumn("last_login_at", now)
	user.LastLoginAt = &now

	loggedIn := ActorFromUser(&user)
	loggedIn.IPAddress, loggedIn.UserAgent = actor.IPAddress, actor.UserAgent
	loggedIn.Method, loggedIn.Endpoint = actor.Method, actor.Endpoint
	Audit.LogActivity(ctx, loggedIn, AuditEvent{Action: "auth.login", ResourceType: "User", ResourceID: user.ID})
	return pair, &user, nil
}

// RefreshTokens rotates a refresh token: the presented token is revoked and a new pair issued.
// Presenting an already revoked token revokes every token of the user.
func RefreshTokens(ctx context.Context, db *gorm.DB, cfg *config.Config, token, ipAddress, userAgent string) (*TokenPair, error) {
	claims, err := parseRefreshToken(cfg, token)
	if err != nil {
		return nil, err
	}

	var pair *TokenPair
	var reused bool
	err = db.Transaction(func(tx *gorm.DB) error {
		var record models.RefreshToken
		if err := tx.Preload("User").Where("token_hash = ?", hashToken(token)).First(&record).Error; err != nil {
			return ErrInvalidToken
		}
		if record.ID != claims.ID || record.UserID != claims.Subject {
			return ErrInvalidToken
		}
		if record.RevokedAt != nil {
			reused = true
			return ErrInvalidToken
		}
		if !record.IsUsable() || !record.User.IsActive {
			return ErrInvalidToken
		}

		now := time.Now()
		result := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", record.ID).
			Update("revoked_at", now)
		if result.Error != nil {
			return Internal("failed to revoke refresh token", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrInvalidToken
		}

		var err error
		pair, err = IssueTokens(tx, cfg, &record.User, ipAddress, userAgent)
		return err
	})

	if reused {
		if revokeErr := RevokeAllUserTokens(db, claims.Subject); revokeErr == nil {
			Audit.LogSecurityEvent(ctx, Actor{ID: claims.Subject, IPAddress: ipAddress, UserAgent: userAgent},
				"auth.refresh_reuse", "revoked refresh token presented, all sessions revoked")
		}
	}
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes the presented refresh token
func Logout(db *gorm.DB, token string) error {
	result := db.Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hashToken(token)).
		Update("revoked_at", time.Now())
	if result.Error != nil {
		return Internal("failed to revoke refresh token", result.Error)
	}
	return nil
}

// RevokeAllUserTokens revokes every refresh token of a user
func RevokeAllUserTokens(db *gorm.DB, userID string) error {
	return db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Update("revoked_at", time.Now()).Error
}

// CleanupExpiredRefreshTokens removes refresh tokens past their expiry
func CleanupExpiredRefreshTokens(db *gorm.DB) (int64, error) {
	result := db.Where("expires_at < ?", time.Now()).Delete(&models.RefreshToken{})
	return result.RowsAffected, result.Error
}

// CreateUserInput registers a platform account
type CreateUserInput struct {
	Name            string
	Email           string
	Phone           string
	Password        string
	Role            string
	CourtID         string
	PoliceStationID string
	PrisonID        string
}

// CreateUser validates and stores a new account with a bcrypt password
func CreateUser(db *gorm.DB, input CreateUserInput) (*models.User, error) {
	name := SanitizeText(input.Name)
	if name == "" {
		return nil, Validation("name is required")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, Validation("invalid email address")
	}
	role := models.NormalizeStatus(input.Role)
	if role == "" {
		role = models.RoleCitizen
	}
	if !models.IsValidRole(role) {
		return nil, Validation("unknown role %q", input.Role)
	}

	settings, err := GetSettings(db)
	if err != nil {
		return nil, err
	}
	policy := PasswordPolicyFor(role, settings.RequireStrongPassword)
	if err := policy.Check(input.Password, emailLocalPart(email), name); err != nil {
		return nil, err
	}

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, Internal("failed to check email", err)
	}
	if count > 0 {
		return nil, Conflict("email %s is already registered", email)
	}

	hashed, err := HashPassword(input.Password)
	if err != nil {
		return nil, Internal("failed to hash password", err)
	}

	user := &models.User{
		Name:     name,
		Email:    email,
		Phone:    strings.TrimSpace(input.Phone),
		Password: hashed,
		Role:     role,
		IsActive: true,
	}
	if input.CourtID != "" {
		user.CourtID = &input.CourtID
	}
	if input.PoliceStationID != "" {
		user.PoliceStationID = &input.PoliceStationID
	}
	if input.PrisonID != "" {
		user.PrisonID = &input.PrisonID
	}
	if err := db.Create(user).Error; err != nil {
		return nil, Internal("failed to create user", err)
	}
	return user, nil
}
