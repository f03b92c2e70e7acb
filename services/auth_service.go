package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"kb-portal/config"
	"kb-portal/models"
	"kb-portal/repositories"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the token payload. Role is informational; authorization always
// uses the user as currently stored.
type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)
	Profile(ctx context.Context, id uint) (*models.User, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

type authService struct {
	userRepo repositories.UserRepository
	secret   []byte
	ttl      time.Duration
	now      Clock
}

func NewAuthService(userRepo repositories.UserRepository, cfg config.JWTConfig, now Clock) AuthService {
	ttl := cfg.Expiration
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &authService{
		userRepo: userRepo,
		secret:   []byte(cfg.Secret),
		ttl:      ttl,
		now:      orSystem(now),
	}
}

func (s *authService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	taken, err := s.userRepo.EmailTaken(ctx, email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, models.NewValidationError("email", "The email has already been taken.")
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: hashed,
		Role:     models.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return s.respond(user)
}

func (s *authService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if isNotFound(err) {
			return nil, models.ErrorUnauthorized{Message: "invalid credentials"}
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, models.ErrorUnauthorized{Message: "invalid credentials"}
	}
	return s.respond(user)
}

func (s *authService) Profile(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.FindByID(ctx, id)
}

// Authenticate resolves a bearer token to the stored user. Expiry and
// not-before are checked against the service clock, the same one that
// stamped the token.
func (s *authService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims := &Claims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, models.ErrorUnauthorized{Message: "invalid token"}
	}
	now := s.now()
	if !claims.VerifyExpiresAt(now, true) || !claims.VerifyNotBefore(now, true) {
		return nil, models.ErrorUnauthorized{Message: "invalid token"}
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, models.ErrorUnauthorized{Message: "invalid token"}
		}
		return nil, err
	}
	return user, nil
}

func (s *authService) respond(user *models.User) (*models.AuthResponse, error) {
	token, err := s.generateToken(user)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Token: token, User: *user}, nil
}

func (s *authService) generateToken(user *models.User) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	now := s.now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
