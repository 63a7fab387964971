package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/minerledger/backend/internal/ledger"
	"github.com/minerledger/backend/internal/models"
	"github.com/minerledger/backend/internal/repository"
)

// ErrDuplicateEmail is returned when registering with an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidReferral    = errors.New("invalid referral code")
	ErrInvalidToken       = errors.New("invalid token")
	ErrMissingFields      = errors.New("email, password and display name are required")
	ErrInvalidStatus      = errors.New("invalid account status")
)

const (
	referralCodeLength   = 8
	referralCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var DefaultSignupBonus = decimal.NewFromInt(100)

type RegisterInput struct {
	Email        string
	Password     string
	DisplayName  string
	Phone        string
	ReferralCode string
}

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	ValidateToken(ctx context.Context, token string) (uuid.UUID, models.Role, error)
	Profile(ctx context.Context, userID uuid.UUID) (*models.User, error)
	SetAccountStatus(ctx context.Context, userID uuid.UUID, status models.AccountStatus) (*models.User, error)
}

type UserStore interface {
	Create(ctx context.Context, tx pgx.Tx, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
	SetAccountStatus(ctx context.Context, id uuid.UUID, status models.AccountStatus) error
}

type EdgeWriter interface {
	Upsert(ctx context.Context, tx pgx.Tx, ref *models.Referral) error
}

type Options struct {
	Secret      string
	TokenTTL    time.Duration
	SignupBonus decimal.Decimal
	// AdminEmails register with the admin role.
	AdminEmails []string
	BcryptCost  int
}

type service struct {
	pool   ledger.TxBeginner
	users  UserStore
	edges  EdgeWriter
	ledger *ledger.Ledger
	opts   Options
	secret []byte
	log    *slog.Logger
}

func NewService(pool ledger.TxBeginner, users UserStore, edges EdgeWriter, l *ledger.Ledger, opts Options, log *slog.Logger) *service {
	if log == nil {
		log = slog.Default()
	}
	if opts.Secret == "" {
		opts.Secret = "supersecretmvp"
	}
	if opts.TokenTTL == 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.SignupBonus.IsZero() {
		opts.SignupBonus = DefaultSignupBonus
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &service{pool: pool, users: users, edges: edges, ledger: l, opts: opts, secret: []byte(opts.Secret), log: log}
}

// Ensure service implements Service at compile time.
var _ Service = (*service)(nil)

type claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role"`
}

// Register creates the user, their wallet with the signup bonus posted as a
// ledger entry, and the level-1 referral edge when a code is given. All of it
// commits together.
func (s *service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.DisplayName)
	if email == "" || in.Password == "" || name == "" {
		return nil, ErrMissingFields
	}
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	var referrer *models.User
	if code := strings.ToUpper(strings.TrimSpace(in.ReferralCode)); code != "" {
		ref, err := s.users.GetByReferralCode(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidReferral
		}
		if err != nil {
			return nil, err
		}
		referrer = ref
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}
	code, err := newReferralCode()
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:            uuid.New(),
		Email:         email,
		PasswordHash:  string(hash),
		DisplayName:   name,
		Phone:         strings.TrimSpace(in.Phone),
		Role:          s.roleFor(email),
		ReferralCode:  code,
		AccountStatus: models.AccountActive,
	}
	if referrer != nil {
		u.ReferredBy = &referrer.ID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := s.users.Create(ctx, tx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	wallet, err := s.ledger.OpenWallet(ctx, tx, u.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ledger.Post(ctx, tx, wallet, &models.DailyEarning{
		UserID:      u.ID,
		EarningType: models.EarningSignupBonus,
		Amount:      s.opts.SignupBonus,
		EarnedDate:  time.Now(),
	}, "Signup bonus"); err != nil {
		return nil, err
	}
	if err := s.ledger.Save(ctx, tx, wallet); err != nil {
		return nil, err
	}
	if referrer != nil {
		edge := &models.Referral{
			ID:                   uuid.New(),
			ReferrerID:           referrer.ID,
			ReferredUserID:       u.ID,
			Level:                1,
			CommissionPercentage: models.LevelCommission(1),
		}
		if err := s.edges.Upsert(ctx, tx, edge); err != nil {
			return nil, fmt.Errorf("create referral edge: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "user_id", u.ID, "referred", referrer != nil)
	return u, nil
}

func (s *service) roleFor(email string) models.Role {
	for _, admin := range s.opts.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(admin), email) {
			return models.RoleAdmin
		}
	}
	return models.RoleMember
}

func newReferralCode() (string, error) {
	buf := make([]byte, referralCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = referralCodeAlphabet[int(b)%len(referralCodeAlphabet)]
	}
	return string(buf), nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.issueToken(u.ID, u.Role)
}

func (s *service) issueToken(userID uuid.UUID, role models.Role) (string, error) {
	now := time.Now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role: role,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

func (s *service) ValidateToken(ctx context.Context, token string) (uuid.UUID, models.Role, error) {
	tok, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return uuid.Nil, "", err
	}
	c, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid || !c.Role.Valid() {
		return uuid.Nil, "", ErrInvalidToken
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, "", err
	}
	return id, c.Role, nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// SetAccountStatus suspends, bans or reactivates a user. Non-active users
// halt referral walks and are refused on money routes.
func (s *service) SetAccountStatus(ctx context.Context, userID uuid.UUID, status models.AccountStatus) (*models.User, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.users.SetAccountStatus(ctx, userID, status); err != nil {
		return nil, err
	}
	s.log.Info("account status changed", "user_id", userID, "status", status)
	return s.users.GetByID(ctx, userID)
}
