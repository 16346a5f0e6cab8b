package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"lukamath/internal/apperr"
	"lukamath/internal/domain"
	"lukamath/internal/repos"
	"lukamath/internal/token"
	"lukamath/internal/validate"
)

// ErrBadCreds has one message for every login failure so responses do not
// reveal whether the email exists.
var ErrBadCreds = apperr.E(apperr.InvalidCredentials, "invalid email or password")

// ErrUserExists is returned by Register for a taken email.
var ErrUserExists = apperr.Validation("user already exists")

type AuthService struct {
	Users  *repos.UserRepo
	Tokens *token.Manager
	Cost   int

	dummyOnce sync.Once
	dummy     []byte
}

func NewAuthService(users *repos.UserRepo, tokens *token.Manager, cost int) *AuthService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{Users: users, Tokens: tokens, Cost: cost}
}

type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Language  string `json:"language"`
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// Register creates an unverified student account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email, ok := validate.Email(in.Email)
	if !ok {
		return nil, apperr.Validation("invalid email")
	}
	if !validate.Password(in.Password) {
		return nil, apperr.Validation("password must be 8-72 characters with upper, lower, digit and symbol")
	}
	first, ok := validate.Name(in.FirstName)
	if !ok {
		return nil, apperr.Validation("first name must be 1-50 characters")
	}
	last, ok := validate.Name(in.LastName)
	if !ok {
		return nil, apperr.Validation("last name must be 1-50 characters")
	}
	lang, ok := validate.Language(in.Language)
	if !ok {
		return nil, apperr.Validation("language must be a two-letter code")
	}

	taken, err := s.Users.EmailTaken(ctx, email)
	if err != nil {
		return nil, apperr.Wrap(apperr.ServerError, "could not register", err)
	}
	if taken {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.Cost)
	if err != nil {
		return nil, apperr.Wrap(apperr.ServerError, "could not register", err)
	}
	u := &domain.User{
		ID:        uuid.NewString(),
		Email:     strings.ToLower(email),
		FirstName: first,
		LastName:  last,
		Hash:      string(hash),
		Role:      domain.RoleStudent,
		Language:  lang,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		// lost a race with a concurrent registration of the same email
		if taken, _ := s.Users.EmailTaken(ctx, email); taken {
			return nil, ErrUserExists
		}
		return nil, apperr.Wrap(apperr.ServerError, "could not register", err)
	}
	return u, nil
}

// Login checks the credentials and issues a bearer token. Nothing is persisted.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	u, err := s.Users.ByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, repos.ErrNotFound) {
			return nil, apperr.Wrap(apperr.ServerError, "could not sign in", err)
		}
		// spend the same bcrypt time as a real comparison
		_ = bcrypt.CompareHashAndPassword(s.dummyHash(), []byte(password))
		return nil, ErrBadCreds
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil {
		return nil, ErrBadCreds
	}
	tok, exp, err := s.Tokens.Issue(u)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: tok, ExpiresAt: exp, User: u}, nil
}

// CurrentUser resolves a verified subject. A subject whose account is gone
// is treated like an invalid token.
func (s *AuthService) CurrentUser(ctx context.Context, subject string) (*domain.User, error) {
	u, err := s.Users.ByID(ctx, subject)
	if err != nil {
		if errors.Is(err, repos.ErrNotFound) {
			return nil, apperr.E(apperr.InvalidToken, "account no longer available")
		}
		return nil, apperr.Wrap(apperr.ServerError, "could not load user", err)
	}
	return u, nil
}

func (s *AuthService) dummyHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummy, _ = bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.Cost)
	})
	return s.dummy
}
