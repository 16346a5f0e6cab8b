package services

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"lukamath/internal/apperr"
	"lukamath/internal/domain"
	"lukamath/internal/repos"
	"lukamath/internal/token"
	"lukamath/internal/validate"
)

// UserService covers profile self-service and admin account management.
type UserService struct {
	Users *repos.UserRepo
	Cost  int
}

func NewUserService(users *repos.UserRepo, cost int) *UserService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &UserService{Users: users, Cost: cost}
}

type ProfileInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Language  string `json:"language"`
}

func (s *UserService) Profile(ctx context.Context, actor token.Identity) (*domain.User, error) {
	return s.load(ctx, actor.Subject)
}

// UpdateProfile only ever touches the actor's own row.
func (s *UserService) UpdateProfile(ctx context.Context, actor token.Identity, in ProfileInput) (*domain.User, error) {
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
	if err := s.Users.UpdateProfile(ctx, actor.Subject, first, last, lang); err != nil {
		return nil, s.mapErr(err, "could not update profile")
	}
	return s.load(ctx, actor.Subject)
}

func (s *UserService) ChangePassword(ctx context.Context, actor token.Identity, current, next string) error {
	u, err := s.load(ctx, actor.Subject)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(current)) != nil {
		return apperr.Validation("current password is incorrect")
	}
	if !validate.Password(next) {
		return apperr.Validation("password must be 8-72 characters with upper, lower, digit and symbol")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.Cost)
	if err != nil {
		return apperr.Wrap(apperr.ServerError, "could not change password", err)
	}
	if err := s.Users.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		return s.mapErr(err, "could not change password")
	}
	return nil
}

func (s *UserService) List(ctx context.Context, actor token.Identity, role domain.Role) ([]domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperr.Forbid("admin only")
	}
	users, err := s.Users.List(ctx, role)
	if err != nil {
		return nil, apperr.Wrap(apperr.ServerError, "could not list users", err)
	}
	return users, nil
}

// SetRole takes effect on the target's next login; tokens already issued keep
// the role they were signed with until they expire.
func (s *UserService) SetRole(ctx context.Context, actor token.Identity, userID string, role domain.Role) (*domain.User, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperr.Forbid("admin only")
	}
	if !role.Valid() {
		return nil, apperr.Validation("role must be student, tutor or admin")
	}
	if _, err := s.load(ctx, userID); err != nil {
		return nil, err
	}
	if userID == actor.Subject && role != domain.RoleAdmin {
		return nil, apperr.Validation("admins cannot demote themselves")
	}
	if err := s.Users.SetRole(ctx, userID, role); err != nil {
		return nil, s.mapErr(err, "could not set role")
	}
	return s.load(ctx, userID)
}

func (s *UserService) Deactivate(ctx context.Context, actor token.Identity, userID string) error {
	if actor.Role != domain.RoleAdmin {
		return apperr.Forbid("admin only")
	}
	if _, err := s.load(ctx, userID); err != nil {
		return err
	}
	if userID == actor.Subject {
		return apperr.Validation("admins cannot deactivate themselves")
	}
	if err := s.Users.SoftDelete(ctx, userID); err != nil {
		return s.mapErr(err, "could not deactivate user")
	}
	return nil
}

func (s *UserService) load(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Users.ByID(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, "could not load user")
	}
	return u, nil
}

func (s *UserService) mapErr(err error, msg string) error {
	if errors.Is(err, repos.ErrNotFound) {
		return apperr.E(apperr.NotFound, "user not found")
	}
	return apperr.Wrap(apperr.ServerError, msg, err)
}
