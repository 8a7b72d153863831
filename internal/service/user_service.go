package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/crypto/bcrypt"

	"tweeter/internal/attachment"
	"tweeter/internal/domain"
	"tweeter/internal/pagination"
	"tweeter/internal/repository"
)

// UsersPerPage is the size of the user directory page.
const UsersPerPage = 6

// RegisterInput is accepted on sign up.
type RegisterInput struct {
	Name                 string             `json:"name" validate:"max=100"`
	Email                string             `json:"email" validate:"required,email,max=255"`
	Password             string             `json:"password" validate:"required,min=6,max=128"`
	PasswordConfirmation string             `json:"password_confirmation" validate:"omitempty,eqfield=Password"`
	Avatar               *attachment.Upload `json:"-" validate:"-"`
}

// ProfileInput holds the fields a user may change on their own profile. Nil
// fields are left untouched.
type ProfileInput struct {
	Name   *string
	Email  *string
	Avatar *attachment.Upload
}

type profileRules struct {
	Name  string `json:"name" validate:"max=100"`
	Email string `json:"email" validate:"required,email,max=255"`
}

// ChangePasswordInput replaces a password when the current one is known.
type ChangePasswordInput struct {
	CurrentPassword      string `json:"current_password"`
	Password             string `json:"password" validate:"required,min=6,max=128"`
	PasswordConfirmation string `json:"password_confirmation" validate:"omitempty,eqfield=Password"`
}

// ResetPasswordInput replaces a password using an emailed reset token.
type ResetPasswordInput struct {
	Token                string `json:"reset_password_token" validate:"required"`
	Password             string `json:"password" validate:"required,min=6,max=128"`
	PasswordConfirmation string `json:"password_confirmation" validate:"omitempty,eqfield=Password"`
}

// AvatarStore validates and stores profile pictures.
type AvatarStore interface {
	Decode(up attachment.Upload) (*attachment.Image, error)
	Save(ctx context.Context, userID int64, img *attachment.Image) (domain.Avatar, error)
	Purge(ctx context.Context, avatar domain.Avatar) error
}

// SessionRevoker ends every session of a user.
type SessionRevoker interface {
	SignOutEverywhere(ctx context.Context, userID int64) error
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password, ip string, remember bool) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context, page pagination.Params) (pagination.Page[domain.User], error)
	Update(ctx context.Context, actorID, id int64, in ProfileInput) (*domain.User, error)
	Destroy(ctx context.Context, actorID, id int64) error
	ChangePassword(ctx context.Context, userID int64, in ChangePasswordInput) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in ResetPasswordInput) (*domain.User, error)
}

// UserServiceConfig tunes the user service. Zero values pick defaults.
type UserServiceConfig struct {
	ResetTTL   time.Duration
	BcryptCost int
	Logger     *logrus.Logger
}

type userService struct {
	users    repository.UserRepository
	avatars  AvatarStore
	sessions SessionRevoker
	notifier ResetNotifier
	resetTTL time.Duration
	cost     int
	logger   *logrus.Logger
}

func NewUserService(users repository.UserRepository, avatars AvatarStore, sessions SessionRevoker, notifier ResetNotifier, cfg UserServiceConfig) UserService {
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 6 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &userService{
		users:    users,
		avatars:  avatars,
		sessions: sessions,
		notifier: notifier,
		resetTTL: cfg.ResetTTL,
		cost:     cfg.BcryptCost,
		logger:   cfg.Logger,
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)

	verr := NewValidationError()
	if err := validateStruct(in, verr); err != nil {
		return nil, err
	}
	img, err := s.decodeAvatar(in.Avatar, verr)
	if err != nil {
		return nil, err
	}
	if !verr.Empty() {
		return nil, verr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
	}
	if _, err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			verr.Add("email", "has already been taken")
			return nil, verr
		}
		return nil, err
	}

	if img != nil {
		if err := s.attachAvatar(ctx, user, img); err != nil {
			// the account must not outlive a failed registration
			if delErr := s.users.Delete(ctx, user.ID); delErr != nil {
				err = multierr.Append(err, fmt.Errorf("roll back registration: %w", delErr))
			}
			return nil, err
		}
	}

	s.logger.WithField("user_id", user.ID).Info("user registered")
	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, email, password, ip string, remember bool) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	user.SignIn(now, ip)
	if remember {
		user.RememberCreatedAt = &now
	}
	if err := s.users.RecordSignIn(ctx, user); err != nil {
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) List(ctx context.Context, page pagination.Params) (pagination.Page[domain.User], error) {
	total, err := s.users.Count(ctx)
	if err != nil {
		return pagination.Page[domain.User]{}, err
	}
	users, err := s.users.List(ctx, page.Limit(), page.Offset())
	if err != nil {
		return pagination.Page[domain.User]{}, err
	}
	for i := range users {
		users[i] = *sanitizeUser(&users[i])
	}
	return pagination.NewPage(users, page, total), nil
}

func (s *userService) Update(ctx context.Context, actorID, id int64, in ProfileInput) (*domain.User, error) {
	if actorID != id {
		return nil, ErrForbidden
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		user.Email = normalizeEmail(*in.Email)
	}

	verr := NewValidationError()
	if err := validateStruct(profileRules{Name: user.Name, Email: user.Email}, verr); err != nil {
		return nil, err
	}
	img, err := s.decodeAvatar(in.Avatar, verr)
	if err != nil {
		return nil, err
	}
	if !verr.Empty() {
		return nil, verr
	}

	previous := user.Avatar
	if img != nil {
		avatar, err := s.avatars.Save(ctx, user.ID, img)
		if err != nil {
			return nil, err
		}
		user.Avatar = avatar
	}

	if err := s.users.Update(ctx, user); err != nil {
		if img != nil {
			s.purgeAvatar(ctx, user.Avatar)
		}
		if errors.Is(err, repository.ErrConflict) {
			verr.Add("email", "has already been taken")
			return nil, verr
		}
		return nil, err
	}

	if img != nil {
		s.purgeAvatar(ctx, previous)
	}
	return sanitizeUser(user), nil
}

// Destroy deletes the user with all their tweets, then revokes their
// sessions and removes their avatar. Cleanup failures after the delete
// committed are logged, not returned.
func (s *userService) Destroy(ctx context.Context, actorID, id int64) error {
	if actorID != id {
		return ErrForbidden
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	if s.sessions != nil {
		if err := s.sessions.SignOutEverywhere(ctx, id); err != nil {
			s.logger.WithError(err).WithField("user_id", id).Warn("revoke sessions of deleted user")
		}
	}
	s.purgeAvatar(ctx, user.Avatar)

	s.logger.WithField("user_id", id).Info("user destroyed")
	return nil
}

func (s *userService) ChangePassword(ctx context.Context, userID int64, in ChangePasswordInput) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	verr := NewValidationError()
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.CurrentPassword)) != nil {
		verr.Add("current_password", "is invalid")
	}
	if err := validateStruct(in, verr); err != nil {
		return err
	}
	if !verr.Empty() {
		return verr
	}

	return s.setPassword(ctx, user.ID, in.Password)
}

// RequestPasswordReset issues a single-use reset token. Only its digest is
// stored; the raw token goes to the notifier.
func (s *userService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			verr := NewValidationError()
			verr.Add("email", "not found")
			return verr
		}
		return err
	}

	token, err := generateToken()
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, user.ID, digestToken(token), time.Now().UTC()); err != nil {
		return err
	}

	if s.notifier != nil {
		if err := s.notifier.SendResetPasswordInstructions(ctx, sanitizeUser(user), token); err != nil {
			return fmt.Errorf("send reset instructions: %w", err)
		}
	}
	return nil
}

func (s *userService) ResetPassword(ctx context.Context, in ResetPasswordInput) (*domain.User, error) {
	verr := NewValidationError()
	if err := validateStruct(in, verr); err != nil {
		return nil, err
	}
	if !verr.Empty() {
		return nil, verr
	}

	user, err := s.users.GetByResetToken(ctx, digestToken(in.Token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			verr.Add("reset_password_token", "is invalid")
			return nil, verr
		}
		return nil, err
	}
	if user.ResetPasswordSentAt == nil || time.Since(*user.ResetPasswordSentAt) > s.resetTTL {
		verr.Add("reset_password_token", "has expired, please request a new one")
		return nil, verr
	}

	if err := s.setPassword(ctx, user.ID, in.Password); err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) setPassword(ctx context.Context, userID int64, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, string(hash))
}

func (s *userService) decodeAvatar(up *attachment.Upload, verr *ValidationError) (*attachment.Image, error) {
	if up == nil || s.avatars == nil {
		return nil, nil
	}
	img, err := s.avatars.Decode(*up)
	switch {
	case errors.Is(err, attachment.ErrTooLarge):
		verr.Add("avatar", "must be smaller than 5 MB")
		return nil, nil
	case errors.Is(err, attachment.ErrUnsupportedType):
		verr.Add("avatar", "must be a JPEG image")
		return nil, nil
	case err != nil:
		return nil, err
	}
	return img, nil
}

func (s *userService) attachAvatar(ctx context.Context, user *domain.User, img *attachment.Image) error {
	avatar, err := s.avatars.Save(ctx, user.ID, img)
	if err != nil {
		return err
	}
	user.Avatar = avatar
	if err := s.users.Update(ctx, user); err != nil {
		s.purgeAvatar(ctx, avatar)
		return err
	}
	return nil
}

func (s *userService) purgeAvatar(ctx context.Context, avatar domain.Avatar) {
	if s.avatars == nil || !avatar.Present() {
		return
	}
	if err := s.avatars.Purge(ctx, avatar); err != nil {
		s.logger.WithError(err).WithField("prefix", avatar.KeyPrefix).Warn("purge avatar")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func digestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clean := *user
	clean.PasswordHash = ""
	clean.ResetPasswordToken = ""
	return &clean
}
