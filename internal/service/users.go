package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/userhub/internal/apperr"
	"github.com/geocoder89/userhub/internal/domain/user"
	"github.com/geocoder89/userhub/internal/jobs"
	"github.com/geocoder89/userhub/internal/security"
	"github.com/google/uuid"
)

type UsersRepo interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.User) (user.User, error)
	Update(ctx context.Context, id, name, email string) (user.User, error)
	Delete(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type Enqueuer interface {
	Enqueue(ctx context.Context, j jobs.Job) error
}

// UsersService owns the business rules for account management. Every failure
// it returns is an *apperr.Error; the transport layer only translates kinds.
type UsersService struct {
	repo  UsersRepo
	queue Enqueuer // nil disables notifications
	log   *slog.Logger
}

func NewUsersService(repo UsersRepo, queue Enqueuer, log *slog.Logger) *UsersService {
	if log == nil {
		log = slog.Default()
	}

	return &UsersService{repo: repo, queue: queue, log: log}
}

func (s *UsersService) List(ctx context.Context) ([]user.User, error) {
	users, err := s.repo.List(ctx)

	if err != nil {
		return nil, apperr.Server("Could not list users")
	}

	return users, nil
}

func (s *UsersService) GetByID(ctx context.Context, id string) (user.User, error) {
	u, err := s.repo.GetByID(ctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, apperr.Unprocessable("Unknown user")
		}

		return user.User{}, apperr.Server("Could not fetch user")
	}

	return u, nil
}

func (s *UsersService) Create(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
	if req.Password != req.PasswordConfirm {
		return user.User{}, apperr.InvalidPassword("Passwords do not match")
	}

	// friendly pre-check; the unique index on email is the real guarantee
	_, err := s.repo.GetByEmail(ctx, req.Email)

	if err == nil {
		return user.User{}, apperr.EmailTaken("Email is already in use")
	}

	if !errors.Is(err, user.ErrNotFound) {
		return user.User{}, apperr.Server("Could not create user")
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		return user.User{}, apperr.Server("Could not create user")
	}

	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, u)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return user.User{}, apperr.EmailTaken("Email is already in use")
		}

		return user.User{}, apperr.Unprocessable("Could not create user")
	}

	s.enqueueWelcome(ctx, created)

	return created, nil
}

func (s *UsersService) Update(ctx context.Context, id string, req user.UpdateUserRequest) (user.User, error) {
	u, err := s.repo.Update(ctx, id, req.Name, req.Email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, apperr.Unprocessable("Unknown user")
		}
		if errors.Is(err, user.ErrEmailTaken) {
			return user.User{}, apperr.EmailTaken("Email is already in use")
		}

		return user.User{}, apperr.Unprocessable("Could not update user")
	}

	return u, nil
}

func (s *UsersService) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperr.Unprocessable("Unknown user")
		}

		return apperr.Unprocessable("Could not delete user")
	}

	return nil
}

func (s *UsersService) UpdatePassword(ctx context.Context, id string, req user.UpdatePasswordRequest) error {
	if req.PasswordNew != req.PasswordNewConfirm {
		return apperr.InvalidPassword("Passwords do not match")
	}

	u, err := s.repo.GetByID(ctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperr.Unprocessable("Unknown user")
		}

		return apperr.Server("Could not update password")
	}

	err = security.CheckPassword(u.PasswordHash, req.PasswordOld)

	if err != nil {
		return apperr.InvalidPassword("Wrong password")
	}

	hash, err := security.HashPassword(req.PasswordNew)

	if err != nil {
		return apperr.Server("Could not update password")
	}

	err = s.repo.UpdatePassword(ctx, id, hash)

	if err != nil {
		return apperr.Server("Could not update password")
	}

	s.enqueuePasswordChanged(ctx, u)

	return nil
}

// Notification enqueues are best effort: a broken queue never fails the
// request that triggered it.

func (s *UsersService) enqueueWelcome(ctx context.Context, u user.User) {
	if s.queue == nil {
		return
	}

	payload, err := jobs.EncodePayload(jobs.JobWelcomeEmail, jobs.WelcomeEmailPayload{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
	})

	if err != nil {
		s.log.Error("encode welcome job failed", "user_id", u.ID, "err", err)
		return
	}

	j, err := jobs.NewJob(jobs.JobWelcomeEmail, payload, time.Time{})

	if err != nil {
		s.log.Error("build welcome job failed", "user_id", u.ID, "err", err)
		return
	}

	if err := s.queue.Enqueue(ctx, j); err != nil {
		s.log.Error("enqueue welcome job failed", "user_id", u.ID, "err", err)
	}
}

func (s *UsersService) enqueuePasswordChanged(ctx context.Context, u user.User) {
	if s.queue == nil {
		return
	}

	payload, err := jobs.EncodePayload(jobs.JobPasswordChanged, jobs.PasswordChangedPayload{
		UserID: u.ID,
		Email:  u.Email,
	})

	if err != nil {
		s.log.Error("encode password-changed job failed", "user_id", u.ID, "err", err)
		return
	}

	j, err := jobs.NewJob(jobs.JobPasswordChanged, payload, time.Time{})

	if err != nil {
		s.log.Error("build password-changed job failed", "user_id", u.ID, "err", err)
		return
	}

	if err := s.queue.Enqueue(ctx, j); err != nil {
		s.log.Error("enqueue password-changed job failed", "user_id", u.ID, "err", err)
	}
}
