package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/pamankwah2405/ecommerce-api/internal/domain"
	"github.com/pamankwah2405/ecommerce-api/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
	logger   *log.Entry
}

func NewUserService(userRepo repository.UserRepository, logger *log.Entry) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Register stores a new user with a bcrypt password hash and returns the
// generated id. Email uniqueness is enforced twice: a lookup here and the
// unique index underneath.
func (s *UserService) Register(ctx context.Context, name, email, password string) (string, error) {
	_, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil {
		return "", domain.ErrEmailTaken
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	user := domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	id, err := s.userRepo.Insert(ctx, user)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return "", domain.ErrEmailTaken
	}
	if err != nil {
		return "", err
	}

	s.logger.WithField("user_id", id.Hex()).Info("user registered")
	return id.Hex(), nil
}

// Login verifies the credentials and returns the user's id. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) {
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	return user.ID.Hex(), nil
}
