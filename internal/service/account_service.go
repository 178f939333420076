package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Eursukkul/food-rescue/listing-service/internal/models"
	"github.com/Eursukkul/food-rescue/listing-service/internal/repository"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
	Location string
}

type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*models.Account, error)
	Authenticate(ctx context.Context, email, password string) (*models.Account, error)
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	// DeleteAccount removes the account after confirming its password. A
	// hostel's listings are deleted with it; a volunteer's held reservations
	// are released.
	DeleteAccount(ctx context.Context, id, password string) error
}

type accountService struct {
	repo repository.AccountRepository
	log  logrus.FieldLogger
	cost int
}

func NewAccountService(repo repository.AccountRepository, log logrus.FieldLogger) AccountService {
	return &accountService{repo: repo, log: log, cost: bcrypt.DefaultCost}
}

func (s *accountService) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	location := strings.TrimSpace(in.Location)
	role := in.Role
	if role == "" {
		role = models.RoleVolunteer
	}

	switch {
	case name == "":
		return nil, validationError("name is required")
	case email == "":
		return nil, validationError("email is required")
	case len(in.Password) < minPasswordLength:
		return nil, validationError("password must be at least %d characters", minPasswordLength)
	case !role.Valid():
		return nil, validationError("role must be HOSTEL or VOLUNTEER")
	case location == "":
		return nil, validationError("location is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &models.Account{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Location:     location,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.log.WithFields(logrus.Fields{"account_id": account.ID, "role": account.Role}).Info("account registered")
	return account, nil
}

func (s *accountService) Authenticate(ctx context.Context, email, password string) (*models.Account, error) {
	account, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

func (s *accountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	account, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find account: %w", err)
	}
	return account, nil
}

func (s *accountService) DeleteAccount(ctx context.Context, id, password string) error {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	if err := s.repo.DeleteCascade(ctx, account); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("delete account: %w", err)
	}

	s.log.WithFields(logrus.Fields{"account_id": account.ID, "role": account.Role}).Info("account deleted")
	return nil
}
