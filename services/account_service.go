package services

import (
	"context"
	"errors"
	"time"

	"account-service/models"
	"account-service/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterRequest carries the account-creation form fields.
type RegisterRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required"`
	TermsAccepted   bool   `json:"termsAccepted"`
}

type AccountService struct {
	userRepo     repository.UserRepository
	tokenService *TokenService
}

func NewAccountService(userRepo repository.UserRepository, tokenService *TokenService) *AccountService {
	return &AccountService{userRepo: userRepo, tokenService: tokenService}
}

// Register creates a new account. The password confirmation and terms checks
// run before any repository access.
func (s *AccountService) Register(ctx context.Context, req *RegisterRequest) (*models.User, *ServiceError) {
	if req.Password != req.PasswordConfirm {
		return nil, &ServiceError{StatusCode: 400, Message: "The passwords do not match"}
	}
	if !req.TermsAccepted {
		return nil, &ServiceError{StatusCode: 400, Message: "You must accept the Terms and Conditions to create an account."}
	}

	_, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err == nil {
		return nil, &ServiceError{StatusCode: 409, Message: "Email already exists"}
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create account"}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to hash password"}
	}

	now := time.Now().UTC()
	newUser := &models.User{
		Name:            req.Name,
		Email:           req.Email,
		Password:        string(hashedPassword),
		Role:            "user",
		TermsAcceptedAt: &now,
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		return nil, &ServiceError{StatusCode: 500, Message: "Failed to create account"}
	}

	return newUser, nil
}

// Login authenticates the credentials and issues a token pair. Unknown email
// and wrong password produce the same message.
func (s *AccountService) Login(ctx context.Context, email, password string) (*TokenPair, *models.User, *ServiceError) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, nil, &ServiceError{StatusCode: 401, Message: "invalid email or password"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, nil, &ServiceError{StatusCode: 401, Message: "invalid email or password"}
	}

	pair, err := s.tokenService.GenerateTokenPair(user.ID.String(), user.Email, user.Role)
	if err != nil {
		return nil, nil, &ServiceError{StatusCode: 500, Message: "Failed to generate token"}
	}

	return pair, user, nil
}
