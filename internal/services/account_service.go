package services

import (
	"context"
	"errors"
	"strings"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/store"
	"github.com/sirupsen/logrus"
)

// SignupInput is a validated registration request. Address is ignored for admins.
type SignupInput struct {
	Email        string
	Firstname    string
	Lastname     string
	Tel          string
	Address      string
	Password     string
	ProfilePhoto string
}

// LoginResult carries the issued token and the account without its password hash
type LoginResult struct {
	Token     string
	ExpiresIn int64
	Principal auth.Principal
	Account   interface{}
}

// AccountService registers and authenticates admins, users and riders
type AccountService interface {
	SignupAdmin(ctx context.Context, in SignupInput) (*models.Admin, error)
	SignupUser(ctx context.Context, in SignupInput) (*models.User, error)
	// SignupRider registers a rider in PENDING status; it cannot log in until approved.
	SignupRider(ctx context.Context, in SignupInput) (*models.Rider, error)
	Login(ctx context.Context, role auth.Role, email, password string) (*LoginResult, error)
	GetAdmin(ctx context.Context, p auth.Principal) (*models.Admin, error)
	GetUser(ctx context.Context, p auth.Principal) (*models.User, error)
	GetRider(ctx context.Context, p auth.Principal) (*models.Rider, error)
}

type accountService struct {
	store  store.Store
	tokens *auth.TokenManager
	log    *logrus.Logger
}

// NewAccountService creates a new instance of AccountService
func NewAccountService(s store.Store, tokens *auth.TokenManager, log *logrus.Logger) AccountService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &accountService{store: s, tokens: tokens, log: log}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *accountService) hash(password string) (string, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		s.log.WithError(err).Error("Failed to hash password")
		return "", models.ErrServer
	}
	return hash, nil
}

// duplicateError picks the error for an account that already holds email or tel
func duplicateError(existingEmail, email string) error {
	if existingEmail == email {
		return models.ErrEmailInUse
	}
	return models.ErrTelInUse
}

func (s *accountService) SignupAdmin(ctx context.Context, in SignupInput) (*models.Admin, error) {
	email := normalizeEmail(in.Email)
	if _, err := s.store.FindAdminByEmail(ctx, email); err == nil {
		return nil, models.ErrEmailInUse
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, s.serverError(err, "Failed to look up admin")
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	admin := &models.Admin{
		Email:        email,
		Firstname:    strings.TrimSpace(in.Firstname),
		Lastname:     strings.TrimSpace(in.Lastname),
		Tel:          strings.TrimSpace(in.Tel),
		PasswordHash: hash,
		ProfilePhoto: in.ProfilePhoto,
	}
	if err := s.store.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, models.ErrEmailInUse
		}
		return nil, s.serverError(err, "Failed to create admin")
	}
	s.log.WithField("admin_id", admin.ID).Info("Admin registered")
	return admin, nil
}

func (s *accountService) SignupUser(ctx context.Context, in SignupInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	tel := strings.TrimSpace(in.Tel)
	if existing, err := s.store.FindUserByEmailOrTel(ctx, email, tel); err == nil {
		return nil, duplicateError(existing.Email, email)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, s.serverError(err, "Failed to look up user")
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		Firstname:    strings.ToLower(strings.TrimSpace(in.Firstname)),
		Lastname:     strings.ToLower(strings.TrimSpace(in.Lastname)),
		Tel:          tel,
		Address:      strings.TrimSpace(in.Address),
		PasswordHash: hash,
		ProfilePhoto: in.ProfilePhoto,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, models.ErrEmailInUse
		}
		return nil, s.serverError(err, "Failed to create user")
	}
	s.log.WithField("user_id", user.ID).Info("User registered")
	return user, nil
}

func (s *accountService) SignupRider(ctx context.Context, in SignupInput) (*models.Rider, error) {
	email := normalizeEmail(in.Email)
	tel := strings.TrimSpace(in.Tel)
	if existing, err := s.store.FindRiderByEmailOrTel(ctx, email, tel); err == nil {
		return nil, duplicateError(existing.Email, email)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, s.serverError(err, "Failed to look up rider")
	}

	hash, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}
	rider := &models.Rider{
		Email:        email,
		Firstname:    strings.ToLower(strings.TrimSpace(in.Firstname)),
		Lastname:     strings.ToLower(strings.TrimSpace(in.Lastname)),
		Tel:          tel,
		Address:      strings.TrimSpace(in.Address),
		PasswordHash: hash,
		Status:       models.RiderPending,
		Availability: models.Unavailable,
	}
	if err := s.store.CreateRider(ctx, rider); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, models.ErrEmailInUse
		}
		return nil, s.serverError(err, "Failed to create rider")
	}
	s.log.WithField("rider_id", rider.ID).Info("Rider registered, awaiting approval")
	return rider, nil
}

// Login checks the password for the account of the given role and issues a token.
// Riders must be APPROVED.
func (s *accountService) Login(ctx context.Context, role auth.Role, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)

	var (
		id      string
		hash    string
		account interface{}
		err     error
	)
	switch role {
	case auth.RoleAdmin:
		var admin *models.Admin
		if admin, err = s.store.FindAdminByEmail(ctx, email); err == nil {
			id, hash, account = admin.ID, admin.PasswordHash, admin
		}
	case auth.RoleUser:
		var user *models.User
		if user, err = s.store.FindUserByEmailOrTel(ctx, email, ""); err == nil && user.Email == email {
			id, hash, account = user.ID, user.PasswordHash, user
		} else if err == nil {
			err = store.ErrNotFound
		}
	case auth.RoleRider:
		var rider *models.Rider
		if rider, err = s.store.FindRiderByEmailOrTel(ctx, email, ""); err == nil && rider.Email == email {
			id, hash, account = rider.ID, rider.PasswordHash, rider
		} else if err == nil {
			err = store.ErrNotFound
		}
	default:
		return nil, models.ErrWrongRole
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrAccountNotFound.WithDetails(string(role) + " account with email '" + email + "' not found")
	}
	if err != nil {
		return nil, s.serverError(err, "Failed to look up account")
	}

	if !auth.CheckPassword(hash, password) {
		return nil, models.ErrInvalidPassword
	}
	if rider, ok := account.(*models.Rider); ok {
		switch rider.Status {
		case models.RiderApproved:
		case models.RiderDisabled:
			return nil, models.ErrRiderDisabled
		default:
			return nil, models.ErrRiderNotApproved
		}
	}

	principal := auth.Principal{ID: id, Email: email, Role: role}
	token, err := s.tokens.Issue(principal)
	if err != nil {
		return nil, s.serverError(err, "Failed to sign token")
	}
	s.log.WithFields(logrus.Fields{"account_id": id, "role": role}).Info("Login succeeded")
	return &LoginResult{
		Token:     token,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
		Principal: principal,
		Account:   account,
	}, nil
}

func (s *accountService) GetAdmin(ctx context.Context, p auth.Principal) (*models.Admin, error) {
	if !p.Is(auth.RoleAdmin) {
		return nil, models.ErrWrongRole
	}
	admin, err := s.store.FindAdminByID(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, s.serverError(err, "Failed to load admin")
	}
	return admin, nil
}

func (s *accountService) GetUser(ctx context.Context, p auth.Principal) (*models.User, error) {
	if !p.Is(auth.RoleUser) {
		return nil, models.ErrWrongRole
	}
	user, err := s.store.FindUserByID(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrAccountNotFound
	}
	if err != nil {
		return nil, s.serverError(err, "Failed to load user")
	}
	return user, nil
}

func (s *accountService) GetRider(ctx context.Context, p auth.Principal) (*models.Rider, error) {
	if !p.Is(auth.RoleRider) {
		return nil, models.ErrWrongRole
	}
	rider, err := s.store.FindRiderByID(ctx, p.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, models.ErrRiderNotFound
	}
	if err != nil {
		return nil, s.serverError(err, "Failed to load rider")
	}
	return rider, nil
}

func (s *accountService) serverError(err error, msg string) error {
	s.log.WithError(err).Error(msg)
	return models.ErrServer
}
