package users

import (
	"context"
	"errors"
	"fmt"

	"helpdesk/internal/auditlog"
	"helpdesk/internal/cache"
	custom_error "helpdesk/pkg/errors"
	"helpdesk/pkg/roles"
	"helpdesk/pkg/security"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type Service struct {
	repo     ProfileRepository
	audit    auditlog.Recorder
	cache    cache.Revalidator
	log      *zap.Logger
	hashCost int
}

func NewService(repo ProfileRepository, audit auditlog.Recorder, revalidator cache.Revalidator, log *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		audit:    audit,
		cache:    revalidator,
		log:      log,
		hashCost: bcrypt.DefaultCost,
	}
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrWeakPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

func (s *Service) Create(ctx context.Context, req CreateProfileRequest, actorID int) (*Profile, error) {
	if !req.Role.IsValid() {
		return nil, ErrInvalidRole
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		Username:     req.Username,
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		Role:         req.Role,
		Department:   req.Department,
		IsActive:     true,
		PasswordHash: hash,
	}
	if err := s.repo.PersistProfile(ctx, p); err != nil {
		return nil, err
	}

	s.audit.Log("create", actorID, map[string]interface{}{"username": p.Username, "role": p.Role}, p)
	s.cache.Revalidate(ctx)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id int) (*Profile, error) {
	return s.repo.GetProfile(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ProfileFilter) ([]Profile, error) {
	return s.repo.GetProfiles(ctx, filter)
}

func (s *Service) Update(ctx context.Context, id int, req UpdateProfileRequest, actorID int) (*Profile, error) {
	current, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := &ProfileChanges{
		FullName:   req.FullName,
		Email:      req.Email,
		Phone:      req.Phone,
		Department: req.Department,
		IsActive:   req.IsActive,
	}
	if req.Role != nil && *req.Role != current.Role {
		if !req.Role.IsValid() {
			return nil, ErrInvalidRole
		}
		changes.Role = req.Role
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := s.hash(*req.Password)
		if err != nil {
			return nil, err
		}
		changes.PasswordHash = &hash
	}

	if !changes.HasChanges() {
		return current, nil
	}

	if err := s.repo.UpdateProfile(ctx, id, changes); err != nil {
		return nil, err
	}

	s.audit.Log("update", actorID, req, current)
	s.cache.Revalidate(ctx)
	return s.repo.GetProfile(ctx, id)
}

func (s *Service) ChangePassword(ctx context.Context, id int, req ChangePasswordRequest) error {
	p, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return ErrWrongPassword
	}

	hash, err := s.hash(req.NewPassword)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateProfile(ctx, id, &ProfileChanges{PasswordHash: &hash}); err != nil {
		return err
	}

	s.audit.Log("change_password", id, nil, p)
	return nil
}

// Delete removes the profile. A profile still referenced by tickets,
// borrowings or requests is deactivated instead and deactivated is true.
func (s *Service) Delete(ctx context.Context, id int, actorID int) (deactivated bool, err error) {
	if id == actorID {
		return false, ErrSelfDelete
	}

	p, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		return false, err
	}

	err = s.repo.DeleteProfile(ctx, id)
	if custom_error.IsForeignKeyViolation(err) {
		inactive := false
		if err := s.repo.UpdateProfile(ctx, id, &ProfileChanges{IsActive: &inactive}); err != nil {
			return false, err
		}
		s.log.Info("Profile referenced, deactivated instead of deleted", zap.Int("profile_id", id))
		s.audit.Log("deactivate", actorID, nil, p)
		s.cache.Revalidate(ctx)
		return true, nil
	}
	if err != nil {
		return false, err
	}

	s.audit.Log("delete", actorID, nil, p)
	s.cache.Revalidate(ctx)
	return false, nil
}

// Technicians lists active technicians ordered by id.
func (s *Service) Technicians(ctx context.Context) ([]Profile, error) {
	active := true
	return s.repo.GetProfiles(ctx, ProfileFilter{Role: string(roles.Technician), Active: &active})
}

// PhonesByRole returns phone numbers of active profiles with role.
func (s *Service) PhonesByRole(ctx context.Context, role roles.Role) ([]string, error) {
	active := true
	profiles, err := s.repo.GetProfiles(ctx, ProfileFilter{Role: string(role), Active: &active})
	if err != nil {
		return nil, err
	}

	var phones []string
	for _, p := range profiles {
		if phone := p.PhoneNumber(); phone != "" {
			phones = append(phones, phone)
		}
	}
	return phones, nil
}

func (s *Service) FindCredentials(ctx context.Context, username string) (*security.Credentials, error) {
	p, err := s.repo.GetProfileByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return nil, security.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	return &security.Credentials{
		ID:           p.ID,
		Username:     p.Username,
		FullName:     p.FullName,
		PasswordHash: p.PasswordHash,
		Role:         string(p.Role),
		IsActive:     p.IsActive,
	}, nil
}
