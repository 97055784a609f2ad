package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/contactkeeper/backend/internal/dto"
	"github.com/contactkeeper/backend/internal/model"
	"github.com/contactkeeper/backend/internal/repository"
	"github.com/contactkeeper/backend/pkg/apperror"
	"gorm.io/gorm"
)

// AdminService exposes the unscoped operations reserved for admins: role
// management and contact queries across all owners.
type AdminService interface {
	CreateRole(ctx context.Context, input dto.CreateRoleRequest) (*model.Role, error)
	ListRoles(ctx context.Context) ([]*model.Role, error)
	ListAllContacts(ctx context.Context, limit, offset int) ([]*model.Contact, error)
	AllUpcomingBirthdays(ctx context.Context, days, limit, offset int) ([]*model.Contact, error)
	SearchAllContacts(ctx context.Context, query string) ([]*model.Contact, error)
}

type adminService struct {
	roles    repository.RoleRepository
	contacts ContactService
}

func NewAdminService(roles repository.RoleRepository, contacts ContactService) AdminService {
	return &adminService{
		roles:    roles,
		contacts: contacts,
	}
}

func (s *adminService) CreateRole(ctx context.Context, input dto.CreateRoleRequest) (*model.Role, error) {
	if _, err := s.roles.FindByName(ctx, input.Name); err == nil {
		return nil, fmt.Errorf("%w: role already exists", apperror.ErrBadRequest)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	role := &model.Role{
		Name:        input.Name,
		Description: input.Description,
	}

	if err := s.roles.Create(ctx, role); err != nil {
		// A concurrent create can slip past the lookup above; the unique
		// index still catches it.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: role already exists", apperror.ErrBadRequest)
		}
		return nil, err
	}

	return role, nil
}

func (s *adminService) ListRoles(ctx context.Context) ([]*model.Role, error) {
	return s.roles.FindAll(ctx)
}

func (s *adminService) ListAllContacts(ctx context.Context, limit, offset int) ([]*model.Contact, error) {
	return s.contacts.List(ctx, limit, offset, nil)
}

func (s *adminService) AllUpcomingBirthdays(ctx context.Context, days, limit, offset int) ([]*model.Contact, error) {
	return s.contacts.UpcomingBirthdays(ctx, days, limit, offset, nil)
}

func (s *adminService) SearchAllContacts(ctx context.Context, query string) ([]*model.Contact, error) {
	return s.contacts.Search(ctx, query, nil)
}
