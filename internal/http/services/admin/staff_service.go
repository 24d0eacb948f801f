package admin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dropDatabas3/printdesk/internal/domain/repository"
	dto "github.com/dropDatabas3/printdesk/internal/http/dto/admin"
	"github.com/dropDatabas3/printdesk/internal/observability/logger"
)

// StaffService gestiona el registro de staff.
type StaffService interface {
	List(ctx context.Context) (*dto.ListStaffResponse, error)
	Create(ctx context.Context, actorID string, in dto.CreateStaffRequest) (*dto.StaffItem, error)
}

var (
	ErrMissingFields    = errors.New("missing required fields")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrInvalidStaffRole = errors.New("invalid staff role")
	ErrStaffEmailTaken  = errors.New("staff email already registered")
)

var emailRx = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type staffService struct {
	staff repository.StaffRepository
}

// NewStaffService crea el service de staff.
func NewStaffService(staff repository.StaffRepository) StaffService {
	return &staffService{staff: staff}
}

func (s *staffService) List(ctx context.Context) (*dto.ListStaffResponse, error) {
	items, err := s.staff.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	out := &dto.ListStaffResponse{Staff: make([]dto.StaffItem, 0, len(items))}
	for i := range items {
		out.Staff = append(out.Staff, toStaffItem(&items[i]))
	}
	return out, nil
}

func (s *staffService) Create(ctx context.Context, actorID string, in dto.CreateStaffRequest) (*dto.StaffItem, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("admin.staff"),
		logger.Op("Create"),
	)

	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if in.Role == "" {
		in.Role = string(repository.StaffRoleStaff)
	}

	if in.FullName == "" || in.Email == "" {
		return nil, ErrMissingFields
	}
	if !emailRx.MatchString(in.Email) {
		return nil, ErrInvalidEmail
	}
	role := repository.StaffRole(in.Role)
	if !role.Valid() {
		return nil, ErrInvalidStaffRole
	}

	m, err := s.staff.Create(ctx, repository.CreateStaffInput{
		FullName:    in.FullName,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		Role:        role,
		CreatedBy:   actorID,
	})
	if repository.IsConflict(err) {
		return nil, ErrStaffEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create staff: %w", err)
	}

	log.Info("staff member registered", logger.String("staff_id", m.ID), logger.Email(m.Email), logger.String("staff_role", string(m.Role)))
	item := toStaffItem(m)
	return &item, nil
}

func toStaffItem(m *repository.StaffMember) dto.StaffItem {
	return dto.StaffItem{
		ID:          m.ID,
		FullName:    m.FullName,
		Email:       m.Email,
		PhoneNumber: m.PhoneNumber,
		Role:        string(m.Role),
		CreatedBy:   m.CreatedBy,
		CreatedAt:   m.CreatedAt,
	}
}
