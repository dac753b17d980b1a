package orgs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wattly/wattly-backend/pkg/db"
	"github.com/wattly/wattly-backend/pkg/db/models"
	"github.com/wattly/wattly-backend/pkg/enums"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
)

// CreateOrganizationInput carries the fields for a new organization.
type CreateOrganizationInput struct {
	Name               string
	DistributionPolicy enums.DistributionPolicy
	PayeeName          string
	PayeeStreet        string
	PayeePostalCode    int
	PayeeCity          string
	IBAN               string
	Currency           enums.Currency
	PaymentTermDays    int
	DefaultLocale      string
}

// CreateMemberInput carries the fields for a new member.
type CreateMemberInput struct {
	OrganizationID uuid.UUID
	Name           string
	Email          string
	Locale         string
	Role           enums.MemberRole
	PriorityLevel  int
}

// CreateMeterPointInput binds a POD code to a member.
type CreateMeterPointInput struct {
	OrganizationID uuid.UUID
	MemberID       uuid.UUID
	PodCode        string
	Category       enums.MeterCategory
}

// Service manages the reference data the billing engine operates on.
type Service interface {
	CreateOrganization(ctx context.Context, input CreateOrganizationInput) (*models.Organization, error)
	GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	CreateMember(ctx context.Context, input CreateMemberInput) (*models.Member, error)
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]models.Member, error)
	CreateMeterPoint(ctx context.Context, input CreateMeterPointInput) (*models.MeterPoint, error)
	ListMeterPoints(ctx context.Context, orgID uuid.UUID) ([]models.MeterPoint, error)
}

type service struct {
	repo Repository
}

// NewService builds an orgs service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orgs repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateOrganization(ctx context.Context, input CreateOrganizationInput) (*models.Organization, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization name required")
	}
	policy := input.DistributionPolicy
	if policy == "" {
		policy = enums.DistributionPolicyProrata
	}
	if !policy.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown distribution policy %q", policy))
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyCHF
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown currency %q", currency))
	}
	termDays := input.PaymentTermDays
	if termDays == 0 {
		termDays = 30
	}
	if termDays < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment term days must not be negative")
	}
	locale := input.DefaultLocale
	if locale == "" {
		locale = "de-CH"
	}

	org := &models.Organization{
		Name:               strings.TrimSpace(input.Name),
		DistributionPolicy: policy,
		PayeeName:          input.PayeeName,
		PayeeStreet:        input.PayeeStreet,
		PayeePostalCode:    input.PayeePostalCode,
		PayeeCity:          input.PayeeCity,
		IBAN:               strings.ToUpper(strings.ReplaceAll(input.IBAN, " ", "")),
		Currency:           currency,
		PaymentTermDays:    termDays,
		DefaultLocale:      locale,
	}
	created, err := s.repo.CreateOrganization(ctx, org)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store organization")
	}
	return created, nil
}

func (s *service) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	org, err := s.repo.FindOrganization(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "organization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}
	return org, nil
}

func (s *service) CreateMember(ctx context.Context, input CreateMemberInput) (*models.Member, error) {
	if input.OrganizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member name required")
	}
	if strings.TrimSpace(input.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member email required")
	}
	role := input.Role
	if role == "" {
		role = enums.MemberRoleMember
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown member role %q", role))
	}
	if _, err := s.GetOrganization(ctx, input.OrganizationID); err != nil {
		return nil, err
	}

	member := &models.Member{
		OrganizationID: input.OrganizationID,
		Name:           strings.TrimSpace(input.Name),
		Email:          strings.TrimSpace(input.Email),
		Locale:         input.Locale,
		Role:           role,
		PriorityLevel:  input.PriorityLevel,
	}
	if member.Locale == "" {
		member.Locale = "de-CH"
	}
	created, err := s.repo.CreateMember(ctx, member)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store member")
	}
	return created, nil
}

func (s *service) ListMembers(ctx context.Context, orgID uuid.UUID) ([]models.Member, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	members, err := s.repo.ListMembers(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list members")
	}
	return members, nil
}

func (s *service) CreateMeterPoint(ctx context.Context, input CreateMeterPointInput) (*models.MeterPoint, error) {
	if input.OrganizationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	if input.MemberID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member id required")
	}
	pod := strings.ToUpper(strings.TrimSpace(input.PodCode))
	if pod == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pod code required")
	}
	category := input.Category
	if category == "" {
		category = enums.MeterCategoryConsumer
	}
	if !category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown meter category %q", category))
	}

	member, err := s.repo.FindMember(ctx, input.MemberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "member not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load member")
	}
	if member.OrganizationID != input.OrganizationID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "member belongs to a different organization")
	}

	point := &models.MeterPoint{
		OrganizationID: input.OrganizationID,
		MemberID:       input.MemberID,
		PodCode:        pod,
		Category:       category,
	}
	created, err := s.repo.CreateMeterPoint(ctx, point)
	if err != nil {
		if db.IsUniqueViolation(err, "uniq_meter_point_pod") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "pod code already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store meter point")
	}
	return created, nil
}

func (s *service) ListMeterPoints(ctx context.Context, orgID uuid.UUID) ([]models.MeterPoint, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization id required")
	}
	points, err := s.repo.ListMeterPoints(ctx, orgID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list meter points")
	}
	return points, nil
}
