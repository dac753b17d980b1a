package orgs

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wattly/wattly-backend/pkg/db/models"
	"github.com/wattly/wattly-backend/pkg/enums"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
)

type stubOrgsRepo struct {
	org           *models.Organization
	member        *models.Member
	createdOrg    *models.Organization
	createdMember *models.Member
	createdPoint  *models.MeterPoint
	pointErr      error
}

func (s *stubOrgsRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrgsRepo) CreateOrganization(ctx context.Context, org *models.Organization) (*models.Organization, error) {
	s.createdOrg = org
	return org, nil
}

func (s *stubOrgsRepo) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	return nil
}

func (s *stubOrgsRepo) FindOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	if s.org == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.org, nil
}

func (s *stubOrgsRepo) CreateMember(ctx context.Context, member *models.Member) (*models.Member, error) {
	s.createdMember = member
	return member, nil
}

func (s *stubOrgsRepo) FindMember(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	if s.member == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.member, nil
}

func (s *stubOrgsRepo) ListMembers(ctx context.Context, orgID uuid.UUID) ([]models.Member, error) {
	return nil, nil
}

func (s *stubOrgsRepo) CreateMeterPoint(ctx context.Context, point *models.MeterPoint) (*models.MeterPoint, error) {
	if s.pointErr != nil {
		return nil, s.pointErr
	}
	s.createdPoint = point
	return point, nil
}

func (s *stubOrgsRepo) ListMeterPoints(ctx context.Context, orgID uuid.UUID) ([]models.MeterPoint, error) {
	return nil, nil
}

func (s *stubOrgsRepo) FindMeterPointByPod(ctx context.Context, orgID uuid.UUID, podCode string) (*models.MeterPoint, error) {
	return nil, gorm.ErrRecordNotFound
}

func TestCreateOrganization_AppliesDefaults(t *testing.T) {
	repo := &stubOrgsRepo{}
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	org, err := svc.CreateOrganization(context.Background(), CreateOrganizationInput{
		Name: "  ZEV Seefeld  ",
		IBAN: "ch44 3099 9123 0008 8901 2",
	})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	if org.Name != "ZEV Seefeld" {
		t.Fatalf("name = %q, want trimmed", org.Name)
	}
	if org.DistributionPolicy != enums.DistributionPolicyProrata {
		t.Fatalf("policy = %s, want prorata default", org.DistributionPolicy)
	}
	if org.Currency != enums.CurrencyCHF {
		t.Fatalf("currency = %s, want CHF default", org.Currency)
	}
	if org.PaymentTermDays != 30 {
		t.Fatalf("payment term = %d, want 30", org.PaymentTermDays)
	}
	if org.IBAN != "CH4430999123000889012" {
		t.Fatalf("iban = %q, want normalized", org.IBAN)
	}
}

func TestCreateOrganization_RejectsUnknownPolicy(t *testing.T) {
	svc, _ := NewService(&stubOrgsRepo{})
	_, err := svc.CreateOrganization(context.Background(), CreateOrganizationInput{
		Name:               "ZEV",
		DistributionPolicy: enums.DistributionPolicy("random"),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateMember_RequiresExistingOrganization(t *testing.T) {
	svc, _ := NewService(&stubOrgsRepo{})
	_, err := svc.CreateMember(context.Background(), CreateMemberInput{
		OrganizationID: uuid.New(),
		Name:           "Mia Keller",
		Email:          "mia@example.ch",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateMeterPoint_NormalizesPodAndChecksMembership(t *testing.T) {
	orgID := uuid.New()
	memberID := uuid.New()
	repo := &stubOrgsRepo{
		org:    &models.Organization{ID: orgID},
		member: &models.Member{ID: memberID, OrganizationID: orgID},
	}
	svc, _ := NewService(repo)

	point, err := svc.CreateMeterPoint(context.Background(), CreateMeterPointInput{
		OrganizationID: orgID,
		MemberID:       memberID,
		PodCode:        " ch100160123456789 ",
	})
	if err != nil {
		t.Fatalf("CreateMeterPoint: %v", err)
	}
	if point.PodCode != "CH100160123456789" {
		t.Fatalf("pod = %q, want upper-cased trimmed", point.PodCode)
	}
	if point.Category != enums.MeterCategoryConsumer {
		t.Fatalf("category = %s, want consumer default", point.Category)
	}
}

func TestCreateMeterPoint_MemberFromOtherOrganization(t *testing.T) {
	repo := &stubOrgsRepo{
		member: &models.Member{ID: uuid.New(), OrganizationID: uuid.New()},
	}
	svc, _ := NewService(repo)

	_, err := svc.CreateMeterPoint(context.Background(), CreateMeterPointInput{
		OrganizationID: uuid.New(),
		MemberID:       uuid.New(),
		PodCode:        "POD-1",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateMeterPoint_DuplicatePodIsConflict(t *testing.T) {
	orgID := uuid.New()
	memberID := uuid.New()
	repo := &stubOrgsRepo{
		member:   &models.Member{ID: memberID, OrganizationID: orgID},
		pointErr: errors.New(`duplicate key value violates unique constraint "uniq_meter_point_pod"`),
	}
	svc, _ := NewService(repo)

	_, err := svc.CreateMeterPoint(context.Background(), CreateMeterPointInput{
		OrganizationID: orgID,
		MemberID:       memberID,
		PodCode:        "POD-1",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}
