package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/wattly/wattly-backend/internal/users"
	"github.com/wattly/wattly-backend/pkg/config"
	"github.com/wattly/wattly-backend/pkg/db/models"
	"github.com/wattly/wattly-backend/pkg/enums"
	pkgerrors "github.com/wattly/wattly-backend/pkg/errors"
	"github.com/wattly/wattly-backend/pkg/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "wattly", ExpirationMinutes: 30}
}

type stubUserRepo struct {
	byEmail map[string]*models.User
	created []*models.User
}

func (s *stubUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	user.ID = uuid.New()
	s.created = append(s.created, user)
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

type stubSessions struct {
	generated int
}

func (s *stubSessions) Generate(ctx context.Context, accessID string) (string, error) {
	s.generated++
	return "refresh-" + accessID, nil
}

func newAuthService(t *testing.T, repo *stubUserRepo) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: &stubSessions{},
		JWTConfig:      testJWTConfig(),
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func seededUser(t *testing.T, email, password string, orgID *uuid.UUID) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return &models.User{
		ID:             uuid.New(),
		Email:          email,
		PasswordHash:   hash,
		Name:           "Ops",
		Role:           enums.MemberRoleAdmin,
		OrganizationID: orgID,
		IsActive:       true,
	}
}

func TestLogin_Succeeds(t *testing.T) {
	orgID := uuid.New()
	user := seededUser(t, "admin@zev.ch", "correct horse battery", &orgID)
	repo := &stubUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	svc := newAuthService(t, repo)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "Admin@zev.ch", Password: "correct horse battery"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if resp.User == nil || resp.User.OrganizationID == nil || *resp.User.OrganizationID != orgID {
		t.Fatalf("user = %+v", resp.User)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	user := seededUser(t, "admin@zev.ch", "correct horse battery", nil)
	repo := &stubUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	svc := newAuthService(t, repo)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "admin@zev.ch", Password: "wrong"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc := newAuthService(t, &stubUserRepo{})

	_, err := svc.Login(context.Background(), LoginRequest{Email: "nobody@zev.ch", Password: "whatever"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	user := seededUser(t, "admin@zev.ch", "correct horse battery", nil)
	user.IsActive = false
	repo := &stubUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	svc := newAuthService(t, repo)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "admin@zev.ch", Password: "correct horse battery"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestRegister_NormalizesEmailAndHashes(t *testing.T) {
	repo := &stubUserRepo{}
	svc := newAuthService(t, repo)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "  Ops@Wattly.CH ",
		Password: "a long enough password",
		Name:     "Ops",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if resp.User.Email != "ops@wattly.ch" {
		t.Fatalf("email = %q", resp.User.Email)
	}
	if repo.created[0].PasswordHash == "a long enough password" || repo.created[0].PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	user := seededUser(t, "ops@wattly.ch", "correct horse battery", nil)
	repo := &stubUserRepo{byEmail: map[string]*models.User{user.Email: user}}
	svc := newAuthService(t, repo)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "ops@wattly.ch",
		Password: "a long enough password",
		Name:     "Ops",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}
