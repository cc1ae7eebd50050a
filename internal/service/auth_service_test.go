package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/openedu-labs/geoc-api/internal/models"
	"github.com/openedu-labs/geoc-api/pkg/config"
	appErrors "github.com/openedu-labs/geoc-api/pkg/errors"
)

type mockUserRepo struct {
	user    *models.User
	refresh *models.RefreshToken
	issued  []*models.RefreshToken
	revoked []string
}

func (m *mockUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if m.user == nil || m.user.Email != email {
		return nil, sql.ErrNoRows
	}
	copied := *m.user
	return &copied, nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *m.user
	return &copied, nil
}

func (m *mockUserRepo) UpdateLastLogin(_ context.Context, _ string, _ time.Time) error { return nil }

func (m *mockUserRepo) CreateRefreshToken(_ context.Context, token *models.RefreshToken) error {
	token.ID = "rt-new"
	m.issued = append(m.issued, token)
	return nil
}

func (m *mockUserRepo) FindRefreshToken(_ context.Context, token string) (*models.RefreshToken, error) {
	if m.refresh == nil || m.refresh.Token != token {
		return nil, sql.ErrNoRows
	}
	copied := *m.refresh
	return &copied, nil
}

func (m *mockUserRepo) RevokeRefreshToken(_ context.Context, id string, _ time.Time) error {
	m.revoked = append(m.revoked, id)
	return nil
}

func (m *mockUserRepo) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	m.revoked = append(m.revoked, "all:"+userID)
	return nil
}

func newAuthFixture(repo *mockUserRepo) *AuthService {
	cfg := config.JWTConfig{
		Secret:            "test-secret",
		Expiration:        15 * time.Minute,
		RefreshExpiration: 24 * time.Hour,
	}
	return NewAuthService(repo, nil, cfg, zap.NewNop())
}

func activeUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "user-1",
		Email:        "faculty@example.edu",
		FullName:     "Sam Faculty",
		PasswordHash: string(hash),
		Role:         models.RoleFaculty,
		Active:       true,
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	repo := &mockUserRepo{user: activeUser(t, "correct horse")}
	svc := newAuthFixture(repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "faculty@example.edu",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "user-1", resp.User.ID)
	require.Len(t, repo.issued, 1)
	assert.Equal(t, resp.RefreshToken, repo.issued[0].Token)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newAuthFixture(&mockUserRepo{user: activeUser(t, "correct horse")})

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "faculty@example.edu",
		Password: "battery staple",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appCode(t, err))
}

func TestLoginUnknownEmailLooksLikeBadCredentials(t *testing.T) {
	svc := newAuthFixture(&mockUserRepo{})

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "nobody@example.edu",
		Password: "whatever",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appCode(t, err))
}

func TestLoginInactiveAccount(t *testing.T) {
	user := activeUser(t, "correct horse")
	user.Active = false
	svc := newAuthFixture(&mockUserRepo{user: user})

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "faculty@example.edu",
		Password: "correct horse",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appCode(t, err))
}

func TestRefreshRotatesToken(t *testing.T) {
	repo := &mockUserRepo{
		user: activeUser(t, "correct horse"),
		refresh: &models.RefreshToken{
			ID:        "rt-old",
			UserID:    "user-1",
			Token:     "old-token",
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		},
	}
	svc := newAuthFixture(repo)

	resp, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	assert.NotEqual(t, "old-token", resp.RefreshToken)
	assert.Equal(t, []string{"rt-old"}, repo.revoked)
	require.Len(t, repo.issued, 1)
}

func TestRefreshRejectsRevokedAndExpired(t *testing.T) {
	tests := []struct {
		name  string
		token models.RefreshToken
	}{
		{"revoked", models.RefreshToken{ID: "rt-1", UserID: "user-1", Token: "tok", Revoked: true, ExpiresAt: time.Now().UTC().Add(time.Hour)}},
		{"expired", models.RefreshToken{ID: "rt-1", UserID: "user-1", Token: "tok", ExpiresAt: time.Now().UTC().Add(-time.Minute)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := tt.token
			svc := newAuthFixture(&mockUserRepo{user: activeUser(t, "pw"), refresh: &token})

			_, err := svc.Refresh(context.Background(), models.RefreshTokenRequest{RefreshToken: "tok"})
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrUnauthorized.Code, appCode(t, err))
		})
	}
}

func TestLogoutRevokesEverySession(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newAuthFixture(repo)

	require.NoError(t, svc.Logout(context.Background(), "user-1"))
	assert.Equal(t, []string{"all:user-1"}, repo.revoked)
}
