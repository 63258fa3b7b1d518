package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/movieku/internal/apperror"
	"github.com/sakif/movieku/internal/auth"
	"github.com/sakif/movieku/internal/model"
)

// newTestAuthService returns an AuthService wired with fake dependencies.
// The TokenService uses a short secret, suitable for tests only.
func newTestAuthService(t *testing.T, repo *fakeUserRepo) *AuthService {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!")
	require.NoError(t, err)

	// Cost 4 is the bcrypt minimum, keeps tests fast
	ps := auth.NewPasswordServiceForTest(4)

	return NewAuthService(repo, ts, ps, discardLogger())
}

func register(t *testing.T, svc *AuthService, email, password string) *AuthResult {
	t.Helper()
	res, err := svc.Register(context.Background(), RegisterInput{Email: email, Name: "Test User", Password: password})
	require.NoError(t, err)
	return res
}

// =========================================================================
// Register
// =========================================================================

func TestRegister_CreatesUserAndIssuesToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	res, err := svc.Register(context.Background(), RegisterInput{
		Email:    "  Alice@Example.COM ",
		Name:     " Alice ",
		Password: "secret1",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.User.ID)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.Equal(t, "Alice", res.User.Name)
	assert.Equal(t, model.RoleUser, res.User.Role)
	assert.NotEqual(t, "secret1", res.User.PasswordHash)

	p, err := svc.tokens.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, p.UserID)
	assert.Equal(t, model.RoleUser, p.Role)
}

func TestRegister_DuplicateEmailIsConflict(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	register(t, svc, "bob@example.com", "secret1")

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "BOB@example.com", Name: "Other Bob", Password: "secret2",
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"missing email", RegisterInput{Name: "A", Password: "secret1"}, "email"},
		{"malformed email", RegisterInput{Email: "not-an-email", Name: "A", Password: "secret1"}, "email"},
		{"blank name", RegisterInput{Email: "a@example.com", Name: "   ", Password: "secret1"}, "name"},
		{"short password", RegisterInput{Email: "a@example.com", Name: "A", Password: "12345"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestAuthService(t, newFakeUserRepo())

			_, err := svc.Register(context.Background(), tt.in)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestRegister_RepositoryFailureIsWrapped(t *testing.T) {
	repo := newFakeUserRepo()
	repo.err = errors.New("database is on fire")
	svc := newTestAuthService(t, repo)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "a@example.com", Name: "A", Password: "secret1",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperror.ErrConflict)
	assert.Contains(t, err.Error(), "database is on fire")
}

// =========================================================================
// Login
// =========================================================================

func TestLogin_Success(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	reg := register(t, svc, "carol@example.com", "secret1")

	res, err := svc.Login(context.Background(), LoginInput{Email: "Carol@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, res.User.ID)
	assert.NotEmpty(t, res.Token)
}

func TestLogin_WrongPasswordAndUnknownEmailLookTheSame(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	register(t, svc, "dave@example.com", "secret1")

	_, wrongPw := svc.Login(context.Background(), LoginInput{Email: "dave@example.com", Password: "nope123"})
	_, unknown := svc.Login(context.Background(), LoginInput{Email: "nobody@example.com", Password: "secret1"})

	require.ErrorIs(t, wrongPw, apperror.ErrInvalidCredentials)
	require.ErrorIs(t, unknown, apperror.ErrInvalidCredentials)
	assert.Equal(t, wrongPw.Error(), unknown.Error())
}

func TestLogin_MissingFieldsIsValidation(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.Login(context.Background(), LoginInput{Email: "dave@example.com"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

// =========================================================================
// VerifyToken
// =========================================================================

func TestVerifyToken_ValidToken(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	reg := register(t, svc, "erin@example.com", "secret1")

	p, err := svc.VerifyToken(context.Background(), reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, p.UserID)
	assert.Equal(t, "erin@example.com", p.Email)
	assert.Equal(t, model.RoleUser, p.Role)
}

func TestVerifyToken_Rejections(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)
	reg := register(t, svc, "frank@example.com", "secret1")

	expired, err := svc.tokens.GenerateWithDuration(reg.User, -time.Minute)
	require.NoError(t, err)

	other, err := auth.NewTokenService("a-completely-different-secret")
	require.NoError(t, err)
	forged, err := other.Generate(reg.User)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":        "",
		"garbage":      "this.is.garbage",
		"expired":      expired,
		"wrong secret": forged,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifyToken(context.Background(), token)
			assert.ErrorIs(t, err, apperror.ErrUnauthenticated)
		})
	}
}

func TestVerifyToken_DeletedAccount(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)
	reg := register(t, svc, "gina@example.com", "secret1")

	require.NoError(t, repo.Delete(context.Background(), reg.User.ID))

	_, err := svc.VerifyToken(context.Background(), reg.Token)
	require.ErrorIs(t, err, apperror.ErrUnauthenticated)
	assert.Equal(t, "account no longer exists", err.Error())
}

func TestVerifyToken_RoleComesFromToken(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)
	reg := register(t, svc, "hank@example.com", "secret1")

	// Promote in storage; the old token still says USER.
	u, err := repo.GetByID(context.Background(), reg.User.ID)
	require.NoError(t, err)
	u.Role = model.RoleAdmin
	require.NoError(t, repo.Update(context.Background(), u))

	p, err := svc.VerifyToken(context.Background(), reg.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, p.Role)

	res, err := svc.Login(context.Background(), LoginInput{Email: "hank@example.com", Password: "secret1"})
	require.NoError(t, err)
	p, err = svc.VerifyToken(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, p.Role)
}

// =========================================================================
// Me / EnsureAdmin
// =========================================================================

func TestMe(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())
	reg := register(t, svc, "ivy@example.com", "secret1")

	u, err := svc.Me(context.Background(), reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "ivy@example.com", u.Email)

	_, err = svc.Me(context.Background(), "")
	assert.ErrorIs(t, err, apperror.ErrUnauthenticated)

	_, err = svc.Me(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestEnsureAdmin_CreatesAccount(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)

	u, err := svc.EnsureAdmin(context.Background(), "Admin@Example.com", "Administrator", "admin-pass")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)
	assert.Equal(t, "admin@example.com", u.Email)

	res, err := svc.Login(context.Background(), LoginInput{Email: "admin@example.com", Password: "admin-pass"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, res.User.Role)
}

func TestEnsureAdmin_PromotesExistingAndIsIdempotent(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo)
	reg := register(t, svc, "jane@example.com", "original")

	u, err := svc.EnsureAdmin(context.Background(), "jane@example.com", "Jane", "ignored-password")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, u.ID)
	assert.Equal(t, model.RoleAdmin, u.Role)

	again, err := svc.EnsureAdmin(context.Background(), "jane@example.com", "Jane", "ignored-password")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)

	// The existing password is kept.
	_, err = svc.Login(context.Background(), LoginInput{Email: "jane@example.com", Password: "original"})
	assert.NoError(t, err)
}

func TestEnsureAdmin_NewAccountNeedsPassword(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo())

	_, err := svc.EnsureAdmin(context.Background(), "root@example.com", "Root", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
