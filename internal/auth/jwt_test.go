package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mark-AImagineers/NoteKo/internal/domain"
)

const testSecret = "test-secret-key-that-is-long-enough-0123"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*TokenService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	svc, err := NewTokenService(Config{Secret: testSecret}, WithClock(clock.Now))
	require.NoError(t, err)
	return svc, clock
}

func signMap(t *testing.T, method jwt.SigningMethod, secret string, c jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestNewTokenService_Validation(t *testing.T) {
	_, err := NewTokenService(Config{})
	assert.Error(t, err)

	_, err = NewTokenService(Config{Secret: testSecret, Algorithm: "RS256"})
	assert.Error(t, err)

	_, err = NewTokenService(Config{Secret: testSecret, Algorithm: "none"})
	assert.Error(t, err)

	svc, err := NewTokenService(Config{Secret: testSecret, Algorithm: "HS512"})
	require.NoError(t, err)
	assert.Equal(t, DefaultAccessTTL, svc.accessTTL)
	assert.Equal(t, DefaultRefreshTTL, svc.refreshTTL)
}

func TestIssueAndVerify_RoundTrip(t *testing.T) {
	svc, clock := newTestService(t)

	tok, err := svc.Issue("42", domain.TokenAccess, 30*time.Minute)
	require.NoError(t, err)

	p, err := svc.Verify(tok, domain.TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, "42", p.Subject)
	assert.Equal(t, domain.TokenAccess, p.Type)
	assert.True(t, clock.t.Equal(p.IssuedAt), "IssuedAt")
	assert.True(t, clock.t.Add(30*time.Minute).Equal(p.ExpiresAt), "ExpiresAt")
}

func TestIssue_ExactClaimSet(t *testing.T) {
	svc, _ := newTestService(t)
	tok, err := svc.IssueAccess("7")
	require.NoError(t, err)

	parsed, _, err := jwt.NewParser().ParseUnverified(tok, jwt.MapClaims{})
	require.NoError(t, err)
	m := parsed.Claims.(jwt.MapClaims)

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"sub", "exp", "iat", "type"}, keys)
	assert.Equal(t, "HS256", parsed.Header["alg"])
}

func TestIssuePair(t *testing.T) {
	svc, clock := newTestService(t)

	pair, err := svc.IssuePair("42")
	require.NoError(t, err)

	access, err := svc.Verify(pair.AccessToken, domain.TokenAccess)
	require.NoError(t, err)
	refresh, err := svc.Verify(pair.RefreshToken, domain.TokenRefresh)
	require.NoError(t, err)

	assert.True(t, clock.t.Add(DefaultAccessTTL).Equal(access.ExpiresAt), "ExpiresAt")
	assert.True(t, clock.t.Add(DefaultRefreshTTL).Equal(refresh.ExpiresAt), "ExpiresAt")
}

func TestVerify_TypeChecks(t *testing.T) {
	svc, _ := newTestService(t)
	pair, err := svc.IssuePair("42")
	require.NoError(t, err)

	_, err = svc.Verify(pair.AccessToken, domain.TokenRefresh)
	assert.ErrorIs(t, err, domain.ErrWrongTokenType)

	_, err = svc.Verify(pair.RefreshToken, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrWrongTokenType)

	p, err := svc.Verify(pair.RefreshToken, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TokenRefresh, p.Type)
}

func TestVerify_Expiry(t *testing.T) {
	svc, clock := newTestService(t)
	tok, err := svc.Issue("42", domain.TokenAccess, time.Minute)
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, err = svc.Verify(tok, domain.TokenAccess)
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = svc.Verify(tok, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrTokenExpired, "exp equal to now is expired")
}

func TestVerify_NonPositiveLifetimeIsExpired(t *testing.T) {
	svc, _ := newTestService(t)
	tok, err := svc.Issue("42", domain.TokenAccess, -time.Second)
	require.NoError(t, err)

	_, err = svc.Verify(tok, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestVerify_SignatureProblems(t *testing.T) {
	svc, clock := newTestService(t)
	tok, err := svc.IssueAccess("42")
	require.NoError(t, err)
	now := clock.t

	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	good := jwt.MapClaims{"sub": "42", "type": "access", "iat": now.Unix(), "exp": now.Add(time.Hour).Unix()}

	tests := []struct {
		name  string
		token string
	}{
		{"tampered signature", tampered},
		{"other secret", signMap(t, jwt.SigningMethodHS256, "another-secret-another-secret-000", good)},
		{"other hmac algorithm", signMap(t, jwt.SigningMethodHS512, testSecret, good)},
		{"alg none", func() string {
			s, err := jwt.NewWithClaims(jwt.SigningMethodNone, good).SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)
			return s
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.token, "")
			assert.ErrorIs(t, err, domain.ErrTokenInvalid)
		})
	}
}

func TestVerify_TamperedExpiredIsInvalid(t *testing.T) {
	svc, clock := newTestService(t)
	expired := signMap(t, jwt.SigningMethodHS256, "wrong-secret-wrong-secret-wrong-00", jwt.MapClaims{
		"sub": "42", "type": "access",
		"iat": clock.t.Add(-2 * time.Hour).Unix(),
		"exp": clock.t.Add(-time.Hour).Unix(),
	})

	_, err := svc.Verify(expired, domain.TokenAccess)
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
	assert.NotErrorIs(t, err, domain.ErrTokenExpired)
}

func TestVerify_MalformedClaims(t *testing.T) {
	svc, clock := newTestService(t)
	iat, exp := clock.t.Unix(), clock.t.Add(time.Hour).Unix()

	tests := []struct {
		name   string
		claims jwt.MapClaims
	}{
		{"missing sub", jwt.MapClaims{"type": "access", "iat": iat, "exp": exp}},
		{"missing iat", jwt.MapClaims{"sub": "1", "type": "access", "exp": exp}},
		{"missing exp", jwt.MapClaims{"sub": "1", "type": "access", "iat": iat}},
		{"missing type", jwt.MapClaims{"sub": "1", "iat": iat, "exp": exp}},
		{"unknown type", jwt.MapClaims{"sub": "1", "type": "admin", "iat": iat, "exp": exp}},
		{"type wrong json kind", jwt.MapClaims{"sub": "1", "type": 5, "iat": iat, "exp": exp}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := signMap(t, jwt.SigningMethodHS256, testSecret, tt.claims)
			_, err := svc.Verify(tok, "")
			assert.ErrorIs(t, err, domain.ErrTokenMalformed)
		})
	}
}

func TestVerify_Garbage(t *testing.T) {
	svc, _ := newTestService(t)
	for _, tok := range []string{"", "not-a-jwt", "a.b.c", "....."} {
		_, err := svc.Verify(tok, "")
		assert.ErrorIs(t, err, domain.ErrTokenMalformed, tok)
	}
}
