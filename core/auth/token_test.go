package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
)

type usersMock map[int]account.User

func (m usersMock) GetByID(_ context.Context, id int) (account.User, error) {
	if usr, ok := m[id]; ok {
		return usr, nil
	}
	return account.User{}, account.ErrNotFound
}

func newTestService(now *time.Time) *TokenService {
	users := usersMock{
		1: {ID: 1, Username: "admin", IsActive: true, IsStaff: true},
		2: {ID: 2, Username: "student", IsActive: true},
		3: {ID: 3, Username: "inactive"},
	}
	svc := NewTokenService(users, core.NewTestConfig())
	svc.now = func() time.Time { return *now }
	return svc
}

func TestTokenService_Encode(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(&now)

	tests := []struct {
		name    string
		usr     account.User
		wantAud string
	}{
		{name: "staff", usr: account.User{ID: 1, IsStaff: true}, wantAud: AudienceAdmin},
		{name: "student", usr: account.User{ID: 2}, wantAud: AudienceUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, exp, err := svc.Encode(tt.usr)
			require.NoError(t, err)
			assert.Equal(t, now.Add(time.Hour), exp)

			claims, err := svc.ParseClaims(token)
			require.NoError(t, err)
			assert.Equal(t, jwt.ClaimStrings{tt.wantAud}, claims.Audience)
			assert.Equal(t, tt.wantAud == AudienceAdmin, claims.IsAdmin())
			assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
			assert.Equal(t, now.Unix(), claims.OrigIssuedAt)
			id, err := claims.UserID()
			require.NoError(t, err)
			assert.Equal(t, tt.usr.ID, id)
		})
	}
}

func TestTokenService_Decode(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(&now)
	ctx := context.Background()

	encode := func(id int) string {
		token, _, err := svc.Encode(account.User{ID: id})
		require.NoError(t, err)
		return token
	}
	studentToken := encode(2)

	other := newTestService(&now)
	other.conf.SecretKey = "other"
	foreignToken, _, err := other.Encode(account.User{ID: 2})
	require.NoError(t, err)

	noAud, err := jwt.NewWithClaims(signingMethod, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "2",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}}).SignedString([]byte(svc.conf.SecretKey))
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		at      time.Time
		wantID  int
		wantErr error
	}{
		{name: "valid", token: studentToken, at: now, wantID: 2},
		{name: "garbage", token: "lol", at: now, wantErr: ErrInvalidToken},
		{name: "wrong signature", token: foreignToken, at: now, wantErr: ErrInvalidToken},
		{name: "no audience", token: noAud, at: now, wantErr: ErrInvalidToken},
		{name: "expired", token: studentToken, at: now.Add(2 * time.Hour), wantErr: ErrTokenExpired},
		{name: "unknown subject", token: encode(999), at: now, wantErr: ErrUnknownSubject},
		{name: "inactive user", token: encode(3), at: now, wantErr: account.ErrAccountDeactivated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := tt.at
			svc.now = func() time.Time { return at }

			usr, err := svc.Decode(ctx, tt.token)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, usr.ID)
		})
	}
	assert.NotEqual(t, ErrInvalidToken, ErrUnknownSubject)
}

func TestTokenService_Refresh(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(&now)
	ctx := context.Background()

	token, _, err := svc.Encode(account.User{ID: 1, IsStaff: true})
	require.NoError(t, err)

	now = now.Add(30 * time.Minute)
	refreshed, exp, err := svc.Refresh(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), exp)

	claims, err := svc.ParseClaims(refreshed)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-30*time.Minute).Unix(), claims.OrigIssuedAt)
	assert.True(t, claims.IsAdmin())

	// keep refreshing until the refresh window is over
	for i := 0; i < 7; i++ {
		now = now.Add(30 * time.Minute)
		refreshed, _, err = svc.Refresh(ctx, refreshed)
		require.NoError(t, err, "refresh #%d", i)
	}
	now = now.Add(30 * time.Minute)
	_, _, err = svc.Refresh(ctx, refreshed)
	assert.Equal(t, ErrRefreshExpired, errors.Cause(err))
}
