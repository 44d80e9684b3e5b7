package account_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
	"github.com/capitalizelearning/CapitalizeWebsite/testutil"
)

func TestService_Register(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	nu := account.NewUser{
		Username:  "jdoe",
		Email:     "jdoe@test.cd",
		FirstName: "John",
		LastName:  "Doe",
		Password:  "Sup3r-s3cret",
	}

	usr, err := env.AccountSvc.Register(ctx, nu)
	require.NoError(t, err)
	assert.True(t, usr.IsActive)
	assert.False(t, usr.IsStaff)
	assert.NoError(t, usr.CheckPassword(nu.Password))

	prof, err := env.AccountSvc.GetProfile(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, account.AccountStudent, prof.AccountType)
	assert.False(t, prof.RegistrationToken.Valid)

	prefs, err := env.AccountSvc.GetPreferences(ctx, usr.ID)
	require.NoError(t, err)
	assert.True(t, prefs.EmailNotifications)
	assert.Equal(t, "en", prefs.Language)

	tests := []struct {
		name    string
		nu      account.NewUser
		wantErr error
	}{
		{name: "duplicate username", nu: account.NewUser{Username: "jdoe", Email: "other@test.cd"}, wantErr: account.ErrUsernameExists},
		{name: "duplicate email", nu: account.NewUser{Username: "other", Email: "jdoe@test.cd"}, wantErr: account.ErrEmailExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.nu.Password = "pwd"
			_, err := env.AccountSvc.Register(ctx, tt.nu)
			assert.Equal(t, tt.wantErr, errors.Cause(err))
			assert.True(t, core.IsConflict(err))
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.AccountRepo, "jdoe", "jdoe@test.cd", "pwd", true, false)
	testutil.CreateUser(t, env.AccountRepo, "inactive", "inactive@test.cd", "pwd", false, false)

	tests := []struct {
		name    string
		uname   string
		pwd     string
		wantErr error
	}{
		{name: "unknown user", uname: "lol", pwd: "pwd", wantErr: account.ErrInvalidCredentials},
		{name: "wrong password", uname: "jdoe", pwd: "lol", wantErr: account.ErrInvalidCredentials},
		{name: "inactive user", uname: "inactive", pwd: "pwd", wantErr: account.ErrInvalidCredentials},
		{name: "username", uname: "jdoe", pwd: "pwd"},
		{name: "email, any case", uname: " JDoe@Test.cd ", pwd: "pwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.AccountSvc.Authenticate(ctx, tt.uname, tt.pwd)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, usr.ID, got.ID)
			assert.True(t, got.LastLogin.Valid)
		})
	}
}

func TestService_JoinWaitingList(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	entry, created, err := env.AccountSvc.JoinWaitingList(ctx, "a@b.com")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "a@b.com", entry.Email)
	assert.False(t, entry.IsRegistered)

	_, created, err = env.AccountSvc.JoinWaitingList(ctx, " A@B.com")
	require.NoError(t, err)
	assert.False(t, created)

	entries, err := env.AccountSvc.QueryWaitingList(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func joinWaitingList(t *testing.T, env *testutil.Env, email string) account.WaitingList {
	t.Helper()
	entry, _, err := env.AccountSvc.JoinWaitingList(context.Background(), email)
	require.NoError(t, err)
	return entry
}

func TestService_Promote(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	entry := joinWaitingList(t, env, "a@b.com")

	prof, sent, err := env.AccountSvc.Promote(ctx, entry.ID, account.Promote{FirstName: "Ada"})
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, account.AccountTester, prof.AccountType)
	require.True(t, prof.RegistrationToken.Valid)
	token := prof.RegistrationToken.String
	assert.NotEmpty(t, token)

	usr, err := env.AccountSvc.GetByID(ctx, prof.UserID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", usr.Username)
	assert.Equal(t, "a@b.com", usr.Email)
	assert.Equal(t, "Ada", usr.FirstName)
	assert.False(t, usr.IsActive)

	entry, err = env.AccountRepo.GetWaitingListEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, entry.IsRegistered)

	msgs := env.Mail.SentMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "a@b.com", msgs[0].To[0].Address)
	assert.Contains(t, msgs[0].TextContent, "Hi Ada")
	assert.Contains(t, msgs[0].TextContent, "token="+token)

	t.Run("already registered", func(t *testing.T) {
		_, _, err := env.AccountSvc.Promote(ctx, entry.ID, account.Promote{})
		assert.Equal(t, account.ErrAlreadyRegistered, errors.Cause(err))
	})

	t.Run("entry not found", func(t *testing.T) {
		_, _, err := env.AccountSvc.Promote(ctx, 999, account.Promote{})
		assert.Equal(t, account.ErrWaitingListNotFound, errors.Cause(err))
		assert.True(t, core.IsNotFound(err))
	})

	t.Run("email taken", func(t *testing.T) {
		testutil.CreateUser(t, env.AccountRepo, "taken", "taken@b.com", "pwd", true, false)
		other := joinWaitingList(t, env, "taken@b.com")

		_, _, err := env.AccountSvc.Promote(ctx, other.ID, account.Promote{})
		assert.Equal(t, account.ErrEmailExists, errors.Cause(err))
		assert.Equal(t, "a user with this email already exists", err.Error())

		other, err = env.AccountRepo.GetWaitingListEntry(ctx, other.ID)
		require.NoError(t, err)
		assert.False(t, other.IsRegistered)
	})
}

func TestService_Promote_inviteDelivery(t *testing.T) {
	ctx := context.Background()

	t.Run("retried until sent", func(t *testing.T) {
		env := testutil.NewEnv(t)
		entry := joinWaitingList(t, env, "a@b.com")
		env.Mail.FailNext(env.Conf.Invite.MaxAttempts - 1)

		_, sent, err := env.AccountSvc.Promote(ctx, entry.ID, account.Promote{})
		require.NoError(t, err)
		assert.True(t, sent)
		assert.Len(t, env.Mail.SentMessages(), 1)
		assert.Empty(t, env.Logger.Records("ERROR"))
	})

	t.Run("gives up but keeps the account", func(t *testing.T) {
		env := testutil.NewEnv(t)
		entry := joinWaitingList(t, env, "a@b.com")
		env.Mail.FailNext(env.Conf.Invite.MaxAttempts)

		prof, sent, err := env.AccountSvc.Promote(ctx, entry.ID, account.Promote{})
		require.NoError(t, err)
		assert.False(t, sent)
		assert.Empty(t, env.Mail.SentMessages())

		_, err = env.AccountSvc.GetByID(ctx, prof.UserID)
		assert.NoError(t, err)
		errRecs := env.Logger.Records("ERROR")
		require.Len(t, errRecs, 1)
		assert.True(t, strings.HasPrefix(errRecs[0].Msg, "sending invite invite:"))

		// the key was released: the invite can be re-sent
		sent, err = env.AccountSvc.ResendInvite(ctx, entry.ID)
		require.NoError(t, err)
		assert.True(t, sent)
		assert.Len(t, env.Mail.SentMessages(), 1)
	})

	t.Run("resend sends again", func(t *testing.T) {
		env := testutil.NewEnv(t)
		entry := joinWaitingList(t, env, "a@b.com")

		_, sent, err := env.AccountSvc.Promote(ctx, entry.ID, account.Promote{})
		require.NoError(t, err)
		assert.True(t, sent)

		sent, err = env.AccountSvc.ResendInvite(ctx, entry.ID)
		require.NoError(t, err)
		assert.True(t, sent)
		assert.Len(t, env.Mail.SentMessages(), 2)
	})

	t.Run("not sent while in flight", func(t *testing.T) {
		env := testutil.NewEnv(t)
		entry := joinWaitingList(t, env, "a@b.com")
		_, _, err := env.AccountSvc.Promote(ctx, entry.ID, account.Promote{})
		require.NoError(t, err)

		key := fmt.Sprintf("invite:%d", entry.ID)
		claimed, err := env.Ledger.Claim(ctx, key, time.Minute)
		require.NoError(t, err)
		require.True(t, claimed)

		sent, err := env.AccountSvc.ResendInvite(ctx, entry.ID)
		assert.Equal(t, account.ErrInviteInFlight, errors.Cause(err))
		assert.False(t, sent)
		assert.Len(t, env.Mail.SentMessages(), 1)

		require.NoError(t, env.Ledger.Release(ctx, key))
		sent, err = env.AccountSvc.ResendInvite(ctx, entry.ID)
		require.NoError(t, err)
		assert.True(t, sent)
	})
}

func TestService_ResendInvite(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	entry := joinWaitingList(t, env, "a@b.com")

	_, err := env.AccountSvc.ResendInvite(ctx, entry.ID)
	assert.Equal(t, account.ErrNotRegistered, errors.Cause(err))

	prof, _, err := env.AccountSvc.Promote(ctx, entry.ID, account.Promote{})
	require.NoError(t, err)
	_, err = env.AccountSvc.SetPasswordWithToken(ctx, account.SetPassword{
		Token:           prof.RegistrationToken.String,
		Password:        "Sup3r-s3cret",
		PasswordConfirm: "Sup3r-s3cret",
	})
	require.NoError(t, err)

	_, err = env.AccountSvc.ResendInvite(ctx, entry.ID)
	assert.Equal(t, account.ErrInviteAccepted, errors.Cause(err))
}

func TestService_SetPasswordWithToken(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	entry := joinWaitingList(t, env, "a@b.com")
	prof, _, err := env.AccountSvc.Promote(ctx, entry.ID, account.Promote{})
	require.NoError(t, err)

	sp := account.SetPassword{
		Token:           prof.RegistrationToken.String,
		Password:        "Sup3r-s3cret",
		PasswordConfirm: "Sup3r-s3cret",
	}
	usr, err := env.AccountSvc.SetPasswordWithToken(ctx, sp)
	require.NoError(t, err)
	assert.True(t, usr.IsActive)

	got, err := env.AccountSvc.Authenticate(ctx, "a@b.com", sp.Password)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)

	prof, err = env.AccountSvc.GetProfile(ctx, usr.ID)
	require.NoError(t, err)
	assert.False(t, prof.RegistrationToken.Valid)

	// single use
	_, err = env.AccountSvc.SetPasswordWithToken(ctx, sp)
	assert.Equal(t, account.ErrInvalidRegistrationToken, errors.Cause(err))

	_, err = env.AccountSvc.SetPasswordWithToken(ctx, account.SetPassword{Token: "lol", Password: "pwd"})
	assert.Equal(t, account.ErrInvalidRegistrationToken, errors.Cause(err))
}

func TestService_UpdatePreferences(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.AccountRepo, "jdoe", "jdoe@test.cd", "pwd", true, false)

	sms, lang := true, "FR"
	prefs, err := env.AccountSvc.UpdatePreferences(ctx, usr.ID, account.UpdatePreferences{SMSNotifications: &sms, Language: &lang})
	require.NoError(t, err)
	assert.True(t, prefs.SMSNotifications)
	assert.True(t, prefs.EmailNotifications)
	assert.Equal(t, "fr", prefs.Language)
}
