package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
	"github.com/capitalizelearning/CapitalizeWebsite/testutil"
)

func setup(t *testing.T) (*commandLine, *testutil.Env) {
	env := testutil.NewEnv(t)
	return &commandLine{accSvc: env.AccountSvc}, env
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	pwd        string
}

func (tt cliTest) check(t *testing.T, cli *commandLine) error {
	t.Helper()
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(tt.pwd), nil
	}

	err := cli.run(append([]string{"admin"}, tt.args...))
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, errors.Cause(err))
	case tt.wantErrStr != "":
		assert.EqualError(t, err, tt.wantErrStr)
	default:
		assert.NoError(t, err)
	}
	return err
}

func Test_commandLine_run(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "unknown flag", args: []string{"adduser", "-lol"}, wantErrStr: "flag provided but not defined: -lol"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli) })
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var gotCommand string
	defer func(orig func(context.Context, *sql.DB, string, ...string) error) { gooseRunFunc = orig }(gooseRunFunc)
	gooseRunFunc = func(_ context.Context, _ *sql.DB, command string, args ...string) error {
		gotCommand = command
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: `"lol": no such command`},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_badges", "sql"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.check(t, cli) == nil {
				assert.Equal(t, tt.args[1], gotCommand)
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "-username", "admin"}, pwd: "pwd", wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "admin", "-email", "admin@test.cd"}, wantErr: errHelp},
		{name: "create staff", args: []string{"adduser", "-username", "Admin", "-email", "admin@test.cd", "-staff"}, pwd: "pwd"},
		{name: "update", args: []string{"adduser", "-username", "admin", "-email", "boss@test.cd"}, pwd: "new-pwd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli) })
	}

	usr, err := env.AccountSvc.Authenticate(ctx, "boss@test.cd", "new-pwd")
	require.NoError(t, err)
	assert.Equal(t, "admin", usr.Username)
	assert.False(t, usr.IsStaff)
	assert.True(t, usr.IsActive)

	prof, err := env.AccountSvc.GetProfile(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, account.AccountAdmin, prof.AccountType)
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env := setup(t)
	usr := testutil.CreateUser(t, env.AccountRepo, "awe", "awe@test.cd", "mdr", true, false)

	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "awe"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "lol", wantErr: account.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", "AWE"}, pwd: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, pwd: "lmao"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli) })
	}

	_, err := env.AccountSvc.Authenticate(context.Background(), "awe", "lmao")
	assert.NoError(t, err)
}

func Test_commandLine_promote(t *testing.T) {
	cli, env := setup(t)
	entry, _, err := env.AccountSvc.JoinWaitingList(context.Background(), "a@b.com")
	require.NoError(t, err)
	id := strconv.Itoa(entry.ID)

	tests := []cliTest{
		{name: "no args", args: []string{"promote"}, wantErr: errHelp},
		{name: "invalid id", args: []string{"promote", "-id", "lol"}, wantErrStr: `invalid value "lol" for flag -id: parse error`},
		{name: "not found", args: []string{"promote", "-id", "99"}, wantErr: account.ErrWaitingListNotFound},
		{name: "promoted", args: []string{"promote", "-id", id, "-firstname", "Ada"}},
		{name: "promoted twice", args: []string{"promote", "-id", id}, wantErr: account.ErrAlreadyRegistered},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.check(t, cli) })
	}

	sent := env.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "a@b.com", sent[0].To[0].Address)
}
