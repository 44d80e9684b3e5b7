package main

import (
	"context"
	"fmt"

	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
)

// addUser updates or creates an active account.User
func (cli *commandLine) addUser(ctx context.Context, uname, email, pwd string, isStaff bool) error {
	usr, err := cli.accSvc.AddUser(ctx, uname, email, pwd, isStaff)
	if err != nil {
		return err
	}
	fmt.Printf("user %q saved (id=%d, staff=%t)\n", usr.Username, usr.ID, usr.IsStaff)
	return nil
}

func (cli *commandLine) promote(ctx context.Context, entryID int, data account.Promote) error {
	prof, sent, err := cli.accSvc.Promote(ctx, entryID, data)
	if err != nil {
		return err
	}
	fmt.Printf("waiting list entry %d promoted (user=%d, invite_sent=%t)\n", entryID, prof.UserID, sent)
	return nil
}
