package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
	"github.com/capitalizelearning/CapitalizeWebsite/storage/database"
)

const (
	userColumns        = `id, username, email, first_name, last_name, password, is_active, is_staff, date_joined, last_login`
	profileColumns     = `id, user_id, account_type, phone_number, is_2fa_enabled, streak_days, registration_token`
	preferencesColumns = `id, user_id, email_notifications, sms_notifications, language`
	waitingListColumns = `id, email, date_joined, is_registered`
)

var waitingListOrderFields = map[string]bool{"id": true, "email": true, "date_joined": true, "is_registered": true}

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) *accountRepository {
	return &accountRepository{db: db}
}

// trapErr maps "no rows" to notFound and unique violations to the matching account errors.
func (repo accountRepository) trapErr(err error, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	if constraint, ok := database.UniqueViolation(err); ok {
		switch constraint {
		case "user_username_key":
			return account.ErrUsernameExists
		case "user_email_key":
			return account.ErrEmailExists
		case "profile_registration_token_key":
			return account.ErrTokenCollision
		case "profile_phone_number_key":
			return account.ErrPhoneNumberExists
		case "waiting_list_email_key":
			return account.ErrAlreadyOnList
		}
	}
	return errors.Wrap(err, msg)
}

func insertAccount(ctx context.Context, tx *sqlx.Tx, usr account.User, prof account.Profile, prefs account.Preferences) (account.User, account.Profile, error) {
	err := tx.QueryRowxContext(
		ctx,
		`INSERT INTO "user" (username, email, first_name, last_name, password, is_active, is_staff, date_joined, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		usr.Username, usr.Email, usr.FirstName, usr.LastName, usr.PasswordHash,
		usr.IsActive, usr.IsStaff, usr.DateJoined.UTC(), usr.LastLogin,
	).Scan(&usr.ID)
	if err != nil {
		return account.User{}, account.Profile{}, err
	}

	prof.UserID = usr.ID
	err = tx.QueryRowxContext(
		ctx,
		`INSERT INTO profile (user_id, account_type, phone_number, is_2fa_enabled, streak_days, registration_token)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		prof.UserID, prof.AccountType, prof.PhoneNumber, prof.Is2FAEnabled, prof.StreakDays, prof.RegistrationToken,
	).Scan(&prof.ID)
	if err != nil {
		return account.User{}, account.Profile{}, err
	}

	prefs.UserID = usr.ID
	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO preferences (user_id, email_notifications, sms_notifications, language) VALUES ($1, $2, $3, $4)`,
		prefs.UserID, prefs.EmailNotifications, prefs.SMSNotifications, prefs.Language,
	)
	if err != nil {
		return account.User{}, account.Profile{}, err
	}
	return usr, prof, nil
}

func (repo accountRepository) CreateAccount(ctx context.Context, usr account.User, prof account.Profile, prefs account.Preferences) (account.User, account.Profile, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var err error
		usr, prof, err = insertAccount(ctx, tx, usr, prof, prefs)
		return err
	})
	if err != nil {
		return account.User{}, account.Profile{}, repo.trapErr(err, account.ErrNotFound, "creating account")
	}
	return usr, prof, nil
}

func (repo accountRepository) PromoteWaitingListEntry(ctx context.Context, entryID int, usr account.User, prof account.Profile, prefs account.Preferences) (account.User, account.Profile, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var entry account.WaitingList
		err := tx.GetContext(ctx, &entry, `SELECT `+waitingListColumns+` FROM waiting_list WHERE id = $1 FOR UPDATE`, entryID)
		if err != nil {
			return err
		}
		if entry.IsRegistered {
			return account.ErrAlreadyRegistered
		}

		if usr, prof, err = insertAccount(ctx, tx, usr, prof, prefs); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE waiting_list SET is_registered = TRUE WHERE id = $1`, entryID)
		return err
	})
	if err != nil {
		if errors.Cause(err) == account.ErrAlreadyRegistered {
			return account.User{}, account.Profile{}, err
		}
		return account.User{}, account.Profile{}, repo.trapErr(err, account.ErrWaitingListNotFound, "promoting waiting list entry")
	}
	return usr, prof, nil
}

func (repo accountRepository) GetUser(ctx context.Context, filter account.GetFilter) (account.User, error) {
	q := `SELECT ` + userColumns + ` FROM "user" WHERE `
	var arg interface{}
	switch {
	case filter.ID != 0:
		q += `id = $1`
		arg = filter.ID
	case filter.Username != "":
		q += `username = $1`
		arg = filter.Username
	case filter.Email != "":
		q += `email = $1`
		arg = filter.Email
	case filter.UsernameOrEmail != "":
		q += `(username = $1 OR email = $1) ORDER BY id LIMIT 1`
		arg = filter.UsernameOrEmail
	default:
		return account.User{}, account.ErrNotFound
	}

	var usr account.User
	if err := repo.db.GetContext(ctx, &usr, q, arg); err != nil {
		return account.User{}, repo.trapErr(err, account.ErrNotFound, "getting user")
	}
	return usr, nil
}

func (repo accountRepository) QueryUsers(ctx context.Context, ids ...int) ([]account.User, error) {
	q := `SELECT ` + userColumns + ` FROM "user"`
	var args []interface{}
	if len(ids) > 0 {
		q += ` WHERE id = ANY($1)`
		args = append(args, pq.Array(ids))
	}
	q += ` ORDER BY id`

	users := make([]account.User, 0)
	if err := repo.db.SelectContext(ctx, &users, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo accountRepository) UpdateUser(ctx context.Context, usr account.User) (account.User, error) {
	var updated account.User
	err := repo.db.GetContext(
		ctx,
		&updated,
		`UPDATE "user" SET username = $2, email = $3, first_name = $4, last_name = $5, password = $6,
		is_active = $7, is_staff = $8, last_login = $9 WHERE id = $1 RETURNING `+userColumns,
		usr.ID, usr.Username, usr.Email, usr.FirstName, usr.LastName, usr.PasswordHash,
		usr.IsActive, usr.IsStaff, usr.LastLogin,
	)
	if err != nil {
		return account.User{}, repo.trapErr(err, account.ErrNotFound, "updating user")
	}
	return updated, nil
}

func (repo accountRepository) GetProfile(ctx context.Context, userID int) (account.Profile, error) {
	var prof account.Profile
	if err := repo.db.GetContext(ctx, &prof, `SELECT `+profileColumns+` FROM profile WHERE user_id = $1`, userID); err != nil {
		return account.Profile{}, repo.trapErr(err, account.ErrProfileNotFound, "getting profile")
	}
	return prof, nil
}

// ConsumeRegistrationToken clears the token and activates its user in a single statement,
// so a token can only be consumed once.
func (repo accountRepository) ConsumeRegistrationToken(ctx context.Context, token string, passwordHash []byte) (account.User, error) {
	if token == "" {
		return account.User{}, account.ErrInvalidRegistrationToken
	}
	var usr account.User
	err := repo.db.GetContext(
		ctx,
		&usr,
		`WITH consumed AS (
			UPDATE profile SET registration_token = NULL WHERE registration_token = $1 RETURNING user_id
		)
		UPDATE "user" u SET password = $2, is_active = TRUE FROM consumed WHERE u.id = consumed.user_id
		RETURNING u.id, u.username, u.email, u.first_name, u.last_name, u.password, u.is_active, u.is_staff, u.date_joined, u.last_login`,
		token, passwordHash,
	)
	if err != nil {
		return account.User{}, repo.trapErr(err, account.ErrInvalidRegistrationToken, "consuming registration token")
	}
	return usr, nil
}

func (repo accountRepository) GetPreferences(ctx context.Context, userID int) (account.Preferences, error) {
	var prefs account.Preferences
	if err := repo.db.GetContext(ctx, &prefs, `SELECT `+preferencesColumns+` FROM preferences WHERE user_id = $1`, userID); err != nil {
		if err == sql.ErrNoRows {
			// accounts created before preferences existed
			prefs = account.DefaultPreferences()
			prefs.UserID = userID
			return prefs, nil
		}
		return account.Preferences{}, errors.Wrap(err, "getting preferences")
	}
	return prefs, nil
}

func (repo accountRepository) UpdatePreferences(ctx context.Context, prefs account.Preferences) (account.Preferences, error) {
	var updated account.Preferences
	err := repo.db.GetContext(
		ctx,
		&updated,
		`INSERT INTO preferences (user_id, email_notifications, sms_notifications, language) VALUES ($1, $2, $3, $4)
		ON CONFLICT ON CONSTRAINT preferences_user_id_key DO UPDATE
		SET email_notifications = EXCLUDED.email_notifications, sms_notifications = EXCLUDED.sms_notifications, language = EXCLUDED.language
		RETURNING `+preferencesColumns,
		prefs.UserID, prefs.EmailNotifications, prefs.SMSNotifications, prefs.Language,
	)
	if err != nil {
		return account.Preferences{}, errors.Wrap(err, "updating preferences")
	}
	return updated, nil
}

func (repo accountRepository) CreateWaitingListEntry(ctx context.Context, email string) (account.WaitingList, error) {
	var entry account.WaitingList
	err := repo.db.GetContext(
		ctx,
		&entry,
		`INSERT INTO waiting_list (email) VALUES ($1) RETURNING `+waitingListColumns,
		email,
	)
	if err != nil {
		return account.WaitingList{}, repo.trapErr(err, account.ErrWaitingListNotFound, "creating waiting list entry")
	}
	return entry, nil
}

func (repo accountRepository) GetWaitingListEntry(ctx context.Context, id int) (account.WaitingList, error) {
	var entry account.WaitingList
	if err := repo.db.GetContext(ctx, &entry, `SELECT `+waitingListColumns+` FROM waiting_list WHERE id = $1`, id); err != nil {
		return account.WaitingList{}, repo.trapErr(err, account.ErrWaitingListNotFound, "getting waiting list entry")
	}
	return entry, nil
}

func (repo accountRepository) QueryWaitingList(ctx context.Context, ordering []core.DBOrdering) ([]account.WaitingList, error) {
	q := `SELECT ` + waitingListColumns + ` FROM waiting_list` + orderBy(ordering, waitingListOrderFields, "date_joined ASC, id ASC")

	entries := make([]account.WaitingList, 0)
	if err := repo.db.SelectContext(ctx, &entries, q); err != nil {
		return nil, errors.Wrap(err, "querying waiting list")
	}
	return entries, nil
}
