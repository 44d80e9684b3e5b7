package account

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
)

var (
	ErrNotFound                 = core.NewNotFoundError("user not found")
	ErrUsernameExists           = core.NewConflictError("a user with this username already exists")
	ErrEmailExists              = core.NewConflictError("a user with this email already exists")
	ErrPhoneNumberExists        = core.NewConflictError("a profile with this phone number already exists")
	ErrProfileNotFound          = core.NewNotFoundError("profile not found")
	ErrInvalidRegistrationToken = core.NewNotFoundError("invalid registration token")
	ErrWaitingListNotFound      = core.NewNotFoundError("waiting list entry not found")
	ErrAlreadyOnList            = core.NewConflictError("already on list")
	ErrAlreadyRegistered        = core.NewConflictError("waiting list entry already registered")
	ErrNotRegistered            = core.NewConflictError("waiting list entry is not registered yet")
	ErrInviteAccepted           = core.NewConflictError("invitation already accepted")
	ErrInviteInFlight           = core.NewConflictError("invite is already being sent")
	ErrInvalidCredentials       = core.NewAuthenticationError("invalid credentials")
	ErrAccountDeactivated       = core.NewPermissionError("account deactivated")

	// ErrTokenCollision is returned by a Repository when a registration token is already taken.
	ErrTokenCollision = errors.New("registration token already taken")
)

type (
	Repository interface {
		// CreateAccount atomically inserts a User with its Profile and Preferences.
		CreateAccount(ctx context.Context, usr User, prof Profile, prefs Preferences) (User, Profile, error)
		// PromoteWaitingListEntry atomically creates the account and marks the entry registered.
		PromoteWaitingListEntry(ctx context.Context, entryID int, usr User, prof Profile, prefs Preferences) (User, Profile, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		QueryUsers(ctx context.Context, ids ...int) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		GetProfile(ctx context.Context, userID int) (Profile, error)
		// ConsumeRegistrationToken atomically sets the password, clears the token and activates the User.
		ConsumeRegistrationToken(ctx context.Context, token string, passwordHash []byte) (User, error)
		GetPreferences(ctx context.Context, userID int) (Preferences, error)
		UpdatePreferences(ctx context.Context, prefs Preferences) (Preferences, error)
		CreateWaitingListEntry(ctx context.Context, email string) (WaitingList, error)
		GetWaitingListEntry(ctx context.Context, id int) (WaitingList, error)
		QueryWaitingList(ctx context.Context, ordering []core.DBOrdering) ([]WaitingList, error)
	}

	// InviteLedger records which invites are being dispatched.
	InviteLedger interface {
		// Claim returns false if key is already claimed.
		Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
		Release(ctx context.Context, key string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		ledger  InviteLedger
		logger  core.Logger
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, ledger InviteLedger, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		ledger:  ledger,
		logger:  logger,
		conf:    conf,
	}
}

var nowFunc = func() time.Time { return time.Now().UTC() } // mockable

// Register creates an active student account.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		Username:   nu.Username,
		Email:      nu.Email,
		FirstName:  nu.FirstName,
		LastName:   nu.LastName,
		IsActive:   true,
		DateJoined: nowFunc(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, _, err := svc.repo.CreateAccount(ctx, usr, Profile{AccountType: AccountStudent}, DefaultPreferences())
	return usr, err
}

// AddUser creates or updates an active account; used by the admin CLI.
func (svc *Service) AddUser(ctx context.Context, uname, email, pwd string, isStaff bool) (User, error) {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := svc.repo.GetUser(ctx, GetFilter{Username: uname})
	if err != nil && errors.Cause(err) != ErrNotFound {
		return User{}, errors.Wrap(err, "finding user")
	}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.IsActive = true
	usr.IsStaff = isStaff
	if usr.ID != 0 {
		if email != "" {
			usr.Email = email
		}
		return svc.repo.UpdateUser(ctx, usr)
	}

	usr.Username = uname
	usr.Email = email
	usr.DateJoined = nowFunc()
	accountType := AccountStudent
	if isStaff {
		accountType = AccountAdmin
	}
	usr, _, err = svc.repo.CreateAccount(ctx, usr, Profile{AccountType: accountType}, DefaultPreferences())
	return usr, err
}

// ResetPassword sets a new password for the user with the given username or email.
func (svc *Service) ResetPassword(ctx context.Context, uname, pwd string) error {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = svc.repo.UpdateUser(ctx, usr)
	return err
}

// Authenticate checks the credentials and records the login. Inactive accounts cannot log in.
func (svc *Service) Authenticate(ctx context.Context, uname, pwd string) (User, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by username or email")
	}
	if !usr.IsActive || len(usr.PasswordHash) == 0 || usr.CheckPassword(pwd) != nil {
		return User{}, ErrInvalidCredentials
	}

	usr.LastLogin = null.TimeFrom(nowFunc())
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{UsernameOrEmail: core.CleanString(uname, true /* lower */)})
}

func (svc *Service) QueryUsers(ctx context.Context, ids ...int) ([]User, error) {
	return svc.repo.QueryUsers(ctx, ids...)
}

func (svc *Service) GetProfile(ctx context.Context, userID int) (Profile, error) {
	return svc.repo.GetProfile(ctx, userID)
}

func (svc *Service) GetPreferences(ctx context.Context, userID int) (Preferences, error) {
	return svc.repo.GetPreferences(ctx, userID)
}

func (svc *Service) UpdatePreferences(ctx context.Context, userID int, up UpdatePreferences) (Preferences, error) {
	prefs, err := svc.repo.GetPreferences(ctx, userID)
	if err != nil {
		return Preferences{}, err
	}
	if up.EmailNotifications != nil {
		prefs.EmailNotifications = *up.EmailNotifications
	}
	if up.SMSNotifications != nil {
		prefs.SMSNotifications = *up.SMSNotifications
	}
	if up.Language != nil {
		prefs.Language = core.CleanString(*up.Language, true /* lower */)
	}
	return svc.repo.UpdatePreferences(ctx, prefs)
}

// SetPasswordWithToken consumes an invite's registration token. A token can only be used once.
func (svc *Service) SetPasswordWithToken(ctx context.Context, sp SetPassword) (User, error) {
	var usr User
	if err := usr.SetPassword(sp.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.ConsumeRegistrationToken(ctx, sp.Token, usr.PasswordHash)
}

// JoinWaitingList adds email to the waiting list. created is false if it was already on it.
func (svc *Service) JoinWaitingList(ctx context.Context, email string) (entry WaitingList, created bool, err error) {
	entry, err = svc.repo.CreateWaitingListEntry(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrAlreadyOnList {
			return WaitingList{}, false, nil
		}
		return WaitingList{}, false, err
	}
	return entry, true, nil
}

func (svc *Service) QueryWaitingList(ctx context.Context, ordering []core.DBOrdering) ([]WaitingList, error) {
	return svc.repo.QueryWaitingList(ctx, ordering)
}

// Promote turns a waiting list entry into an inactive tester account and emails the invite.
// The account is committed before the invite is sent; inviteSent reports the delivery.
func (svc *Service) Promote(ctx context.Context, entryID int, data Promote) (prof Profile, inviteSent bool, err error) {
	entry, err := svc.repo.GetWaitingListEntry(ctx, entryID)
	if err != nil {
		return Profile{}, false, err
	}
	if entry.IsRegistered {
		return Profile{}, false, ErrAlreadyRegistered
	}

	var usr User
	err = withRegistrationToken(func(token string) error {
		var err error
		usr, prof, err = svc.repo.PromoteWaitingListEntry(
			ctx,
			entry.ID,
			User{
				Username:   entry.Email,
				Email:      entry.Email,
				FirstName:  core.CleanString(data.FirstName),
				LastName:   core.CleanString(data.LastName),
				DateJoined: nowFunc(),
			},
			Profile{AccountType: AccountTester, RegistrationToken: null.StringFrom(token)},
			DefaultPreferences(),
		)
		return err
	})
	if errors.Cause(err) == ErrUsernameExists {
		return Profile{}, false, ErrEmailExists // the username is the email
	}
	if err != nil {
		return Profile{}, false, err
	}

	inviteSent, err = svc.dispatchInvite(ctx, entry.ID, usr, prof.RegistrationToken.String)
	if err != nil {
		svc.logger.Warn("invite not dispatched", err, usr)
	}
	return prof, inviteSent, nil
}

// ResendInvite re-sends the invite of a promoted entry whose registration token is still unused.
func (svc *Service) ResendInvite(ctx context.Context, entryID int) (bool, error) {
	entry, err := svc.repo.GetWaitingListEntry(ctx, entryID)
	if err != nil {
		return false, err
	}
	if !entry.IsRegistered {
		return false, ErrNotRegistered
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{Email: entry.Email})
	if err != nil {
		return false, errors.Wrap(err, "finding invited user")
	}
	prof, err := svc.repo.GetProfile(ctx, usr.ID)
	if err != nil {
		return false, errors.Wrap(err, "finding invited profile")
	}
	if !prof.RegistrationToken.Valid || prof.RegistrationToken.String == "" {
		return false, ErrInviteAccepted
	}
	return svc.dispatchInvite(ctx, entry.ID, usr, prof.RegistrationToken.String)
}

type inviteData struct {
	FirstName string
	Token     string
}

func inviteKey(entryID int) string {
	return fmt.Sprintf("invite:%d", entryID)
}

// dispatchInvite sends the invite at least once while holding the ledger key, which is released when
// the dispatch ends. ErrInviteInFlight is returned if another dispatch holds the key.
func (svc *Service) dispatchInvite(ctx context.Context, entryID int, usr User, token string) (bool, error) {
	key := inviteKey(entryID)
	claimed, err := svc.ledger.Claim(ctx, key, svc.conf.Invite.DedupeTTL)
	if err != nil {
		svc.logger.Warn("claiming invite key: sending anyway", err, usr)
	} else if !claimed {
		return false, ErrInviteInFlight
	}
	defer func() {
		if rErr := svc.ledger.Release(context.Background(), key); rErr != nil {
			svc.logger.Error("releasing invite key", rErr, usr)
		}
	}()

	firstName := usr.FirstName
	if firstName == "" {
		firstName = "there"
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.FirstName, Address: usr.Email}},
		Subject:      "You're invited to join our platform",
		TemplateName: "invite",
		TemplateData: inviteData{FirstName: firstName, Token: token},
	}

	attempts := svc.conf.Invite.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = svc.mailSvc.Send(ctx, msg); err == nil {
			return true, nil
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				attempt = attempts
			case <-time.After(time.Duration(attempt) * svc.conf.Invite.RetryDelay):
			}
		}
	}

	svc.logger.Error(
		fmt.Sprintf("sending invite %s failed after %d attempts", key, attempts),
		err,
		map[string]interface{}{"waiting_list_id": entryID, "email": usr.Email},
		usr,
	)
	return false, nil
}
