package account

import (
	"time"

	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
)

// AccountType is the kind of Profile a User holds.
type AccountType string

const (
	AccountStudent    AccountType = "student"
	AccountInstructor AccountType = "instructor"
	AccountAdmin      AccountType = "admin"
	AccountTester     AccountType = "tester"
)

var AccountTypes = []AccountType{AccountStudent, AccountInstructor, AccountAdmin, AccountTester}

func (at AccountType) Valid() bool {
	for _, t := range AccountTypes {
		if at == t {
			return true
		}
	}
	return false
}

type User struct {
	ID           int       `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	IsStaff      bool      `json:"is_staff" db:"is_staff"`
	PasswordHash []byte    `json:"-" db:"password"`
	DateJoined   time.Time `json:"date_joined" db:"date_joined"` // UTC
	LastLogin    null.Time `json:"last_login" db:"last_login"`   // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Profile extends a User; a RegistrationToken is only set on invited accounts until their password is set.
type Profile struct {
	ID                int         `json:"id" db:"id"`
	UserID            int         `json:"user" db:"user_id"`
	AccountType       AccountType `json:"account_type" db:"account_type"`
	PhoneNumber       null.String `json:"phone_number" db:"phone_number"`
	Is2FAEnabled      bool        `json:"is_2fa_enabled" db:"is_2fa_enabled"`
	StreakDays        int         `json:"streak_days" db:"streak_days"`
	RegistrationToken null.String `json:"-" db:"registration_token"`
}

type Preferences struct {
	ID                 int    `json:"id" db:"id"`
	UserID             int    `json:"user" db:"user_id"`
	EmailNotifications bool   `json:"email_notifications" db:"email_notifications"`
	SMSNotifications   bool   `json:"sms_notifications" db:"sms_notifications"`
	Language           string `json:"language" db:"language"`
}

func DefaultPreferences() Preferences {
	return Preferences{EmailNotifications: true, Language: "en"}
}

type WaitingList struct {
	ID           int       `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	DateJoined   time.Time `json:"date_joined" db:"date_joined"`
	IsRegistered bool      `json:"is_registered" db:"is_registered"`
}

// UserProfile is the public representation of the authenticated user.
type UserProfile struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func NewUserProfile(usr User) UserProfile {
	return UserProfile{
		ID:        usr.ID,
		Username:  usr.Username,
		Email:     usr.Email,
		FirstName: usr.FirstName,
		LastName:  usr.LastName,
	}
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Username  string `json:"username" validate:"required,min=3,max=150,alphanum_"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required,max=150"`
	LastName  string `json:"last_name" validate:"required,max=150"`
	Password  string `json:"password" validate:"required"`
}

func (nu *NewUser) Clean() {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
}

// SetPassword is sent by invited users to choose their password.
type SetPassword struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

type UpdatePreferences struct {
	EmailNotifications *bool   `json:"email_notifications"`
	SMSNotifications   *bool   `json:"sms_notifications"`
	Language           *string `json:"language" validate:"omitempty,len=2,alpha"`
}

type JoinWaitingList struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

func (jw *JoinWaitingList) Clean() {
	jw.Email = core.CleanString(jw.Email, true /* lower */)
}

type Promote struct {
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

// GetFilter selects a single User; the first non-zero field is used.
type GetFilter struct {
	ID              int
	Username        string
	Email           string
	UsernameOrEmail string
}
