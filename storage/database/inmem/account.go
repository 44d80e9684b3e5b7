package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/capitalizelearning/CapitalizeWebsite/core"
	"github.com/capitalizelearning/CapitalizeWebsite/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) *accountRepository {
	return &accountRepository{db: db}
}

// checkUser must be called with the lock held.
func (repo *accountRepository) checkUser(usr account.User) error {
	for _, u := range repo.db.users {
		if u.ID == usr.ID {
			continue
		}
		if u.Username == usr.Username {
			return account.ErrUsernameExists
		}
		if usr.Email != "" && u.Email == usr.Email {
			return account.ErrEmailExists
		}
	}
	return nil
}

// checkProfile must be called with the lock held.
func (repo *accountRepository) checkProfile(prof account.Profile) error {
	for _, p := range repo.db.profiles {
		if p.ID == prof.ID {
			continue
		}
		if prof.RegistrationToken.Valid && p.RegistrationToken.Valid && p.RegistrationToken.String == prof.RegistrationToken.String {
			return account.ErrTokenCollision
		}
		if prof.PhoneNumber.Valid && p.PhoneNumber.Valid && p.PhoneNumber.String == prof.PhoneNumber.String {
			return account.ErrPhoneNumberExists
		}
	}
	return nil
}

// insertAccount must be called with the write lock held; nothing is written if a constraint fails.
func (repo *accountRepository) insertAccount(usr account.User, prof account.Profile, prefs account.Preferences) (account.User, account.Profile, error) {
	if err := repo.checkUser(usr); err != nil {
		return account.User{}, account.Profile{}, err
	}
	if err := repo.checkProfile(prof); err != nil {
		return account.User{}, account.Profile{}, err
	}

	usr.ID = repo.db.nextPK("user")
	usr.DateJoined = usr.DateJoined.UTC()
	prof.ID = repo.db.nextPK("profile")
	prof.UserID = usr.ID
	prefs.ID = repo.db.nextPK("preferences")
	prefs.UserID = usr.ID

	repo.db.users[usr.ID] = &usr
	repo.db.profiles[usr.ID] = &prof
	repo.db.preferences[usr.ID] = &prefs
	return usr, prof, nil
}

func (repo *accountRepository) CreateAccount(_ context.Context, usr account.User, prof account.Profile, prefs account.Preferences) (account.User, account.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.insertAccount(usr, prof, prefs)
}

func (repo *accountRepository) PromoteWaitingListEntry(_ context.Context, entryID int, usr account.User, prof account.Profile, prefs account.Preferences) (account.User, account.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	entry, ok := repo.db.waitingList[entryID]
	if !ok {
		return account.User{}, account.Profile{}, account.ErrWaitingListNotFound
	}
	if entry.IsRegistered {
		return account.User{}, account.Profile{}, account.ErrAlreadyRegistered
	}
	usr, prof, err := repo.insertAccount(usr, prof, prefs)
	if err != nil {
		return account.User{}, account.Profile{}, err
	}
	entry.IsRegistered = true
	return usr, prof, nil
}

func (repo *accountRepository) GetUser(_ context.Context, filter account.GetFilter) (account.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter.ID != 0 {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return *usr, nil
		}
		return account.User{}, account.ErrNotFound
	}
	for _, usr := range repo.sortedUsers() {
		switch {
		case filter.Username != "" && usr.Username == filter.Username,
			filter.Email != "" && usr.Email == filter.Email,
			filter.UsernameOrEmail != "" && (usr.Username == filter.UsernameOrEmail || usr.Email == filter.UsernameOrEmail):
			return usr, nil
		}
	}
	return account.User{}, account.ErrNotFound
}

// sortedUsers must be called with the lock held.
func (repo *accountRepository) sortedUsers() []account.User {
	users := make([]account.User, 0, len(repo.db.users))
	for _, u := range repo.db.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (repo *accountRepository) QueryUsers(_ context.Context, ids ...int) ([]account.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if len(ids) == 0 {
		return repo.sortedUsers(), nil
	}
	wanted := make(map[int]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	users := make([]account.User, 0, len(ids))
	for _, usr := range repo.sortedUsers() {
		if wanted[usr.ID] {
			users = append(users, usr)
		}
	}
	return users, nil
}

func (repo *accountRepository) UpdateUser(_ context.Context, usr account.User) (account.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return account.User{}, account.ErrNotFound
	}
	if err := repo.checkUser(usr); err != nil {
		return account.User{}, err
	}
	usr.DateJoined = orig.DateJoined
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *accountRepository) GetProfile(_ context.Context, userID int) (account.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if prof, ok := repo.db.profiles[userID]; ok {
		return *prof, nil
	}
	return account.Profile{}, account.ErrProfileNotFound
}

func (repo *accountRepository) ConsumeRegistrationToken(_ context.Context, token string, passwordHash []byte) (account.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if token == "" {
		return account.User{}, account.ErrInvalidRegistrationToken
	}
	for userID, prof := range repo.db.profiles {
		if !prof.RegistrationToken.Valid || prof.RegistrationToken.String != token {
			continue
		}
		usr, ok := repo.db.users[userID]
		if !ok {
			break
		}
		prof.RegistrationToken.Valid = false
		prof.RegistrationToken.String = ""
		usr.PasswordHash = passwordHash
		usr.IsActive = true
		return *usr, nil
	}
	return account.User{}, account.ErrInvalidRegistrationToken
}

func (repo *accountRepository) GetPreferences(_ context.Context, userID int) (account.Preferences, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if prefs, ok := repo.db.preferences[userID]; ok {
		return *prefs, nil
	}
	prefs := account.DefaultPreferences()
	prefs.UserID = userID
	return prefs, nil
}

func (repo *accountRepository) UpdatePreferences(_ context.Context, prefs account.Preferences) (account.Preferences, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if orig, ok := repo.db.preferences[prefs.UserID]; ok {
		prefs.ID = orig.ID
	} else {
		prefs.ID = repo.db.nextPK("preferences")
	}
	repo.db.preferences[prefs.UserID] = &prefs
	return prefs, nil
}

func (repo *accountRepository) CreateWaitingListEntry(_ context.Context, email string) (account.WaitingList, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, e := range repo.db.waitingList {
		if e.Email == email {
			return account.WaitingList{}, account.ErrAlreadyOnList
		}
	}
	entry := account.WaitingList{
		ID:         repo.db.nextPK("waiting_list"),
		Email:      email,
		DateJoined: time.Now().UTC(),
	}
	repo.db.waitingList[entry.ID] = &entry
	return entry, nil
}

func (repo *accountRepository) GetWaitingListEntry(_ context.Context, id int) (account.WaitingList, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if entry, ok := repo.db.waitingList[id]; ok {
		return *entry, nil
	}
	return account.WaitingList{}, account.ErrWaitingListNotFound
}

func (repo *accountRepository) QueryWaitingList(_ context.Context, ordering []core.DBOrdering) ([]account.WaitingList, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	entries := make([]account.WaitingList, 0, len(repo.db.waitingList))
	for _, e := range repo.db.waitingList {
		entries = append(entries, *e)
	}

	ord := core.DBOrdering{Field: "date_joined", Ascending: true}
	if len(ordering) > 0 {
		ord = ordering[0]
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !ord.Ascending {
			a, b = b, a
		}
		switch ord.Field {
		case "email":
			return a.Email < b.Email
		case "id":
			return a.ID < b.ID
		case "is_registered":
			return !a.IsRegistered && b.IsRegistered
		default:
			if a.DateJoined.Equal(b.DateJoined) {
				return a.ID < b.ID
			}
			return a.DateJoined.Before(b.DateJoined)
		}
	})
	return entries, nil
}
