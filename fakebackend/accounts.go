package fakebackend

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/warranty-portal/internal/errors"
	"github.com/jrsteele09/warranty-portal/users"
	"golang.org/x/crypto/bcrypt"
)

// Account is a backend user record: the public profile plus what only the
// backend knows.
type Account struct {
	Profile      users.User
	PasswordHash []byte
	// Tenant restricts sign-in to one subdomain. Empty means any host.
	Tenant string
}

// CheckPassword compares a plain password with the stored hash.
func (a *Account) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(password)) == nil
}

// AccountStore is a thread-safe in-memory account table keyed by id and email.
type AccountStore struct {
	accounts map[users.UserID]*Account
	emailIDs map[string]users.UserID
	lock     sync.RWMutex
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[users.UserID]*Account),
		emailIDs: make(map[string]users.UserID),
	}
}

// Create hashes password and stores a new account. Missing ids get a uuid.
func (s *AccountStore) Create(profile users.User, password, tenant string) (*Account, error) {
	if profile.Email == "" {
		return nil, errors.Wrapf(errors.ErrValidation, "[AccountStore Create] email is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrapf(err, "[AccountStore Create] hash password")
	}
	if profile.ID.IsZero() {
		profile.ID = users.StringID(uuid.New().String())
	}
	if profile.Role == "" {
		profile.Role = users.RoleDefault
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	account := &Account{Profile: profile, PasswordHash: hash, Tenant: tenant}
	s.accounts[profile.ID] = account
	s.emailIDs[normaliseEmail(profile.Email)] = profile.ID
	return account, nil
}

func (s *AccountStore) GetByEmail(email string) (*Account, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	id, ok := s.emailIDs[normaliseEmail(email)]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return s.accounts[id], nil
}

func (s *AccountStore) GetByID(id users.UserID) (*Account, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	return account, nil
}

// Profile returns a copy of the account's public profile.
func (s *AccountStore) Profile(id users.UserID) (users.User, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return users.User{}, errors.ErrNotFound
	}
	return account.Profile, nil
}

// Update applies fn to the account under the write lock and returns the
// resulting profile.
func (s *AccountStore) Update(id users.UserID, fn func(*Account) error) (users.User, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return users.User{}, errors.ErrNotFound
	}
	if err := fn(account); err != nil {
		return users.User{}, err
	}
	return account.Profile, nil
}

// List returns every profile ordered by email.
func (s *AccountStore) List() []users.User {
	s.lock.RLock()
	defer s.lock.RUnlock()

	list := make([]users.User, 0, len(s.accounts))
	for _, a := range s.accounts {
		list = append(list, a.Profile)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Email < list[j].Email
	})
	return list
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
