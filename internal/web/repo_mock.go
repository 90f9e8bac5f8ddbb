package web

import (
	"context"
	"sort"
	"sync"

	"github.com/2beens/memberhub/internal/users"
)

var _ usersRepo = (*repoMock)(nil)

type repoMock struct {
	Users  map[int]*users.User
	nextID int
	mutex  sync.Mutex
}

func newRepoMock() *repoMock {
	return &repoMock{
		Users:  make(map[int]*users.User),
		nextID: 1,
	}
}

func (r *repoMock) UsersCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Users)
}

func (r *repoMock) Create(_ context.Context, user *users.User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.Users {
		if u.Username == user.Username {
			return users.ErrUserExists
		}
		if u.Email != nil && user.Email != nil && *u.Email == *user.Email {
			return users.ErrUserExists
		}
	}

	user.ID = r.nextID
	r.nextID++
	r.Users[user.ID] = user
	return nil
}

func (r *repoMock) GetByUsername(_ context.Context, username string) (*users.User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.Users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, users.ErrUserNotFound
}

func (r *repoMock) All(_ context.Context) ([]users.User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	allUsers := make([]users.User, 0, len(r.Users))
	for _, u := range r.Users {
		allUsers = append(allUsers, *u)
	}
	sort.Slice(allUsers, func(i, j int) bool {
		return allUsers[i].ID < allUsers[j].ID
	})
	return allUsers, nil
}

func (r *repoMock) Delete(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	delete(r.Users, id)
	return nil
}

func (r *repoMock) SetResetToken(_ context.Context, email, token string, expire int64) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.Users {
		if u.Email != nil && *u.Email == email {
			u.ResetToken = &token
			u.ResetExpire = &expire
			return nil
		}
	}
	return users.ErrEmailNotFound
}

func (r *repoMock) GetByValidResetToken(_ context.Context, token string, now int64) (*users.User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.Users {
		if u.ResetToken != nil && *u.ResetToken == token &&
			u.ResetExpire != nil && *u.ResetExpire > now {
			return u, nil
		}
	}
	return nil, users.ErrTokenInvalidOrExpired
}

func (r *repoMock) UpdatePasswordClearToken(_ context.Context, id int, passwordHash string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	u, ok := r.Users[id]
	if !ok {
		return users.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetToken = nil
	u.ResetExpire = nil
	return nil
}
