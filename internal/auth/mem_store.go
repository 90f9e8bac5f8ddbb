package auth

import (
	"context"
	"sync"
	"time"

	"github.com/2beens/memberhub/pkg"

	log "github.com/sirupsen/logrus"
)

type memSession struct {
	session  Session
	lastSeen time.Time
}

// MemStore keeps sessions in process memory; they do not survive a
// restart. Used by the simplest deployment and in tests.
type MemStore struct {
	mutex    sync.Mutex
	ttl      time.Duration
	sessions map[string]*memSession
	// ability to inject random string generator func for tokens (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewMemStore(ttl time.Duration) *MemStore {
	return &MemStore{
		ttl:            ttl,
		sessions:       make(map[string]*memSession),
		RandStringFunc: pkg.GenerateRandomString,
	}
}

func (ms *MemStore) Create(_ context.Context, session Session) (string, error) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	token, err := ms.RandStringFunc(35)
	if err != nil {
		return "", err
	}

	ms.sessions[token] = &memSession{
		session:  session,
		lastSeen: time.Now(),
	}

	return token, nil
}

func (ms *MemStore) Get(_ context.Context, token string) (*Session, error) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	s, ok := ms.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}

	if time.Since(s.lastSeen) > ms.ttl {
		delete(ms.sessions, token)
		return nil, ErrSessionNotFound
	}

	// idle expiry: refresh on each touch
	s.lastSeen = time.Now()

	session := s.session
	return &session, nil
}

func (ms *MemStore) Destroy(_ context.Context, token string) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	delete(ms.sessions, token)
	return nil
}

// ScanAndClean will run through all sessions, check the idle expiry, and clean them if old
func (ms *MemStore) ScanAndClean() {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if len(ms.sessions) == 0 {
		return
	}

	log.Debugf("=> session store, scan and clean [%d sessions] start ...", len(ms.sessions))
	var toRemove []string
	for token, s := range ms.sessions {
		if time.Since(s.lastSeen) > ms.ttl {
			toRemove = append(toRemove, token)
		}
	}

	for _, token := range toRemove {
		delete(ms.sessions, token)
	}

	if len(toRemove) > 0 {
		log.Debugf("=> session store, cleaned %d expired sessions", len(toRemove))
	}
}
