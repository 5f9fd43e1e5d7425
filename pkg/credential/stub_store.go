package credential

import (
	"context"
	"errors"
	"sync"
)

// StubStore is an in-memory Store for tests.
type StubStore struct {
	mu        sync.RWMutex
	secret    string
	present   bool
	saves     []string
	saveErr   error
	loadFails bool
	onSave    func(secret string)
}

func NewStubStore() *StubStore {
	return &StubStore{}
}

func NewStubStoreWith(secret string) *StubStore {
	return &StubStore{secret: secret, present: true}
}

// Save fails on a cancelled context, like the network-backed stores.
func (s *StubStore) Save(ctx context.Context, secret string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	hook := s.onSave
	if s.saveErr != nil {
		err := s.saveErr
		s.mu.Unlock()
		return err
	}
	s.secret = secret
	s.present = true
	s.saves = append(s.saves, secret)
	s.mu.Unlock()

	// Called outside the lock so the hook may inspect the store.
	if hook != nil {
		hook(secret)
	}
	return nil
}

func (s *StubStore) Load(ctx context.Context) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ctx.Err() != nil || s.loadFails || !s.present {
		return "", false
	}
	return s.secret, true
}

// Helper methods for test setup

func (s *StubStore) SetSaveError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

func (s *StubStore) SetLoadFails(fails bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadFails = fails
}

// OnSave registers a hook invoked after every successful Save.
func (s *StubStore) OnSave(hook func(secret string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSave = hook
}

func (s *StubStore) Saves() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]string, len(s.saves))
	copy(result, s.saves)
	return result
}

func (s *StubStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret = ""
	s.present = false
	s.saves = nil
	s.saveErr = nil
	s.loadFails = false
	s.onSave = nil
}

var ErrStoreTestError = errors.New("store test error")
