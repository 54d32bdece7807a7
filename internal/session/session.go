// Package session holds the signed-in user. Authentication itself happens
// elsewhere; this package only tracks who is current and who is an admin.
package session

import (
	"strings"
	"sync"

	"github.com/Tiliavir/fieldtime/internal/model"
)

// Provider exposes the current user, or nil when nobody is signed in.
type Provider interface {
	Current() *model.User
}

// Session is a Provider that can be signed in and out.
type Session struct {
	adminEmail string

	mu   sync.RWMutex
	user *model.User
	subs map[int]func(*model.User)
	next int
}

// New returns a signed-out session. adminEmail names the privileged
// account; empty means nobody is admin.
func New(adminEmail string) *Session {
	return &Session{
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
		subs:       map[int]func(*model.User){},
	}
}

// Current returns a copy of the signed-in user, or nil.
func (s *Session) Current() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SignIn makes user current. A user without an id signs out.
func (s *Session) SignIn(user model.User) {
	if user.ID == "" {
		s.set(nil)
		return
	}
	s.set(&user)
}

// SignOut clears the current user.
func (s *Session) SignOut() {
	s.set(nil)
}

func (s *Session) set(user *model.User) {
	s.mu.Lock()
	s.user = user
	subs := make([]func(*model.User), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(s.Current())
	}
}

// IsAdmin reports whether the current user's email matches the admin email,
// ignoring case.
func (s *Session) IsAdmin() bool {
	u := s.Current()
	if u == nil || s.adminEmail == "" {
		return false
	}
	return strings.ToLower(strings.TrimSpace(u.Email)) == s.adminEmail
}

// OnChange registers fn for sign-in and sign-out. fn receives the new
// current user (nil on sign-out).
func (s *Session) OnChange(fn func(*model.User)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
