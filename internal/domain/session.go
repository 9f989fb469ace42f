package domain

import "time"

// Identity is the signed-in user as reported by the auth backend.
type Identity struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// SessionState distinguishes a session whose stored credential is still being
// checked from one that is known to be anonymous.
type SessionState string

const (
	SessionLoading       SessionState = "loading"
	SessionAnonymous     SessionState = "anonymous"
	SessionAuthenticated SessionState = "authenticated"
)

// Session is the current identity and its bearer credential. The credential
// never leaves the server.
type Session struct {
	State    SessionState `json:"state"`
	Identity *Identity    `json:"user,omitempty"`
	Token    string       `json:"-"`
}

// Authenticated reports whether s carries an identity.
func (s Session) Authenticated() bool {
	return s.State == SessionAuthenticated && s.Identity != nil
}

// AnonymousSession is the empty session.
func AnonymousSession() Session {
	return Session{State: SessionAnonymous}
}

// Credentials are the login form fields.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Profile is the registration form.
type Profile struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}
