package domain

import "context"

// Session is the authenticated state against the marketplace backend.
type Session struct {
	Token   string `json:"token"`
	Account string `json:"account"`
}

// SessionStore persists the backend bearer token between runs. A 401 from
// the backend invalidates the session immediately.
type SessionStore interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}
