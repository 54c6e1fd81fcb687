// Package session keeps per-browser state on the server. The browser only
// carries a signed opaque id; the data lives in a Store.
package session

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("session not found")

// PendingRegistration holds validated registration fields between the
// register step and password finalization.
type PendingRegistration struct {
	Name       string `json:"name"`
	DOB        string `json:"dob"`
	Mobile     string `json:"mobile"`
	Profession string `json:"profession"`
	UserID     string `json:"user_id"`
}

type Data struct {
	UserID  string               `json:"user_id,omitempty"`
	Pending *PendingRegistration `json:"pending,omitempty"`
}

func (d Data) clone() Data {
	if d.Pending != nil {
		p := *d.Pending
		d.Pending = &p
	}
	return d
}

// Store persists session data by id. Get returns ErrNotFound for unknown or
// expired ids.
type Store interface {
	Get(ctx context.Context, id string) (Data, error)
	Save(ctx context.Context, id string, data Data) error
	Delete(ctx context.Context, id string) error
}
