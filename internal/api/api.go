// Package api exposes one typed service per group of Blackwatch REST endpoints.
// Every call goes through the client pipeline, so failures arrive as
// *client.APIError values that are already classified and notified.
package api

import (
	"net/url"

	"github.com/wolfeidau/blackwatch/internal/client"
)

// Services bundles every endpoint group behind a single client.
type Services struct {
	Auth       *Auth
	Account    *Account
	Users      *Users
	Contrib    *Contrib
	DBSessions *DBSessions
	Data       *Data
	Admin      *Admin
}

func New(c *client.Client) *Services {
	return &Services{
		Auth:       &Auth{c: c},
		Account:    &Account{c: c},
		Users:      &Users{c: c},
		Contrib:    &Contrib{c: c},
		DBSessions: &DBSessions{c: c},
		Data:       &Data{c: c},
		Admin:      &Admin{c: c},
	}
}

func segment(s string) string {
	return url.PathEscape(s)
}
