// Package actor describes who is acting on the marketplace. Identity and role
// come from the upstream authentication layer; this package only parses and
// carries them.
package actor

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleWorker   Role = "worker"
	RoleEmployer Role = "employer"
)

// ParseRole accepts the canonical role names and the legacy "employeer"
// spelling still written by older clients.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "worker":
		return RoleWorker, nil
	case "employer", "employeer":
		return RoleEmployer, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type Actor struct {
	ID   string `json:"id" yaml:"id"`
	Role Role   `json:"role" yaml:"role"`
}

func (a Actor) IsWorker() bool   { return a.Role == RoleWorker }
func (a Actor) IsEmployer() bool { return a.Role == RoleEmployer }

// Valid reports whether the actor carries an identity and a known role.
func (a Actor) Valid() bool {
	return a.ID != "" && (a.Role == RoleWorker || a.Role == RoleEmployer)
}
