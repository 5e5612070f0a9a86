package auth

import (
	"fmt"
	"strings"
)

// Role is the closed set of roles a profile can carry.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

var Roles = []Role{RoleAdmin, RoleEmployee}

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleEmployee:
		return RoleEmployee, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
}

// Home is the landing path after sign-in.
func (r Role) Home() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleEmployee:
		return "/employee"
	}
	return "/"
}

func (r Role) String() string {
	return string(r)
}
