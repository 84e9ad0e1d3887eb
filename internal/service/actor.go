package service

import (
	"errors"
	"strings"
)

// Roles recognised by the workflow.
const (
	RoleStudent = "student"
	RoleMentor  = "mentor"
	RoleAdvisor = "advisor"
	RoleAdmin   = "admin"
)

var (
	// ErrUnauthenticated indicates the request carries no usable identity.
	ErrUnauthenticated = errors.New("user not authenticated")
	// ErrForbidden indicates the actor may not access the resource.
	ErrForbidden = errors.New("insufficient permissions")
)

// Actor represents the authenticated user performing an operation.
type Actor struct {
	ID   uint
	Role string
}

// Is reports whether the actor carries the given role.
func (a Actor) Is(role string) bool {
	return normalizeRole(a.Role) == role
}

// IsReviewer reports whether the actor reviews other students' logs.
func (a Actor) IsReviewer() bool {
	return a.Is(RoleMentor) || a.Is(RoleAdvisor) || a.Is(RoleAdmin)
}

func (a Actor) validate() error {
	if a.ID == 0 {
		return ErrUnauthenticated
	}
	return nil
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}
