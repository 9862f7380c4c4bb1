// Package users models the caller identities the pipeline consumes. Accounts
// themselves live in an external identity service.
package users

import (
	"fmt"
	"strings"
)

// Role is the closed set of caller roles.
type Role string

const (
	RoleJobSeeker Role = "job_seeker"
	RoleRecruiter Role = "recruiter"
	RoleAdmin     Role = "admin"
)

// Permission names an action on resumes.
type Permission string

const (
	PermUploadResume    Permission = "resume.upload"
	PermReadOwnResume   Permission = "resume.read_own"
	PermReadPublic      Permission = "resume.read_public"
	PermReadAnyResume   Permission = "resume.read_any"
	PermReprocessOwn    Permission = "resume.reprocess_own"
	PermReprocessAny    Permission = "resume.reprocess_any"
	PermMatchResume     Permission = "resume.match"
	PermMatchOwnResume  Permission = "resume.match_own"
	PermReadOwnActivity Permission = "activity.read_own"
)

var permissions = map[Role]map[Permission]bool{
	RoleJobSeeker: {
		PermUploadResume:    true,
		PermReadOwnResume:   true,
		PermReprocessOwn:    true,
		PermMatchOwnResume:  true,
		PermReadOwnActivity: true,
	},
	RoleRecruiter: {
		PermReadPublic:  true,
		PermMatchResume: true,
	},
	RoleAdmin: {
		PermUploadResume:    true,
		PermReadOwnResume:   true,
		PermReadPublic:      true,
		PermReadAnyResume:   true,
		PermReprocessOwn:    true,
		PermReprocessAny:    true,
		PermMatchResume:     true,
		PermMatchOwnResume:  true,
		PermReadOwnActivity: true,
	},
}

// ParseRole maps a header or config value onto a Role.
func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleJobSeeker, RoleRecruiter, RoleAdmin:
		return r, nil
	case "jobseeker", "job-seeker", "seeker":
		return RoleJobSeeker, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Can reports whether role holds perm.
func (r Role) Can(perm Permission) bool {
	return permissions[r][perm]
}

// Identity is the authenticated caller, as asserted by the gateway.
type Identity struct {
	UserID int64
	Role   Role
}

// CanReadResume reports whether the caller may read a resume owned by ownerID.
func (i Identity) CanReadResume(ownerID int64, public bool) bool {
	switch {
	case i.Role.Can(PermReadAnyResume):
		return true
	case ownerID == i.UserID && i.Role.Can(PermReadOwnResume):
		return true
	case public && i.Role.Can(PermReadPublic):
		return true
	default:
		return false
	}
}

// CanReprocessResume reports whether the caller may re-run the pipeline on a resume.
func (i Identity) CanReprocessResume(ownerID int64) bool {
	if i.Role.Can(PermReprocessAny) {
		return true
	}
	return ownerID == i.UserID && i.Role.Can(PermReprocessOwn)
}

// CanMatchResume reports whether the caller may score a resume against skills.
func (i Identity) CanMatchResume(ownerID int64, public bool) bool {
	if i.Role.Can(PermMatchResume) {
		return i.CanReadResume(ownerID, public)
	}
	return ownerID == i.UserID && i.Role.Can(PermMatchOwnResume)
}
