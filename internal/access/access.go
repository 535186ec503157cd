// Package access implements the authorization model for document retrieval.
//
// Every indexed chunk carries exactly one access target from a fixed, closed
// vocabulary. At query time the requester's identity (role plus optional
// student level) is resolved to the set of targets that identity may read,
// and retrieval is constrained to that set.
//
// Resolve is a pure function with no I/O. It is total: any identity,
// including one with an unknown role, resolves to a valid (if minimal)
// tag set.
package access

import "fmt"

// Role identifies the requester's role.
type Role string

// Known requester roles. Any other value is treated as guest.
const (
	RoleGuest   Role = "guest"
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Student levels span 1 through 4.
const (
	MinLevel = 1
	MaxLevel = 4
)

// Access targets form a fixed, closed vocabulary. Ingestion rejects any
// other value; the policy table in Resolve maps identities onto subsets
// of this vocabulary.
const (
	TargetPublic      = "public"
	TargetAllStudents = "all_students"
	TargetAdminOnly   = "admin_only"
)

// Identity describes the requester as resolved by the identity collaborator
// (API gateway, reverse proxy, CLI flags). The core never parses credentials;
// it consumes this tuple as-is. Immutable for the lifetime of a request.
type Identity struct {
	Role     Role
	Level    int    // student level 1-4; 0 means absent
	Username string // optional, empty for guests
}

// Targets returns the full access-target vocabulary in stable order.
func Targets() []string {
	return []string{
		TargetPublic,
		TargetAllStudents,
		LevelTarget(1),
		LevelTarget(2),
		LevelTarget(3),
		LevelTarget(4),
		TargetAdminOnly,
	}
}

// ValidTarget reports whether s belongs to the access-target vocabulary.
func ValidTarget(s string) bool {
	switch s {
	case TargetPublic, TargetAllStudents, TargetAdminOnly:
		return true
	}
	for level := MinLevel; level <= MaxLevel; level++ {
		if s == LevelTarget(level) {
			return true
		}
	}
	return false
}

// LevelTarget returns the access target for a student level,
// e.g. LevelTarget(2) == "level_2".
func LevelTarget(level int) string {
	return fmt.Sprintf("level_%d", level)
}

// AllowedTags is the set of access targets a requester may read.
// The zero value is an empty, restricted set. Never persisted;
// recomputed from the identity on every query.
type AllowedTags struct {
	unrestricted bool
	tags         []string
}

// Unrestricted returns the sentinel tag set that matches every target,
// including admin_only. Used for admin identities.
func Unrestricted() AllowedTags {
	return AllowedTags{unrestricted: true}
}

// IsUnrestricted reports whether the set is the no-restriction sentinel.
func (a AllowedTags) IsUnrestricted() bool {
	return a.unrestricted
}

// Targets returns the allowed targets in stable order.
// Nil for the unrestricted sentinel.
func (a AllowedTags) Targets() []string {
	if a.unrestricted {
		return nil
	}
	out := make([]string, len(a.tags))
	copy(out, a.tags)
	return out
}

// Contains reports whether the given target is readable under this set.
func (a AllowedTags) Contains(target string) bool {
	if a.unrestricted {
		return true
	}
	for _, t := range a.tags {
		if t == target {
			return true
		}
	}
	return false
}

// Resolve maps a requester identity to its allowed tag set:
//
//	admin                 → unrestricted sentinel (every target, admin_only included)
//	student with level L  → {public, all_students, level_L}
//	student without level → {public, all_students}
//	guest / unknown role  → {public}
//
// A student level outside 1-4 is treated as absent; the vocabulary has no
// target for it.
func Resolve(id Identity) AllowedTags {
	switch id.Role {
	case RoleAdmin:
		return Unrestricted()
	case RoleStudent:
		tags := []string{TargetPublic, TargetAllStudents}
		if id.Level >= MinLevel && id.Level <= MaxLevel {
			tags = append(tags, LevelTarget(id.Level))
		}
		return AllowedTags{tags: tags}
	default:
		return AllowedTags{tags: []string{TargetPublic}}
	}
}
