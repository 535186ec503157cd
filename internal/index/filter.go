package index

import "github.com/lyceum-ai/lyceum/internal/access"

// Filter restricts a similarity search to chunks whose access target is in
// an allowed set. It is the one seam between the authorization model and
// the index's native query language: the allowed set becomes a SQL
// set-membership predicate, never a post-filter, so restricted searches
// still fill their k results from eligible chunks only.
type Filter struct {
	targets      []string
	unrestricted bool
}

// Unfiltered returns the filter that matches every chunk.
func Unfiltered() Filter {
	return Filter{unrestricted: true}
}

// ForTags builds the filter corresponding to an allowed tag set.
// The unrestricted sentinel maps to an unfiltered search.
func ForTags(allowed access.AllowedTags) Filter {
	if allowed.IsUnrestricted() {
		return Unfiltered()
	}
	return Filter{targets: allowed.Targets()}
}

// Unrestricted reports whether the filter matches every chunk.
func (f Filter) Unrestricted() bool {
	return f.unrestricted
}

// Targets returns the access targets the filter admits.
// Nil for an unrestricted filter.
func (f Filter) Targets() []string {
	if f.unrestricted {
		return nil
	}
	out := make([]string, len(f.targets))
	copy(out, f.targets)
	return out
}
