package query

import "time"

// Policy is the freshness window applied when a fetched value is stored.
type Policy struct {
	StaleTime time.Duration
	GCTime    time.Duration
}

// Policies holds the per-resource policies.
type Policies struct {
	// Identity covers the current-user lookup. Authentication rarely changes
	// mid-session, so the window is minutes.
	Identity Policy
	// List covers paged note listings, which change whenever a note is
	// created or deleted, so the window is seconds.
	List Policy
	// Detail covers single notes and shares the identity window.
	Detail Policy
}

// DefaultPolicies returns the stock windows.
func DefaultPolicies() Policies {
	identity := Policy{StaleTime: 5 * time.Minute, GCTime: 10 * time.Minute}
	return Policies{
		Identity: identity,
		List:     Policy{StaleTime: 10 * time.Second, GCTime: 5 * time.Minute},
		Detail:   identity,
	}
}
