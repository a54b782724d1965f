package config

import "time"

// Posture defines how hard discovery leans on the arrays' CIM servers
type Posture string

const (
	PostureStealth    Posture = "stealth"    // One query at a time, long intervals
	PostureCautious   Posture = "cautious"   // Conservative, shared management servers
	PostureBalanced   Posture = "balanced"   // Default
	PostureAggressive Posture = "aggressive" // Fast polling, wide fan-out
)

// ParsePosture converts a string to Posture, defaulting to PostureBalanced
func ParsePosture(s string) Posture {
	switch s {
	case "stealth":
		return PostureStealth
	case "cautious":
		return PostureCautious
	case "balanced":
		return PostureBalanced
	case "aggressive":
		return PostureAggressive
	default:
		return PostureBalanced
	}
}

// BehaviorProfile defines timing and concurrency settings
type BehaviorProfile struct {
	// QueryTimeout bounds a single EnumerateInstances request
	QueryTimeout time.Duration `yaml:"query_timeout"`
	// PollInterval is the default rediscovery period per target
	PollInterval         time.Duration `yaml:"poll_interval"`
	MaxConcurrentQueries int           `yaml:"max_concurrent_queries"`
}

// PostureProfiles maps postures to their default behavior profiles
var PostureProfiles = map[Posture]BehaviorProfile{
	PostureStealth: {
		QueryTimeout:         5 * time.Minute,
		PollInterval:         24 * time.Hour,
		MaxConcurrentQueries: 1,
	},
	PostureCautious: {
		QueryTimeout:         3 * time.Minute,
		PollInterval:         4 * time.Hour,
		MaxConcurrentQueries: 2,
	},
	PostureBalanced: {
		QueryTimeout:         2 * time.Minute,
		PollInterval:         time.Hour,
		MaxConcurrentQueries: 4,
	},
	PostureAggressive: {
		QueryTimeout:         time.Minute,
		PollInterval:         15 * time.Minute,
		MaxConcurrentQueries: 16,
	},
}

// GetProfile returns the behavior profile for a posture
func (p Posture) GetProfile() BehaviorProfile {
	if profile, ok := PostureProfiles[p]; ok {
		return profile
	}
	return PostureProfiles[PostureBalanced]
}
