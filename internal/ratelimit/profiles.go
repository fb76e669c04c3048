package ratelimit

import "time"

// ProfileSet is the per-endpoint-class limit table.
type ProfileSet struct {
	General  Profile
	Auth     Profile
	Critical Profile
	Create   Profile
	Payment  Profile
	Reports  Profile
	Testing  Profile
}

// Profiles returns the limit table for env. Anything other than
// "production" gets the more permissive limits.
func Profiles(env string) ProfileSet {
	strict := env == "production"
	pick := func(prod, dev int) int {
		if strict {
			return prod
		}
		return dev
	}

	return ProfileSet{
		General: Profile{
			Name:        "general",
			Window:      15 * time.Minute,
			MaxRequests: 1000,
			Message:     "Too many requests from this IP",
		},
		Auth: Profile{
			Name:        "auth",
			Window:      15 * time.Minute,
			MaxRequests: pick(10, 50),
			Message:     "Too many authentication attempts",
		},
		Critical: Profile{
			Name:        "critical",
			Window:      time.Minute,
			MaxRequests: pick(10, 100),
			Message:     "Too many requests to critical endpoint",
		},
		Create: Profile{
			Name:        "create",
			Window:      time.Minute,
			MaxRequests: pick(20, 50),
			Message:     "Too many creation requests",
		},
		Payment: Profile{
			Name:        "payment",
			Window:      time.Minute,
			MaxRequests: pick(5, 20),
			Message:     "Too many payment requests",
		},
		Reports: Profile{
			Name:        "reports",
			Window:      time.Minute,
			MaxRequests: pick(10, 50),
			Message:     "Too many report requests",
		},
		Testing: Profile{
			Name:        "testing",
			Window:      time.Minute,
			MaxRequests: 200,
			Message:     "Too many test requests",
		},
	}
}
