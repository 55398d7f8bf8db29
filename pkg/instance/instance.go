package instance

import "github.com/portalakashico/portal-backend/pkg/env"

// GetID returns the dyno identifier the process runs as, or "local".
func GetID() string {
	return env.Get("DYNO", "local")
}
