package instance

import "github.com/angelmondragon/storefront-checkout/pkg/env"

// GetID returns the process instance identifier. Heroku dynos expose DYNO.
func GetID() string {
	return env.Get("STOREFRONT_INSTANCE_ID", env.Get("DYNO", "local"))
}
