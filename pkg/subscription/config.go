package subscription

import "time"

// Config holds the service settings loaded from the environment.
type Config struct {
	BaseURL     string        `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`
	SuccessPath string        `env:"CHECKOUT_SUCCESS_PATH" envDefault:"/dashboard?success=true"`
	CancelPath  string        `env:"CHECKOUT_CANCEL_PATH" envDefault:"/dashboard?canceled=true"`
	PlansFile   string        `env:"PLANS_FILE"`
	LockTTL     time.Duration `env:"SUBSCRIPTION_LOCK_TTL" envDefault:"30s"` // LockTTL bounds how long a crashed holder blocks others.
	LockWait    time.Duration `env:"SUBSCRIPTION_LOCK_WAIT" envDefault:"5s"` // LockWait is how long checkout waits for the lock.
}
