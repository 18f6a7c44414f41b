package main

import "time"

// appConfig holds the settings that belong to the binary rather than to a
// single package.
type appConfig struct {
	AdminToken        string `env:"ADMIN_TOKEN"`
	CancellationGrace bool   `env:"ENTITLEMENT_CANCELLATION_GRACE" envDefault:"true"`

	ReplaySchedule    string        `env:"REPLAY_SCHEDULE" envDefault:"0 */5 * * * *"` // with seconds
	ReplayBatchSize   int           `env:"REPLAY_BATCH_SIZE" envDefault:"100"`
	ReplayTimeout     time.Duration `env:"REPLAY_TIMEOUT" envDefault:"2m"`
	ReplayMaxAttempts int           `env:"REPLAY_MAX_ATTEMPTS" envDefault:"10"`
}
