package config

// Default values shared by config loading, `config init` and validation.
const (
	DefaultSFTPPort            = 22
	DefaultPollIntervalMS      = 2000
	DefaultCycleTimeoutSeconds = 60
	DefaultServerPort          = 8780
	DefaultPollRateLimit       = 30
	DefaultStoreTable          = "seen_keys"
	DefaultKnownHostsFile      = "~/.ssh/known_hosts"
)

// Store drivers.
const (
	StoreDriverMemory   = "memory"
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverS3       = "s3"
)

// StoreDrivers lists every supported store driver.
var StoreDrivers = []string{
	StoreDriverMemory,
	StoreDriverSQLite,
	StoreDriverPostgres,
	StoreDriverS3,
}

// Special sink outputs; any other value is a file path.
const (
	SinkOutputStdout = "stdout"
	SinkOutputNone   = "none"
)
