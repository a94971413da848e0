package config

import (
	"slices"
	"time"
)

type DB struct {
	Url string `envconfig:"URL" default:"sandbank.db"`
}

type Jwt struct {
	Secret string        `envconfig:"SECRET" required:"true"`
	Expiry time.Duration `envconfig:"EXPIRY" default:"24h"`
}

// OTP configures the optional second login step.
type OTP struct {
	Enabled     bool          `envconfig:"ENABLED" default:"false"`
	TTL         time.Duration `envconfig:"TTL" default:"5m"`
	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"5"`
	Length      int           `envconfig:"LENGTH" default:"6"`
}

type Auth struct {
	Jwt *Jwt `envconfig:"JWT"`
	OTP *OTP `envconfig:"OTP"`
}

// Redis is optional. An empty URL selects the in-memory cache.
type Redis struct {
	URL         string        `envconfig:"URL" default:""`
	KeyPrefix   string        `envconfig:"KEY_PREFIX" default:"sandbank:"`
	PoolSize    int           `envconfig:"POOL_SIZE" default:"10"`
	DialTimeout time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
}

type RateLimit struct {
	MaxRequests int           `envconfig:"MAX_REQUESTS" default:"100"`
	Window      time.Duration `envconfig:"WINDOW" default:"1m"`
}

// Bank holds the ledger rules.
type Bank struct {
	Currency            string `envconfig:"CURRENCY" default:"USD"`
	AccountNumberPrefix string `envconfig:"ACCOUNT_NUMBER_PREFIX" default:"10"`
	AccountNumberLength int    `envconfig:"ACCOUNT_NUMBER_LENGTH" default:"10"`
	// MaxTransactionAmount is in cents. Zero disables the limit.
	MaxTransactionAmount int64         `envconfig:"MAX_TRANSACTION_AMOUNT" default:"0"`
	PINMaxAttempts       int           `envconfig:"PIN_MAX_ATTEMPTS" default:"3"`
	CodeRequiredFor      []string      `envconfig:"CODE_REQUIRED_FOR"`
	CodeLength           int           `envconfig:"CODE_LENGTH" default:"10"`
	CodeTTL              time.Duration `envconfig:"CODE_TTL" default:"24h"`
}

// CodeRequired reports whether transactions of the given type must be
// authorized with a transaction code.
func (b *Bank) CodeRequired(kind string) bool {
	return slices.Contains(b.CodeRequiredFor, kind)
}

// Admin is the account seeded on startup when Username is set.
type Admin struct {
	Username string `envconfig:"USERNAME"`
	Email    string `envconfig:"EMAIL"`
	Password string `envconfig:"PASSWORD"`
}

type Scheduler struct {
	Enabled                  bool          `envconfig:"ENABLED" default:"false"`
	WithdrawalExpirySchedule string        `envconfig:"WITHDRAWAL_EXPIRY_SCHEDULE" default:"@every 1h"`
	WithdrawalMaxAge         time.Duration `envconfig:"WITHDRAWAL_MAX_AGE" default:"72h"`
}

// Events selects where ledger events go besides the in-process bus.
type Events struct {
	Driver       string   `envconfig:"DRIVER" default:"memory"`
	Stream       string   `envconfig:"STREAM" default:"sandbank:ledger"`
	Group        string   `envconfig:"GROUP" default:"sandbank"`
	StreamMaxLen int64    `envconfig:"STREAM_MAX_LEN" default:"100000"`
	Consumer     string   `envconfig:"CONSUMER" default:"sandbank-1"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"sandbank.ledger"`
}

type Log struct {
	Level      int    `envconfig:"LEVEL" default:"0"`
	Format     string `envconfig:"FORMAT" default:"text"`
	TimeFormat string `envconfig:"TIME_FORMAT" default:"2006-01-02 15:04:05"`
	Prefix     string `envconfig:"PREFIX" default:"[sandbank]"`
}

type Server struct {
	Scheme string `envconfig:"SCHEME" default:"http"`
	Host   string `envconfig:"HOST" default:"localhost"`
	Port   int    `envconfig:"PORT" default:"3000"`
}

type App struct {
	Env       string     `envconfig:"APP_ENV" default:"development"`
	Server    *Server    `envconfig:"SERVER"`
	Log       *Log       `envconfig:"LOG"`
	DB        *DB        `envconfig:"DATABASE"`
	Auth      *Auth      `envconfig:"AUTH"`
	Redis     *Redis     `envconfig:"REDIS"`
	RateLimit *RateLimit `envconfig:"RATE_LIMIT"`
	Bank      *Bank      `envconfig:"BANK"`
	Admin     *Admin     `envconfig:"ADMIN"`
	Scheduler *Scheduler `envconfig:"SCHEDULER"`
	Events    *Events    `envconfig:"EVENTS"`
}

func (a *App) IsDevelopment() bool {
	return a.Env == "development"
}
