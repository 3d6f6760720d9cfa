package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // backfill.timezone is validated against the embedded zone database

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrInvalidConfig wraps every validation failure so callers can tell a bad
// configuration apart from I/O errors.
var ErrInvalidConfig = errors.New("invalid configuration")

var tableName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Lock      LockConfig      `mapstructure:"lock"`
	Backfill  BackfillConfig  `mapstructure:"backfill"`
	Integrity IntegrityConfig `mapstructure:"integrity"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
	Output string `mapstructure:"output" validate:"required"`
}

type StoreConfig struct {
	Provider string         `mapstructure:"provider" validate:"oneof=firebase mysql file memory"`
	Firebase FirebaseConfig `mapstructure:"firebase"`
	DB       DBConfig       `mapstructure:"db"`
	File     FileConfig     `mapstructure:"file"`
}

// FirebaseConfig mirrors the two credential sources the shop's scripts
// accept: a service account key file, or the key split across env vars.
type FirebaseConfig struct {
	DatabaseURL     string `mapstructure:"database_url"`
	CredentialsFile string `mapstructure:"credentials_file"`
	ProjectID       string `mapstructure:"project_id"`
	ClientEmail     string `mapstructure:"client_email"`
	PrivateKey      string `mapstructure:"private_key"`
}

// HasInlineCredentials reports whether the env-var credential set is complete.
func (f FirebaseConfig) HasInlineCredentials() bool {
	return f.ProjectID != "" && f.ClientEmail != "" && f.PrivateKey != ""
}

type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"maxOpenConns" validate:"gte=0"`
	Table        string `mapstructure:"table" validate:"required"`
}

type FileConfig struct {
	Path     string `mapstructure:"path"`
	ReadOnly bool   `mapstructure:"read_only"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

type LockConfig struct {
	Provider string        `mapstructure:"provider" validate:"oneof=memory redis none"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gt=0"`
	Prefix   string        `mapstructure:"prefix"`
}

type BackfillConfig struct {
	Collection string `mapstructure:"collection" validate:"required"`
	PageSize   int    `mapstructure:"page_size" validate:"gt=0"`
	BatchSize  int    `mapstructure:"batch_size" validate:"gt=0,lte=10000"`
	Timezone   string `mapstructure:"timezone" validate:"required,timezone"`
}

type IntegrityConfig struct {
	CustomersCollection string        `mapstructure:"customers_collection" validate:"required"`
	MetricsCollection   string        `mapstructure:"metrics_collection" validate:"required"`
	StaleAfter          time.Duration `mapstructure:"stale_after" validate:"gt=0"`
}

// Load reads the given config file, or searches the usual locations when
// path is empty. The file is optional; every key has a default. Overrides
// run before validation, so a flag can correct a bad file value.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./deploy/")
		v.AddConfigPath("./")
		v.AddConfigPath("$HOME/.bakehouse/")
		v.AddConfigPath("/etc/bakehouse/")
	}

	// Environment variable override with BAKEHOUSE_ prefix
	v.SetEnvPrefix("BAKEHOUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindFirebaseEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, override := range overrides {
		override(&config)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("store.provider", "firebase")
	v.SetDefault("store.firebase.database_url", "")
	v.SetDefault("store.firebase.credentials_file", "")
	v.SetDefault("store.firebase.project_id", "")
	v.SetDefault("store.firebase.client_email", "")
	v.SetDefault("store.firebase.private_key", "")
	v.SetDefault("store.db.dsn", "")
	v.SetDefault("store.db.maxOpenConns", 10)
	v.SetDefault("store.db.table", "app_records")
	v.SetDefault("store.file.path", "")
	v.SetDefault("store.file.read_only", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("lock.provider", "memory")
	v.SetDefault("lock.ttl", 30*time.Minute)
	v.SetDefault("lock.prefix", "bakehouse:lock:")

	v.SetDefault("backfill.collection", "orders")
	v.SetDefault("backfill.page_size", 500)
	v.SetDefault("backfill.batch_size", 500)
	v.SetDefault("backfill.timezone", "Asia/Ho_Chi_Minh")

	v.SetDefault("integrity.customers_collection", "newCustomers")
	v.SetDefault("integrity.metrics_collection", "customerMetrics")
	v.SetDefault("integrity.stale_after", 24*time.Hour)
}

// bindFirebaseEnv lets the unprefixed FIREBASE_* variables used by the
// shop's other tooling fill the firebase block.
func bindFirebaseEnv(v *viper.Viper) {
	_ = v.BindEnv("store.firebase.database_url", "BAKEHOUSE_STORE_FIREBASE_DATABASE_URL", "FIREBASE_DATABASE_URL")
	_ = v.BindEnv("store.firebase.credentials_file", "BAKEHOUSE_STORE_FIREBASE_CREDENTIALS_FILE", "GOOGLE_APPLICATION_CREDENTIALS")
	_ = v.BindEnv("store.firebase.project_id", "BAKEHOUSE_STORE_FIREBASE_PROJECT_ID", "FIREBASE_PROJECT_ID")
	_ = v.BindEnv("store.firebase.client_email", "BAKEHOUSE_STORE_FIREBASE_CLIENT_EMAIL", "FIREBASE_CLIENT_EMAIL")
	_ = v.BindEnv("store.firebase.private_key", "BAKEHOUSE_STORE_FIREBASE_PRIVATE_KEY", "FIREBASE_PRIVATE_KEY")
}

// Validate checks field constraints and the provider-specific requirements.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch c.Store.Provider {
	case "firebase":
		if c.Store.Firebase.CredentialsFile == "" && !c.Store.Firebase.HasInlineCredentials() {
			return fmt.Errorf("%w: firebase credentials not found (set store.firebase.credentials_file or FIREBASE_PROJECT_ID, FIREBASE_CLIENT_EMAIL and FIREBASE_PRIVATE_KEY)", ErrInvalidConfig)
		}
	case "mysql":
		if c.Store.DB.DSN == "" {
			return fmt.Errorf("%w: store.db.dsn is required for the mysql provider", ErrInvalidConfig)
		}
		if !tableName.MatchString(c.Store.DB.Table) {
			return fmt.Errorf("%w: store.db.table %q is not a plain table name", ErrInvalidConfig, c.Store.DB.Table)
		}
	case "file":
		if c.Store.File.Path == "" {
			return fmt.Errorf("%w: store.file.path is required for the file provider", ErrInvalidConfig)
		}
	}

	if c.Lock.Provider == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr is required for the redis lock", ErrInvalidConfig)
	}

	return nil
}

// ResolveDatabaseURL returns the configured Realtime Database URL, falling
// back to the project's default instance in asia-southeast1.
func (f FirebaseConfig) ResolveDatabaseURL() string {
	if f.DatabaseURL != "" {
		return f.DatabaseURL
	}
	if f.ProjectID == "" {
		return ""
	}
	return fmt.Sprintf("https://%s-default-rtdb.asia-southeast1.firebasedatabase.app", f.ProjectID)
}
