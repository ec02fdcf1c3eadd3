package config

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	Platform *platformConfig
	Sync     *syncConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"pgsql"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"webinarsync"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address         string `envconfig:"WEBINAR_SYNC_ADDRESS" default:":8080"`
	BaseUrl         string `envconfig:"WEBINAR_SYNC_BASE_URL" default:"http://localhost:8080"`
	LogLevel        string `envconfig:"WEBINAR_SYNC_LOG_LEVEL" default:"info"`
	MigrationFolder string `envconfig:"WEBINAR_SYNC_MIGRATIONS_FOLDER" default:""`
	// Zero disables the periodic discovery scheduler.
	DiscoveryInterval time.Duration `envconfig:"WEBINAR_SYNC_DISCOVERY_INTERVAL" default:"0"`
}

// platformConfig holds the remote webinar platform connection. ClientID and
// ClientSecret feed the server-to-server OAuth exchange; an empty pair means
// no connection is configured and every sync fails its validation stage.
type platformConfig struct {
	BaseUrl      string `envconfig:"WEBINAR_PLATFORM_BASE_URL" default:"https://api.zoom.us/v2" validate:"required,url"`
	TokenUrl     string `envconfig:"WEBINAR_PLATFORM_TOKEN_URL" default:"https://zoom.us/oauth/token" validate:"required,url"`
	AccountID    string `envconfig:"WEBINAR_PLATFORM_ACCOUNT_ID" default:""`
	ClientID     string `envconfig:"WEBINAR_PLATFORM_CLIENT_ID" default:""`
	ClientSecret string `envconfig:"WEBINAR_PLATFORM_CLIENT_SECRET" default:""`
}

type syncConfig struct {
	PageSize       int           `envconfig:"WEBINAR_SYNC_PAGE_SIZE" default:"300" validate:"gt=0,lte=300"`
	MaxPages       int           `envconfig:"WEBINAR_SYNC_MAX_PAGES" default:"80" validate:"gt=0"`
	BatchSize      int           `envconfig:"WEBINAR_SYNC_BATCH_SIZE" default:"5" validate:"gt=0,lte=10"`
	BatchDelay     time.Duration `envconfig:"WEBINAR_SYNC_BATCH_DELAY" default:"1s"`
	ChunkSize      int           `envconfig:"WEBINAR_SYNC_CHUNK_SIZE" default:"5" validate:"gt=0"`
	ItemTimeout    time.Duration `envconfig:"WEBINAR_SYNC_ITEM_TIMEOUT" default:"45s"`
	DailyBudget    int           `envconfig:"WEBINAR_SYNC_DAILY_BUDGET" default:"5000" validate:"gt=0"`
	MaxRetries     int           `envconfig:"WEBINAR_SYNC_MAX_RETRIES" default:"5" validate:"gt=0"`
	RequestsPerSec float64       `envconfig:"WEBINAR_SYNC_REQUESTS_PER_SEC" default:"8"`
	WriteBatchSize int           `envconfig:"WEBINAR_SYNC_WRITE_BATCH_SIZE" default:"100" validate:"gt=0"`
	LookbackDays   int           `envconfig:"WEBINAR_SYNC_LOOKBACK_DAYS" default:"90" validate:"gt=0"`
}

func New() (*Config, error) {
	if singleConfig == nil {
		singleConfig = new(Config)
		if err := envconfig.Process("", singleConfig); err != nil {
			return nil, err
		}
		if err := validator.New().Struct(singleConfig); err != nil {
			return nil, err
		}
	}
	return singleConfig, nil
}

// NewDefault returns a config populated with defaults only. Used by tests.
func NewDefault() *Config {
	c := &Config{
		Database: &dbConfig{Type: "sqlite", Name: ":memory:"},
		Service:  &svcConfig{Address: ":8080", LogLevel: "debug"},
		Platform: &platformConfig{
			BaseUrl:  "https://api.zoom.us/v2",
			TokenUrl: "https://zoom.us/oauth/token",
		},
		Sync: &syncConfig{
			PageSize:       300,
			MaxPages:       80,
			BatchSize:      5,
			BatchDelay:     time.Second,
			ChunkSize:      5,
			ItemTimeout:    45 * time.Second,
			DailyBudget:    5000,
			MaxRetries:     5,
			RequestsPerSec: 8,
			WriteBatchSize: 100,
			LookbackDays:   90,
		},
	}
	return c
}
