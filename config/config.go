package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// maxSeats is the number of seats at a table.
const maxSeats = 5

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress string `mapstructure:"http_address"`
	RPCAddress  string `mapstructure:"rpc_address"`
	GRPCAddress string `mapstructure:"grpc_address"`
	ReadLimit   int64  `mapstructure:"read_limit"`
	// Heartbeat is how often clients must send something; connections idle for
	// two periods are closed. Zero disables the deadline.
	Heartbeat time.Duration `mapstructure:"heartbeat"`
}

// GameConfig holds the rules every room is created with.
type GameConfig struct {
	Rooms             []string      `mapstructure:"rooms"`
	MaxPlayers        int           `mapstructure:"max_players"`
	LobbySeconds      int           `mapstructure:"lobby_seconds"`
	RoundSeconds      int           `mapstructure:"round_seconds"`
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	ResetDelay        time.Duration `mapstructure:"reset_delay"`
	Cooldown          time.Duration `mapstructure:"cooldown"`
	EliminationChance float64       `mapstructure:"elimination_chance"`
	SeedDemoPlayers   bool          `mapstructure:"seed_demo_players"`
}

type LimitsConfig struct {
	IntentsPerSecond float64 `mapstructure:"intents_per_second"`
	IntentBurst      int     `mapstructure:"intent_burst"`
}

type DatabaseConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.grpc_address", ":8082")
	v.SetDefault("server.read_limit", 4096)
	v.SetDefault("server.heartbeat", 30*time.Second)

	v.SetDefault("game.rooms", []string{"main-room", "room-2", "room-3"})
	v.SetDefault("game.max_players", 5)
	v.SetDefault("game.lobby_seconds", 30)
	v.SetDefault("game.round_seconds", 30)
	v.SetDefault("game.tick_interval", time.Second)
	v.SetDefault("game.reset_delay", 5*time.Second)
	v.SetDefault("game.cooldown", 10*time.Minute)
	v.SetDefault("game.elimination_chance", 1.0/3.0)
	v.SetDefault("game.seed_demo_players", false)

	v.SetDefault("limits.intents_per_second", 5)
	v.SetDefault("limits.intent_burst", 10)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.dbname", "roulette")

	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from path. A missing file is not an error:
// defaults and ROULETTE_* environment variables still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("roulette")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects rule sets the room state machine cannot run.
func (c *Config) Validate() error {
	g := c.Game
	switch {
	case len(g.Rooms) == 0:
		return errors.New("config: game.rooms must name at least one room")
	case g.MaxPlayers < 2 || g.MaxPlayers > maxSeats:
		return errors.New("config: game.max_players must be within [2,5]")
	case g.LobbySeconds <= 0 || g.RoundSeconds <= 0:
		return errors.New("config: lobby and round seconds must be positive")
	case g.TickInterval <= 0:
		return errors.New("config: game.tick_interval must be positive")
	case g.EliminationChance < 0 || g.EliminationChance > 1:
		return errors.New("config: game.elimination_chance must be within [0,1]")
	}
	return nil
}
