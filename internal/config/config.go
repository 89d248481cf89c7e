package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"trivia-service/internal/domain"
	"trivia-service/internal/engine"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log     Log `yaml:"log"`
	Storage struct {
		// Backend selects the persistence gateway: memory, sqlite, redis or postgres.
		Backend string `yaml:"backend"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Catalog struct {
		Path string `yaml:"path"` // empty uses the embedded catalog
		TTL  string `yaml:"ttl"`
	} `yaml:"catalog"`
	Game Game `yaml:"game"`
}

// Log configures the zap logger.
type Log struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Game holds every gameplay constant.
type Game struct {
	QuestionsPerRound int            `yaml:"questions_per_round"`
	QuestionSeconds   int            `yaml:"question_seconds"`
	Tick              string         `yaml:"tick"`
	FreezeSeconds     int            `yaml:"freeze_seconds"`
	PassPercent       float64        `yaml:"pass_percent"`
	BaseCoins         int            `yaml:"base_coins"`
	StreakBonus       int            `yaml:"streak_bonus"`
	HistoryLimit      int            `yaml:"history_limit"`
	LeaderboardLimit  int            `yaml:"leaderboard_limit"`
	StartingCoins     int            `yaml:"starting_coins"`
	StartingLifelines map[string]int `yaml:"starting_lifelines"`
	DefaultAvatar     string         `yaml:"default_avatar"`
	Prices            map[string]int `yaml:"prices"`
	Avatars           map[string]int `yaml:"avatars"`
	Seed              int64          `yaml:"seed"`
}

// Load reads YAML config from path and fills unset fields with defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// Default returns a config with every default applied.
func Default() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	g := &c.Game
	setDefault(&g.QuestionsPerRound, 5)
	setDefault(&g.QuestionSeconds, 30)
	setDefault(&g.FreezeSeconds, 10)
	setDefault(&g.BaseCoins, 10)
	setDefault(&g.StreakBonus, 2)
	setDefault(&g.HistoryLimit, 50)
	setDefault(&g.LeaderboardLimit, 20)
	if g.PassPercent <= 0 {
		g.PassPercent = 70
	}
	if g.Tick == "" {
		g.Tick = "1s"
	}
	if g.DefaultAvatar == "" {
		g.DefaultAvatar = "owl"
	}
	if g.StartingLifelines == nil {
		g.StartingLifelines = map[string]int{
			string(domain.LifelineFreeze):     3,
			string(domain.LifelineFiftyFifty): 3,
		}
	}
	if g.Prices == nil {
		g.Prices = map[string]int{
			string(domain.LifelineFreeze):     50,
			string(domain.LifelineFiftyFifty): 50,
		}
	}
	if g.Avatars == nil {
		g.Avatars = map[string]int{g.DefaultAvatar: 0, "fox": 100, "robot": 150, "dragon": 300}
	}
}

func setDefault(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}

// Rules converts the game section into engine constants.
func (g Game) Rules() engine.Rules {
	return engine.Rules{
		DrawCount:    g.QuestionsPerRound,
		QuestionTime: time.Duration(g.QuestionSeconds) * time.Second,
		FreezeTime:   time.Duration(g.FreezeSeconds) * time.Second,
		PassPercent:  g.PassPercent,
		BaseCoins:    g.BaseCoins,
		StreakBonus:  g.StreakBonus,
	}
}

// ProfileDefaults converts the starting inventory into profile defaults.
func (g Game) ProfileDefaults() domain.ProfileDefaults {
	lifelines := make(map[domain.LifelineKind]int, len(g.StartingLifelines))
	for kind, n := range g.StartingLifelines {
		lifelines[domain.LifelineKind(kind)] = n
	}
	return domain.ProfileDefaults{Coins: g.StartingCoins, Lifelines: lifelines, Avatar: g.DefaultAvatar}
}

// TickInterval is the timer wake-up period.
func (g Game) TickInterval() time.Duration {
	return TTLDuration(g.Tick, time.Second)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
