package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	Secret     string        `mapstructure:"secret"`
	DBPath     string        `mapstructure:"db_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	SendBuffer int           `mapstructure:"send_buffer"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`

	Timer TimerConfig `mapstructure:"timer"`
	Quiz  QuizConfig  `mapstructure:"quiz"`
	Call  CallConfig  `mapstructure:"call"`
	AI    AIConfig    `mapstructure:"ai"`
}

type TimerConfig struct {
	FocusSecs   int `mapstructure:"focus_secs"`
	BreakSecs   int `mapstructure:"break_secs"`
	CycleTarget int `mapstructure:"cycle_target"`
}

type QuizConfig struct {
	QuestionSecs  int           `mapstructure:"question_secs"`
	IdleEvict     time.Duration `mapstructure:"idle_evict"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type CallConfig struct {
	RingTimeout time.Duration `mapstructure:"ring_timeout"`
}

type AIConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("secret", "dev-secret-change-me")
	v.SetDefault("db_path", "./studyhub.db")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("send_buffer", 256)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("timer.focus_secs", 25*60)
	v.SetDefault("timer.break_secs", 5*60)
	v.SetDefault("timer.cycle_target", 4)
	v.SetDefault("quiz.question_secs", 30)
	v.SetDefault("quiz.idle_evict", "10m")
	v.SetDefault("quiz.sweep_interval", "1m")
	v.SetDefault("call.ring_timeout", "45s")
	v.SetDefault("ai.endpoint", "")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.timeout", "20s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
