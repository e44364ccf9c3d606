package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env string
	} `mapstructure:"app"`

	Telegram struct {
		Token       string
		PollTimeout int `mapstructure:"poll_timeout"`
	} `mapstructure:"telegram"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	Postgres struct {
		DSN string
	} `mapstructure:"postgres"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`

	// Ranks статические списки; владелец один и переопределить его нельзя.
	Ranks struct {
		OwnerID  int64   `mapstructure:"owner_id"`
		Devs     []int64 `mapstructure:"devs"`
		Sudos    []int64 `mapstructure:"sudos"`
		Supports []int64 `mapstructure:"supports"`
	} `mapstructure:"ranks"`

	Scheduler struct {
		Workers        int
		MaxAttempts    int           `mapstructure:"max_attempts"`
		BackoffBase    time.Duration `mapstructure:"backoff_base"`
		BackoffMax     time.Duration `mapstructure:"backoff_max"`
		ReverseTimeout time.Duration `mapstructure:"reverse_timeout"`
		RetryCooldown  time.Duration `mapstructure:"retry_cooldown"`
		PruneAfter     time.Duration `mapstructure:"prune_after"`
		PruneEvery     time.Duration `mapstructure:"prune_every"`
	} `mapstructure:"scheduler"`

	// Warnings при Limit предупреждениях применяется Action на Duration (0 = навсегда).
	Warnings struct {
		Limit    int
		Action   string
		Duration time.Duration
	} `mapstructure:"warnings"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.poll_timeout", 30)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("metrics.enabled", true)

	v.SetDefault("ranks.owner_id", 0)
	v.SetDefault("ranks.devs", []int64{})
	v.SetDefault("ranks.sudos", []int64{})
	v.SetDefault("ranks.supports", []int64{})

	v.SetDefault("scheduler.workers", 4)
	v.SetDefault("scheduler.max_attempts", 5)
	v.SetDefault("scheduler.backoff_base", "2s")
	v.SetDefault("scheduler.backoff_max", "1m")
	v.SetDefault("scheduler.reverse_timeout", "10s")
	v.SetDefault("scheduler.retry_cooldown", "10m")
	v.SetDefault("scheduler.prune_after", "720h")
	v.SetDefault("scheduler.prune_every", "1h")

	v.SetDefault("warnings.limit", 3)
	v.SetDefault("warnings.action", "mute")
	v.SetDefault("warnings.duration", "24h")
}

// Load: .env (если есть) -> yaml -> APP_* из окружения.
// Пустой path = только значения по умолчанию и окружение.
func Load(path string) (Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

func (c Config) Validate() error {
	var problems []error
	if strings.TrimSpace(c.Telegram.Token) == "" {
		problems = append(problems, errors.New("telegram.token is required"))
	}
	if c.Ranks.OwnerID == 0 {
		problems = append(problems, errors.New("ranks.owner_id is required"))
	}
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		problems = append(problems, errors.New("postgres.dsn is required"))
	}
	if c.Scheduler.Workers <= 0 {
		problems = append(problems, errors.New("scheduler.workers must be positive"))
	}
	if c.Scheduler.MaxAttempts <= 0 {
		problems = append(problems, errors.New("scheduler.max_attempts must be positive"))
	}
	if c.Warnings.Limit <= 0 {
		problems = append(problems, errors.New("warnings.limit must be positive"))
	}
	if c.Warnings.Action != "ban" && c.Warnings.Action != "mute" {
		problems = append(problems, fmt.Errorf("warnings.action must be ban or mute, got %q", c.Warnings.Action))
	}
	if c.Warnings.Duration < 0 {
		problems = append(problems, errors.New("warnings.duration must not be negative"))
	}
	for name, list := range map[string][]int64{
		"devs": c.Ranks.Devs, "sudos": c.Ranks.Sudos, "supports": c.Ranks.Supports,
	} {
		for _, id := range list {
			if id == c.Ranks.OwnerID && id != 0 {
				problems = append(problems, fmt.Errorf("ranks.%s must not contain owner_id", name))
			}
		}
	}
	return errors.Join(problems...)
}
