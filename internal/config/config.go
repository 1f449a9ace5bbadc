package config

import (
	"time"

	"github.com/spf13/viper"
	"github.com/weiawesome/oidi-live/internal/simulator"
	pkgconfig "github.com/weiawesome/oidi-live/pkg/config"
	pkglog "github.com/weiawesome/oidi-live/pkg/log"
	"github.com/weiawesome/oidi-live/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Simulator SimulatorConfig
	Camera    CameraConfig
	PubSub    pubsub.Config `mapstructure:"pubsub"`
	Log       pkglog.Config
}

type ServerConfig struct {
	Host            string
	Port            int
	InstanceID      string        `mapstructure:"instance_id"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type SimulatorConfig struct {
	ViewerTick        time.Duration `mapstructure:"viewer_tick"`
	ViewerGrowthMin   int           `mapstructure:"viewer_growth_min"`
	ViewerGrowthMax   int           `mapstructure:"viewer_growth_max"`
	CommentDelayMin   time.Duration `mapstructure:"comment_delay_min"`
	CommentDelayMax   time.Duration `mapstructure:"comment_delay_max"`
	JoinDelayMin      time.Duration `mapstructure:"join_delay_min"`
	JoinDelayMax      time.Duration `mapstructure:"join_delay_max"`
	LocalCommentRatio float64       `mapstructure:"local_comment_ratio"`
	LocalJoinRatio    float64       `mapstructure:"local_join_ratio"`
	HeartLifetime     time.Duration `mapstructure:"heart_lifetime"`
	JoinerLifetime    time.Duration `mapstructure:"joiner_lifetime"`
	RosterSize        int           `mapstructure:"roster_size"`
	MaxComments       int           `mapstructure:"max_comments"`
	AvatarURLTemplate string        `mapstructure:"avatar_url_template"`
	Pools             PoolsConfig
}

// PoolsConfig overrides the built-in content pools. Empty lists keep the defaults.
type PoolsConfig struct {
	LocalUsernames         []string `mapstructure:"local_usernames"`
	InternationalUsernames []string `mapstructure:"international_usernames"`
	LocalMessages          []string `mapstructure:"local_messages"`
	InternationalMessages  []string `mapstructure:"international_messages"`
	JoinMessage            string   `mapstructure:"join_message"`
}

type CameraConfig struct {
	FlashUnit bool `mapstructure:"flash_unit"`
}

// SimulatorConfig converts the loaded settings into a simulator.Config.
func (c SimulatorConfig) SimulatorConfig() simulator.Config {
	return simulator.Config{
		ViewerTick:        c.ViewerTick,
		ViewerGrowthMin:   c.ViewerGrowthMin,
		ViewerGrowthMax:   c.ViewerGrowthMax,
		CommentDelayMin:   c.CommentDelayMin,
		CommentDelayMax:   c.CommentDelayMax,
		JoinDelayMin:      c.JoinDelayMin,
		JoinDelayMax:      c.JoinDelayMax,
		LocalCommentRatio: c.LocalCommentRatio,
		LocalJoinRatio:    c.LocalJoinRatio,
		HeartLifetime:     c.HeartLifetime,
		JoinerLifetime:    c.JoinerLifetime,
		RosterSize:        c.RosterSize,
		MaxComments:       c.MaxComments,
		AvatarURLTemplate: c.AvatarURLTemplate,
		Pools: simulator.Pools{
			LocalUsernames:         c.Pools.LocalUsernames,
			InternationalUsernames: c.Pools.InternationalUsernames,
			LocalMessages:          c.Pools.LocalMessages,
			InternationalMessages:  c.Pools.InternationalMessages,
			JoinMessage:            c.Pools.JoinMessage,
		},
	}
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load(pkgconfig.GetEnv("CONFIG_PATH", "./config"), "config")
	if err != nil {
		return nil, err
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	def := simulator.DefaultConfig()
	bus := pubsub.DefaultConfig()

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8095)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("simulator.viewer_tick", def.ViewerTick.String())
	v.SetDefault("simulator.viewer_growth_min", def.ViewerGrowthMin)
	v.SetDefault("simulator.viewer_growth_max", def.ViewerGrowthMax)
	v.SetDefault("simulator.comment_delay_min", def.CommentDelayMin.String())
	v.SetDefault("simulator.comment_delay_max", def.CommentDelayMax.String())
	v.SetDefault("simulator.join_delay_min", def.JoinDelayMin.String())
	v.SetDefault("simulator.join_delay_max", def.JoinDelayMax.String())
	v.SetDefault("simulator.local_comment_ratio", def.LocalCommentRatio)
	v.SetDefault("simulator.local_join_ratio", def.LocalJoinRatio)
	v.SetDefault("simulator.heart_lifetime", def.HeartLifetime.String())
	v.SetDefault("simulator.joiner_lifetime", "3.3s")
	v.SetDefault("simulator.roster_size", def.RosterSize)
	v.SetDefault("simulator.max_comments", def.MaxComments)
	v.SetDefault("simulator.avatar_url_template", def.AvatarURLTemplate)
	v.SetDefault("camera.flash_unit", true)
	v.SetDefault("pubsub.driver", bus.Driver)
	v.SetDefault("pubsub.redis.address", bus.Redis.Address)
	v.SetDefault("pubsub.redis.password", "")
	v.SetDefault("pubsub.redis.db", 0)
	v.SetDefault("pubsub.redis.pool_size", bus.Redis.PoolSize)
	v.SetDefault("pubsub.redis.read_timeout", bus.Redis.ReadTimeout.String())
	v.SetDefault("pubsub.redis.write_timeout", bus.Redis.WriteTimeout.String())
	v.SetDefault("pubsub.kafka.brokers", bus.Kafka.Brokers)
	v.SetDefault("pubsub.kafka.group_id", bus.Kafka.GroupID)
	v.SetDefault("pubsub.kafka.partitions", bus.Kafka.Partitions)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "live-simulator")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.instance_id", "INSTANCE_ID")
	v.BindEnv("camera.flash_unit", "CAMERA_FLASH_UNIT")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.redis.address", "REDIS_ADDRESS")
	v.BindEnv("pubsub.redis.password", "REDIS_PASSWORD")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("pubsub.kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("log.level", "LOG_LEVEL")
	v.BindEnv("log.pretty", "LOG_PRETTY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Server.ShutdownTimeout = parseDuration(v, "server.shutdown_timeout", 10*time.Second)
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Simulator.ViewerTick = parseDuration(v, "simulator.viewer_tick", def.ViewerTick)
	cfg.Simulator.CommentDelayMin = parseDuration(v, "simulator.comment_delay_min", def.CommentDelayMin)
	cfg.Simulator.CommentDelayMax = parseDuration(v, "simulator.comment_delay_max", def.CommentDelayMax)
	cfg.Simulator.JoinDelayMin = parseDuration(v, "simulator.join_delay_min", def.JoinDelayMin)
	cfg.Simulator.JoinDelayMax = parseDuration(v, "simulator.join_delay_max", def.JoinDelayMax)
	cfg.Simulator.HeartLifetime = parseDuration(v, "simulator.heart_lifetime", def.HeartLifetime)
	cfg.Simulator.JoinerLifetime = parseDuration(v, "simulator.joiner_lifetime", 0)
	cfg.PubSub.Redis.ReadTimeout = parseDuration(v, "pubsub.redis.read_timeout", bus.Redis.ReadTimeout)
	cfg.PubSub.Redis.WriteTimeout = parseDuration(v, "pubsub.redis.write_timeout", bus.Redis.WriteTimeout)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
