package conf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration 配置文件中的时长，支持 "10s" 形式的字符串或纳秒整数
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// AsDuration 返回 time.Duration，nil 时为0
func (d *Duration) AsDuration() time.Duration {
	if d == nil {
		return 0
	}
	return d.Duration
}

type Bootstrap struct {
	Server     *Server     `json:"server"`
	Data       *Data       `json:"data"`
	Monitoring *Monitoring `json:"monitoring"`
	Chat       *Chat       `json:"chat"`
	Queue      *Queue      `json:"queue"`
	Broadcast  *Broadcast  `json:"broadcast"`
	Push       *Push       `json:"push"`
	Storage    *Storage    `json:"storage"`
}

type Server struct {
	Http *Server_HTTP `json:"http"`
}

type Server_HTTP struct {
	Network string    `json:"network"`
	Addr    string    `json:"addr"`
	Timeout *Duration `json:"timeout"`
}

type Data struct {
	Database *Data_Database `json:"database"`
	Redis    *Data_Redis    `json:"redis"`
	Kafka    *Data_Kafka    `json:"kafka"`
	Etcd     *Data_Etcd     `json:"etcd"`
}

type Data_Database struct {
	Driver        string    `json:"driver"`
	Source        string    `json:"source"`
	LogLevel      string    `json:"log_level"`
	SlowThreshold *Duration `json:"slow_threshold"`
	AutoMigrate   bool      `json:"auto_migrate"`
}

type Data_Redis struct {
	Network      string    `json:"network"`
	Addr         string    `json:"addr"`
	Password     string    `json:"password"`
	Db           int       `json:"db"`
	ReadTimeout  *Duration `json:"read_timeout"`
	WriteTimeout *Duration `json:"write_timeout"`
}

type Data_Kafka struct {
	Brokers    []string  `json:"brokers"`
	GroupId    string    `json:"group_id"`
	RetryCount int32     `json:"retry_count"`
	Timeout    *Duration `json:"timeout"`
}

type Data_Etcd struct {
	Endpoints   []string  `json:"endpoints"`
	DialTimeout *Duration `json:"dial_timeout"`
	Username    string    `json:"username"`
	Password    string    `json:"password"`
}

type Monitoring struct {
	ServiceName string              `json:"service_name"`
	Logging     *Monitoring_Logging `json:"logging"`
	Tracing     *Monitoring_Tracing `json:"tracing"`
}

type Monitoring_Logging struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Output string `json:"output"`
}

type Monitoring_Tracing struct {
	Exporter string  `json:"exporter"`
	Endpoint string  `json:"endpoint"`
	Sampler  float64 `json:"sampler"`
}

// Chat 聊天业务参数
type Chat struct {
	MaxMessageLength   int       `json:"max_message_length"`
	MaxAttachmentBytes int64     `json:"max_attachment_bytes"`
	AdminRoles         []string  `json:"admin_roles"`
	TempDir            string    `json:"temp_dir"`
	AttachmentDir      string    `json:"attachment_dir"`
	LocationTtl        *Duration `json:"location_ttl"`
}

// Queue 投递队列，driver: sync, worker, kafka
type Queue struct {
	Driver      string      `json:"driver"`
	Workers     int         `json:"workers"`
	Buffer      int         `json:"buffer"`
	Topic       string      `json:"topic"`
	MaxAttempts int         `json:"max_attempts"`
	Backoff     []*Duration `json:"backoff"`
}

// Broadcast 实时广播，driver: redis, log, null
type Broadcast struct {
	Driver        string `json:"driver"`
	AppKey        string `json:"app_key"`
	AppSecret     string `json:"app_secret"`
	ChannelPrefix string `json:"channel_prefix"`
}

type Push struct {
	Enabled         bool      `json:"enabled"`
	VapidPublicKey  string    `json:"vapid_public_key"`
	VapidPrivateKey string    `json:"vapid_private_key"`
	Subscriber      string    `json:"subscriber"`
	Ttl             int       `json:"ttl"`
	Timeout         *Duration `json:"timeout"`
}

type Storage struct {
	Root string `json:"root"`
}
