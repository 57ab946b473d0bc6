package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`   // 服务器配置
	Database DatabaseConfig `mapstructure:"database"` // 数据库配置
	Schedule ScheduleConfig `mapstructure:"schedule"` // 赛程数据源与解析配置
	Geocode  GeocodeConfig  `mapstructure:"geocode"`  // 场馆地理编码配置
	Export   ExportConfig   `mapstructure:"export"`   // 导出配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig 数据库配置（sqlite/postgres/mysql）
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`            // 驱动：sqlite/postgres/mysql
	DSN             string        `mapstructure:"dsn"`               // 连接DSN（sqlite为文件路径）
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogLevel        string        `mapstructure:"log_level"`         // GORM日志级别：silent/error/warn/info
}

// ScheduleConfig 赛程源与解析规则
type ScheduleConfig struct {
	Source            string       `mapstructure:"source"`              // 数据源类型：file/http
	Path              string       `mapstructure:"path"`                // 本地JSON路径
	URL               string       `mapstructure:"url"`                 // 远程JSON地址
	Year              int          `mapstructure:"year"`                // 赛事年份（日期字符串不含年份）
	PrimaryTimezone   string       `mapstructure:"primary_timezone"`    // 主办城市时区
	SecondaryTimezone string       `mapstructure:"secondary_timezone"`  // 第二城市（OKC）时区
	SecondaryMarker   string       `mapstructure:"secondary_marker"`    // 时间单元格中的第二时区标记
	NotTicketedMarker string       `mapstructure:"not_ticketed_marker"` // 描述首行“无需门票”标记
	Strict            bool         `mapstructure:"strict"`              // true：遇到坏行中止；false：跳过坏行
	Fixups            []VenueFixup `mapstructure:"fixups"`              // 原始行修正
	Timeout           int          `mapstructure:"timeout"`             // http源超时（秒）
	Proxy             string       `mapstructure:"proxy"`               // http源代理
}

// VenueFixup 对特定 sport+venue 组合替换场馆名
type VenueFixup struct {
	Sport        string `mapstructure:"sport"`
	Venue        string `mapstructure:"venue"`
	ReplaceVenue string `mapstructure:"replace_venue"`
}

// GeocodeConfig Nominatim 地理编码配置
type GeocodeConfig struct {
	BaseURL        string         `mapstructure:"base_url"`         // API基础地址
	UserAgent      string         `mapstructure:"user_agent"`       // 请求UA（Nominatim要求）
	Email          string         `mapstructure:"email"`            // 联系邮箱
	Proxy          string         `mapstructure:"proxy"`            // 代理地址
	Timeout        int            `mapstructure:"timeout"`          // 请求超时（秒）
	RetryCount     int            `mapstructure:"retry_count"`      // 重试次数
	DelayMS        int            `mapstructure:"delay_ms"`         // 请求间隔（毫秒）
	CacheTTL       time.Duration  `mapstructure:"cache_ttl"`        // 查询结果缓存时间
	ResultLimit    int            `mapstructure:"result_limit"`     // 每次搜索候选数量
	CountryCode    string         `mapstructure:"country_code"`     // 期望国家代码
	ReviewRadiusKM float64        `mapstructure:"review_radius_km"` // 距离赛区中心超过该值标记needs_review
	DefaultContext string         `mapstructure:"default_context"`  // 默认附加的城市上下文
	Output         string         `mapstructure:"output"`           // 结果文件路径
	Regions        []RegionCenter `mapstructure:"regions"`          // 赛区中心点
	Hints          []VenueHint    `mapstructure:"hints"`            // 场馆名→检索词
}

// RegionCenter 赛区中心坐标
type RegionCenter struct {
	Name string  `mapstructure:"name"`
	Lat  float64 `mapstructure:"lat"`
	Lng  float64 `mapstructure:"lng"`
}

// VenueHint 场馆检索提示；Query为空表示无法定位
type VenueHint struct {
	Name  string `mapstructure:"name"`
	Query string `mapstructure:"query"`
}

// ExportConfig 导出配置
type ExportConfig struct {
	Dir    string `mapstructure:"dir"`    // 输出目录
	Indent int    `mapstructure:"indent"` // JSON缩进
}

// HTTPOptions 返回 httpclient 需要的公共参数
func (g *GeocodeConfig) HTTPOptions() HTTPOptions {
	return HTTPOptions{Timeout: g.Timeout, Proxy: g.Proxy, UserAgent: g.UserAgent}
}

// HTTPOptions 返回 http 赛程源的公共参数
func (s *ScheduleConfig) HTTPOptions() HTTPOptions {
	return HTTPOptions{Timeout: s.Timeout, Proxy: s.Proxy}
}

// HTTPOptions 通用HTTP客户端参数
type HTTPOptions struct {
	Timeout   int    // 超时（秒）
	Proxy     string // 代理地址
	UserAgent string // 为空时使用 Go 默认 UA
}

// ErrConfigNotFound 配置目录中没有 config.yaml
var ErrConfigNotFound = errors.New("config file not found")

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig(paths ...string) (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./config"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %v", ErrConfigNotFound, err)
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	v.SetTypeByDefaultValue(true)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	ApplyEnv(&cfg)
	return &cfg, nil
}

// Default 不读文件的默认配置（测试与命令行兜底用）
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8028)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "parsed/la28.db")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("schedule.source", "file")
	v.SetDefault("schedule.path", "resources/la28-schedule.json")
	v.SetDefault("schedule.year", 2028)
	v.SetDefault("schedule.primary_timezone", "America/Los_Angeles")
	v.SetDefault("schedule.secondary_timezone", "America/Chicago")
	v.SetDefault("schedule.secondary_marker", "(CT)")
	v.SetDefault("schedule.not_ticketed_marker", "Not Ticketed")
	v.SetDefault("schedule.timeout", 30)
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "LA28VenueGeocoder/1.2")
	v.SetDefault("geocode.timeout", 30)
	v.SetDefault("geocode.retry_count", 6)
	v.SetDefault("geocode.delay_ms", 1200)
	v.SetDefault("geocode.cache_ttl", 24*time.Hour)
	v.SetDefault("geocode.result_limit", 5)
	v.SetDefault("geocode.country_code", "us")
	v.SetDefault("geocode.review_radius_km", 150.0)
	v.SetDefault("geocode.default_context", "Los Angeles, California, USA")
	v.SetDefault("geocode.output", "resources/venues_osm.json")
	v.SetDefault("export.dir", "parsed")
	v.SetDefault("export.indent", 2)
}

// ApplyEnv 用环境变量覆盖敏感配置
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("GEOCODE_EMAIL"); v != "" {
		cfg.Geocode.Email = v
	}
	if v := os.Getenv("GEOCODE_PROXY"); v != "" {
		cfg.Geocode.Proxy = v
	}
	if v := os.Getenv("SCHEDULE_URL"); v != "" {
		cfg.Schedule.URL = v
	}
}
