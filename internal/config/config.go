package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig HTTP 伺服器設定
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// GeminiClientConfig Gemini 客戶端設定
type GeminiClientConfig struct {
	APIKey          string `mapstructure:"apiKey"`
	ClassifyModel   string `mapstructure:"classifyModel"`
	TranscriptModel string `mapstructure:"transcriptModel"`
}

// YouTubeClientConfig YouTube Data API 設定（選用，僅供中繼資料探測）
type YouTubeClientConfig struct {
	APIKey string `mapstructure:"apiKey"`
}

// CaptionsConfig 字幕取得通道設定
type CaptionsConfig struct {
	DefaultLanguage string   `mapstructure:"defaultLanguage"`
	Languages       []string `mapstructure:"languages"`
	BaseURL         string   `mapstructure:"baseURL"`
	WatchBaseURL    string   `mapstructure:"watchBaseURL"`
	TimeoutSecs     int      `mapstructure:"timeoutSecs"`
}

// AnalysisConfig 分析流程設定
type AnalysisConfig struct {
	Concurrency     int `mapstructure:"concurrency"`
	CallTimeoutSecs int `mapstructure:"callTimeoutSecs"`
	StepTimeoutSecs int `mapstructure:"stepTimeoutSecs"`
}

// DatabaseConfig 資料庫連線設定
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbName"`
}

// SchedulerConfig 排程器設定
type SchedulerConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	RetryCronSpec string `mapstructure:"retryCronSpec"`
}

// Config 應用程式完整設定
type Config struct {
	AppName       string              `mapstructure:"appName"`
	Server        ServerConfig        `mapstructure:"server"`
	GeminiClient  GeminiClientConfig  `mapstructure:"geminiClient"`
	YouTubeClient YouTubeClientConfig `mapstructure:"youTubeClient"`
	Captions      CaptionsConfig      `mapstructure:"captions"`
	Analysis      AnalysisConfig      `mapstructure:"analysis"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	// Penalties 可整份覆寫內建懲罰權重表（子分類 → 正權重）
	Penalties map[string]float64 `mapstructure:"penalties"`
}

// Load 讀取設定檔並合併環境變數與預設值。
func Load(configPath string, configName string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(configPath)
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 設定預設值
	v.SetDefault("appName", "Youtube-Monster")
	v.SetDefault("server.port", 8080)
	v.SetDefault("geminiClient.classifyModel", "gemini-2.0-flash")
	v.SetDefault("geminiClient.transcriptModel", "gemini-2.0-flash")
	v.SetDefault("captions.defaultLanguage", "en")
	v.SetDefault("captions.languages", []string{"en", "en-US", "en-GB"})
	v.SetDefault("captions.timeoutSecs", 15)
	v.SetDefault("analysis.concurrency", 4)
	v.SetDefault("analysis.callTimeoutSecs", 30)
	v.SetDefault("analysis.stepTimeoutSecs", 60)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "127.0.0.1")
	v.SetDefault("database.port", 3306)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.retryCronSpec", "0 */10 * * * *")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("警告：找不到設定檔，將使用預設值和環境變數。")
		} else {
			return nil, fmt.Errorf("讀取設定檔時發生錯誤: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("無法解析設定檔到結構: %w", err)
	}

	if cfg.GeminiClient.APIKey == "" {
		fmt.Println("警告：Gemini API Key 未設定！合成逐字稿與內容分類將無法使用。")
	}
	if cfg.YouTubeClient.APIKey == "" {
		fmt.Println("警告：YouTube Data API Key 未設定，失敗診斷不會包含影片中繼資料。")
	}

	fmt.Println("資訊：設定載入成功。")
	return &cfg, nil
}
