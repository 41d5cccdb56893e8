package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Business holds the facts the canned replies are built from.
type Business struct {
	Name           string   `json:"name" yaml:"name"`
	BrandUsernames []string `json:"brand_usernames" yaml:"brand_usernames"`
	LocationName   string   `json:"location_name" yaml:"location_name"`
	Lat            float64  `json:"lat" yaml:"lat"`
	Lng            float64  `json:"lng" yaml:"lng"`
	CheckIn        string   `json:"check_in" yaml:"check_in"`
	CheckOut       string   `json:"check_out" yaml:"check_out"`
	WhatsAppLink   string   `json:"whatsapp_link" yaml:"whatsapp_link"`
	WebsiteLink    string   `json:"website_link" yaml:"website_link"`
	InstagramLink  string   `json:"instagram_link" yaml:"instagram_link"`
	FacebookLink   string   `json:"facebook_link" yaml:"facebook_link"`
	MapsLink       string   `json:"maps_link" yaml:"maps_link"`
}

type Configuration struct {
	ApiPort string `json:"api_port" yaml:"api_port"`
	LogPath string `json:"log_path" yaml:"log_path"`

	Database string `json:"database" yaml:"database"` // "sqlite3" ou "postgres"
	DbPath   string `json:"db_path" yaml:"db_path"`
	DbHost   string `json:"db_host" yaml:"db_host"`
	DbPort   string `json:"db_port" yaml:"db_port"`
	DbUser   string `json:"db_user" yaml:"db_user"`
	DbName   string `json:"db_name" yaml:"db_name"`
	DbPass   string `json:"db_pass" yaml:"db_pass"`

	RedisURL         string `json:"redis_url" yaml:"redis_url"`
	AdminToken       string `json:"admin_token" yaml:"admin_token"`
	PublicBaseURL    string `json:"public_base_url" yaml:"public_base_url"`
	MaxOutputChars   int    `json:"max_output_chars" yaml:"max_output_chars"`
	CacheMaxEntries  int    `json:"cache_max_entries" yaml:"cache_max_entries"`
	WorkerIntervalMs int    `json:"worker_interval_ms" yaml:"worker_interval_ms"`

	Meta struct {
		AppSecret       string `json:"app_secret" yaml:"app_secret"`
		VerifyToken     string `json:"verify_token" yaml:"verify_token"`
		PageID          string `json:"page_id" yaml:"page_id"`
		PageAccessToken string `json:"page_access_token" yaml:"page_access_token"`
		IGUserID        string `json:"ig_user_id" yaml:"ig_user_id"`
		IGAccessToken   string `json:"ig_access_token" yaml:"ig_access_token"`
		ApiVersion      string `json:"api_version" yaml:"api_version"`
		BaseURL         string `json:"base_url" yaml:"base_url"`
	} `json:"meta" yaml:"meta"`

	OpenAI struct {
		APIKey          string  `json:"api_key" yaml:"api_key"`
		BaseURL         string  `json:"base_url" yaml:"base_url"`
		Model           string  `json:"model" yaml:"model"`
		TranscribeModel string  `json:"transcribe_model" yaml:"transcribe_model"`
		RateRPS         float64 `json:"rate_rps" yaml:"rate_rps"`
	} `json:"openai" yaml:"openai"`

	Maps struct {
		APIKey  string `json:"api_key" yaml:"api_key"`
		BaseURL string `json:"base_url" yaml:"base_url"`
	} `json:"maps" yaml:"maps"`

	Features struct {
		AutoReply          bool `json:"auto_reply" yaml:"auto_reply"`
		HandleStandby      bool `json:"handle_standby" yaml:"handle_standby"`
		TakeThreadControl  bool `json:"take_thread_control" yaml:"take_thread_control"`
		VoiceTranscription bool `json:"voice_transcription" yaml:"voice_transcription"`
		ImageForwarding    bool `json:"image_forwarding" yaml:"image_forwarding"`
		PrivateReplies     bool `json:"private_replies" yaml:"private_replies"`
	} `json:"features" yaml:"features"`

	Business Business `json:"business" yaml:"business"`
}

// Defaults returns a configuration with every default filled in.
func Defaults() Configuration {
	var c Configuration
	c.ApiPort = "8080"
	c.Database = "sqlite3"
	c.DbPath = "file::memory:?cache=shared"
	c.MaxOutputChars = 2000
	c.CacheMaxEntries = 5000
	c.WorkerIntervalMs = 500

	c.Meta.ApiVersion = "v21.0"
	c.Meta.BaseURL = "https://graph.facebook.com"

	c.OpenAI.BaseURL = "https://api.openai.com/v1"
	c.OpenAI.Model = "gpt-4.1-mini"
	c.OpenAI.TranscribeModel = "whisper-1"
	c.OpenAI.RateRPS = 5

	c.Maps.BaseURL = "https://maps.googleapis.com/maps/api"

	c.Features.AutoReply = true
	c.Features.VoiceTranscription = true
	c.Features.PrivateReplies = true

	c.Business = Business{
		Name:           "Riverside Huts",
		BrandUsernames: []string{"riversidehuts", "Riverside Huts"},
		LocationName:   "Riverside Huts, Naran",
		Lat:            34.9090,
		Lng:            73.6506,
		CheckIn:        "2:00 PM",
		CheckOut:       "12:00 PM",
		WhatsAppLink:   "https://wa.me/923001234567",
		WebsiteLink:    "https://riversidehuts.pk",
		InstagramLink:  "https://instagram.com/riversidehuts",
		FacebookLink:   "https://facebook.com/riversidehuts",
		MapsLink:       "https://maps.google.com/?q=34.9090,73.6506",
	}
	return c
}

// Load reads the optional config file (json or yaml, by extension), then the
// .env file, then lets the environment override everything.
func Load(path string) (Configuration, error) {
	c := Defaults()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decodeFile(path, b, &c); err != nil {
				return c, fmt.Errorf("config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return c, err
		}
	}

	_ = godotenv.Load()
	applyEnv(&c)

	if c.MaxOutputChars <= 0 {
		c.MaxOutputChars = 2000
	}
	if c.CacheMaxEntries <= 0 {
		c.CacheMaxEntries = 5000
	}
	if c.WorkerIntervalMs <= 0 {
		c.WorkerIntervalMs = 500
	}
	return c, nil
}

func decodeFile(path string, b []byte, c *Configuration) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(b, c)
	default:
		return json.Unmarshal(b, c)
	}
}

func applyEnv(c *Configuration) {
	envString(&c.ApiPort, "PORT")
	envString(&c.LogPath, "LOG_PATH")
	envString(&c.Database, "DATABASE")
	envString(&c.DbPath, "DB_PATH")
	envString(&c.DbHost, "DB_HOST")
	envString(&c.DbPort, "DB_PORT")
	envString(&c.DbUser, "DB_USER")
	envString(&c.DbName, "DB_NAME")
	envString(&c.DbPass, "DB_PASS")
	envString(&c.RedisURL, "REDIS_URL")
	envString(&c.AdminToken, "ADMIN_TOKEN")
	envString(&c.PublicBaseURL, "PUBLIC_BASE_URL")
	envInt(&c.MaxOutputChars, "MAX_OUTPUT_CHARS")
	envInt(&c.CacheMaxEntries, "CACHE_MAX_ENTRIES")
	envInt(&c.WorkerIntervalMs, "WORKER_INTERVAL_MS")

	envString(&c.Meta.AppSecret, "META_APP_SECRET")
	envString(&c.Meta.VerifyToken, "WEBHOOK_VERIFY_TOKEN")
	envString(&c.Meta.PageID, "PAGE_ID")
	envString(&c.Meta.PageAccessToken, "PAGE_ACCESS_TOKEN")
	envString(&c.Meta.IGUserID, "IG_USER_ID")
	envString(&c.Meta.IGAccessToken, "IG_ACCESS_TOKEN")
	envString(&c.Meta.ApiVersion, "GRAPH_API_VERSION")
	envString(&c.Meta.BaseURL, "GRAPH_BASE_URL")

	envString(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	envString(&c.OpenAI.BaseURL, "OPENAI_BASE_URL")
	envString(&c.OpenAI.Model, "OPENAI_MODEL")
	envString(&c.OpenAI.TranscribeModel, "OPENAI_TRANSCRIBE_MODEL")
	envFloat(&c.OpenAI.RateRPS, "OPENAI_RATE_RPS")

	envString(&c.Maps.APIKey, "MAPS_API_KEY")
	envString(&c.Maps.BaseURL, "MAPS_BASE_URL")

	envBool(&c.Features.AutoReply, "AUTO_REPLY")
	envBool(&c.Features.HandleStandby, "HANDLE_STANDBY")
	envBool(&c.Features.TakeThreadControl, "TAKE_THREAD_CONTROL")
	envBool(&c.Features.VoiceTranscription, "VOICE_TRANSCRIPTION")
	envBool(&c.Features.ImageForwarding, "IMAGE_FORWARDING")
	envBool(&c.Features.PrivateReplies, "PRIVATE_REPLIES")

	envString(&c.Business.Name, "BUSINESS_NAME")
	if v := strings.TrimSpace(os.Getenv("BRAND_USERNAMES")); v != "" {
		var names []string
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
		c.Business.BrandUsernames = names
	}
	envString(&c.Business.LocationName, "LOCATION_NAME")
	envFloat(&c.Business.Lat, "LOCATION_LAT")
	envFloat(&c.Business.Lng, "LOCATION_LNG")
	envString(&c.Business.CheckIn, "CHECK_IN_TIME")
	envString(&c.Business.CheckOut, "CHECK_OUT_TIME")
	envString(&c.Business.WhatsAppLink, "WHATSAPP_LINK")
	envString(&c.Business.WebsiteLink, "WEBSITE_LINK")
	envString(&c.Business.InstagramLink, "INSTAGRAM_LINK")
	envString(&c.Business.FacebookLink, "FACEBOOK_LINK")
	envString(&c.Business.MapsLink, "MAPS_LINK")
}

// Warnings lists missing settings. None of them stop the server; the
// matching features just stay off.
func (c Configuration) Warnings() []string {
	var out []string
	if c.Meta.AppSecret == "" {
		out = append(out, "META_APP_SECRET not set: every webhook POST will be rejected")
	}
	if c.Meta.VerifyToken == "" {
		out = append(out, "WEBHOOK_VERIFY_TOKEN not set: webhook verification disabled")
	}
	if c.Meta.PageAccessToken == "" {
		out = append(out, "PAGE_ACCESS_TOKEN not set: replies will not be sent")
	}
	if c.Meta.IGAccessToken == "" {
		out = append(out, "IG_ACCESS_TOKEN not set: instagram lookups disabled")
	}
	if c.OpenAI.APIKey == "" {
		out = append(out, "OPENAI_API_KEY not set: model replies and transcription disabled")
	}
	if c.Maps.APIKey == "" {
		out = append(out, "MAPS_API_KEY not set: route and distance lookups disabled")
	}
	if c.AdminToken == "" {
		out = append(out, "ADMIN_TOKEN not set: admin endpoints disabled")
	}
	return out
}

func envString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envFloat(dst *float64, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(dst *bool, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
