package config

import (
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/semmidev/dbwarden/internal/domain"
	"github.com/semmidev/dbwarden/internal/infrastructure/scheduler"
)

// Config is read once at startup and never mutated afterwards.
type Config struct {
	Debug   bool
	LogFile string

	DumpUID int
	DumpGID int
	DumpDir string

	SuccessURL string
	HCUUID     string
	HCPingURL  string

	Schedule string
	Startup  bool

	HelperNetworkName string
	OwnContainerID    string
	ContainerFilter   []string

	KeepMin    int
	DeleteDays int

	MetricsAddr string

	// GlobalLabels are the label defaults every container starts from.
	GlobalLabels domain.LabelValues

	UploadTargets []UploadTarget

	// Warnings collects non-fatal findings made while loading.
	Warnings []string
}

type UploadTarget struct {
	Type string

	// Google Drive, either a service account key or an OAuth client with a
	// refresh token.
	CredentialsFile  string
	ClientSecretFile string
	RefreshToken     string
	FolderID         string

	// AWS S3
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string

	// Telegram
	BotToken string
	ChatID   string
	SendFile bool
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("debug", "false")
	v.SetDefault("log_file", "")
	v.SetDefault("dump_uid", "0")
	v.SetDefault("dump_gid", "0")
	v.SetDefault("dump_dir", "/dumps")
	v.SetDefault("success_url", "")
	v.SetDefault("hc_uuid", "")
	v.SetDefault("hc_ping_url", "https://hc-ping.com/")
	v.SetDefault("schedule", "")
	v.SetDefault("startup", "false")
	v.SetDefault("helper_network_name", "docker-database-backup")
	v.SetDefault("own_container_id", "")
	v.SetDefault("container_filter", "")
	v.SetDefault("keep_min", "7")
	v.SetDefault("delete_days", "30")
	v.SetDefault("metrics_addr", "")

	for key, val := range domain.DefaultLabels() {
		v.SetDefault("global."+key, val)
	}

	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.prefix", "")
	v.SetDefault("gdrive.credentials_file", "")
	v.SetDefault("gdrive.client_secret_file", "")
	v.SetDefault("gdrive.refresh_token", "")
	v.SetDefault("gdrive.folder_id", "")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.send_file", "false")

	return v
}

// Load reads the configuration from the process environment. Any invalid
// value is reported as a *domain.ConfigError.
func Load() (*Config, error) {
	return load(newViper())
}

func load(v *viper.Viper) (*Config, error) {
	p := &parser{v: v}

	cfg := &Config{
		Debug:             p.bool("debug"),
		LogFile:           v.GetString("log_file"),
		DumpUID:           p.int("dump_uid"),
		DumpGID:           p.int("dump_gid"),
		DumpDir:           trimDir(v.GetString("dump_dir")),
		SuccessURL:        strings.TrimSpace(v.GetString("success_url")),
		HCUUID:            strings.TrimSpace(v.GetString("hc_uuid")),
		HCPingURL:         strings.TrimSpace(v.GetString("hc_ping_url")),
		Schedule:          strings.TrimSpace(v.GetString("schedule")),
		Startup:           p.bool("startup"),
		HelperNetworkName: strings.TrimSpace(v.GetString("helper_network_name")),
		OwnContainerID:    strings.TrimSpace(v.GetString("own_container_id")),
		ContainerFilter:   splitList(v.GetString("container_filter")),
		KeepMin:           p.int("keep_min"),
		DeleteDays:        p.int("delete_days"),
		MetricsAddr:       strings.TrimSpace(v.GetString("metrics_addr")),
		GlobalLabels:      make(domain.LabelValues, len(domain.LabelKeys)),
	}

	for _, key := range domain.LabelKeys {
		cfg.GlobalLabels[key] = v.GetString("global." + key)
	}

	cfg.UploadTargets = p.uploadTargets()

	if p.err != nil {
		return nil, p.err
	}

	if cfg.HCPingURL != "" && !strings.HasSuffix(cfg.HCPingURL, "/") {
		cfg.HCPingURL += "/"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.HCUUID != "" {
		if _, err := uuid.Parse(cfg.HCUUID); err != nil {
			cfg.Warnings = append(cfg.Warnings, "HC_UUID is not a UUID, using it as a check slug")
		}
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Schedule != "" {
		if _, err := scheduler.Parse(c.Schedule); err != nil {
			return &domain.ConfigError{Key: "SCHEDULE", Value: c.Schedule, Reason: err.Error()}
		}
	}

	if c.DumpDir == "" {
		return &domain.ConfigError{Key: "DUMP_DIR", Reason: "is required"}
	}

	if c.HelperNetworkName == "" {
		return &domain.ConfigError{Key: "HELPER_NETWORK_NAME", Reason: "is required"}
	}

	for key, raw := range map[string]string{"SUCCESS_URL": c.SuccessURL, "HC_PING_URL": c.HCPingURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &domain.ConfigError{Key: key, Value: raw, Reason: "must be an absolute URL"}
		}
	}

	if c.HCUUID != "" && c.HCPingURL == "" {
		return &domain.ConfigError{Key: "HC_PING_URL", Reason: "is required when HC_UUID is set"}
	}

	for _, key := range []string{domain.LabelEnable, domain.LabelCompress} {
		if _, err := domain.ParseBool("GLOBAL_"+strings.ToUpper(key), c.GlobalLabels[key]); err != nil {
			return err
		}
	}

	if port := c.GlobalLabels[domain.LabelPort]; !strings.EqualFold(strings.TrimSpace(port), "auto") {
		if _, err := domain.ParseNonNegative("GLOBAL_PORT", port); err != nil {
			return err
		}
	}

	return nil
}

// GetEnabledUploadTargets returns the remote targets that have enough
// settings to be used.
func (c *Config) GetEnabledUploadTargets() []UploadTarget {
	return c.UploadTargets
}

type parser struct {
	v   *viper.Viper
	err error
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (p *parser) bool(key string) bool {
	b, err := domain.ParseBool(envName(key), p.v.GetString(key))
	p.keep(err)
	return b
}

func (p *parser) int(key string) int {
	n, err := domain.ParseNonNegative(envName(key), p.v.GetString(key))
	p.keep(err)
	return n
}

func (p *parser) keep(err error) {
	if err != nil && p.err == nil {
		p.err = err
	}
}

func (p *parser) uploadTargets() []UploadTarget {
	var targets []UploadTarget

	if bucket := p.v.GetString("s3.bucket"); bucket != "" {
		targets = append(targets, UploadTarget{
			Type:      "s3",
			Bucket:    bucket,
			Region:    p.v.GetString("s3.region"),
			AccessKey: p.v.GetString("s3.access_key"),
			SecretKey: p.v.GetString("s3.secret_key"),
			Prefix:    p.v.GetString("s3.prefix"),
		})
	}

	creds := p.v.GetString("gdrive.credentials_file")
	secret := p.v.GetString("gdrive.client_secret_file")
	refresh := p.v.GetString("gdrive.refresh_token")
	if creds != "" || refresh != "" {
		folder := p.v.GetString("gdrive.folder_id")
		if folder == "" {
			p.keep(&domain.ConfigError{Key: "GDRIVE_FOLDER_ID", Reason: "is required when Google Drive is configured"})
		}
		if creds == "" && secret == "" {
			p.keep(&domain.ConfigError{Key: "GDRIVE_CLIENT_SECRET_FILE", Reason: "is required when GDRIVE_REFRESH_TOKEN is set"})
		}
		targets = append(targets, UploadTarget{
			Type:             "gdrive",
			CredentialsFile:  creds,
			ClientSecretFile: secret,
			RefreshToken:     refresh,
			FolderID:         folder,
		})
	}

	if token := p.v.GetString("telegram.bot_token"); token != "" {
		chatID := p.v.GetString("telegram.chat_id")
		if chatID == "" {
			p.keep(&domain.ConfigError{Key: "TELEGRAM_CHAT_ID", Reason: "is required when TELEGRAM_BOT_TOKEN is set"})
		}
		targets = append(targets, UploadTarget{
			Type:     "telegram",
			BotToken: token,
			ChatID:   chatID,
			SendFile: p.bool("telegram.send_file"),
		})
	}

	return targets
}

func trimDir(dir string) string {
	dir = strings.TrimSpace(dir)
	trimmed := strings.TrimRight(dir, "/")
	if trimmed == "" && strings.HasPrefix(dir, "/") {
		return "/"
	}
	return trimmed
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsConfigError reports whether err is a configuration problem.
func IsConfigError(err error) bool {
	var cfgErr *domain.ConfigError
	return errors.As(err, &cfgErr)
}
