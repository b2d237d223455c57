package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"syllabus-audit/internal/credential"
)

type Config struct {
	// Canvas
	CanvasBaseURL   string
	CredentialPath  string
	RootAccountID   int64
	AccountID       int64
	CanvasRateLimit float64

	// Syllabus policy
	MinSyllabusLength   int
	ExternalDocMarker   string
	ExtractMaxAttempts  int
	ExtractRetryBackoff time.Duration
	DocConverter        string
	WorkDir             string
	ReportsDir          string

	// Logging
	LogLevel  string
	LogFormat string

	// SFTP
	SFTPHost                  string
	SFTPPort                  int
	SFTPUser                  string
	SFTPPass                  string
	SFTPDir                   string
	SFTPKnownHosts            string
	SFTPInsecureIgnoreHostKey bool
}

// Load reads configuration from the environment, optionally layered over a
// YAML file. Environment variables always win over the file.
func Load(file string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	return Config{
		CanvasBaseURL:   v.GetString("CANVAS_BASE_URL"),
		CredentialPath:  v.GetString("CANVAS_CREDENTIAL_PATH"),
		RootAccountID:   v.GetInt64("CANVAS_ROOT_ACCOUNT_ID"),
		AccountID:       v.GetInt64("CANVAS_ACCOUNT_ID"),
		CanvasRateLimit: v.GetFloat64("CANVAS_RATE_LIMIT"),

		MinSyllabusLength:   v.GetInt("SYLLABUS_MIN_LENGTH"),
		ExternalDocMarker:   v.GetString("SYLLABUS_EXTERNAL_DOC_MARKER"),
		ExtractMaxAttempts:  v.GetInt("EXTRACT_MAX_ATTEMPTS"),
		ExtractRetryBackoff: v.GetDuration("EXTRACT_RETRY_BASE_DELAY"),
		DocConverter:        v.GetString("DOC_CONVERTER"),
		WorkDir:             v.GetString("WORK_DIR"),
		ReportsDir:          v.GetString("REPORTS_DIR"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		SFTPHost:                  v.GetString("SFTP_HOST"),
		SFTPPort:                  v.GetInt("SFTP_PORT"),
		SFTPUser:                  v.GetString("SFTP_USER"),
		SFTPPass:                  v.GetString("SFTP_PASS"),
		SFTPDir:                   v.GetString("SFTP_DIR"),
		SFTPKnownHosts:            v.GetString("SFTP_KNOWN_HOSTS"),
		SFTPInsecureIgnoreHostKey: v.GetBool("SFTP_INSECURE_IGNORE_HOSTKEY"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("CANVAS_BASE_URL", "")
	v.SetDefault("CANVAS_CREDENTIAL_PATH", credential.DefaultPath())
	v.SetDefault("CANVAS_ROOT_ACCOUNT_ID", 283)
	v.SetDefault("CANVAS_ACCOUNT_ID", 3171)
	v.SetDefault("CANVAS_RATE_LIMIT", 10.0)

	// 2024SP template was ~7500 characters.
	v.SetDefault("SYLLABUS_MIN_LENGTH", 9000)
	v.SetDefault("SYLLABUS_EXTERNAL_DOC_MARKER", "https://docs.google.com/document/")
	v.SetDefault("EXTRACT_MAX_ATTEMPTS", 5)
	v.SetDefault("EXTRACT_RETRY_BASE_DELAY", time.Second)
	v.SetDefault("DOC_CONVERTER", "soffice")
	v.SetDefault("WORK_DIR", os.TempDir())
	v.SetDefault("REPORTS_DIR", "reports")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("SFTP_HOST", "")
	v.SetDefault("SFTP_PORT", 22)
	v.SetDefault("SFTP_USER", "")
	v.SetDefault("SFTP_PASS", "")
	v.SetDefault("SFTP_DIR", "/inbound")
	v.SetDefault("SFTP_KNOWN_HOSTS", "")
	v.SetDefault("SFTP_INSECURE_IGNORE_HOSTKEY", false)
}
