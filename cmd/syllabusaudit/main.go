// Command syllabusaudit checks whether course syllabi are posted in Canvas
// and pulls the text of attached syllabus documents.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"syllabus-audit/internal/audit"
	"syllabus-audit/internal/canvas"
	"syllabus-audit/internal/config"
	"syllabus-audit/internal/convert"
	"syllabus-audit/internal/courses"
	"syllabus-audit/internal/credential"
	"syllabus-audit/internal/extract"
	"syllabus-audit/internal/logging"
	"syllabus-audit/internal/syllabus"
)

var (
	cfg    config.Config
	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "syllabusaudit",
	Short: "Audit posted syllabi in Canvas",
	Long: `syllabusaudit reads course syllabi from the Canvas API, decides whether each
one counts as posted, and extracts the text of attached PDF, DOCX and DOC files.

Settings come from the environment (optionally a .env file) or --config.
The Canvas key lives in a separate credential file written by "enroll".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}

		file, _ := cmd.Flags().GetString("config")
		c, err := config.Load(file)
		if err != nil {
			return err
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			c.LogLevel = lvl
		}
		cfg = c
		logger = logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "optional YAML config file; environment variables win")
	rootCmd.PersistentFlags().String("log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.PersistentFlags().Duration("timeout", 8*time.Hour, "abort the command after this long")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// commandContext bounds the command by --timeout.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if d, _ := cmd.Flags().GetDuration("timeout"); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

// newClient loads the credential and builds a Canvas client. CANVAS_BASE_URL
// overrides the URL stored with the key.
func newClient() (*canvas.Client, error) {
	cred, err := credential.Load(cfg.CredentialPath)
	if err != nil {
		return nil, fmt.Errorf("%w (run \"syllabusaudit enroll\" first)", err)
	}
	if exp, err := cred.ExpiresAt(); err == nil {
		logger.Debug().Time("expires", exp).Str("owner", cred.Owner).Msg("credential loaded")
	}

	base := cfg.CanvasBaseURL
	if base == "" {
		base = cred.URL()
	}
	if base == "" {
		return nil, errors.New("no Canvas URL: set CANVAS_BASE_URL or enroll with --url")
	}
	return canvas.New(base, cred, cfg.CanvasRateLimit), nil
}

func newCourseService(c *canvas.Client) *courses.Service {
	return &courses.Service{
		API:               c,
		Log:               logger,
		RootAccountID:     cfg.RootAccountID,
		AccountID:         cfg.AccountID,
		ExternalDocMarker: cfg.ExternalDocMarker,
	}
}

func newExtractor(c *canvas.Client) *extract.Extractor {
	e := extract.New(c, convert.Soffice{Command: cfg.DocConverter}, cfg.WorkDir, logger)
	if cfg.ExtractMaxAttempts > 0 {
		e.MaxAttempts = cfg.ExtractMaxAttempts
	}
	if cfg.ExtractRetryBackoff > 0 {
		e.BaseDelay = cfg.ExtractRetryBackoff
	}
	return e
}

func newRunner(c *canvas.Client) *audit.Runner {
	return &audit.Runner{
		Courses:   newCourseService(c),
		Syllabi:   syllabus.Fetcher{API: c},
		Extractor: newExtractor(c),
		Log:       logger,
		MinLength: cfg.MinSyllabusLength,
	}
}

func parseCourseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid course id %q", s)
	}
	return id, nil
}
