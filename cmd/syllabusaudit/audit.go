package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"syllabus-audit/internal/audit"
	"syllabus-audit/internal/domain"
	"syllabus-audit/internal/export"
	"syllabus-audit/internal/sftpclient"
)

var auditCmd = &cobra.Command{
	Use:   "audit TERM_NAME",
	Short: "Audit every course in a term and write a report",
	Long: `audit checks each course with enrollments in TERM_NAME, one after another,
and writes a CSV report (and optionally an XLSX workbook). Courses that fail
are kept in the report with the error. With --sftp the reports are uploaded.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		term := args[0]
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, err := newClient()
		if err != nil {
			return err
		}

		checkDocs, _ := cmd.Flags().GetBool("check-docs")
		withText, _ := cmd.Flags().GetBool("extract")
		records, runErr := newRunner(c).Run(ctx, term, audit.Options{CheckDocs: checkDocs, ExtractText: withText})
		if runErr != nil && len(records) == 0 {
			return runErr
		}
		if runErr != nil {
			logger.Error().Err(runErr).Int("courses", len(records)).Msg("audit stopped early, writing partial report")
		}

		csvPath, _ := cmd.Flags().GetString("csv")
		if csvPath == "" {
			csvPath = reportPath(cfg.ReportsDir, term, ".csv")
		}
		written := []string{csvPath}
		if err := writeCSV(csvPath, records); err != nil {
			return err
		}

		if withXLSX, _ := cmd.Flags().GetBool("xlsx"); withXLSX {
			xlsxPath := strings.TrimSuffix(csvPath, filepath.Ext(csvPath)) + ".xlsx"
			if err := export.WriteAuditXLSX(xlsxPath, records); err != nil {
				return err
			}
			written = append(written, xlsxPath)
		}
		for _, p := range written {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}

		if upload, _ := cmd.Flags().GetBool("sftp"); upload {
			if err := uploadReports(ctx, written); err != nil {
				return err
			}
		}
		return runErr
	},
}

func init() {
	auditCmd.Flags().String("csv", "", "CSV report path (default <REPORTS_DIR>/syllabus_audit_<TERM>.csv)")
	auditCmd.Flags().Bool("xlsx", false, "also write an XLSX workbook next to the CSV")
	auditCmd.Flags().Bool("sftp", false, "upload the reports via SFTP")
	auditCmd.Flags().Bool("check-docs", false, "flag syllabi that link to an external document")
	auditCmd.Flags().Bool("extract", false, "download attachments and count their extracted text")

	rootCmd.AddCommand(auditCmd)
}

func reportPath(dir, term, ext string) string {
	name := "syllabus_audit_" + sanitizeTerm(term) + ext
	if dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

func sanitizeTerm(term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, term)
}

func writeCSV(path string, records []domain.AuditRecord) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteAuditCSV(f, records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func uploadReports(ctx context.Context, paths []string) error {
	upCfg := sftpclient.Config{
		Host:                  cfg.SFTPHost,
		Port:                  cfg.SFTPPort,
		User:                  cfg.SFTPUser,
		Pass:                  cfg.SFTPPass,
		RemoteDir:             cfg.SFTPDir,
		KnownHostsPath:        cfg.SFTPKnownHosts,
		InsecureIgnoreHostKey: cfg.SFTPInsecureIgnoreHostKey,
	}

	for _, p := range paths {
		upCtx, upCancel := context.WithTimeout(ctx, 5*time.Minute)
		err := sftpclient.UploadFile(upCtx, upCfg, p, filepath.Base(p))
		upCancel()
		if err != nil {
			return err
		}
		logger.Info().Str("file", filepath.Base(p)).Msgf("uploaded to sftp://%s:%d%s", upCfg.Host, upCfg.Port, upCfg.RemoteDir)
	}
	return nil
}
