// Package convert turns legacy binary Word documents into DOCX files.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Converter writes a DOCX rendition of the .doc at src to dst.
type Converter interface {
	Convert(ctx context.Context, src, dst string) error
}

// Soffice converts through a headless LibreOffice install.
type Soffice struct {
	// Command is the soffice binary; empty means "soffice" on PATH.
	Command string
}

func (s Soffice) Convert(ctx context.Context, src, dst string) error {
	cmdName := s.Command
	if cmdName == "" {
		cmdName = "soffice"
	}
	outDir := filepath.Dir(dst)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, cmdName,
		"--headless",
		"--convert-to", "docx",
		"--outdir", outDir,
		src,
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("convert: %s %s: %w: %s", cmdName, filepath.Base(src), err, strings.TrimSpace(stderr.String()))
	}

	// soffice names its output after the input file.
	produced := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))+".docx")
	if produced != dst {
		if err := os.Rename(produced, dst); err != nil {
			return fmt.Errorf("convert: move %s: %w", produced, err)
		}
	}
	if _, err := os.Stat(dst); err != nil {
		return fmt.Errorf("convert: no output for %s: %w", filepath.Base(src), err)
	}
	return nil
}
