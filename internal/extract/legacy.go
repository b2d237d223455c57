package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"syllabus-audit/internal/convert"
)

// LegacyDecoder handles binary .doc files by converting them to DOCX first.
// Each call works in its own temporary directory, removed on return.
type LegacyDecoder struct {
	Converter convert.Converter
	WorkDir   string
	DOCX      Decoder
}

func (d *LegacyDecoder) Decode(ctx context.Context, data []byte) (string, error) {
	if d.Converter == nil {
		return "", fmt.Errorf("extract: no converter for legacy documents")
	}

	dir, err := os.MkdirTemp(d.WorkDir, "syllabus-doc-")
	if err != nil {
		return "", fmt.Errorf("extract: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	name := uuid.NewString()
	src := filepath.Join(dir, name+".doc")
	dst := filepath.Join(dir, name+".docx")

	if err := os.WriteFile(src, data, 0o600); err != nil {
		return "", fmt.Errorf("extract: write %s: %w", src, err)
	}
	if err := d.Converter.Convert(ctx, src, dst); err != nil {
		return "", err
	}

	converted, err := os.ReadFile(dst)
	if err != nil {
		return "", fmt.Errorf("extract: read converted document: %w", err)
	}

	docx := d.DOCX
	if docx == nil {
		docx = DecoderFunc(DOCXText)
	}
	return docx.Decode(ctx, converted)
}
