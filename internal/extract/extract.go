// Package extract pulls plain text out of the files a syllabus links to.
package extract

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"syllabus-audit/internal/canvas"
	"syllabus-audit/internal/convert"
	"syllabus-audit/internal/httpx"
	"syllabus-audit/internal/syllabus"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeDOC  = "application/msword"

	DefaultMaxAttempts = 5
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// FileSource is the part of the Canvas client the extractor needs.
type FileSource interface {
	GetFile(ctx context.Context, fileID int64) (canvas.File, error)
	DownloadFile(ctx context.Context, f canvas.File) ([]byte, error)
}

// Decoder turns a downloaded payload into plain text.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (string, error)
}

type DecoderFunc func(ctx context.Context, data []byte) (string, error)

func (f DecoderFunc) Decode(ctx context.Context, data []byte) (string, error) { return f(ctx, data) }

type Extractor struct {
	Files FileSource
	Log   zerolog.Logger

	PDF  Decoder
	DOCX Decoder
	DOC  Decoder

	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// New wires the default decoders. Legacy .doc files are converted with conv
// inside a fresh directory under workDir.
func New(files FileSource, conv convert.Converter, workDir string, log zerolog.Logger) *Extractor {
	docx := DecoderFunc(DOCXText)
	return &Extractor{
		Files:       files,
		Log:         log,
		PDF:         DecoderFunc(PDFText),
		DOCX:        docx,
		DOC:         &LegacyDecoder{Converter: conv, WorkDir: workDir, DOCX: docx},
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// ExtractText returns the text of every file linked from markup, in link
// order. Per-file problems are logged and contribute nothing. The error is
// non-nil only when the credential is rejected or ctx ends; the text
// gathered so far is returned with it.
func (e *Extractor) ExtractText(ctx context.Context, markup string) (string, error) {
	ids := syllabus.FindFileIDs(markup, e.Log)
	if len(ids) == 0 {
		return "", nil
	}

	var text string
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return text, err
		}
		log := e.Log.With().Str("file_id", id).Logger()

		fileID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			log.Warn().Err(err).Msg("file id out of range, skipping")
			continue
		}

		f, err := e.Files.GetFile(ctx, fileID)
		if err != nil {
			if fatal(ctx, err) {
				return text, err
			}
			log.Warn().Err(err).Msg("cannot fetch file metadata, skipping")
			continue
		}

		kind := mediaType(f.ContentType)
		dec := e.decoderFor(kind)
		if dec == nil {
			log.Warn().Str("content_type", f.ContentType).Str("name", f.DisplayName).Msg("unsupported file type, skipping")
			continue
		}

		part, err := e.fetchWithRetry(ctx, log, f, dec)
		if err != nil {
			return text, err
		}
		text += part
		if kind == ContentTypePDF {
			text = JoinWrappedLines(text)
		}
	}
	return text, nil
}

// fetchWithRetry downloads and decodes one file. Transient network failures
// on the download are retried with backoff up to MaxAttempts. A payload that
// arrived but will not decode is final: fetching the same bytes again cannot
// fix it, so the file is abandoned after one download.
func (e *Extractor) fetchWithRetry(ctx context.Context, log zerolog.Logger, f canvas.File, dec Decoder) (string, error) {
	data, err := e.download(ctx, log, f)
	if err != nil || data == nil {
		return "", err
	}

	text, err := dec.Decode(ctx, data)
	if err != nil {
		if fatal(ctx, err) {
			return "", err
		}
		log.Warn().Err(err).Int("bytes", len(data)).Msg("cannot extract file, skipping")
		return "", nil
	}
	return text, nil
}

// download returns nil data with a nil error when the file is abandoned.
func (e *Extractor) download(ctx context.Context, log zerolog.Logger, f canvas.File) ([]byte, error) {
	maxAttempts := e.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	base, maxDelay := e.BaseDelay, e.MaxDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	for attempt := 1; ; attempt++ {
		data, err := e.Files.DownloadFile(ctx, f)
		if err == nil {
			if data == nil {
				data = []byte{}
			}
			return data, nil
		}
		if fatal(ctx, err) {
			return nil, err
		}
		if !httpx.IsTransient(err) {
			log.Warn().Err(err).Int("attempt", attempt).Msg("cannot download file, skipping")
			return nil, nil
		}
		if attempt >= maxAttempts {
			log.Warn().Err(err).Int("attempts", attempt).Msg("giving up on file after transient errors")
			return nil, nil
		}

		delay := httpx.Backoff(attempt, base, maxDelay)
		log.Debug().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("transient error, retrying")
		if err := httpx.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (e *Extractor) decoderFor(kind string) Decoder {
	switch kind {
	case ContentTypePDF:
		return e.PDF
	case ContentTypeDOCX:
		return e.DOCX
	case ContentTypeDOC:
		return e.DOC
	}
	return nil
}

func fatal(ctx context.Context, err error) bool {
	if canvas.IsAuthError(err) {
		return true
	}
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

func mediaType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// JoinWrappedLines replaces every newline that does not directly follow a
// period with a space, undoing PDF line wrapping while keeping breaks after
// sentence ends.
func JoinWrappedLines(s string) string {
	if !strings.Contains(s, "\n") {
		return s
	}
	b := []byte(s)
	for i := range b {
		if s[i] == '\n' && (i == 0 || s[i-1] != '.') {
			b[i] = ' '
		}
	}
	return string(b)
}
