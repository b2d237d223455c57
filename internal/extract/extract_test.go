package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syllabus-audit/internal/canvas"
	"syllabus-audit/internal/httpx"
)

type fakeFiles struct {
	files  map[int64]canvas.File
	getErr map[int64]error

	// failures[id] lists errors returned by successive downloads before
	// payloads[id] is served.
	failures map[int64][]error
	payloads map[int64][]byte

	gets      int
	downloads map[int64]int
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{
		files:     map[int64]canvas.File{},
		getErr:    map[int64]error{},
		failures:  map[int64][]error{},
		payloads:  map[int64][]byte{},
		downloads: map[int64]int{},
	}
}

func (f *fakeFiles) add(id int64, contentType, payload string) {
	f.files[id] = canvas.File{ID: id, DisplayName: fmt.Sprintf("file-%d", id), ContentType: contentType, URL: "https://files.test/" + fmt.Sprint(id)}
	f.payloads[id] = []byte(payload)
}

func (f *fakeFiles) GetFile(_ context.Context, id int64) (canvas.File, error) {
	f.gets++
	if err := f.getErr[id]; err != nil {
		return canvas.File{}, err
	}
	file, ok := f.files[id]
	if !ok {
		return canvas.File{}, errors.New("not found")
	}
	return file, nil
}

func (f *fakeFiles) DownloadFile(_ context.Context, file canvas.File) ([]byte, error) {
	n := f.downloads[file.ID]
	f.downloads[file.ID] = n + 1
	if fails := f.failures[file.ID]; n < len(fails) {
		return nil, fails[n]
	}
	return f.payloads[file.ID], nil
}

func transientErr() error {
	return fmt.Errorf("canvas: download file: %w", &net.OpError{Op: "read", Net: "tcp", Err: syscall.ECONNRESET})
}

// echo decodes a payload as itself.
var echo = DecoderFunc(func(_ context.Context, data []byte) (string, error) { return string(data), nil })

func newTestExtractor(files FileSource, log zerolog.Logger) *Extractor {
	return &Extractor{
		Files:       files,
		Log:         log,
		PDF:         echo,
		DOCX:        echo,
		DOC:         echo,
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
	}
}

func link(id string) string {
	return fmt.Sprintf(`<a class="instructure_file_link" href="/courses/1/files/%s/download?wrap=1">f</a>`, id)
}

func TestExtractTextWithoutLinksMakesNoCalls(t *testing.T) {
	files := newFakeFiles()
	e := newTestExtractor(files, zerolog.Nop())

	for _, markup := range []string{"", strings.Repeat("<p>policy text</p>", 1000), `<a href="/files/1">plain link</a>`} {
		text, err := e.ExtractText(context.Background(), markup)
		require.NoError(t, err)
		assert.Equal(t, "", text)
	}
	assert.Zero(t, files.gets)
	assert.Empty(t, files.downloads)
}

func TestExtractTextPDFJoinsWrappedLines(t *testing.T) {
	files := newFakeFiles()
	files.add(555, ContentTypePDF, "two pages")

	e := newTestExtractor(files, zerolog.Nop())
	e.PDF = DecoderFunc(func(_ context.Context, _ []byte) (string, error) {
		pages := []string{"Hello\n", "World. Next"}
		return strings.Join(pages, ""), nil
	})

	markup := `<a class="instructure_file_link" href="/files/555/download?x=1">doc</a>`
	text, err := e.ExtractText(context.Background(), markup)
	require.NoError(t, err)
	assert.Equal(t, "Hello World. Next", text)
}

func TestJoinWrappedLines(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"Hello\nWorld. Next", "Hello World. Next"},
		{"First sentence.\nSecond line\nwraps here.\nDone", "First sentence.\nSecond line wraps here.\nDone"},
		{"One.\n\nTwo", "One.\n Two"},
		{"a\n\nb", "a  b"},
		{"\nleading", " leading"},
		{"trailing.\n", "trailing.\n"},
		{"no newlines at all", "no newlines at all"},
		{"", ""},
	}

	for _, tc := range testCases {
		got := JoinWrappedLines(tc.in)
		assert.Equal(t, tc.want, got, "%q", tc.in)
		assert.Equal(t, got, JoinWrappedLines(got), "reapplying changes %q", got)
	}
}

func TestExtractTextNormalizesAccumulatedText(t *testing.T) {
	files := newFakeFiles()
	files.add(1, ContentTypeDOCX, "Para one\nPara two")
	files.add(2, ContentTypePDF, "Wrapped\nline.")

	text, err := newTestExtractor(files, zerolog.Nop()).ExtractText(context.Background(), link("1")+link("2"))
	require.NoError(t, err)
	assert.Equal(t, "Para one Para twoWrapped line.", text)
}

func TestExtractTextRetriesTransientErrors(t *testing.T) {
	files := newFakeFiles()
	files.add(1, ContentTypeDOCX, "first;")
	files.failures[1] = []error{transientErr(), transientErr()}
	files.add(2, ContentTypeDOCX, "never")
	files.failures[2] = []error{transientErr(), transientErr(), transientErr(), transientErr(), transientErr(), transientErr()}
	files.add(3, ContentTypeDOCX, "third")

	var buf bytes.Buffer
	text, err := newTestExtractor(files, zerolog.New(&buf)).ExtractText(context.Background(), link("1")+link("2")+link("3"))
	require.NoError(t, err)

	assert.Equal(t, "first;third", text)
	assert.Equal(t, 3, files.downloads[1])
	assert.Equal(t, 5, files.downloads[2])
	assert.Equal(t, 1, files.downloads[3])
	assert.Contains(t, buf.String(), "giving up on file")
}

func TestExtractTextAbandonsOnNonTransientError(t *testing.T) {
	files := newFakeFiles()
	files.add(1, ContentTypePDF, "corrupt")
	files.add(2, ContentTypeDOCX, "ok")

	e := newTestExtractor(files, zerolog.Nop())
	e.PDF = DecoderFunc(func(context.Context, []byte) (string, error) {
		return "", errors.New("malformed xref table")
	})

	text, err := e.ExtractText(context.Background(), link("1")+link("2"))
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 1, files.downloads[1])
}

func TestExtractTextDoesNotRedownloadTruncatedDocuments(t *testing.T) {
	files := newFakeFiles()
	files.add(1, ContentTypeDOCX, "")
	files.payloads[1] = buildDOCX(t, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Office hou`)
	files.add(2, ContentTypePDF, "%PDF-1.4\n")
	files.add(3, ContentTypeDOCX, "")
	files.payloads[3] = buildDOCX(t, sampleDocument)[:40]
	files.add(4, ContentTypeDOCX, "")
	files.payloads[4] = buildDOCX(t, `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>Kept</w:t></w:r></w:p></w:body></w:document>`)

	e := newTestExtractor(files, zerolog.Nop())
	e.PDF = DecoderFunc(PDFText)
	e.DOCX = DecoderFunc(DOCXText)
	// a stray retry would sleep long enough to fail the deadline below
	e.BaseDelay = time.Minute
	e.MaxDelay = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var buf bytes.Buffer
	e.Log = zerolog.New(&buf)
	text, err := e.ExtractText(ctx, link("1")+link("2")+link("3")+link("4"))
	require.NoError(t, err)

	assert.Equal(t, "Kept", text)
	for id := int64(1); id <= 3; id++ {
		assert.Equal(t, 1, files.downloads[id], "file %d downloaded more than once", id)
	}
	assert.Equal(t, 3, strings.Count(buf.String(), "cannot extract file"))
	assert.NotContains(t, buf.String(), "retrying")
}

func TestExtractTextDecodeErrorWrappingEOFIsFinal(t *testing.T) {
	files := newFakeFiles()
	files.add(1, ContentTypePDF, "stream")

	e := newTestExtractor(files, zerolog.Nop())
	e.PDF = DecoderFunc(func(context.Context, []byte) (string, error) {
		return "", fmt.Errorf("read content stream: %w", io.ErrUnexpectedEOF)
	})

	text, err := e.ExtractText(context.Background(), link("1"))
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Equal(t, 1, files.downloads[1])
}

func TestExtractTextRetriesBodyCutShort(t *testing.T) {
	files := newFakeFiles()
	files.add(1, ContentTypeDOCX, "whole")
	files.failures[1] = []error{
		fmt.Errorf("canvas: download file 1: %w", &httpx.BodyReadError{URL: "https://files.test/1", Err: io.ErrUnexpectedEOF}),
	}

	text, err := newTestExtractor(files, zerolog.Nop()).ExtractText(context.Background(), link("1"))
	require.NoError(t, err)
	assert.Equal(t, "whole", text)
	assert.Equal(t, 2, files.downloads[1])
}

func TestExtractTextSkipsUnfetchableAndUnsupported(t *testing.T) {
	files := newFakeFiles()
	files.getErr[1] = errors.New("canvas: get file 1: http error: status=404")
	files.add(2, "image/png", "png bytes")
	files.add(3, "application/pdf; charset=binary", "from pdf")

	var buf bytes.Buffer
	text, err := newTestExtractor(files, zerolog.New(&buf)).ExtractText(context.Background(), link("1")+link("2")+link("3"))
	require.NoError(t, err)

	assert.Equal(t, "from pdf", text)
	assert.Zero(t, files.downloads[2], "unsupported files are not downloaded")
	assert.Contains(t, buf.String(), "unsupported file type")
	assert.Contains(t, buf.String(), "image/png")
	assert.Contains(t, buf.String(), "cannot fetch file metadata")
}

func TestExtractTextKeepsDuplicateLinks(t *testing.T) {
	files := newFakeFiles()
	files.add(7, ContentTypeDOCX, "x")

	text, err := newTestExtractor(files, zerolog.Nop()).ExtractText(context.Background(), link("7")+link("7"))
	require.NoError(t, err)
	assert.Equal(t, "xx", text)
	assert.Equal(t, 2, files.downloads[7])
}

func TestExtractTextStopsOnAuthError(t *testing.T) {
	files := newFakeFiles()
	files.add(1, ContentTypeDOCX, "before")
	files.add(2, ContentTypeDOCX, "after")
	files.failures[2] = []error{fmt.Errorf("canvas: download file 2: %w: key expired", canvas.ErrAuth)}

	text, err := newTestExtractor(files, zerolog.Nop()).ExtractText(context.Background(), link("1")+link("2"))
	require.Error(t, err)
	assert.True(t, canvas.IsAuthError(err))
	assert.Equal(t, "before", text)
	assert.Equal(t, 1, files.downloads[2])
}

func TestExtractTextCanceled(t *testing.T) {
	files := newFakeFiles()
	files.add(1, ContentTypeDOCX, "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	text, err := newTestExtractor(files, zerolog.Nop()).ExtractText(ctx, link("1"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "", text)
	assert.Zero(t, files.gets)
}

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0"?><Types/>`))
	require.NoError(t, err)
	w, err = zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const sampleDocument = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Course</w:t></w:r><w:r><w:t xml:space="preserve"> Syllabus</w:t></w:r></w:p>
    <w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>Week 1</w:t><w:tab/><w:t>Intro</w:t></w:r></w:p>
    <w:p/>
    <w:tbl><w:tr><w:tc><w:p><w:r><w:t>Grading &amp; Policies</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
    <w:sectPr/>
  </w:body>
</w:document>`

func TestDOCXText(t *testing.T) {
	text, err := DOCXText(context.Background(), buildDOCX(t, sampleDocument))
	require.NoError(t, err)
	assert.Equal(t, "Course Syllabus\nWeek 1\tIntro\n\nGrading & Policies", text)
}

func TestDOCXTextErrors(t *testing.T) {
	_, err := DOCXText(context.Background(), []byte("not a zip"))
	assert.Error(t, err)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err = zw.Create("word/other.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = DOCXText(context.Background(), buf.Bytes())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "word/document.xml")
}

func TestPDFTextRejectsGarbage(t *testing.T) {
	_, err := PDFText(context.Background(), []byte("this is not a pdf"))
	assert.Error(t, err)
}

type fakeConverter struct {
	out   []byte
	err   error
	calls []string
}

func (c *fakeConverter) Convert(_ context.Context, src, dst string) error {
	c.calls = append(c.calls, src, dst)
	if c.err != nil {
		return c.err
	}
	return os.WriteFile(dst, c.out, 0o600)
}

func TestLegacyDecoder(t *testing.T) {
	work := t.TempDir()
	conv := &fakeConverter{out: buildDOCX(t, sampleDocument)}
	d := &LegacyDecoder{Converter: conv, WorkDir: work}

	text, err := d.Decode(context.Background(), []byte("\xd0\xcf\x11\xe0 legacy"))
	require.NoError(t, err)
	assert.Contains(t, text, "Course Syllabus")

	require.Len(t, conv.calls, 2)
	src, dst := conv.calls[0], conv.calls[1]
	assert.Equal(t, ".doc", filepath.Ext(src))
	assert.Equal(t, ".docx", filepath.Ext(dst))
	assert.Equal(t, filepath.Dir(src), filepath.Dir(dst))
	assert.Equal(t, work, filepath.Dir(filepath.Dir(src)))

	entries, err := os.ReadDir(work)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary directory must be removed")

	_, err = d.Decode(context.Background(), []byte("again"))
	require.NoError(t, err)
	assert.NotEqual(t, src, conv.calls[2], "each conversion uses a fresh name")
}

func TestLegacyDecoderConverterFailure(t *testing.T) {
	work := t.TempDir()
	d := &LegacyDecoder{Converter: &fakeConverter{err: errors.New("convert: soffice: exit status 1")}, WorkDir: work}

	_, err := d.Decode(context.Background(), []byte("legacy"))
	require.Error(t, err)

	entries, err := os.ReadDir(work)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewWiresLegacyPath(t *testing.T) {
	files := newFakeFiles()
	files.add(9, ContentTypeDOC, "legacy bytes")
	conv := &fakeConverter{out: buildDOCX(t, sampleDocument)}

	e := New(files, conv, t.TempDir(), zerolog.Nop())
	text, err := e.ExtractText(context.Background(), link("9"))
	require.NoError(t, err)
	assert.Equal(t, "Course Syllabus\nWeek 1\tIntro\n\nGrading & Policies", text)
	assert.Equal(t, DefaultMaxAttempts, e.MaxAttempts)
}
