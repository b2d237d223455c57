package syllabus

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

// FindFileIDs returns the Canvas file ids referenced by file links in the
// markup, in document order and with duplicates kept. Links whose href
// carries no numeric id are logged and skipped.
func FindFileIDs(markup string, log zerolog.Logger) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		log.Error().Err(err).Msg("cannot parse syllabus markup")
		return nil
	}

	var ids []string
	doc.Find("a." + FileLinkMarker).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			log.Warn().Str("text", strings.TrimSpace(s.Text())).Msg("file link without href, skipping")
			return
		}
		id, ok := FileIDFromHref(href)
		if !ok {
			log.Warn().Str("href", href).Msg("file link has no numeric file id, skipping")
			return
		}
		ids = append(ids, id)
	})
	return ids
}

// FileIDFromHref pulls the file id out of links such as
// /courses/1/files/555, /files/555/download?wrap=1 or
// https://school.instructure.com/files/555/preview.
func FileIDFromHref(href string) (string, bool) {
	path, _, _ := strings.Cut(href, "?")
	segs := strings.Split(path, "/")

	last := segs[len(segs)-1]
	if isDigits(last) {
		return last, true
	}
	if len(segs) >= 2 && isDigits(segs[len(segs)-2]) {
		return segs[len(segs)-2], true
	}
	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
