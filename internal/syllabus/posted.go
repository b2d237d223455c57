package syllabus

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// FileLinkMarker is the class Canvas puts on links to uploaded files.
const FileLinkMarker = "instructure_file_link"

// DefaultMinLength is the shortest syllabus treated as filled in without an
// attached file. The 2024SP template alone was about 7500 characters.
const DefaultMinLength = 9000

var ErrMissingInput = errors.New("syllabus: must provide either a course id or syllabus markup")

type Evaluator struct {
	Fetcher   Fetcher
	MinLength int
}

// IsPosted reports whether a syllabus looks posted: it links an uploaded
// file, or it is longer than MinLength characters. When syllabus is empty it
// is fetched for courseID.
func (e Evaluator) IsPosted(ctx context.Context, courseID int64, syllabus string) (bool, error) {
	if syllabus == "" && courseID == 0 {
		return false, ErrMissingInput
	}
	if syllabus == "" {
		html, err := e.Fetcher.HTML(ctx, courseID)
		if err != nil {
			return false, err
		}
		syllabus = html
	}
	return Posted(syllabus, e.minLength()), nil
}

func (e Evaluator) minLength() int {
	if e.MinLength <= 0 {
		return DefaultMinLength
	}
	return e.MinLength
}

// Posted applies the posted rule to markup already in hand.
func Posted(markup string, minLength int) bool {
	if strings.Contains(markup, FileLinkMarker) {
		return true
	}
	return utf8.RuneCountInString(markup) > minLength
}
