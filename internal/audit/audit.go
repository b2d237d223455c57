// Package audit walks every course in a term and records whether its
// syllabus is posted.
package audit

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"syllabus-audit/internal/canvas"
	"syllabus-audit/internal/domain"
	"syllabus-audit/internal/syllabus"
)

type Directory interface {
	CourseIDsInTerm(ctx context.Context, termName string) ([]int64, error)
	GetCourseFacts(ctx context.Context, courseID int64, checkDocs bool) (domain.CourseSummary, error)
}

type SyllabusSource interface {
	HTML(ctx context.Context, courseID int64) (string, error)
}

type TextExtractor interface {
	ExtractText(ctx context.Context, markup string) (string, error)
}

type Options struct {
	// CheckDocs also flags syllabi that point at external documents.
	CheckDocs bool
	// ExtractText pulls attachment text for every course. Slow: one
	// download per attachment.
	ExtractText bool
}

type Runner struct {
	Courses   Directory
	Syllabi   SyllabusSource
	Extractor TextExtractor
	Log       zerolog.Logger

	MinLength int
}

// Run audits the courses of termName one at a time. A course that fails is
// kept in the result with Err set; authorization failures, an unknown term
// and cancellation stop the run and return the records gathered so far.
func (r *Runner) Run(ctx context.Context, termName string, opts Options) ([]domain.AuditRecord, error) {
	log := r.Log.With().Str("run_id", uuid.NewString()).Str("term", termName).Logger()

	ids, err := r.Courses.CourseIDsInTerm(ctx, termName)
	if err != nil {
		return nil, fmt.Errorf("audit: courses in %s: %w", termName, err)
	}
	log.Info().Int("courses", len(ids)).Msg("audit started")

	minLength := r.MinLength
	if minLength <= 0 {
		minLength = syllabus.DefaultMinLength
	}

	records := make([]domain.AuditRecord, 0, len(ids))
	var posted, failed int
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		clog := log.With().Int64("course_id", id).Logger()

		rec, err := r.auditCourse(ctx, clog, id, minLength, opts)
		if err != nil {
			if canvas.IsAuthError(err) || ctx.Err() != nil {
				return records, fmt.Errorf("audit: course %d: %w", id, err)
			}
			clog.Warn().Err(err).Msg("course audit failed")
			rec.Err = err.Error()
			failed++
		}
		if rec.Posted {
			posted++
		}
		records = append(records, rec)

		if (i+1)%25 == 0 {
			log.Info().Int("done", i+1).Int("total", len(ids)).Msg("audit progress")
		}
	}

	log.Info().
		Int("courses", len(records)).
		Int("posted", posted).
		Int("not_posted", len(records)-posted).
		Int("failed", failed).
		Msg("audit finished")
	return records, nil
}

func (r *Runner) auditCourse(ctx context.Context, log zerolog.Logger, id int64, minLength int, opts Options) (domain.AuditRecord, error) {
	rec := domain.AuditRecord{Course: domain.CourseSummary{ID: id}}

	facts, err := r.Courses.GetCourseFacts(ctx, id, opts.CheckDocs)
	if err != nil {
		return rec, err
	}
	rec.Course = facts

	html, err := r.Syllabi.HTML(ctx, id)
	if err != nil {
		return rec, err
	}
	rec.Posted = syllabus.Posted(html, minLength)
	rec.SyllabusLength = utf8.RuneCountInString(html)

	// the extractor reports malformed links itself
	linkLog := log
	if opts.ExtractText && r.Extractor != nil {
		linkLog = zerolog.Nop()
	}
	rec.AttachmentIDs = syllabus.FindFileIDs(html, linkLog)

	if opts.ExtractText && r.Extractor != nil && len(rec.AttachmentIDs) > 0 {
		text, err := r.Extractor.ExtractText(ctx, html)
		rec.ExtractedChars = utf8.RuneCountInString(text)
		if err != nil {
			return rec, err
		}
	}

	log.Debug().
		Bool("posted", rec.Posted).
		Int("length", rec.SyllabusLength).
		Int("attachments", len(rec.AttachmentIDs)).
		Msg("course audited")
	return rec, nil
}
