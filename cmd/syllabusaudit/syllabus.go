package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"syllabus-audit/internal/syllabus"
)

var postedCmd = &cobra.Command{
	Use:   "posted [COURSE_ID]",
	Short: "Report whether a syllabus counts as posted",
	Long: `posted prints true or false. The syllabus is fetched for COURSE_ID, or read
from --file when checking saved markup.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		markup, err := readMarkupFlag(cmd)
		if err != nil {
			return err
		}

		var id int64
		if len(args) == 1 {
			if id, err = parseCourseID(args[0]); err != nil {
				return err
			}
		}

		if markup != "" {
			fmt.Fprintln(cmd.OutOrStdout(), syllabus.Posted(markup, minLength()))
			return nil
		}
		if id == 0 {
			return syllabus.ErrMissingInput
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()
		c, err := newClient()
		if err != nil {
			return err
		}
		e := syllabus.Evaluator{Fetcher: syllabus.Fetcher{API: c}, MinLength: cfg.MinSyllabusLength}
		posted, err := e.IsPosted(ctx, id, "")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), posted)
		return nil
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract COURSE_ID",
	Short: "Print the text of the files attached to a course syllabus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseCourseID(args[0])
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, err := newClient()
		if err != nil {
			return err
		}
		markup, err := syllabus.Fetcher{API: c}.HTML(ctx, id)
		if err != nil {
			return err
		}

		if idsOnly, _ := cmd.Flags().GetBool("ids"); idsOnly {
			for _, fid := range syllabus.FindFileIDs(markup, logger) {
				fmt.Fprintln(cmd.OutOrStdout(), fid)
			}
			return nil
		}

		text, err := newExtractor(c).ExtractText(ctx, markup)
		if text != "" {
			fmt.Fprintln(cmd.OutOrStdout(), text)
		}
		return err
	},
}

func readMarkupFlag(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("file")
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read syllabus: %w", err)
	}
	return string(b), nil
}

func minLength() int {
	if cfg.MinSyllabusLength > 0 {
		return cfg.MinSyllabusLength
	}
	return syllabus.DefaultMinLength
}

func init() {
	postedCmd.Flags().String("file", "", "read syllabus markup from this file instead of Canvas")
	extractCmd.Flags().Bool("ids", false, "only list the attached file ids")

	rootCmd.AddCommand(postedCmd, extractCmd)
}
