package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Look up enrollment terms",
}

var termsResolveCmd = &cobra.Command{
	Use:   "resolve TERM_NAME",
	Short: "Print the id of a term, e.g. 2024FA",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, err := newClient()
		if err != nil {
			return err
		}
		id, found, err := newCourseService(c).ResolveTermID(ctx, args[0], cfg.RootAccountID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("term %q not found under account %d", args[0], cfg.RootAccountID)
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List courses",
}

var coursesListCmd = &cobra.Command{
	Use:   "list [TERM_NAME]",
	Short: "Print the ids of a term's courses",
	Long: `list prints one course id per line. Give a term name to list the courses that
have enrollments in it, or --term-id to list by id with an optional filter.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c, err := newClient()
		if err != nil {
			return err
		}
		svc := newCourseService(c)

		var ids []int64
		termID, _ := cmd.Flags().GetInt64("term-id")
		switch {
		case len(args) == 1:
			ids, err = svc.CourseIDsInTerm(ctx, args[0])
		case termID > 0:
			account, _ := cmd.Flags().GetInt64("account")
			if account <= 0 {
				account = cfg.AccountID
			}
			withEnrollments, _ := cmd.Flags().GetBool("with-enrollments")
			ids, err = svc.ListCourseIDs(ctx, termID, account, withEnrollments)
		default:
			return fmt.Errorf("give a term name or --term-id")
		}
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var factsCmd = &cobra.Command{
	Use:   "facts COURSE_ID",
	Short: "Print a course's name, code, faculty and SIS id as JSON",
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
		checkDocs, _ := cmd.Flags().GetBool("check-docs")
		facts, err := newCourseService(c).GetCourseFacts(ctx, id, checkDocs)
		if err != nil {
			return err
		}

		out := struct {
			ID               int64  `json:"id"`
			Name             string `json:"name"`
			Code             string `json:"code"`
			FacultyEmail     string `json:"faculty_email"`
			SISID            string `json:"sis_id"`
			UsesExternalDocs *bool  `json:"uses_external_docs,omitempty"`
		}{facts.ID, facts.Name, facts.Code, facts.FacultyEmail(), facts.SISID, facts.UsesExternalDocs}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	coursesListCmd.Flags().Int64("term-id", 0, "enrollment term id")
	coursesListCmd.Flags().Int64("account", 0, "account id (default CANVAS_ACCOUNT_ID)")
	coursesListCmd.Flags().Bool("with-enrollments", false, "only courses with at least one enrollment")
	factsCmd.Flags().Bool("check-docs", false, "flag syllabi that link to an external document")

	termsCmd.AddCommand(termsResolveCmd)
	coursesCmd.AddCommand(coursesListCmd)
	rootCmd.AddCommand(termsCmd, coursesCmd, factsCmd)
}
