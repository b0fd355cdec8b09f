package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IamJasonBian/allocation-crawler-service/internal/joblist"
	"github.com/IamJasonBian/allocation-crawler-service/internal/printer"
	"github.com/IamJasonBian/allocation-crawler-service/pkg/tracker"
)

var (
	userTags    string
	userResumes string
	userAnswers string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage candidate profiles",
}

var userSetCmd = &cobra.Command{
	Use:   "set ID",
	Short: "Create or replace a user profile",
	Long: `Create or replace a user profile. The tags drive interest-filtered job
listing ('job ls --user'); resumes and answers are the material agents
apply with.

Examples:
  appcoord user set cam --tags quant,engineering --resumes s3://resumes/cam-v1.pdf
  appcoord user set cam --answers '{"visa": "no", "start_date": "2026-10-01"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runUserSet,
}

var userGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Show one user profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserGet,
}

func init() {
	userSetCmd.Flags().StringVar(&userTags, "tags", "", "Comma-separated interest tags")
	userSetCmd.Flags().StringVar(&userResumes, "resumes", "", "Comma-separated resume identifiers")
	userSetCmd.Flags().StringVar(&userAnswers, "answers", "", "Stock form answers as a JSON object")

	userCmd.AddCommand(userSetCmd)
	userCmd.AddCommand(userGetCmd)
	rootCmd.AddCommand(userCmd)
}

// splitCommaFlag parses a comma-separated flag into a clean slice.
func splitCommaFlag(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func runUserSet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var answers map[string]string
	if userAnswers != "" {
		if err := json.Unmarshal([]byte(userAnswers), &answers); err != nil {
			return printer.Error(
				"invalid answers",
				fmt.Sprintf("Answers must be a JSON object of strings: %v", err),
				[]string{`Example: --answers '{"visa": "no"}'`},
			)
		}
	}

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	u, err := client.PutUser(ctx, &tracker.User{
		ID:      args[0],
		Tags:    splitCommaFlag(userTags),
		Resumes: splitCommaFlag(userResumes),
		Answers: answers,
	})
	if err != nil {
		return fmt.Errorf("failed to write user: %w", err)
	}

	printer.Success("Saved profile '%s' (%d tags, %d resumes)\n", u.ID, len(u.Tags), len(u.Resumes))
	return nil
}

func runUserGet(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	client, _, err := newTrackerClient()
	if err != nil {
		return err
	}
	defer client.Close()

	u, err := client.GetUser(ctx, args[0])
	if err != nil {
		if errors.Is(err, tracker.ErrUserNotFound) {
			return printer.Error(
				"user not found",
				fmt.Sprintf("No user profile with id '%s'.", args[0]),
				[]string{fmt.Sprintf("Create one:\n  appcoord user set %s --tags quant", args[0])},
			)
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	return joblist.FormatSingleJSON(os.Stdout, u)
}
