package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-courses/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-courses/internal/core/domain"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API. When CORPUS_FILE is set the corpus is loaded before
the server starts listening; with several replicas only the one holding
the ingest lock loads it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.seed(ctx, true); err != nil {
				return err
			}

			server := http.NewServer(http.Config{
				Host:        a.cfg.Host,
				Port:        a.cfg.Port,
				Version:     appVersion,
				CORSOrigins: a.cfg.CORSOrigins,
				Logger:      a.logger,
			}, a.query, a.courses, a.runtime.Config(), a.healthChecks())

			return server.Start()
		},
	}
}

func newAskCmd(opts *options) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.seed(ctx, false); err != nil {
				return err
			}

			result, err := a.query.Query(ctx, domain.QueryRequest{
				Query:     strings.Join(args, " "),
				SessionID: sessionID,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Answer)
			if len(result.Sources) > 0 {
				fmt.Fprintln(out, "\nSources:")
				for _, s := range result.Sources {
					if s.LessonLink != "" {
						fmt.Fprintf(out, "  - %s (%s)\n", s.DisplayText, s.LessonLink)
					} else {
						fmt.Fprintf(out, "  - %s\n", s.DisplayText)
					}
				}
			}
			fmt.Fprintf(out, "\nsession: %s\n", result.SessionID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "continue an existing session")
	return cmd
}

func newCoursesCmd(opts *options) *cobra.Command {
	var detailed bool

	cmd := &cobra.Command{
		Use:   "courses",
		Short: "Show the course catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.seed(ctx, false); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !detailed {
				analytics, err := a.courses.Analytics(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d courses\n", analytics.TotalCourses)
				for _, title := range analytics.CourseTitles {
					fmt.Fprintf(out, "  %s\n", title)
				}
				return nil
			}

			courses, err := a.courses.List(ctx)
			if err != nil {
				return err
			}
			for _, c := range courses {
				fmt.Fprintln(out, c.Title)
				if c.Instructor != "" {
					fmt.Fprintf(out, "  instructor: %s\n", c.Instructor)
				}
				if c.Link != "" {
					fmt.Fprintf(out, "  link: %s\n", c.Link)
				}
				fmt.Fprintf(out, "  lessons: %d\n", len(c.Lessons))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&detailed, "detailed", "d", false, "include instructor, link and lesson count")
	return cmd
}

func newIngestCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [corpus.yaml]",
		Short: "Load a corpus file into the index",
		Long: `Load courses and lesson chunks from a YAML corpus file into the index.
Existing records with the same identity are replaced. Defaults to
CORPUS_FILE when no path is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx, cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			path := a.cfg.CorpusFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("%w: no corpus file given and CORPUS_FILE is not set", domain.ErrInvalidInput)
			}

			result, err := a.ingestFile(ctx, path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if result.Skipped {
				fmt.Fprintln(out, "skipped: another instance holds the ingest lock")
				return nil
			}
			fmt.Fprintf(out, "ingested %d courses and %d chunks into the %s index\n",
				result.Courses, result.Chunks, a.cfg.IndexBackend)
			return nil
		},
	}
}
