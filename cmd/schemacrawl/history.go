package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/schemacrawl/internal/config"
	"github.com/nao1215/schemacrawl/internal/database"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// shortIDLength is how many characters of a run ID are shown in tables.
// Commands accept any unique prefix.
const shortIDLength = 8

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [host]",
		Short: "List recorded crawl runs",
		Long: `History lists the crawl runs recorded in the history database, newest first.

Examples:
  # List the latest runs of every site
  schemacrawl history

  # List the runs of one site
  schemacrawl history example.com

  # Show the pages of a run (any unique prefix of the run ID works)
  schemacrawl history show 3f2a9c1b

  # Delete a run
  schemacrawl history delete 3f2a9c1b`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.PersistentFlags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to list (0 lists all)")

	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryDeleteCmd())

	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the pages of a crawl run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShowCmd,
	}
	cmd.Flags().BoolP("annotations", "a", false, "List the annotations of every page")
	return cmd
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a crawl run with its pages and annotations",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryDeleteCmd,
	}
}

// openHistory opens the existing history database.
// It returns (nil, nil) when no crawl has been recorded yet.
func openHistory(cmd *cobra.Command) (*database.CrawlDB, error) {
	cfg, err := loadConfig(cmd, func(string) (string, bool) { return "", false })
	if err != nil {
		return nil, err
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir == "" {
		dbDir = cfg.DBDir
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if errors.Is(err, database.ErrDatabaseNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// runHistoryCmd lists runs as a table.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if db == nil {
		fmt.Fprintln(out, "No crawl history yet.")
		return nil
	}
	defer db.Close()

	var host string
	if len(args) > 0 {
		host = strings.ToLower(args[0])
	}

	runs, err := db.ListRuns(cmd.Context(), host, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No crawl runs recorded.")
		return nil
	}

	return writeRunsTable(out, runs, time.Now())
}

// writeRunsTable renders runs with relative start times measured from now.
func writeRunsTable(w io.Writer, runs []database.RunRecord, now time.Time) error {
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Host", "Started", "Duration", "Pages", "Annotations", "Status")

	for _, r := range runs {
		duration := "-"
		if r.Finished() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		if err := table.Append([]string{
			shortID(r.ID),
			r.Host,
			humanize.RelTime(r.StartedAt, now, "ago", "from now"),
			duration,
			strconv.Itoa(r.PagesEmitted) + "/" + strconv.Itoa(r.PagesVisited),
			strconv.Itoa(r.AnnotationsValid) + "/" + strconv.Itoa(r.AnnotationsFound),
			runStatus(&r),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// runHistoryShowCmd prints one run and its pages.
func runHistoryShowCmd(cmd *cobra.Command, args []string) error {
	withAnnotations, err := cmd.Flags().GetBool("annotations")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("%w: %s", database.ErrRunNotFound, args[0])
	}
	defer db.Close()

	ctx := cmd.Context()
	run, err := db.GetRun(ctx, args[0])
	if err != nil {
		return err
	}
	pages, err := db.ListPages(ctx, run.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:          %s\n", run.ID)
	fmt.Fprintf(out, "Seed URL:     %s\n", run.SeedURL)
	fmt.Fprintf(out, "Started:      %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Status:       %s\n", runStatus(run))
	if run.Error != "" {
		fmt.Fprintf(out, "Error:        %s\n", run.Error)
	}
	fmt.Fprintf(out, "Pages:        %d processed, %d failed\n", run.PagesEmitted, run.PagesFailed)
	fmt.Fprintf(out, "Annotations:  %d found, %d valid, %d stored\n\n",
		run.AnnotationsFound, run.AnnotationsValid, run.AnnotationsStored)

	if len(pages) == 0 {
		fmt.Fprintln(out, "No pages recorded.")
		return nil
	}

	if err := writePagesTable(ctx, out, db, run.ID, pages); err != nil {
		return err
	}

	if withAnnotations {
		return writeAnnotations(ctx, out, db, pages)
	}
	return nil
}

// writePagesTable renders the pages of a run. The Changed column compares
// each page with the most recent other run that fetched it.
func writePagesTable(ctx context.Context, w io.Writer, db *database.CrawlDB, runID string, pages []database.PageRecord) error {
	table := tablewriter.NewWriter(w)
	table.Header("URL", "Status", "Depth", "Size", "Annotations", "Changed")

	for _, p := range pages {
		previous, err := db.LastPageHash(ctx, p.URL, runID)
		if err != nil {
			return err
		}
		if err := table.Append([]string{
			p.URL,
			strconv.Itoa(p.StatusCode),
			strconv.Itoa(p.Depth),
			humanize.Bytes(uint64(p.Size)), //nolint:gosec // sizes are never negative
			strconv.Itoa(p.Annotations),
			changeLabel(previous, p.ContentHash),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

// writeAnnotations lists the recorded annotations of every page.
func writeAnnotations(ctx context.Context, w io.Writer, db *database.CrawlDB, pages []database.PageRecord) error {
	for _, p := range pages {
		if p.Annotations == 0 {
			continue
		}
		records, err := db.ListAnnotations(ctx, p.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%s\n", p.URL)
		for _, r := range records {
			state := "valid"
			if !r.Valid {
				state = "invalid"
			}
			location := r.Location
			if location == "" {
				location = "not stored"
			}
			fmt.Fprintf(w, "  * %s (%s) -> %s\n", r.Type, state, location)
			for _, e := range r.Errors {
				fmt.Fprintf(w, "    ! %s\n", e)
			}
		}
	}
	return nil
}

// runHistoryDeleteCmd removes one run.
func runHistoryDeleteCmd(cmd *cobra.Command, args []string) error {
	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("%w: %s", database.ErrRunNotFound, args[0])
	}
	defer db.Close()

	run, err := db.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := db.DeleteRun(cmd.Context(), run.ID); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s (%s)\n", run.ID, run.SeedURL)
	return nil
}

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

func runStatus(r *database.RunRecord) string {
	switch {
	case r.Error != "":
		return "error"
	case r.Cancelled:
		return "cancelled"
	case !r.Finished():
		return "running"
	default:
		return "complete"
	}
}

// changeLabel compares a page's content hash with its previous one.
func changeLabel(previous, current string) string {
	switch {
	case previous == "":
		return "new"
	case previous == current:
		return "no"
	default:
		return "yes"
	}
}
