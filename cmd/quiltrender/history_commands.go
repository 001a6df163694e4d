package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"quiltrender/internal/history"
	"quiltrender/internal/logging"
	"quiltrender/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent render jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := requireHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			jobs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				if jobs == nil {
					jobs = []history.Job{}
				}
				return writeJSON(cmd, jobs)
			}
			out := cmd.OutOrStdout()
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No render jobs recorded")
				return nil
			}
			fmt.Fprintln(out, renderTable(historyTable(jobs)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of jobs to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print jobs as JSON")
	cmd.AddCommand(newHistoryShowCommand(ctx))
	return cmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one render job; any unique ID prefix works",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := requireHistory(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			job, quilts, err := store.FindByPrefix(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				if quilts == nil {
					quilts = []history.Quilt{}
				}
				return writeJSON(cmd, struct {
					*history.Job
					Quilts []history.Quilt `json:"quilts"`
				}{job, quilts})
			}
			printJobDetail(cmd, job, quilts)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the job as JSON")
	return cmd
}

func requireHistory(ctx *commandContext) (*history.Store, error) {
	store, err := ctx.openHistory()
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "history", "open",
			"render history is disabled; set paths.history_db", nil)
	}
	return store, nil
}

func historyTable(jobs []history.Job) tableSpec {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, []string{
			shortID(job.ID),
			filepath.Base(job.Source),
			jobKind(job),
			job.Status,
			strconv.FormatFloat(job.Progress*100, 'f', 0, 64) + "%",
			humanize.Time(job.StartedAt),
			logging.FormatDuration(job.Duration().Round(time.Second)),
		})
	}
	return tableSpec{
		headers:      []string{"ID", "Scene", "Kind", "Status", "Progress", "Started", "Duration"},
		rows:         rows,
		rightAligned: map[int]bool{4: true, 6: true},
	}
}

func printJobDetail(cmd *cobra.Command, job *history.Job, quilts []history.Quilt) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Job:        %s\n", job.ID)
	fmt.Fprintf(out, "Scene:      %s\n", job.Source)
	fmt.Fprintf(out, "Kind:       %s\n", jobKind(*job))
	fmt.Fprintf(out, "Status:     %s\n", job.Status)
	if job.Message != "" {
		fmt.Fprintf(out, "Message:    %s\n", job.Message)
	}
	if job.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:      %s (%s)\n", job.ErrorMessage, job.ErrorKind)
	}
	fmt.Fprintf(out, "Quilt:      %dx%d views of %dx%d, %d total\n", job.Columns, job.Rows, job.ViewWidth, job.ViewHeight, job.TotalViews)
	if job.Animation {
		fmt.Fprintf(out, "Frames:     %d-%d step %d\n", job.FrameStart, job.FrameEnd, job.FrameStep)
	}
	fmt.Fprintf(out, "Progress:   %.0f%% (%d views)\n", job.Progress*100, job.ViewsRendered)
	fmt.Fprintf(out, "Resumed:    %s\n", yesNo(job.Resumed > 0))
	fmt.Fprintf(out, "Started:    %s (%s)\n", job.StartedAt.Local().Format(time.DateTime), humanize.Time(job.StartedAt))
	fmt.Fprintf(out, "Duration:   %s\n", logging.FormatDuration(job.Duration().Round(time.Second)))
	if len(quilts) == 0 {
		return
	}
	fmt.Fprintln(out, "Quilts:")
	for _, q := range quilts {
		fmt.Fprintf(out, "  frame %d  %s (%s)\n", q.Frame, q.Path, logging.FormatBytes(q.SizeBytes))
	}
}

func jobKind(job history.Job) string {
	if job.Animation {
		return "animation"
	}
	return "still"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
