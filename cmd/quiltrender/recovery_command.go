package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"quiltrender/internal/logging"
	"quiltrender/internal/recovery"
	"quiltrender/internal/services"
)

func newRecoveryCommand(ctx *commandContext) *cobra.Command {
	recoveryCmd := &cobra.Command{
		Use:   "recovery",
		Short: "Inspect records of interrupted render jobs",
	}
	recoveryCmd.AddCommand(newRecoveryListCommand(ctx))
	recoveryCmd.AddCommand(newRecoveryShowCommand(ctx))
	return recoveryCmd
}

func newRecoveryListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List interrupted render jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			records, listErr := recovery.NewStore(cfg.Paths.RecoveryDir).List()
			if listErr != nil && records == nil {
				return listErr
			}
			if listErr != nil {
				logging.WarnWithContext(ctx.consoleLogger(cmd.ErrOrStderr()), "unreadable recovery records skipped", "record_unreadable",
					logging.Error(listErr),
					logging.String(logging.FieldErrorHint, "run render --discard-lockfile for the affected scene"),
				)
			}
			if jsonOut {
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No interrupted render jobs")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					shortID(rec.JobID),
					rec.SourceFile,
					recordPosition(rec),
					humanize.Time(rec.UpdatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(tableSpec{
				headers: []string{"ID", "Scene", "Position", "Updated"},
				rows:    rows,
			}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print records as JSON")
	return cmd
}

func newRecoveryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <scene.toml>",
		Short: "Show the interrupted render job of a scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := filepath.Abs(args[0])
			if err != nil {
				return services.Wrap(services.ErrValidation, "cli", "recovery show", args[0], err)
			}
			rec, err := recovery.NewStore(cfg.Paths.RecoveryDir).Read(source)
			if errors.Is(err, recovery.ErrNoRecord) {
				fmt.Fprintf(cmd.OutOrStdout(), "No interrupted render job for %s\n", filepath.Base(source))
				return nil
			}
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, rec)
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the record as JSON")
	return cmd
}

func recordPosition(rec recovery.Record) string {
	if rec.Animation {
		return fmt.Sprintf("frame %d, view %d/%d", rec.Frame, rec.View, rec.TotalViews)
	}
	return fmt.Sprintf("view %d/%d", rec.View, rec.TotalViews)
}

func printRecord(w io.Writer, rec recovery.Record) {
	fmt.Fprintf(w, "Job:        %s\n", rec.JobID)
	fmt.Fprintf(w, "Scene:      %s\n", rec.SourceFile)
	kind := "still"
	if rec.Animation {
		kind = fmt.Sprintf("animation, frames %d-%d step %d", rec.FrameStart, rec.FrameEnd, rec.FrameStep)
	}
	fmt.Fprintf(w, "Kind:       %s\n", kind)
	fmt.Fprintf(w, "Position:   %s\n", recordPosition(rec))
	fmt.Fprintf(w, "Quilt:      %dx%d views of %dx%d\n", rec.Columns, rec.Rows, rec.ViewWidth, rec.ViewHeight)
	fmt.Fprintf(w, "Output:     %s\n", filepath.Join(rec.Dir, rec.Base+rec.Ext))
	fmt.Fprintf(w, "Keep views: %s\n", yesNo(rec.KeepViews || rec.ForceKeep))
	fmt.Fprintf(w, "Updated:    %s (%s)\n", rec.UpdatedAt.Local().Format(time.DateTime), humanize.Time(rec.UpdatedAt))
	fmt.Fprintln(w, "Continue with `quiltrender render --resume` or drop it with `--discard-lockfile`.")
}
