package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"quiltrender/internal/presets"
)

type presetJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Hidden      bool   `json:"hidden,omitempty"`
	Columns     int    `json:"columns"`
	Rows        int    `json:"rows"`
	TotalViews  int    `json:"total_views"`
	ViewWidth   int    `json:"view_width"`
	ViewHeight  int    `json:"view_height"`
	QuiltWidth  int    `json:"quilt_width"`
	QuiltHeight int    `json:"quilt_height"`
}

type deviceJSON struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ViewCone    float64 `json:"view_cone"`
	Aspect      float64 `json:"aspect"`
}

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	var showAll bool
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List quilt presets and display devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog, err := presets.Load(cfg.Paths.PresetDir, ctx.consoleLogger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			quilts := catalog.Quilts(showAll)
			devices := catalog.Devices()

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"presets": presetEntries(quilts),
					"devices": deviceEntries(devices),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(presetTable(quilts, cfg.Render.Preset)))
			fmt.Fprintln(out, renderTable(deviceTable(devices, cfg.Render.Device)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showAll, "all", "a", false, "Include hidden presets")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the catalog as JSON")
	return cmd
}

func presetSource(q presets.Quilt) string {
	if q.User {
		return "user"
	}
	return "built-in"
}

func presetEntries(quilts []presets.Quilt) []presetJSON {
	entries := make([]presetJSON, 0, len(quilts))
	for _, q := range quilts {
		entries = append(entries, presetJSON{
			Name:        q.Name,
			Description: q.Description,
			Source:      presetSource(q),
			Hidden:      q.Hidden,
			Columns:     q.Columns,
			Rows:        q.Rows,
			TotalViews:  q.TotalViews,
			ViewWidth:   q.ViewWidth,
			ViewHeight:  q.ViewHeight,
			QuiltWidth:  q.QuiltWidth,
			QuiltHeight: q.QuiltHeight,
		})
	}
	return entries
}

func deviceEntries(devices []presets.Device) []deviceJSON {
	entries := make([]deviceJSON, 0, len(devices))
	for _, d := range devices {
		entries = append(entries, deviceJSON{Name: d.Name, Description: d.Description, ViewCone: d.ViewCone, Aspect: d.Aspect})
	}
	return entries
}

func presetTable(quilts []presets.Quilt, selected string) tableSpec {
	title := cases.Title(language.English)
	rows := make([][]string, 0, len(quilts))
	for _, q := range quilts {
		source := title.String(presetSource(q))
		if q.Hidden {
			source += " (hidden)"
		}
		rows = append(rows, []string{
			markSelected(q.Name, selected),
			q.Description,
			fmt.Sprintf("%dx%d", q.Columns, q.Rows),
			strconv.Itoa(q.TotalViews),
			fmt.Sprintf("%dx%d", q.ViewWidth, q.ViewHeight),
			fmt.Sprintf("%dx%d", q.QuiltWidth, q.QuiltHeight),
			source,
		})
	}
	return tableSpec{
		title:        "Quilt presets",
		headers:      []string{"Name", "Description", "Grid", "Views", "View size", "Quilt size", "Source"},
		rows:         rows,
		rightAligned: map[int]bool{3: true},
	}
}

func deviceTable(devices []presets.Device, selected string) tableSpec {
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{
			markSelected(d.Name, selected),
			d.Description,
			strconv.FormatFloat(d.ViewCone, 'f', -1, 64) + "°",
			strconv.FormatFloat(d.Aspect, 'f', 4, 64),
		})
	}
	return tableSpec{
		title:        "Devices",
		headers:      []string{"Name", "Description", "View cone", "Aspect"},
		rows:         rows,
		rightAligned: map[int]bool{2: true, 3: true},
	}
}

// markSelected flags the configured default with an asterisk.
func markSelected(name, selected string) string {
	if strings.EqualFold(name, strings.TrimSpace(selected)) {
		return name + " *"
	}
	return name
}
