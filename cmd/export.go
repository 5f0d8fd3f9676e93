package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/markd/internal/config"
	"github.com/conneroisu/markd/internal/errors"
	"github.com/conneroisu/markd/internal/export"
)

// maxListedExports caps the per-file lines printed after a directory
// export.
const maxListedExports = 10

var exportCmd = &cobra.Command{
	Use:   "export <source> [output]",
	Short: "Export markdown to static HTML",
	Long: `Render a markdown file or directory tree to self-contained HTML.

Styling is inlined into each page, so the output needs no running
server. Directory exports mirror the source layout under the output
directory, which defaults to "output".`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	// Not bound into viper: serve already owns the render.theme key,
	// and a second binding would shadow its flag. Values are read from
	// the flag set directly and fall back to the loaded config.
	exportCmd.Flags().StringP("theme", "t", config.DefaultTheme, "UI theme (light, dark, catppuccin-mocha, catppuccin-latte)")
	exportCmd.Flags().Bool("minify", false, "Collapse whitespace in the generated HTML")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return exitErr(exitConfig, err)
	}

	theme := cfg.Render.Theme
	if cmd.Flags().Changed("theme") {
		theme, _ = cmd.Flags().GetString("theme")
		if !config.IsValidTheme(theme) {
			return exitErr(exitConfig, fmt.Errorf("theme %q is not one of %s",
				theme, strings.Join(config.ValidThemes, ", ")))
		}
	}
	minify := cfg.Export.Minify
	if cmd.Flags().Changed("minify") {
		minify, _ = cmd.Flags().GetBool("minify")
	}

	source := args[0]
	output := cfg.Export.Output
	if len(args) > 1 {
		output = args[1]
	}

	info, err := os.Stat(source)
	if err != nil {
		return exitErr(exitMissingPath, fmt.Errorf("source not found: %s", source))
	}

	exp, err := export.New(export.Options{
		Theme:       theme,
		SyntaxTheme: cfg.Render.SyntaxTheme,
		Minify:      minify,
		Logger:      newLogger(),
	})
	if err != nil {
		return exitErr(exitConfig, err)
	}

	absSource, _ := filepath.Abs(source)
	absOutput, _ := filepath.Abs(output)
	fmt.Println("markd export")
	fmt.Printf("  Source: %s\n", absSource)
	fmt.Printf("  Output: %s\n", absOutput)
	fmt.Printf("  Theme:  %s\n", theme)
	minifyState := "disabled"
	if minify {
		minifyState = "enabled"
	}
	fmt.Printf("  Minify: %s\n", minifyState)
	fmt.Println()

	ctx := context.Background()
	if info.IsDir() {
		if err := exportDirectory(ctx, exp, source, output); err != nil {
			return err
		}
	} else {
		if err := exportFile(ctx, exp, source, output); err != nil {
			return err
		}
	}

	fmt.Printf("\nExport complete! Output: %s\n", absOutput)
	return nil
}

func exportFile(ctx context.Context, exp *export.Exporter, source, output string) error {
	written, err := exp.ExportFile(ctx, source, output)
	if err != nil {
		return mapExportErr(err)
	}
	fmt.Printf("Exported: %s\n", written)
	return nil
}

func exportDirectory(ctx context.Context, exp *export.Exporter, source, output string) error {
	summary, err := exp.ExportDirectory(ctx, source, output)
	if err != nil {
		return mapExportErr(err)
	}

	fmt.Printf("Exported %d files\n", summary.Exported)
	shown := 0
	for _, res := range summary.Results {
		if res.Err != nil {
			continue
		}
		if shown == maxListedExports {
			fmt.Printf("  ... and %d more\n", summary.Exported-maxListedExports)
			break
		}
		name := res.Output
		if rel, relErr := filepath.Rel(output, res.Output); relErr == nil {
			name = rel
		}
		fmt.Printf("  %s\n", name)
		shown++
	}

	if summary.Failed > 0 {
		for _, res := range summary.Results {
			if res.Err != nil {
				fmt.Fprintf(os.Stderr, "  failed: %s: %v\n", res.Source, res.Err)
			}
		}
		total := summary.Exported + summary.Failed
		return exitErr(exitGeneric,
			fmt.Errorf("%d of %d files failed to export", summary.Failed, total))
	}
	return nil
}

// mapExportErr translates exporter errors into coded exit errors.
func mapExportErr(err error) error {
	switch {
	case errors.IsNotFoundError(err):
		return exitErr(exitMissingPath, err)
	case errors.IsConfigError(err):
		return exitErr(exitConfig, err)
	default:
		return err
	}
}
