package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/markd/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Print the markd version along with commit, build time, and platform details.`,
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringP("format", "f", "text", "Output format (text, json)")
	versionCmd.Flags().Bool("short", false, "Print the short version only")
	versionCmd.Flags().Bool("detailed", false, "Print full build information")
}

func runVersion(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	short, _ := cmd.Flags().GetBool("short")
	detailed, _ := cmd.Flags().GetBool("detailed")

	switch format {
	case "json":
		data, err := json.MarshalIndent(version.GetBuildInfo(), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal version info: %w", err)
		}
		fmt.Println(string(data))
	case "text":
		switch {
		case short:
			fmt.Println(version.GetShortVersion())
		case detailed:
			fmt.Println(version.GetDetailedVersion())
			if version.IsDirty() {
				fmt.Println("Working tree: dirty")
			}
		default:
			suffix := ""
			if version.IsDirty() {
				suffix = " (dirty)"
			}
			fmt.Printf("markd %s%s\n", version.GetShortVersion(), suffix)
		}
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	return nil
}
