package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"volbot/internal/export"
)

// ExportCmd returns the command group for schedule exports.
func ExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the task schedule",
	}
	cmd.AddCommand(exportICSCmd())
	return cmd
}

func exportICSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Write the task schedule as an iCalendar file",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")

			o, err := openOffline(cmd)
			if err != nil {
				return err
			}
			defer o.close()

			doc, err := export.ICS(cmd.Context(), o.clock, o.store)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				fmt.Print(doc)
				return nil
			}
			if err := os.WriteFile(out, []byte(doc), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s.\n", out)
			return nil
		},
	}
	cmd.Flags().String("out", "", "output file (default stdout)")
	return cmd
}
