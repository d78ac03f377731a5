package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/extractmd/internal/output"
	"github.com/jmylchreest/extractmd/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			w := output.NewJSONWriter(os.Stdout, true, "  ")
			if err := w.Write(version.Get()); err != nil {
				return err
			}
			return w.Close()
		}
		fmt.Println(version.Full())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = version.String()

	versionCmd.Flags().Bool("json", false, "print version information as JSON")
}
