package phpguard

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phpguard/phpguard/internal/cache"
	"github.com/phpguard/phpguard/internal/engine"
)

func init() {
	var path string
	cmd := &cobra.Command{
		Use:   "last",
		Short: "Show the result of the most recent scan without scanning again",
		RunE: func(cmd *cobra.Command, _ []string) error {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			last, err := cache.LoadResults(abs)
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("no saved scan for %s; run 'phpguard scan' first", abs)
			}
			if err != nil {
				return err
			}
			s := loadSettings(cmd, abs)
			if !machineOutput() {
				fmt.Fprintf(cmd.ErrOrStderr(), "Last scan of %s at %s\n", last.Root, last.Timestamp.Local().Format("2006-01-02 15:04:05"))
			}
			return s.emit(cmd.OutOrStdout(), output{res: engine.Result{ScanResult: last.Result}})
		},
	}
	cmd.Flags().StringVarP(&path, "path", "p", ".", "plugin directory")
	rootCmd.AddCommand(cmd)
}
