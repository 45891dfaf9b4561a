package phpguard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phpguard/phpguard/internal/config"
)

var (
	cfgOutput          string
	cfgGlobal          bool
	cfgForce           bool
	cfgInclude         string
	cfgExclude         string
	cfgThreads         int
	cfgMaxBytes        int64
	cfgFailOn          string
	cfgBackend         string
	cfgNoColor         bool
	cfgDefaultExcludes bool
	cfgShowPath        string
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a " + config.LocalNames[0] + " with the given options",
		RunE:  runConfigInit,
	}
	cfgCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&cfgOutput, "output", config.LocalNames[0], "output file path")
	initCmd.Flags().BoolVar(&cfgGlobal, "global", false, "write the user config instead of a local file")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
	initCmd.Flags().StringVar(&cfgInclude, "include", "", "comma-separated include globs")
	initCmd.Flags().StringVar(&cfgExclude, "exclude", "", "comma-separated exclude globs")
	initCmd.Flags().IntVar(&cfgThreads, "threads", 0, "worker threads (0=GOMAXPROCS)")
	initCmd.Flags().Int64Var(&cfgMaxBytes, "max-bytes", 0, "skip files larger than this (0 = no limit)")
	initCmd.Flags().StringVar(&cfgFailOn, "fail-on", "high", "high | medium | none")
	initCmd.Flags().StringVar(&cfgBackend, "backend", "parser", "syntax checker backend: parser | lint | auto")
	initCmd.Flags().BoolVar(&cfgNoColor, "no-color", false, "disable color output by default")
	initCmd.Flags().BoolVar(&cfgDefaultExcludes, "default-excludes", true, "skip VCS and editor directories")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective file configuration (local over global)",
		RunE:  runConfigShow,
	}
	showCmd.Flags().StringVarP(&cfgShowPath, "path", "p", ".", "directory whose local config is used")
	cfgCmd.AddCommand(showCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	out := cfgOutput
	if cfgGlobal {
		p, err := config.GlobalPath()
		if err != nil {
			return err
		}
		out = p
	}
	if _, err := os.Stat(out); err == nil && !cfgForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", out)
	}

	fc := config.FileConfig{
		Include:         optStrPtr(cfgInclude),
		Exclude:         optStrPtr(cfgExclude),
		MaxBytes:        optInt64Ptr(cfgMaxBytes),
		Threads:         intPtr(cfgThreads),
		FailOn:          strPtr(strings.ToLower(cfgFailOn)),
		NoColor:         boolPtr(cfgNoColor),
		DefaultExcludes: boolPtr(cfgDefaultExcludes),
		Oracle:          &config.OracleConfig{Backend: strPtr(cfgBackend)},
	}
	if err := config.Save(out, fc); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", out)
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	abs, err := filepath.Abs(cfgShowPath)
	if err != nil {
		return err
	}
	s := loadSettings(cmd, abs)
	b, err := yaml.Marshal(config.Merge(s.global, s.local))
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if p, ok := config.LocalPath(abs); ok {
		fmt.Fprintln(w, "# local:", p)
	}
	if p, err := config.GlobalPath(); err == nil {
		fmt.Fprintln(w, "# global:", p)
	}
	_, err = w.Write(b)
	return err
}

func strPtr(s string) *string { return &s }
func optStrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
func optInt64Ptr(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
func boolPtr(v bool) *bool { return &v }
