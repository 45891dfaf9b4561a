package phpguard

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/phpguard/phpguard/internal/oracle/factory"
)

var (
	flagJSON            bool
	flagSARIF           bool
	flagText            bool
	flagThreads         int
	flagFailOn          string
	flagNoColor         bool
	flagNoCache         bool
	flagDefaultExcludes bool
	flagTimeout         time.Duration
	flagLogLevel        string
	flagLogJSON         bool
	flagOracle          string
	flagPHPBinary       string
	flagPHPVersion      string
	flagNoAudit         bool

	version = "1.0.0"

	// exit is swapped out by tests.
	exit = os.Exit
)

// rootCmd is the base Cobra command for the phpguard CLI.
var rootCmd = &cobra.Command{
	Use:   "phpguard",
	Short: "Check PHP code for syntax errors and risky constructs before installing it",
	Long: "phpguard checks a plugin directory, an uploaded archive or a pasted snippet for PHP syntax errors " +
		"and reports informational security indicators. Nothing it inspects is ever executed.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the phpguard CLI. It should be called by the main package.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		exit(2)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&flagJSON, "json", false, "emit JSON")
	pf.BoolVar(&flagSARIF, "sarif", false, "emit SARIF 2.1.0")
	pf.BoolVar(&flagText, "text", false, "plain text columnar output instead of tables")
	pf.IntVar(&flagThreads, "threads", 0, "worker count (0 = GOMAXPROCS)")
	pf.StringVar(&flagFailOn, "fail-on", "", "exit 1 on indicators at or above high|medium, or none (default high)")
	pf.BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	pf.BoolVar(&flagNoCache, "no-cache", false, "disable the incremental result cache")
	pf.BoolVar(&flagDefaultExcludes, "default-excludes", true, "skip VCS and editor directories and node_modules")
	pf.DurationVar(&flagTimeout, "timeout", 0, "abort the scan after this long (0 = no limit)")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: trace|debug|info|warn|error")
	pf.BoolVar(&flagLogJSON, "log-json", false, "write logs as JSON")
	pf.StringVar(&flagOracle, "oracle", "", fmt.Sprintf("syntax checker backend: %v", factory.Backends()))
	pf.StringVar(&flagPHPBinary, "php-binary", "", "php executable for the lint backend")
	pf.BoolVar(&flagNoAudit, "no-audit", false, "do not append scan runs to the audit log")
	pf.StringVar(&flagPHPVersion, "php-version", "", "grammar version for the parser backend, e.g. 8.1")
}
