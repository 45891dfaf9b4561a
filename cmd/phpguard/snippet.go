package phpguard

import (
	"encoding/base64"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phpguard/phpguard/internal/engine"
	"github.com/phpguard/phpguard/internal/report"
)

var (
	flagSnippetFile   string
	flagSnippetBase64 bool
)

var (
	errSnippetEncoding = errors.New("Invalid snippet encoding.")
	errSnippetEmpty    = errors.New("No code was provided.")
)

func init() {
	cmd := &cobra.Command{
		Use:   "snippet [-]",
		Short: "Check pasted PHP code read from stdin or a file",
		Long: "Reads PHP code from --file or stdin and checks it. A missing <?php open tag is added " +
			"before checking, so line numbers count that extra line.",
		Args: cobra.MaximumNArgs(1),
		RunE: runSnippet,
	}
	rootCmd.AddCommand(cmd)

	cmd.Flags().StringVarP(&flagSnippetFile, "file", "f", "", "read code from this file instead of stdin")
	cmd.Flags().BoolVar(&flagSnippetBase64, "base64", false, "input is base64-encoded")
}

func readSnippet(cmd *cobra.Command, args []string) (string, error) {
	var r io.Reader = cmd.InOrStdin()
	if flagSnippetFile != "" && flagSnippetFile != "-" {
		f, err := os.Open(flagSnippetFile)
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	} else if len(args) == 1 && args[0] != "-" {
		return "", errors.New("snippet reads stdin; use --file to read a file")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	text := string(b)
	if flagSnippetBase64 {
		dec, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
		if err != nil {
			return "", errSnippetEncoding
		}
		text = string(dec)
	}
	if strings.TrimSpace(text) == "" {
		return "", errSnippetEmpty
	}
	return text, nil
}

func runSnippet(cmd *cobra.Command, args []string) error {
	text, err := readSnippet(cmd, args)
	if err != nil {
		return err
	}
	s := loadSettings(cmd, "")
	ctx, cancel := s.context(cmd.Context())
	defer cancel()

	orc, err := s.oracle(ctx)
	if err != nil {
		return scanError(err)
	}
	res, err := engine.ScanSnippet(ctx, orc, text, engine.Options{Logger: s.log})
	if errors.Is(err, engine.ErrEmptySnippet) {
		return errSnippetEmpty
	}
	if err != nil {
		return scanError(err)
	}
	if err := s.emit(cmd.OutOrStdout(), output{res: res}); err != nil {
		return err
	}
	if report.ShouldFail(res.ScanResult, s.failOn) {
		exit(1)
	}
	return nil
}
