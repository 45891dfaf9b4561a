package phpguard

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/phpguard/phpguard/internal/history"
)

var (
	flagHistoryStore     string
	flagHistoryComponent string
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or record version activations",
		RunE:  runHistoryList,
	}
	cmd.PersistentFlags().StringVar(&flagHistoryStore, "store", "", "history file (default $XDG_CONFIG_HOME/phpguard/history.json)")
	cmd.PersistentFlags().StringVar(&flagHistoryComponent, "component", history.Component, "component name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded versions, newest first",
		RunE:  runHistoryList,
	}
	record := &cobra.Command{
		Use:   "record [VERSION]",
		Short: "Record VERSION (default: this build) as active if it is not already",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := historyStore()
			if err != nil {
				return err
			}
			v := version
			if len(args) == 1 {
				v = args[0]
			}
			added, err := history.RecordVersionBump(st, flagHistoryComponent, v, time.Now())
			if err != nil {
				return err
			}
			if added {
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s\n", flagHistoryComponent, v)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s is already current\n", flagHistoryComponent, v)
			}
			return nil
		},
	}

	rootCmd.AddCommand(cmd)
	cmd.AddCommand(list, record)
}

func historyStore() (history.Store, error) {
	p := flagHistoryStore
	if p == "" {
		p = history.DefaultPath()
	}
	if p == "" {
		return nil, errors.New("no history location; pass --store")
	}
	return history.NewFileStore(p), nil
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	st, err := historyStore()
	if err != nil {
		return err
	}
	entries, err := history.History(st)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if flagJSON {
		if entries == nil {
			entries = []history.Entry{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No versions recorded yet.")
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.Header("Version", "Component", "Activated", "Notes")
	for _, e := range entries {
		when := "unknown"
		if t := e.Time(); !t.IsZero() {
			when = t.Format("2006-01-02 15:04")
		}
		if err := table.Append(e.Version, e.Component, when, e.Notes); err != nil {
			return err
		}
	}
	return table.Render()
}
