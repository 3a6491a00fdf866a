package commands

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/mapleads/internal/logger"
	"github.com/jmylchreest/mapleads/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous scrapes",
	Long: `List previous scrapes recorded in the run history database, newest
first, with the number of listings found and saved and the export path.`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "number of runs to show (0=all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	initLogger()

	path := viper.GetString("store.path")
	if path == "" {
		return errors.New("run history is disabled (empty --db)")
	}
	st, err := store.Open(path)
	if err != nil {
		logger.Error("failed to open run history", "path", path, "error", err)
		return err
	}
	defer func() { _ = st.Close() }()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := st.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	businesses, err := st.CountBusinesses(cmd.Context())
	if err != nil {
		return err
	}

	return printHistory(cmd.OutOrStdout(), runs, businesses)
}

func printHistory(w io.Writer, runs []store.Run, businesses int) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tQUERY\tFOUND\tSAVED\tFAILED\tOUTPUT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID, humanize.Time(r.StartedAt), r.Query, r.Found, r.Saved, r.Failed, r.OutputPath)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%s unique %s stored\n", humanize.Comma(int64(businesses)), plural(businesses, "business", "businesses"))
	return err
}
