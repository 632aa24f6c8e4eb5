package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	goAuthen "github.com/MrEthical07/goAuthen"
)

var durationCmd = &cobra.Command{
	Use:   "duration VALUE...",
	Short: "Convert timeout notation (900, 15m, 2w, 1M) to seconds",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows := make([][]string, 0, len(args))
		for _, a := range args {
			secs, err := goAuthen.DurationSeconds(a)
			if err != nil {
				return err
			}
			d, _ := goAuthen.ParseDuration(a)
			rows = append(rows, []string{a, strconv.FormatFloat(secs, 'f', -1, 64), d.String()})
		}
		printTable(cmd.OutOrStdout(), []string{"Value", "Seconds", "Duration"}, rows)
		return nil
	},
}
