package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	goAuthen "github.com/MrEthical07/goAuthen"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration file and summarize each app",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	engine, err := cfg.buildEngine(newLogger(), nil)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	defer engine.Close()

	var rows [][]string
	for _, name := range cfg.appNames() {
		c, err := engine.Registry().Config(name)
		if err != nil {
			return err
		}
		rows = append(rows, []string{
			name,
			backendNames(c.Drivers),
			storeName(c.Store),
			timeoutSummary(c.Timeout),
			strings.Join(c.Credentials, ","),
			strconv.Itoa(len(c.Protected)),
		})
	}
	printTable(cmd.OutOrStdout(), []string{"App", "Drivers", "Store", "Timeout", "Credentials", "Rules"}, rows)
	return nil
}

func backendNames(specs []goAuthen.BackendSpec) string {
	if len(specs) == 0 {
		return "-"
	}
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return strings.Join(names, ",")
}

func storeName(s *goAuthen.BackendSpec) string {
	if s == nil {
		return "(default)"
	}
	return s.Name
}

func timeoutSummary(t *goAuthen.TimeoutPolicy) string {
	if t == nil {
		return "-"
	}
	var parts []string
	if t.IdleFor > 0 {
		parts = append(parts, "idle "+t.IdleFor.String())
	}
	if t.Every > 0 {
		parts = append(parts, "every "+t.Every.String())
	}
	if t.Custom != nil {
		parts = append(parts, "custom")
	}
	return strings.Join(parts, ", ")
}
