// Package cli holds the books-pipeline subcommands.
package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/uxentio/books-pipeline/internal/config"
)

const configKeyAnnotation = "books-pipeline/config-key"

// Env is shared by every command. Config is resolved by the root command
// before any subcommand runs.
type Env struct {
	Viper   *viper.Viper
	Config  *config.Config
	Version string
}

// NewEnv returns an Env backed by a fresh viper instance.
func NewEnv(version string) *Env {
	return &Env{Viper: config.New(), Version: version}
}

// Resolve reads the config file, binds the running command's flags and
// decodes the result into e.Config.
func (e *Env) Resolve(cmd *cobra.Command, cfgFile string) error {
	if err := BindFlags(e.Viper, cmd); err != nil {
		return err
	}
	if err := config.ReadFile(e.Viper, cfgFile); err != nil {
		return err
	}
	cfg, err := config.Load(e.Viper)
	if err != nil {
		return err
	}
	e.Config = cfg
	return nil
}

// BindKey marks flag name as an override for a dotted config key.
func BindKey(flags *pflag.FlagSet, name, key string) {
	_ = flags.SetAnnotation(name, configKeyAnnotation, []string{key})
}

// BindFlags binds the annotated flags of cmd, inherited ones included.
// Binding happens per invocation so that commands sharing a key do not
// shadow each other.
func BindFlags(v *viper.Viper, cmd *cobra.Command) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if len(keys) == 0 || bindErr != nil {
			return
		}
		if err := v.BindPFlag(keys[0], f); err != nil {
			bindErr = fmt.Errorf("failed to bind --%s: %w", f.Name, err)
		}
	})
	return bindErr
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable draws rows with a rounded border. widths caps individual
// columns; zero means unlimited.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment, widths []int) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		cc := table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		}
		if i < len(aligns) && aligns[i] == alignRight {
			cc.Align = text.AlignRight
		}
		if i < len(widths) && widths[i] > 0 {
			cc.WidthMax = widths[i]
			cc.WidthMaxEnforcer = text.Trim
		}
		columnConfigs = append(columnConfigs, cc)
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
