package cmd

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mygh/mygh/internal/config"
	"github.com/mygh/mygh/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
	Long: `Show and change configuration.

Settings live in a TOML file (see "mygh config path") and can be overridden
per run with MYGH_* environment variables, e.g. MYGH_OUTPUT_FORMAT=json.
Tokens are never stored in the file.`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List effective settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.List(effectiveViper())
		descriptions := make(map[string]string)
		for _, key := range config.Keys() {
			descriptions[key.Name] = key.Description
		}

		ds := output.Dataset{
			Title:  "Configuration",
			Header: table.Row{"Key", "Value", "Description"},
			Wide:   []string{"Description"},
			Data:   settings,
		}
		for _, s := range settings {
			ds.Rows = append(ds.Rows, table.Row{s.Key, s.Value, descriptions[s.Key]})
		}
		return render(cmd, ds)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one effective setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := config.Get(effectiveViper(), args[0])
		if err != nil {
			return err
		}
		printf(cmd, "%s", value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a setting to the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		if err := config.Set(path, args[0], args[1]); err != nil {
			return err
		}
		printf(cmd, "Set %s = %s in %s", strings.ToLower(strings.TrimSpace(args[0])), args[1], path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		printf(cmd, "%s", configPath())
	},
}

func init() {
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func configPath() string {
	if strings.TrimSpace(cfgFile) != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// effectiveViper returns the viper instance loaded at startup.
func effectiveViper() *viper.Viper {
	if appViper == nil {
		appViper = config.NewViper(cfgFile)
		_, _ = config.Load(appViper)
	}
	return appViper
}
