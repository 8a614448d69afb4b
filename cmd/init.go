package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/davenhart/slopwatch/core/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default slopwatch.yaml to the current directory",
	Long: `Init writes the built-in default configuration, including the stock rule
set, to slopwatch.yaml so it can be edited. It refuses to overwrite an
existing file.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = defaultConfigFile
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}

	data, err := config.Default().Encode()
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	fmt.Printf("wrote %s\n", path)
	return nil
}
