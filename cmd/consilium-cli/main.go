// Consilium CLI — инструмент командной строки для запуска, наблюдения
// и остановки оркестраций через HTTP API.
//
// Использование:
//
//	consilium [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	orchestrate  Управление оркестрациями
//	queue        Инспекция очередей ролей
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shaiso/Consilium/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "consilium",
		Short:         "Consilium CLI — multi-role code analysis orchestration",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewOrchestrateCmd(clientFn, outputFn),
		cli.NewQueueCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
