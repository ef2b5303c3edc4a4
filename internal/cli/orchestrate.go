package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewOrchestrateCmd создаёт группу команд для управления оркестрациями.
func NewOrchestrateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orchestrate",
		Short: "Manage orchestrations",
	}

	cmd.AddCommand(
		newOrchestrateStartCmd(clientFn, outputFn),
		newOrchestrateStatusCmd(clientFn, outputFn),
		newOrchestrateListCmd(clientFn, outputFn),
		newOrchestrateStopCmd(clientFn, outputFn),
	)

	return cmd
}

func newOrchestrateStartCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var projectPath string
	var priority string
	var timeoutMin int
	var maxRetries int

	cmd := &cobra.Command{
		Use:   "start QUERY",
		Short: "Start a new orchestration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			o, err := client.CreateOrchestration(CreateOrchestrationRequest{
				Query:       args[0],
				ProjectPath: projectPath,
				Priority:    priority,
				TimeoutMin:  timeoutMin,
				MaxRetries:  maxRetries,
			})
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Orchestration started: %s", o.ID))
			out.Print(
				[]string{"ID", "STATUS", "ROLES", "EST_DURATION", "DEADLINE"},
				[][]string{{
					o.ID,
					o.Status,
					strings.Join(o.Graph.Roles, " → "),
					fmt.Sprintf("%ds", o.Graph.EstimatedDurationSec),
					o.Deadline,
				}},
				o,
			)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectPath, "project", ".", "Path to the project to analyze")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority (LOW, NORMAL, HIGH)")
	cmd.Flags().IntVar(&timeoutMin, "timeout", 0, "Orchestration timeout in minutes")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 0, "Retry limit per role step")

	return cmd
}

func newOrchestrateStatusCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var showResult bool

	cmd := &cobra.Command{
		Use:   "status ID",
		Short: "Show orchestration status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			o, err := client.GetOrchestration(args[0])
			if err != nil {
				return err
			}

			out.Print(
				[]string{"ID", "STATUS", "CURRENT_ROLE", "ROLES", "STARTED", "FINISHED"},
				[][]string{{
					o.ID,
					o.Status,
					o.CurrentRole,
					strings.Join(o.Graph.Roles, " → "),
					o.StartedAt,
					o.FinishedAt,
				}},
				o,
			)

			if o.Error != "" {
				out.Error(o.Error)
			}

			if showResult && o.FinalResult != nil {
				out.Text("")
				out.Text(o.FinalResult.FinalAnalysis)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showResult, "result", false, "Print final analysis text")

	return cmd
}

func newOrchestrateListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var active bool
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orchestrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			orchestrations, err := client.ListOrchestrations(ListOpts{
				Active: active,
				Limit:  limit,
				Offset: offset,
			})
			if err != nil {
				return err
			}

			headers := []string{"ID", "STATUS", "CURRENT_ROLE", "QUERY", "STARTED"}
			rows := make([][]string, len(orchestrations))
			for i, o := range orchestrations {
				rows[i] = []string{o.ID, o.Status, o.CurrentRole, truncateQuery(o.Query), o.StartedAt}
			}

			out.Print(headers, rows, orchestrations)
			return nil
		},
	}

	cmd.Flags().BoolVar(&active, "active", false, "Show only unfinished orchestrations")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")
	cmd.Flags().IntVar(&offset, "offset", 0, "Offset for pagination")

	return cmd
}

func newOrchestrateStopCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop ID",
		Short: "Stop a running orchestration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			stop, err := client.StopOrchestration(args[0])
			if err != nil {
				return err
			}

			out.Success(fmt.Sprintf("Orchestration stopped: %s", stop.ID))
			out.Print(
				[]string{"ID", "ROLES"},
				[][]string{{stop.ID, strings.Join(stop.Roles, ", ")}},
				stop,
			)
			return nil
		},
	}

	return cmd
}

// truncateQuery обрезает длинный запрос для табличного вывода.
func truncateQuery(q string) string {
	const max = 60
	if len(q) <= max {
		return q
	}
	return q[:max-3] + "..."
}
