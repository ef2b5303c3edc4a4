package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

// NewQueueCmd создаёт группу команд для инспекции очередей.
func NewQueueCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect role queues",
	}

	cmd.AddCommand(newQueueListCmd(clientFn, outputFn))

	return cmd
}

func newQueueListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List role queue depths",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			queues, err := client.ListQueues()
			if err != nil {
				return err
			}

			headers := []string{"ROLE", "READY", "DEAD_LETTERED"}
			rows := make([][]string, len(queues))
			for i, q := range queues {
				rows[i] = []string{q.Role, strconv.Itoa(q.Ready), strconv.Itoa(q.DeadLettered)}
			}

			out.Print(headers, rows, queues)
			return nil
		},
	}

	return cmd
}
