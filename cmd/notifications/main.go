// Command notifications runs the appointment notification worker and its
// operator tooling.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "notifications",
		Short: "Appointment notification worker",
		Long: `notifications consumes appointments.created events from Kafka and sends
the requested email and SMS notifications, dead-lettering records it cannot handle.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newWorkerCmd(),
		newPublishCmd(),
		newDemoCmd(),
		newFlowDemoCmd(),
	)
	return rootCmd
}
