package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/toddyivon/GT7-Telemetry-Pro/internal/deploy"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [password]",
		Short: "List the containers running on the server",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStatus,
	}

	addConnectionFlags(cmd)

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}

	client, err := connect(cmd, args, &opts)
	if err != nil {
		return err
	}
	defer client.Close()

	res, err := deploy.ContainerStatus(cmd.Context(), client)
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	if res.Stdout != "" {
		fmt.Fprintln(out, strings.TrimRight(res.Stdout, "\n"))
	}
	if res.Stderr != "" {
		fmt.Fprintf(out, "STDERR: %s\n", strings.TrimRight(res.Stderr, "\n"))
	}
	return nil
}
