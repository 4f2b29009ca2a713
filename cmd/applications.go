package cmd

import (
	"github.com/spf13/cobra"
)

// newApplicationsCmd creates and configures the 'applications'
// subcommand, which archives form submissions instead of forum content.
func newApplicationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "applications",
		Short: "Archives application form submissions",
		Long: `Enumerates every application type the remote site reports and merges
all of its form submissions into the store. With scheduler.cron_spec
set, the harvest repeats on that schedule until interrupted.`,

		RunE: runApplicationsCommand,
	}
}

func runApplicationsCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	sessionID, err := appInstance.ResolveSession(cmd.Context())
	if err != nil {
		return err
	}

	startOpsServer(appInstance)

	h := buildHarvester(appInstance, sessionID)
	return runWithSchedule(cmd.Context(), appInstance, "applications", h.RunApplications)
}
