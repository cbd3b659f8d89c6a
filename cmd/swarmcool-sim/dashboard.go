package main

import (
	"github.com/spf13/cobra"

	"swarmcool-sim/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render Grafana dashboards from templates",
	Long:  "dashboard renders the shipped Grafana dashboard templates, resolving datasource UIDs from the environment.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboard.Render(dashboardOut)
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "dashboards", "Output directory for rendered dashboards")
}
