package cli

import (
	"github.com/spf13/cobra"

	"siteimg/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the public directory with on-demand image resolution",
		Long: `Serve the public directory over HTTP and resolve images on request:

  GET /_img?src=/assets/a.png&profile=hero-1x   302 to the derivative
  GET /_gallery?src=/assets/p.jpg               sm/lg/lb URLs as JSON
  GET /_profiles                                 profile table as JSON
  GET /metrics                                   Prometheus metrics`,
		Args: noArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	addr := a.cfg.ServerAddr()
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		addr = v
	}
	s := server.NewServer(addr, a.cfg.PublicPath(), a.resolver(), a.metrics)
	return s.Start(cmd.Context())
}
