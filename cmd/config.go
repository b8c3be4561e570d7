package main

import (
	"log"

	"github.com/spf13/cobra"
)

const redacted = "********"

func configCommands(p *passbookInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "config outputs your instances computed configuration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := *p.cnf
			if cfg.DataSource.Dns != "" {
				cfg.DataSource.Dns = redacted
			}
			if cfg.OCR.ApiKey != "" {
				cfg.OCR.ApiKey = redacted
			}
			if err := printJSON(cfg); err != nil {
				log.Fatalf("Error printing config: %v\n", err)
			}
		},
	}
	return cmd
}
