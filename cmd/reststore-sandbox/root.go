package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	v := newViper()
	root := &cobra.Command{
		Use:   "reststore-sandbox",
		Short: "In-memory REST resource and Store client",
		Long: `reststore-sandbox serves an in-memory REST collection for local
development and drives any compatible endpoint through a reststore.Store.

Every flag can also be set as RESTSTORE_<FLAG>, e.g. RESTSTORE_URL or
RESTSTORE_PRIMARY_KEY. A .env file in the working directory is loaded first.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("url", "", "resource URL used by client commands")
	pf.String("resource", "/records", "collection path served by the sandbox")
	pf.String("primary-key", "id", "primary key field of the records")
	pf.Duration("timeout", 0, "per-request timeout for client commands (0 disables)")
	pf.StringP("output", "o", "auto", "output format: auto, table or json")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-format", "text", "log format: text or json")
	bindFlags(v, pf)

	root.AddCommand(newServeCmd(v))
	root.AddCommand(newListCmd(v))
	root.AddCommand(newShowCmd(v))
	root.AddCommand(newSaveCmd(v))
	root.AddCommand(newDeleteCmd(v))
	root.CompletionOptions.DisableDefaultCmd = true
	return root
}
