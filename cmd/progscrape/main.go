// Command progscrape is the admin CLI over the core facade: it has no RPC
// boundary of its own, and every subcommand calls straight into
// pkg/shardedindex, pkg/scrapestore, and pkg/backup (spec.md §6: "Cron/admin
// invocations call the facade methods directly").
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/progscrape/progscrape-sub000/cmd/progscrape/cmd"
)

func main() {
	if err := cmd.New().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
