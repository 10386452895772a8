// Command beacond is the mDNS/DNS-SD responder daemon: the front-end
// spec.md §6 calls out as an external collaborator, wiring socket I/O,
// `.service` file configuration, logging, and metrics around the
// responder engine.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		servicesDir  string
		iface        string
		ipv6         bool
		metricsAddr  string
		logLevel     string
		jsonLogs     bool
		rateQPS      int
		rateCooldown int64
	)

	cmd := &cobra.Command{
		Use:   "beacond",
		Short: "mDNS/DNS-SD responder daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(daemonConfig{
				servicesDir:      servicesDir,
				interfaceName:    iface,
				ipv6:             ipv6,
				metricsAddr:      metricsAddr,
				logLevel:         logLevel,
				jsonLogs:         jsonLogs,
				rateThresholdQPS: rateQPS,
				rateCooldownMs:   rateCooldown,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&servicesDir, "services-dir", "", "directory of *.service files to publish")
	flags.StringVar(&iface, "interface", "", "network interface whose IPv4 address the engine uses (default: first non-loopback IPv4 address)")
	flags.BoolVar(&ipv6, "ipv6", false, "also join the IPv6 mDNS multicast group")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus /metrics on (empty disables)")
	flags.StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	flags.BoolVar(&jsonLogs, "json-logs", false, "emit JSON logs instead of the console writer")
	flags.IntVar(&rateQPS, "rate-limit-qps", 100, "per-source query rate limit before cooldown")
	flags.Int64Var(&rateCooldown, "rate-limit-cooldown-ms", 60_000, "cooldown duration once a source trips the rate limit")

	return cmd
}
