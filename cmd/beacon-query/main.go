// Command beacon-query is a one-shot mDNS/DNS-SD lookup tool: the query
// front-end spec.md §6 names as an external collaborator, built on top of
// the querier package's synchronous Query API.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crowlark/beacon/querier"
	"github.com/crowlark/beacon/responder"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		recordType string
		timeout    time.Duration
		ipv6       bool
	)

	cmd := &cobra.Command{
		Use:   "beacon-query <name>",
		Short: "Query the local mDNS link for a name or service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, err := parseType(recordType)
			if err != nil {
				return err
			}
			return runQuery(cmd, args[0], typ, timeout, ipv6)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&recordType, "type", "PTR", "record type: A, AAAA, PTR, SRV, TXT, CNAME, NS, ANY")
	flags.DurationVar(&timeout, "timeout", time.Second, "how long to collect responses")
	flags.BoolVar(&ipv6, "ipv6", false, "also join the IPv6 mDNS multicast group (questions are still sent over IPv4)")

	return cmd
}

func runQuery(cmd *cobra.Command, name string, typ responder.RecordType, timeout time.Duration, ipv6 bool) error {
	opts := []querier.Option{querier.WithTimeout(timeout)}
	if ipv6 {
		opts = append(opts, querier.WithIPv6())
	}
	q, err := querier.New(opts...)
	if err != nil {
		return fmt.Errorf("beacon-query: %w", err)
	}
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	resp, err := q.Query(ctx, name, typ)
	if err != nil {
		return fmt.Errorf("beacon-query: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(resp.Records) == 0 {
		fmt.Fprintf(out, "no records found for %s\n", name)
		return nil
	}
	for _, rec := range resp.Records {
		fmt.Fprintf(out, "%s\t%d\tIN\t%s\t%v\n", rec.Name, rec.TTL, typeName(rec.Type), rec.RData)
	}
	return nil
}

func parseType(s string) (responder.RecordType, error) {
	switch s {
	case "A":
		return responder.TypeA, nil
	case "AAAA":
		return responder.TypeAAAA, nil
	case "PTR":
		return responder.TypePTR, nil
	case "SRV":
		return responder.TypeSRV, nil
	case "TXT":
		return responder.TypeTXT, nil
	case "CNAME":
		return responder.TypeCNAME, nil
	case "NS":
		return responder.TypeNS, nil
	case "ANY":
		return responder.TypeANY, nil
	default:
		return 0, fmt.Errorf("beacon-query: unknown record type %q", s)
	}
}

func typeName(t responder.RecordType) string {
	switch t {
	case responder.TypeA:
		return "A"
	case responder.TypeAAAA:
		return "AAAA"
	case responder.TypePTR:
		return "PTR"
	case responder.TypeSRV:
		return "SRV"
	case responder.TypeTXT:
		return "TXT"
	case responder.TypeCNAME:
		return "CNAME"
	case responder.TypeNS:
		return "NS"
	default:
		return fmt.Sprintf("TYPE%d", uint16(t))
	}
}
