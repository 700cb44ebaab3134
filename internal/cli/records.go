package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/miekg/dns"
	"github.com/spf13/cobra"

	"github.com/dns-automate/zone-manager/internal/app"
	"github.com/dns-automate/zone-manager/internal/route53"
)

const defaultTTL = 300

type recordFlags struct {
	name   string
	rtype  string
	values []string
	ttl    int64
}

func (f *recordFlags) register(cmd *cobra.Command, prefix, what string) {
	cmd.Flags().StringVar(&f.name, prefix+"name", "@", what+" record name, relative to the zone or fully qualified")
	cmd.Flags().StringVar(&f.rtype, prefix+"type", "", what+" record type, e.g. A, CNAME, TXT")
	cmd.Flags().StringArrayVar(&f.values, prefix+"value", nil, what+" record value (repeatable)")
	cmd.Flags().Int64Var(&f.ttl, prefix+"ttl", defaultTTL, what+" record TTL in seconds")
	_ = cmd.MarkFlagRequired(prefix + "type")
	_ = cmd.MarkFlagRequired(prefix + "value")
}

func (f *recordFlags) record(zone string) route53.RecordSet {
	return route53.RecordSet{
		Name:   qualify(f.name, zone),
		Type:   strings.ToUpper(f.rtype),
		TTL:    f.ttl,
		Values: f.values,
	}
}

// qualify turns a zone-relative name into a fully qualified one. "@" is
// the zone apex.
func qualify(name, zone string) string {
	zone = dns.Fqdn(zone)
	name = strings.TrimSpace(name)
	switch {
	case name == "" || name == "@":
		return zone
	case dns.IsFqdn(name):
		return name
	case dns.IsSubDomain(zone, dns.Fqdn(name)):
		return dns.Fqdn(name)
	default:
		return name + "." + zone
	}
}

func newRecordsCommand(c *Context) *cobra.Command {
	recordsCmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record", "rr"},
		Short:   "Manage DNS records in a hosted zone",
	}

	listCmd := &cobra.Command{
		Use:   "list <zone>",
		Short: "List the records in a hosted zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				records, err := a.Zones.ListRecords(ctx, args[0])
				if err != nil {
					return err
				}
				printRecords(cmd.OutOrStdout(), records)
				return nil
			})
		},
	}

	var upsert recordFlags
	upsertCmd := &cobra.Command{
		Use:   "upsert <zone>",
		Short: "Create a record or replace the one with the same name and type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				record := upsert.record(args[0])
				info, err := a.Zones.UpsertRecord(ctx, args[0], record)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Upserted %s %s (change %s, %s)\n", record.Name, record.Type, info.ID, info.Status)
				return nil
			})
		},
	}
	upsert.register(upsertCmd, "", "")

	var del recordFlags
	deleteCmd := &cobra.Command{
		Use:   "delete <zone>",
		Short: "Delete a record; TTL and values must match the existing record exactly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				record := del.record(args[0])
				info, err := a.Zones.DeleteRecord(ctx, args[0], record)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s (change %s, %s)\n", record.Name, record.Type, info.ID, info.Status)
				return nil
			})
		},
	}
	del.register(deleteCmd, "", "")

	var oldRec, newRec recordFlags
	editCmd := &cobra.Command{
		Use:   "edit <zone>",
		Short: "Replace a record, renaming or retyping it atomically if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				from, to := oldRec.record(args[0]), newRec.record(args[0])
				info, err := a.Zones.EditRecord(ctx, args[0], from, to)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Edited %s %s -> %s %s (change %s, %s)\n",
					from.Name, from.Type, to.Name, to.Type, info.ID, info.Status)
				return nil
			})
		},
	}
	oldRec.register(editCmd, "old-", "existing")
	newRec.register(editCmd, "", "replacement")

	recordsCmd.AddCommand(listCmd, upsertCmd, deleteCmd, editCmd)
	return recordsCmd
}
