package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/dns-automate/zone-manager/internal/app"
	"github.com/dns-automate/zone-manager/internal/route53"
)

func newZonesCommand(c *Context) *cobra.Command {
	zonesCmd := &cobra.Command{
		Use:     "zones",
		Aliases: []string{"zone"},
		Short:   "Manage hosted zones",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List hosted zones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				zones, err := a.Zones.ListZones(ctx)
				if err != nil {
					return err
				}
				printZones(cmd.OutOrStdout(), zones)
				return nil
			})
		},
	}

	var comment string
	createCmd := &cobra.Command{
		Use:   "create <domain>",
		Short: "Create a public hosted zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				zone, err := a.Zones.CreateZone(ctx, args[0], comment)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Created hosted zone %s (%s)\n", route53.DisplayName(zone.Name), zone.ID)
				for _, ns := range zone.NameServers {
					fmt.Fprintf(out, "  NS %s\n", ns)
				}
				return nil
			})
		},
	}
	createCmd.Flags().StringVar(&comment, "comment", "", "hosted zone comment")

	showCmd := &cobra.Command{
		Use:   "show <domain>",
		Short: "Show a hosted zone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				zone, err := a.Zones.GetZone(ctx, args[0])
				if err != nil {
					return err
				}
				printZones(cmd.OutOrStdout(), []route53.HostedZone{*zone})
				return nil
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <domain>",
		Short: "Delete a hosted zone that holds only its default records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				info, err := a.Zones.DeleteZone(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted hosted zone %s (change %s, %s)\n", args[0], info.ID, info.Status)
				return nil
			})
		},
	}

	zonesCmd.AddCommand(listCmd, createCmd, showCmd, deleteCmd)
	return zonesCmd
}

func printZones(w io.Writer, zones []route53.HostedZone) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "ID", "Records", "Comment"})
	table.SetAutoWrapText(false)
	for _, z := range zones {
		table.Append([]string{
			route53.DisplayName(z.Name),
			z.ID.String(),
			strconv.FormatInt(z.RecordCount, 10),
			z.Comment,
		})
	}
	table.Render()
}

func printRecords(w io.Writer, records []route53.RecordSet) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Name", "Type", "TTL", "Value"})
	table.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_LEFT})
	table.SetAutoWrapText(false)
	for _, r := range records {
		values := r.Values
		if r.IsAlias() {
			values = []string{"ALIAS " + r.Alias.DNSName}
		}
		first := ""
		if len(values) > 0 {
			first = truncate(values[0])
		}
		table.Append([]string{r.Name, r.Type, strconv.FormatInt(r.TTL, 10), first})
		for _, v := range values[min(1, len(values)):] {
			table.Append([]string{"", "", "", truncate(v)})
		}
	}
	table.Render()
}

func truncate(v string) string {
	if len(v) > 64 {
		return v[:64] + "..."
	}
	return strings.TrimSpace(v)
}
