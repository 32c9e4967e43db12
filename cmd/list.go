package cmd

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"serialtool/pkg/serial"
)

// Swapped out by tests
var detailedPorts = serial.GetDetailedPortsList

type listOptions struct {
	details bool
	format  string
}

func newListCmd() *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available serial ports",
		Long: `List all available serial ports on the system.

On different platforms:
  - Windows: Lists COM ports
  - Linux: Lists /dev/tty* devices
  - macOS: Lists /dev/cu.* and /dev/tty.* devices`,
		Aliases: []string{"ls", "ports"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.details, "details", "d", false, "show detailed port information")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "table", "output format (table, csv, json)")

	return cmd
}

func runList(w io.Writer, opts *listOptions) error {
	switch opts.format {
	case "table", "csv", "json":
	default:
		return fmt.Errorf("unknown format %q, use table, csv or json", opts.format)
	}

	ports, err := detailedPorts()
	if err != nil {
		return fmt.Errorf("error listing ports: %w", err)
	}

	switch opts.format {
	case "csv":
		return printPortsCSV(w, ports, opts.details)
	case "json":
		return printPortsJSON(w, ports, opts.details)
	default:
		return printPortsTable(w, ports, opts.details)
	}
}

func printPortsTable(w io.Writer, ports []serial.PortInfo, details bool) error {
	if len(ports) == 0 {
		fmt.Fprintln(w, "No serial ports found.")
		return nil
	}

	fmt.Fprintf(w, "Found %d serial port(s):\n", len(ports))

	if !details {
		for _, p := range ports {
			fmt.Fprintf(w, "  %s\n", p.Name)
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  PORT\tUSB\tVID:PID\tPRODUCT\tSERIAL")
	for _, p := range ports {
		usb, ids := "no", ""
		if p.IsUSB {
			usb = "yes"
			ids = p.VID + ":" + p.PID
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", p.Name, usb, ids, p.Product, p.SerialNumber)
	}
	return tw.Flush()
}

func printPortsCSV(w io.Writer, ports []serial.PortInfo, details bool) error {
	cw := csv.NewWriter(w)

	if details {
		cw.Write([]string{"port", "is_usb", "vid", "pid", "product", "serial_number"})
		for _, p := range ports {
			cw.Write([]string{p.Name, strconv.FormatBool(p.IsUSB), p.VID, p.PID, p.Product, p.SerialNumber})
		}
	} else {
		cw.Write([]string{"port"})
		for _, p := range ports {
			cw.Write([]string{p.Name})
		}
	}

	cw.Flush()
	return cw.Error()
}

func printPortsJSON(w io.Writer, ports []serial.PortInfo, details bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if details {
		if ports == nil {
			ports = []serial.PortInfo{}
		}
		return enc.Encode(ports)
	}

	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.Name)
	}
	return enc.Encode(names)
}
