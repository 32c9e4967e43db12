package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"serialtool/pkg/app"
	"serialtool/pkg/config"
	"serialtool/pkg/logger"
	"serialtool/pkg/serial"
)

func newConfigCmd(configDir *string) *cobra.Command {
	manager := func() *config.FileConfigManager {
		return config.NewFileConfigManager(*configDir)
	}

	cmd := &cobra.Command{
		Use:     "config",
		Aliases: []string{"profile"},
		Short:   "Manage saved line setting profiles",
		Long: `Manage saved line setting profiles.

A profile stores the port and line settings so a session can start from
them with 'serialtool --profile <name>' or 'serialtool config load <name>'.`,
	}

	cmd.AddCommand(newConfigSaveCmd(manager))
	cmd.AddCommand(&cobra.Command{
		Use:   "load <name>",
		Short: "Start the terminal from a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := manager().LoadConfig(args[0])
			if err != nil {
				return fmt.Errorf("error loading profile '%s': %w", args[0], err)
			}
			if err := logger.Init(""); err != nil {
				return err
			}
			defer logger.Close()
			return runInteractive(settings, app.DefaultOptions())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all saved profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListConfigs(cmd.OutOrStdout(), manager())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <name>",
		Short: "Show details of a saved profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowConfig(cmd.OutOrStdout(), manager(), args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm", "remove"},
		Short:   "Delete a saved profile",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := manager().DeleteConfig(args[0]); err != nil {
				return fmt.Errorf("error deleting profile '%s': %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' deleted successfully.\n", args[0])
			return nil
		},
	})

	return cmd
}

func newConfigSaveCmd(manager func() *config.FileConfigManager) *cobra.Command {
	var (
		line        lineFlags
		description string
	)

	cmd := &cobra.Command{
		Use:   "save <name>",
		Short: "Save a line setting profile",
		Long: `Save line settings under a name. Settings not given take the defaults.

Example:
  serialtool config save bench -p /dev/ttyUSB0 -b 9600`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			m := manager()

			settings := serial.DefaultSettings()
			line.apply(cmd.Flags(), &settings)

			if err := m.SaveConfig(name, settings); err != nil {
				return fmt.Errorf("error saving profile '%s': %w", name, err)
			}
			if cmd.Flags().Changed("description") {
				if err := m.SetConfigDescription(name, description); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Profile '%s' saved successfully.\n", name)
			fmt.Fprintf(out, "  Settings: %s\n", settings.String())
			return nil
		},
	}

	line.register(cmd.Flags())
	cmd.Flags().StringVar(&description, "description", "", "profile description")

	return cmd
}

func runListConfigs(w io.Writer, m *config.FileConfigManager) error {
	configs, err := m.ListConfigs()
	if err != nil {
		return fmt.Errorf("error listing profiles: %w", err)
	}

	if len(configs) == 0 {
		fmt.Fprintln(w, "No saved profiles found.")
		fmt.Fprintln(w, "\nUse 'serialtool config save <name>' to save a profile.")
		return nil
	}

	fmt.Fprintf(w, "Found %d saved profile(s):\n\n", len(configs))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPORT\tSETTINGS\tLAST USED\tCREATED")
	fmt.Fprintln(tw, "----\t----\t--------\t---------\t-------")

	for _, c := range configs {
		port := c.Settings.Port
		if port == "" {
			port = "(any)"
		}
		line := c.Settings
		line.Port = ""
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.Name,
			port,
			line.String(),
			c.LastUsedAt.Format("2006-01-02 15:04"),
			c.CreatedAt.Format("2006-01-02 15:04"))
	}

	return tw.Flush()
}

func runShowConfig(w io.Writer, m *config.FileConfigManager, name string) error {
	info, err := m.GetConfig(name)
	if err != nil {
		return fmt.Errorf("error loading profile '%s': %w", name, err)
	}

	s := info.Settings
	port := s.Port
	if port == "" {
		port = "(chosen at startup)"
	}

	fmt.Fprintf(w, "Profile: %s\n", info.Name)
	fmt.Fprintln(w, strings.Repeat("=", len(info.Name)+9))
	if info.Description != "" {
		fmt.Fprintf(w, "Description:  %s\n", info.Description)
	}
	fmt.Fprintf(w, "Port:         %s\n", port)
	fmt.Fprintf(w, "Baud Rate:    %d\n", s.BaudRate)
	fmt.Fprintf(w, "Data Bits:    %d\n", s.DataBits)
	fmt.Fprintf(w, "Stop Bits:    %d\n", s.StopBits)
	fmt.Fprintf(w, "Parity:       %s\n", s.Parity)
	fmt.Fprintf(w, "Flow Control: %s\n", s.FlowControl)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Created:      %s\n", info.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Last Used:    %s\n", info.LastUsedAt.Format(time.RFC3339))

	return nil
}
