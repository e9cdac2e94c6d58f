package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"iacrules/internal/config"
	"iacrules/internal/manager"
	"iacrules/internal/rules"
	"iacrules/internal/templates"
	"iacrules/pkg/fileops"

	"github.com/spf13/cobra"
)

func catalogCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the rule catalog statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats := a.newManager().Stats()
			if asJSON {
				data, err := json.MarshalIndent(stats, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), manager.FormatStats(stats))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the statistics as JSON")
	return cmd
}

func templateCmd() *cobra.Command {
	var (
		name         string
		resourceType string
		output       string
	)

	cmd := &cobra.Command{
		Use:       "template <document>",
		Short:     "Generate a documentation template",
		Long:      "Generate one of: readme, changelog, terraform-docs, sample-readme.",
		ValidArgs: templates.Documents(),
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := templates.New().Render(args[0], name, resourceType)
			if err != nil {
				return err
			}

			if output == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), doc)
				return err
			}

			path := fileops.ExpandPath(output)
			if err := fileops.AtomicWriteFile(path, []byte(doc), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "module name (readme, sample-readme)")
	cmd.Flags().StringVar(&resourceType, "resource-type", templates.DefaultResourceType, "main resource type (readme)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}

func versionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s (server %s, catalog %s)\n",
				a.cfg.Server.Name, version, a.cfg.Server.Version, rules.CatalogVersion)
			return err
		},
	}
}

func configCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the iacrules config file",
		// The file may be missing or broken; subcommands must not load it.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}
	cmd.AddCommand(configInitCmd(a))
	return cmd
}

func configInitCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file holding the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.ConfigPath()
			if a.configPath != "" {
				path = fileops.ExpandPath(a.configPath)
			}

			_, err := os.Stat(path)
			switch {
			case err == nil && !force:
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
			case err != nil && !errors.Is(err, os.ErrNotExist):
				return fmt.Errorf("checking %s: %w", path, err)
			}

			cfg := config.DefaultConfig()
			if err := cfg.SaveTo(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
