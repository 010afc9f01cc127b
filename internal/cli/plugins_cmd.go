package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"github.com/spinframework/spin-cli/internal/config"
	"github.com/spinframework/spin-cli/internal/meta"
	"github.com/spinframework/spin-cli/internal/output"
	"github.com/spinframework/spin-cli/internal/plugin"
)

// newPluginsCommand creates the "plugins" management command group.
func newPluginsCommand(cfg *config.Config, logger *slog.Logger) *cobra.Command {
	mgr := plugin.NewManager(plugin.ManagerConfig{
		Root:   cfg.PluginsDir,
		Logger: logger,
	})

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Install and manage Spin plugins",
	}

	cmd.AddCommand(
		newPluginsInstallCommand(mgr),
		newPluginsUninstallCommand(mgr),
		newPluginsUpgradeCommand(mgr, cfg, logger),
		newPluginsListCommand(mgr, cfg),
		newPluginsSearchCommand(mgr, cfg),
		newPluginsUpdateCommand(mgr, cfg),
	)

	return cmd
}

// newPluginsInstallCommand creates the "plugins install" command.
func newPluginsInstallCommand(mgr *plugin.Manager) *cobra.Command {
	var (
		file           string
		url            string
		version        string
		yes            bool
		overrideCompat bool
	)

	cmd := &cobra.Command{
		Use:   "install [name]",
		Short: "Install a plugin from the registry, a manifest file, or a URL",
		Long: `Install a plugin from the plugins registry, a local manifest file, or a
remote manifest URL. The plugin's binary and manifest are copied into the
local Spin plugins directory.

Examples:
  spin plugins install cloud                 # latest compatible version
  spin plugins install cloud --version 0.7.0
  spin plugins install --file ./cloud.json
  spin plugins install --url https://example.com/cloud.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			loc, err := plugin.NewManifestLocation(name, file, url, version)
			if err != nil {
				return err
			}

			manifest, err := mgr.GetManifest(cmd.Context(), loc, overrideCompat, meta.Version)
			if err != nil {
				return err
			}

			// Downgrades are only allowed via the upgrade subcommand.
			_, err = tryInstall(cmd.Context(), mgr, manifest, loc, installOptions{
				yes:            yes,
				overrideCompat: overrideCompat,
				out:            cmd.OutOrStdout(),
			})
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to a local plugin manifest")
	cmd.Flags().StringVarP(&url, "url", "u", "", "URL of a remote plugin manifest")
	cmd.Flags().StringVarP(&version, "version", "v", "", "Specific version to install from the registry")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the installation confirmation prompt")
	cmd.Flags().BoolVar(&overrideCompat, "override-compatibility-check", false,
		"Install even if the plugin fails the Spin compatibility check")
	return cmd
}

// newPluginsUninstallCommand creates the "plugins uninstall" command.
func newPluginsUninstallCommand(mgr *plugin.Manager) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <name>",
		Short: "Remove a plugin from your installation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			removed, err := mgr.Uninstall(name)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if removed {
				fmt.Fprintf(out, "Plugin %s was successfully uninstalled\n", name)
			} else {
				fmt.Fprintf(out, "Plugin %s isn't present, so no changes were made\n", name)
			}
			return nil
		},
	}
}

// newPluginsUpgradeCommand creates the "plugins upgrade" command.
func newPluginsUpgradeCommand(mgr *plugin.Manager, cfg *config.Config, logger *slog.Logger) *cobra.Command {
	var (
		all            bool
		file           string
		url            string
		version        string
		yes            bool
		downgrade      bool
		overrideCompat bool
	)

	cmd := &cobra.Command{
		Use:   "upgrade [name]",
		Short: "Upgrade one or all plugins",
		Long: `Upgrade plugins by reinstalling the latest or a specified version.
With no arguments, presents the installed plugins that have a newer
compatible version in the catalogue and lets you pick which to upgrade.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			if all && (name != "" || file != "" || url != "" || version != "") {
				return errors.New("--all cannot be combined with a plugin name, --file, --url, or --version")
			}

			if _, err := os.Stat(mgr.Store().InstalledManifestsDir()); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No currently installed plugins to upgrade.")
				return nil
			}

			opts := installOptions{
				yes:            yes,
				overrideCompat: overrideCompat,
				allowDowngrade: downgrade,
				out:            cmd.OutOrStdout(),
			}
			switch {
			case all:
				return upgradeAll(cmd.Context(), mgr, logger, opts)
			case name == "" && file == "" && url == "":
				return upgradeMultiselect(cmd.Context(), mgr, cfg, opts)
			default:
				return upgradeOne(cmd.Context(), mgr, name, file, url, version, opts)
			}
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Upgrade all installed plugins")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to a local plugin manifest")
	cmd.Flags().StringVarP(&url, "url", "u", "", "URL of a remote plugin manifest")
	cmd.Flags().StringVarP(&version, "version", "v", "", "Specific version to upgrade to from the registry")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the installation confirmation prompt")
	cmd.Flags().BoolVarP(&downgrade, "downgrade", "d", false, "Allow installing a version older than the installed one")
	cmd.Flags().BoolVar(&overrideCompat, "override-compatibility-check", false,
		"Upgrade even if the plugin fails the Spin compatibility check")
	return cmd
}

// upgradeAll reinstalls the latest version of every installed plugin.
// Each candidate is an independent unit: a failure is logged and the
// remaining plugins are still processed.
func upgradeAll(ctx context.Context, mgr *plugin.Manager, logger *slog.Logger, opts installOptions) error {
	names, err := mgr.Store().InstalledNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		loc := plugin.RegistryLocation(name, "")
		manifest, err := mgr.GetManifest(ctx, loc, opts.overrideCompat, meta.Version)
		if err != nil {
			logger.Warn("could not upgrade plugin", "name", name, "error", err)
			continue
		}
		if _, err := tryInstall(ctx, mgr, manifest, loc, opts); err != nil {
			logger.Warn("could not upgrade plugin", "name", name, "error", err)
		}
	}
	return nil
}

// upgradeOne upgrades a single plugin; any failure aborts immediately.
func upgradeOne(ctx context.Context, mgr *plugin.Manager, name, file, url, version string, opts installOptions) error {
	loc, err := plugin.NewManifestLocation(name, file, url, version)
	if err != nil {
		return err
	}
	manifest, err := mgr.GetManifest(ctx, loc, opts.overrideCompat, meta.Version)
	if err != nil {
		return err
	}
	_, err = tryInstall(ctx, mgr, manifest, loc, opts)
	return err
}

// upgradeMultiselect is the default upgrade experience: pick from the
// installed plugins that are in the catalogue, compatible, and have a
// different version available.
func upgradeMultiselect(ctx context.Context, mgr *plugin.Manager, cfg *config.Config, opts installOptions) error {
	catalogue, err := listCataloguePlugins(ctx, mgr, cfg)
	if err != nil {
		return err
	}
	installed, err := listInstalledPlugins(mgr)
	if err != nil {
		return err
	}

	type upgradeCandidate struct {
		current  plugin.Descriptor
		manifest *plugin.Manifest
	}
	var eligible []upgradeCandidate
	for _, inst := range installed {
		inCatalogue := false
		for _, cat := range catalogue {
			if inst.Manifest.Equal(cat.Manifest) && cat.Compatibility.IsCompatible() {
				inCatalogue = true
				break
			}
		}
		if !inCatalogue {
			continue
		}
		manifest, err := mgr.GetManifest(ctx, plugin.RegistryLocation(inst.Name, ""), false, meta.Version)
		if err != nil {
			continue
		}
		if manifest.Version != inst.Version {
			eligible = append(eligible, upgradeCandidate{current: inst, manifest: manifest})
		}
	}

	if len(eligible) == 0 {
		fmt.Fprintln(os.Stderr, "No plugins found to upgrade")
		return nil
	}

	options := make([]huh.Option[int], len(eligible))
	for i, c := range eligible {
		label := fmt.Sprintf("%s from version %s to %s", c.current.Name, c.current.Version, c.manifest.Version)
		options[i] = huh.NewOption(label, i)
	}

	var selected []int
	err = huh.NewMultiSelect[int]().
		Title("Select plugins to upgrade").
		Options(options...).
		Value(&selected).
		Run()
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		fmt.Fprintln(os.Stderr, "No plugins selected")
		return nil
	}

	// Selection is the confirmation.
	chosenOpts := opts
	chosenOpts.yes = true
	for _, idx := range selected {
		c := eligible[idx]
		loc := plugin.RegistryLocation(c.current.Name, "")
		if _, err := tryInstall(ctx, mgr, c.manifest, loc, chosenOpts); err != nil {
			return err
		}
	}
	return nil
}

// newPluginsListCommand creates the "plugins list" command.
func newPluginsListCommand(mgr *plugin.Manager, cfg *config.Config) *cobra.Command {
	var (
		installedOnly bool
		filter        string
		format        string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available or installed plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			var descriptors []plugin.Descriptor
			var err error
			if installedOnly {
				descriptors, err = listInstalledPlugins(mgr)
			} else {
				descriptors, err = listCatalogueAndInstalledPlugins(cmd.Context(), mgr, cfg)
			}
			if err != nil {
				return err
			}

			plugin.SortDescriptors(descriptors)
			descriptors = plugin.FilterDescriptors(descriptors, filter)

			formatter, err := output.NewFormatter(format)
			if err != nil {
				return err
			}
			return formatter.Format(cmd.OutOrStdout(), descriptors)
		},
	}

	cmd.Flags().BoolVar(&installedOnly, "installed", false, "List only installed plugins")
	cmd.Flags().StringVar(&filter, "filter", "", "Only show plugins whose name contains this string")
	cmd.Flags().StringVarP(&format, "output", "o", cfg.Output, "Output format: plain, json, table")
	return cmd
}

// newPluginsSearchCommand creates the "plugins search" command.
func newPluginsSearchCommand(mgr *plugin.Manager, cfg *config.Config) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "search [filter]",
		Short: "Search the catalogue for plugins by name",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}

			descriptors, err := listCatalogueAndInstalledPlugins(cmd.Context(), mgr, cfg)
			if err != nil {
				return err
			}

			plugin.SortDescriptors(descriptors)
			descriptors = plugin.FilterDescriptors(descriptors, filter)

			formatter, err := output.NewFormatter(format)
			if err != nil {
				return err
			}
			return formatter.Format(cmd.OutOrStdout(), descriptors)
		},
	}

	cmd.Flags().StringVarP(&format, "output", "o", cfg.Output, "Output format: plain, json, table")
	return cmd
}

// newPluginsUpdateCommand creates the "plugins update" command.
func newPluginsUpdateCommand(mgr *plugin.Manager, cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Fetch the latest Spin plugins from the plugins registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mgr.UpdateRegistry(cmd.Context(), cfg.RegistryURL); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Plugin information updated successfully")
			return nil
		},
	}
}

func listInstalledPlugins(mgr *plugin.Manager) ([]plugin.Descriptor, error) {
	manifests, err := mgr.Store().InstalledManifests()
	if err != nil {
		return nil, err
	}
	descriptors := make([]plugin.Descriptor, 0, len(manifests))
	for _, m := range manifests {
		descriptors = append(descriptors, plugin.DescriptorFor(m, true, meta.Version))
	}
	return descriptors, nil
}

func listCataloguePlugins(ctx context.Context, mgr *plugin.Manager, cfg *config.Config) ([]plugin.Descriptor, error) {
	if err := mgr.UpdateRegistry(ctx, cfg.RegistryURL); err != nil {
		fmt.Fprintln(os.Stderr, "Couldn't update plugins registry cache - using most recent")
	}

	manifests, err := mgr.Store().CatalogueManifests()
	if err != nil {
		return nil, err
	}
	descriptors := make([]plugin.Descriptor, 0, len(manifests))
	for _, m := range manifests {
		descriptors = append(descriptors, plugin.DescriptorFor(m, mgr.Store().IsInstalled(m), meta.Version))
	}
	return descriptors, nil
}

func listCatalogueAndInstalledPlugins(ctx context.Context, mgr *plugin.Manager, cfg *config.Config) ([]plugin.Descriptor, error) {
	catalogue, err := listCataloguePlugins(ctx, mgr, cfg)
	if err != nil {
		return nil, err
	}
	installed, err := listInstalledPlugins(mgr)
	if err != nil {
		return nil, err
	}
	return plugin.MergeDescriptors(catalogue, installed), nil
}

type installOptions struct {
	yes            bool
	overrideCompat bool
	allowDowngrade bool
	out            io.Writer
}

// tryInstall plans and, on an Install verdict, performs the installation.
// Returns false when nothing was installed (already up to date, or the
// user declined).
func tryInstall(ctx context.Context, mgr *plugin.Manager, manifest *plugin.Manifest, loc plugin.ManifestLocation, opts installOptions) (bool, error) {
	plan, err := mgr.CheckManifest(manifest, meta.Version, opts.overrideCompat, opts.allowDowngrade)
	if err != nil {
		return false, err
	}
	if plan.Action == plugin.ActionNone {
		fmt.Fprintf(opts.out, "Plugin %q is already installed with version %s.\n", plan.Name, plan.Version)
		return false, nil
	}

	pkg, err := plugin.GetPackage(manifest)
	if err != nil {
		return false, err
	}

	if !opts.yes {
		ok, err := confirmInstall(manifest, pkg)
		if err != nil {
			return false, err
		}
		if !ok {
			fmt.Fprintf(opts.out, "Plugin %q will not be installed\n", manifest.Name)
			return false, nil
		}
	}

	installed, err := mgr.Install(ctx, manifest, pkg, loc)
	if err != nil {
		return false, err
	}
	fmt.Fprintf(opts.out, "Plugin %q was installed successfully!\n", installed)

	if manifest.Description != "" {
		fmt.Fprintf(opts.out, "\nDescription:\n\t%s\n", manifest.Description)
	}
	if homepage := manifest.HomepageURL(); homepage != nil && homepage.Scheme == "https" {
		fmt.Fprintf(opts.out, "\nHomepage:\n\t%s\n", homepage)
	}
	return true, nil
}

func confirmInstall(manifest *plugin.Manifest, pkg *plugin.Package) (bool, error) {
	prompt := fmt.Sprintf("Install plugin %q with license %s from %s?",
		manifest.Name, manifest.License, pkg.URL)
	var ok bool
	if err := huh.NewConfirm().Title(prompt).Value(&ok).Run(); err != nil {
		return false, err
	}
	return ok, nil
}
