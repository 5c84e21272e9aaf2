package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/odooscope/odooscope/internal/analyzer"
	"github.com/odooscope/odooscope/internal/config"
	"github.com/odooscope/odooscope/internal/export"
	"github.com/odooscope/odooscope/internal/fetch"
	"github.com/odooscope/odooscope/internal/parser"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := &cobra.Command{
		Use:     "odooscope",
		Short:   "OdooScope - Odoo module structure analyzer",
		Long:    `OdooScope statically analyzes an Odoo module and reports its models, views, security rules and dependencies.`,
		Version: version,
	}

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(qualityCmd())
	rootCmd.AddCommand(graphCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadModule resolves the module root (local path or cloned repo) and parses
// it. The returned cleanup removes any clone scratch space.
func loadModule(ctx context.Context, path, repoURL, subdir string) (*parser.Module, func(), error) {
	cleanup := func() {}

	if repoURL != "" {
		info, err := fetch.ParseRepoURL(repoURL)
		if err != nil {
			return nil, cleanup, err
		}
		svc := fetch.NewService(os.TempDir(), os.Getenv("GIT_TOKEN"))
		clone, err := svc.Clone(ctx, info)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { svc.Cleanup(clone) }
		path = clone.Path
		if subdir != "" {
			path = filepath.Join(clone.Path, subdir)
		}
	}

	p := parser.NewModuleParser(path)
	if proj, err := config.LoadProjectConfig(path); err == nil {
		p.ModelsDir = proj.ModelsDir
		p.ViewsDir = proj.ViewsDir
		p.SecurityDir = proj.SecurityDir
	}

	mod, err := p.Parse(ctx)
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return mod, cleanup, nil
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("repo", "r", "", "Git repository URL containing the module")
	cmd.Flags().String("subdir", "", "Module directory inside the repository")
}

func resolveSource(cmd *cobra.Command, args []string) (path, repoURL, subdir string, err error) {
	repoURL, _ = cmd.Flags().GetString("repo")
	subdir, _ = cmd.Flags().GetString("subdir")
	if len(args) > 0 {
		path = args[0]
	}
	if (path == "") == (repoURL == "") {
		return "", "", "", fmt.Errorf("provide either a module path argument or --repo")
	}
	return path, repoURL, subdir, nil
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [module-path]",
		Short: "Analyze a module and print a structural summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, repoURL, subdir, err := resolveSource(cmd, args)
			if err != nil {
				return err
			}
			mod, cleanup, err := loadModule(cmd.Context(), path, repoURL, subdir)
			if err != nil {
				return err
			}
			defer cleanup()

			printSummary(mod)
			return nil
		},
	}
	addSourceFlags(cmd)
	return cmd
}

func printSummary(mod *parser.Module) {
	fmt.Printf("Module: %s (%s)\n", mod.Name, mod.Path)
	fmt.Printf("Models: %d  Views: %d  Security rules: %d  Menus: %d\n\n",
		len(mod.Models), len(mod.Views), len(mod.SecurityRules), len(mod.MenuItems))

	names := make([]string, 0, len(mod.Models))
	for name := range mod.Models {
		names = append(names, string(name))
	}
	sort.Strings(names)

	deps := analyzer.AnalyzeDependencies(mod)
	for _, name := range names {
		model := mod.Models[parser.ModelRef(name)]
		fmt.Printf("%s: %s\n", name, orNone(model.Description))
		fmt.Printf("  fields: %d  methods: %d\n", len(model.Fields), len(model.Methods))
		if targets := deps.Models[parser.ModelRef(name)]; len(targets) > 0 {
			sorted := make([]string, 0, len(targets))
			for t := range targets {
				sorted = append(sorted, string(t))
			}
			sort.Strings(sorted)
			fmt.Printf("  depends on: %v\n", sorted)
		}
	}
}

func orNone(s string) string {
	if s == "" {
		return "(no description)"
	}
	return s
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [module-path]",
		Short: "Print aggregate module statistics as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, repoURL, subdir, err := resolveSource(cmd, args)
			if err != nil {
				return err
			}
			mod, cleanup, err := loadModule(cmd.Context(), path, repoURL, subdir)
			if err != nil {
				return err
			}
			defer cleanup()

			return printJSON(analyzer.ComputeStats(mod))
		},
	}
	addSourceFlags(cmd)
	return cmd
}

func qualityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quality [module-path]",
		Short: "Print code-quality findings as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, repoURL, subdir, err := resolveSource(cmd, args)
			if err != nil {
				return err
			}
			mod, cleanup, err := loadModule(cmd.Context(), path, repoURL, subdir)
			if err != nil {
				return err
			}
			defer cleanup()

			return printJSON(analyzer.AnalyzeQuality(mod))
		},
	}
	addSourceFlags(cmd)
	return cmd
}

func graphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph [module-path]",
		Short: "Print the relationship graph (nodes and edges) as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, repoURL, subdir, err := resolveSource(cmd, args)
			if err != nil {
				return err
			}
			mod, cleanup, err := loadModule(cmd.Context(), path, repoURL, subdir)
			if err != nil {
				return err
			}
			defer cleanup()

			nodes, edges := analyzer.Graph(mod)
			return printJSON(map[string]any{
				"nodes":       nodes,
				"edges":       edges,
				"edge_counts": analyzer.EdgeTypeCounts(edges),
			})
		},
	}
	addSourceFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export [module-path]",
		Short: "Export the structural model as a JSON document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, repoURL, subdir, err := resolveSource(cmd, args)
			if err != nil {
				return err
			}
			mod, cleanup, err := loadModule(cmd.Context(), path, repoURL, subdir)
			if err != nil {
				return err
			}
			defer cleanup()

			if output == "-" {
				return export.BuildDocument(mod).WriteJSON(os.Stdout)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			if err := export.BuildDocument(mod).WriteJSON(f); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", output)
			return nil
		},
	}
	addSourceFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "module_data.json", "Output file, or - for stdout")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
