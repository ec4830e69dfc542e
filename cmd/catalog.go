package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lehigh-university-libraries/humandex/internal/app"
	"github.com/lehigh-university-libraries/humandex/internal/catalog"
	"github.com/lehigh-university-libraries/humandex/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Browse and manage saved entries",
		Long: `Commands for the local catalog: list, search, inspect, delete,
export, import and summarize saved entries.`,
	}

	cmd.AddCommand(newCatalogListCmd(opts))
	cmd.AddCommand(newCatalogSearchCmd(opts))
	cmd.AddCommand(newCatalogShowCmd(opts))
	cmd.AddCommand(newCatalogDeleteCmd(opts))
	cmd.AddCommand(newCatalogExportCmd(opts))
	cmd.AddCommand(newCatalogImportCmd(opts))
	cmd.AddCommand(newCatalogStatsCmd(opts))

	return cmd
}

// withStore opens the catalog, runs fn and closes it.
func withStore(ctx context.Context, opts *rootOptions, fn func(*catalog.Store) error) error {
	cfg, err := opts.mustConfig()
	if err != nil {
		return err
	}
	store, err := app.OpenCatalog(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newCatalogListCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries, newest first",
		Example: `  humandex catalog list
  humandex catalog list --limit 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), opts, func(store *catalog.Store) error {
				entries, err := store.GetAll(cmd.Context())
				if err != nil {
					return err
				}
				if limit > 0 && len(entries) > limit {
					entries = entries[:limit]
				}
				return printEntryTable(cmd.OutOrStdout(), entries)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of entries to show (0 = all)")

	return cmd
}

func newCatalogSearchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find entries by species name or type",
		Example: `  humandex catalog search fire
  humandex catalog search "desk goblin"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), opts, func(store *catalog.Store) error {
				entries, err := store.Search(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printEntryTable(cmd.OutOrStdout(), entries)
			})
		},
	}
}

func newCatalogShowCmd(opts *rootOptions) *cobra.Command {
	var withImage bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one entry as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), opts, func(store *catalog.Store) error {
				entry, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					if errors.Is(err, catalog.ErrNotFound) {
						return fmt.Errorf("no entry with id %q", args[0])
					}
					return err
				}
				if !withImage {
					entry.ImageBase64 = ""
				}
				data, err := yaml.Marshal(entry)
				if err != nil {
					return fmt.Errorf("failed to marshal YAML: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}

	cmd.Flags().BoolVar(&withImage, "with-image", false, "Include the base64 image payload")

	return cmd
}

func newCatalogDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), opts, func(store *catalog.Store) error {
				if err := store.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newCatalogExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all entries",
		Long: `Writes every entry to Parquet, JSONL or YAML. YAML output leaves out
the image payloads.`,
		Example: `  # Parquet backup including images
  humandex catalog export --format parquet --output dex.parquet

  # YAML summary to stdout
  humandex catalog export --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = formatFromPath(output)
			}
			var export func(io.Writer, []models.SavedEntry) error
			switch format {
			case "parquet":
				export = catalog.ExportParquet
			case "jsonl":
				export = catalog.ExportJSONL
			case "yaml":
				export = catalog.ExportYAML
			default:
				return fmt.Errorf("unsupported export format %q (use parquet, jsonl or yaml)", format)
			}
			if format == "parquet" && output == "" {
				return fmt.Errorf("parquet export needs --output")
			}

			return withStore(cmd.Context(), opts, func(store *catalog.Store) error {
				entries, err := store.GetAll(cmd.Context())
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if output != "" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create output file: %w", err)
					}
					defer f.Close()
					w = f
				}
				if err := export(w, entries); err != nil {
					return err
				}
				if output != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d entries to %s\n", len(entries), output)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Export format: parquet, jsonl or yaml (default from --output extension, else yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")

	return cmd
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return "parquet"
	case ".jsonl":
		return "jsonl"
	default:
		return "yaml"
	}
}

func newCatalogImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import entries from a Parquet, JSONL or JSON file",
		Long: `Upserts entries from an export file. Entries keep their ids and
timestamps, so importing the same file twice is harmless.`,
		Example: `  humandex catalog import dex.parquet`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := catalog.NewLoader(args[0]).Load()
			if err != nil {
				return err
			}
			return withStore(cmd.Context(), opts, func(store *catalog.Store) error {
				imported := 0
				for _, e := range entries {
					if e.ID == "" {
						continue
					}
					if err := store.Put(cmd.Context(), e); err != nil {
						return fmt.Errorf("failed to import %s: %w", e.ID, err)
					}
					imported++
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d entries\n", imported, len(entries))
				return nil
			})
		},
	}
}

func newCatalogStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd.Context(), opts, func(store *catalog.Store) error {
				entries, err := store.GetAll(cmd.Context())
				if err != nil {
					return err
				}
				data, err := yaml.Marshal(catalog.Summarize(entries))
				if err != nil {
					return fmt.Errorf("failed to marshal YAML: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
}

func printEntryTable(out io.Writer, entries []models.SavedEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No entries")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSPECIES\tTYPES\tBST\tCAPTURED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			e.ID,
			e.SpeciesName,
			strings.Join(e.Types, "/"),
			catalog.BaseStatTotal(e.Stats),
			time.UnixMilli(e.Timestamp).Format(time.RFC3339),
		)
	}
	return tw.Flush()
}
