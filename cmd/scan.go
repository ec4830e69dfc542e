package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/lehigh-university-libraries/humandex/internal/app"
	"github.com/lehigh-university-libraries/humandex/internal/images"
	"github.com/lehigh-university-libraries/humandex/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newScanCmd(opts *rootOptions) *cobra.Command {
	var tone string

	cmd := &cobra.Command{
		Use:   "scan <image-path|url>",
		Short: "Analyze one photo, save it and narrate it",
		Long: `Runs a single capture: the photo is analyzed with the chosen tone,
saved to the catalog, and its description is narrated to a WAV file in
the configured audio output directory.`,
		Example: `  # Scan a local photo with the default (spicy) tone
  humandex scan ./me.jpg

  # Scan a photo from a URL with the faithful tone
  humandex scan https://example.com/person.png --tone faithful`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.mustConfig()
			if err != nil {
				return err
			}
			t, err := models.ParseTone(tone)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			shutdownTracing, err := initTracing(ctx, cfg.Tracing, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = shutdownTracing(context.Background()) }()

			data, info, err := images.NewFetcher().Load(ctx, args[0])
			if err != nil {
				return err
			}

			a, err := app.New(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Session.SetTone(t); err != nil {
				return err
			}

			record, err := a.Session.Capture(ctx, data)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# %s image, %dx%d, tone %s\n", info.Format, info.Width, info.Height, t)
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(record); err != nil {
				return fmt.Errorf("failed to marshal YAML: %w", err)
			}
			if err := enc.Close(); err != nil {
				return err
			}

			if a.Session.Snapshot().HasAudio {
				fmt.Fprintf(out, "# narration: %s\n", filepath.Join(cfg.Audio.OutputDir, "narration.wav"))
			} else {
				fmt.Fprintln(out, "# no narration")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tone, "tone", "t", string(models.DefaultTone), "Analysis tone: faithful, normal or spicy")

	return cmd
}
