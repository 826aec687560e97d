package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"siteimg/batch"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate every derivative referenced by the content records",
		Long: `Scan the content directory for heroImage, coverImage and photos references,
add the site logo, and write the WebP derivatives of each source image.
Derivatives that already exist are skipped.

Missing source images are listed in the summary but do not fail the run.
A source that cannot be decoded or written fails the run after every other
image has been processed.`,
		Args: noArgs,
		RunE: runGenerate,
	}
	addGenerateFlags(cmd)
	return cmd
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("workers", "w", 0, "Source images processed concurrently (overrides config)")
	cmd.Flags().Bool("edition-dirs", false, "Also generate gallery images for files in per-edition folders")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		a.cfg.Workers = n
	} else if n < 0 {
		return usageError{fmt.Errorf("--workers must be positive, got %d", n)}
	}
	if e, _ := cmd.Flags().GetBool("edition-dirs"); e {
		a.cfg.Gallery.IncludeEditionDirs = true
	}

	_, err = batch.Run(cmd.Context(), a.batchOptions())
	return err
}
