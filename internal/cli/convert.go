package cmd

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/docmark/internal/fetcher"
	"github.com/rohmanhakim/docmark/internal/gateway"
	"github.com/rohmanhakim/docmark/internal/mdconvert"
	"github.com/rohmanhakim/docmark/internal/metadata"
	"github.com/rohmanhakim/docmark/pkg/failure"
)

var outputPath string

var convertCmd = &cobra.Command{
	Use:   "convert <url>",
	Short: "Fetch a remote document and convert it to Markdown.",
	Long: `Fetch one remote HTML document and print its Markdown conversion.

The fetch passes the full gateway sequence: URL validation, rate
acquisition, and the robots.txt check under the configured mode. A
denial aborts the conversion with the denial reason.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		target, err := url.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid url %q: %w", args[0], err)
		}

		policy, _ := InitPolicy()
		recorder := metadata.NewRecorder()

		gatedFetcher := fetcher.NewGatedFetcher(recorder, gateway.New(recorder))

		result, fetchErr := gatedFetcher.Fetch(
			cobraCmd.Context(),
			*target,
			policy,
			fetcher.KindDocument,
		)
		if fetchErr != nil {
			if failure.IsRecoverable(fetchErr) {
				return fmt.Errorf("fetch %s: %s (transient, retry may succeed)", target.String(), fetchErr.Message)
			}
			return fmt.Errorf("fetch %s: %s", target.String(), fetchErr.Message)
		}
		if result.Warned() {
			fmt.Fprintf(os.Stderr, "warning: robots.txt disallows %s; fetched anyway (robots-mode=warn)\n", target.String())
		}

		converted, convErr := mdconvert.NewConverter(recorder).Convert(result.Body())
		if convErr != nil {
			return fmt.Errorf("convert %s: %s", target.String(), convErr.Message)
		}

		if outputPath != "" {
			if err := os.WriteFile(outputPath, converted.GetMarkdownContent(), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outputPath, err)
			}
			fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", len(converted.GetMarkdownContent()), outputPath)
			return nil
		}

		_, err = os.Stdout.Write(converted.GetMarkdownContent())
		return err
	},
}

func init() {
	convertCmd.Flags().StringVarP(&outputPath, "output", "o", "", "write markdown to a file instead of stdout")
	rootCmd.AddCommand(convertCmd)
}
