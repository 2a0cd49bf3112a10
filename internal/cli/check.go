package cmd

import (
	"fmt"
	"net/url"
	"os"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/docmark/internal/archive"
	"github.com/rohmanhakim/docmark/internal/gateway"
	"github.com/rohmanhakim/docmark/internal/metadata"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single guard without fetching or extracting anything.",
}

var checkURLCmd = &cobra.Command{
	Use:   "url <url>",
	Short: "Validate a URL against the policy (scheme, address class, allowlist).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		target, err := url.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid url %q: %w", args[0], err)
		}

		policy, _ := InitPolicy()
		gw := gateway.New(metadata.NewRecorder())

		verdict := gw.ValidateURL(cobraCmd.Context(), *target, policy)
		if !verdict.Allowed() {
			fmt.Printf("denied: %s (%s)\n", verdict.Reason(), verdict.Detail())
			os.Exit(1)
		}
		fmt.Println("allowed")
		return nil
	},
}

var checkRobotsCmd = &cobra.Command{
	Use:   "robots <url>",
	Short: "Check whether robots.txt permits fetching a URL.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		target, err := url.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid url %q: %w", args[0], err)
		}

		policy, _ := InitPolicy()
		gw := gateway.New(metadata.NewRecorder())

		decision, robotsErr := gw.CheckRobots(cobraCmd.Context(), *target, policy)
		if robotsErr != nil {
			fmt.Printf("denied: %s\n", robotsErr.Message)
			os.Exit(1)
		}

		fmt.Printf("allowed: %s\n", decision.Reason)
		if decision.CrawlDelay != nil {
			fmt.Printf("crawl-delay: %s\n", decision.CrawlDelay)
		}
		return nil
	},
}

var checkArchiveCmd = &cobra.Command{
	Use:   "archive <file.zip>",
	Short: "Validate a ZIP archive's member listing without extracting it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		_, limits := InitPolicy()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return fmt.Errorf("stat %s: %w", args[0], err)
		}

		members, archiveErr := archive.OpenZip(f, info.Size())
		if archiveErr != nil {
			return fmt.Errorf("%s: %s", args[0], archiveErr.Message)
		}

		gw := gateway.New(metadata.NewRecorder())
		report := gw.ValidateArchive(members, limits)

		if !report.Clean() {
			for _, violation := range report.Violations {
				fmt.Printf("violation: %s\n", violation)
			}
			os.Exit(1)
		}

		fmt.Printf("clean: %d members, %d bytes declared, max ratio %.1f\n",
			len(members), report.TotalUncompressed, report.MaxSingleRatio)
		return nil
	},
}

func init() {
	checkCmd.AddCommand(checkURLCmd)
	checkCmd.AddCommand(checkRobotsCmd)
	checkCmd.AddCommand(checkArchiveCmd)
	rootCmd.AddCommand(checkCmd)
}
