package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rohmanhakim/docmark/internal/config"
)

var (
	cfgFile         string
	allowedHosts    []string
	matchHostSuffix bool
	requireHTTPS    bool
	userAgent       string
	timeout         time.Duration
	maxAssetBytes   int64
	requestsPerSec  float64
	maxConcurrent   int
	robotsMode      string
)

// parseStringSliceToSet converts a string slice to a map[string]struct{} set
func parseStringSliceToSet(strings []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, s := range strings {
		if s != "" {
			set[s] = struct{}{}
		}
	}
	return set
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "docmark",
	Short: "Convert remote documents to Markdown, safely.",
	Long: `docmark converts documents (HTML pages, archives) into clean Markdown.

Every network fetch and archive extraction passes through a security
gateway first: URL/SSRF validation, per-host rate limiting, robots.txt
compliance, and archive-bomb detection. A document that cannot be fetched
or extracted safely is refused, with the specific reason reported.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "policy file path (e.g., /home/myuser/policy.json)")
	rootCmd.PersistentFlags().StringArrayVar(&allowedHosts, "allowed-host", []string{}, "explicit hostname allowlist (can be repeated; empty means any public host)")
	rootCmd.PersistentFlags().BoolVar(&matchHostSuffix, "match-host-suffix", false, "allowlist entries also grant their subdomains")
	rootCmd.PersistentFlags().BoolVar(&requireHTTPS, "require-https", false, "refuse plain-http URLs")
	rootCmd.PersistentFlags().StringVar(&userAgent, "user-agent", "", "user agent for HTTP requests and robots.txt group matching")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "timeout for HTTP requests and bounded waits")
	rootCmd.PersistentFlags().Int64Var(&maxAssetBytes, "max-asset-bytes", 0, "response body size cap in bytes")
	rootCmd.PersistentFlags().Float64Var(&requestsPerSec, "requests-per-second", 0, "per-host request rate")
	rootCmd.PersistentFlags().IntVar(&maxConcurrent, "max-concurrent", 0, "per-host concurrent request cap")
	rootCmd.PersistentFlags().StringVar(&robotsMode, "robots-mode", "", "robots.txt handling: strict, warn, or ignore")
}

// InitPolicy builds the effective policy from the config file or flags.
func InitPolicy() (config.Policy, config.ArchiveLimits) {
	policy, limits, err := InitPolicyWithError()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	return policy, limits
}

// InitPolicyWithError builds the effective policy, returning any errors.
// This makes it easier to test error cases.
func InitPolicyWithError() (config.Policy, config.ArchiveLimits, error) {
	if cfgFile != "" {
		policy, limits, err := config.WithPolicyFile(cfgFile)
		if err != nil {
			return policy, limits, fmt.Errorf("error initializing policy from file: %w", err)
		}
		return policy, limits, nil
	}

	builder := config.WithDefault()

	if len(allowedHosts) > 0 {
		builder = builder.WithAllowedHosts(parseStringSliceToSet(allowedHosts))
	}
	if matchHostSuffix {
		builder = builder.WithMatchHostSuffix(true)
	}
	if requireHTTPS {
		builder = builder.WithRequireHTTPS(true)
	}
	if userAgent != "" {
		builder = builder.WithUserAgent(userAgent)
	}
	if timeout > 0 {
		builder = builder.WithTimeout(timeout)
	}
	if maxAssetBytes > 0 {
		builder = builder.WithMaxAssetBytes(maxAssetBytes)
	}
	if requestsPerSec > 0 {
		builder = builder.WithMaxRequestsPerSecond(requestsPerSec)
	}
	if maxConcurrent > 0 {
		builder = builder.WithMaxConcurrentRequests(maxConcurrent)
	}
	if robotsMode != "" {
		mode, err := parseRobotsMode(robotsMode)
		if err != nil {
			return config.Policy{}, config.ArchiveLimits{}, err
		}
		builder = builder.WithRobotsMode(mode)
	}

	policy, err := builder.Build()
	if err != nil {
		return config.Policy{}, config.ArchiveLimits{}, err
	}
	return policy, config.DefaultArchiveLimits(), nil
}

func parseRobotsMode(raw string) (config.RobotsMode, error) {
	switch raw {
	case "strict":
		return config.RobotsStrict, nil
	case "warn":
		return config.RobotsWarn, nil
	case "ignore":
		return config.RobotsIgnore, nil
	default:
		return "", fmt.Errorf("%w: unknown robots mode %q (want strict, warn, or ignore)", config.ErrInvalidConfig, raw)
	}
}

func ResetFlags() {
	cfgFile = ""
	allowedHosts = []string{}
	matchHostSuffix = false
	requireHTTPS = false
	userAgent = ""
	timeout = 0
	maxAssetBytes = 0
	requestsPerSec = 0
	maxConcurrent = 0
	robotsMode = ""
}

// Test helper functions to set flag values from tests
func SetConfigFileForTest(path string) {
	cfgFile = path
}

func SetAllowedHostsForTest(hosts []string) {
	allowedHosts = hosts
}

func SetUserAgentForTest(agent string) {
	userAgent = agent
}

func SetRobotsModeForTest(mode string) {
	robotsMode = mode
}

func SetTimeoutForTest(t time.Duration) {
	timeout = t
}
