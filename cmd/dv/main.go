package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/domainverify/domainverify/pkg/client"
)

// version is overridden by goreleaser via -ldflags "-X main.version=...".
var version = "dev"

var (
	serverURL string
	apiKey    string
	cfgFile   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dv",
	Short: "Domain verification CLI",
	Long: `dv is the command-line interface for the domain verification service.

It starts ownership verifications, prints the proof you must publish,
triggers checks, and manages webhook subscriptions.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.dv")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server_url")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8080"
		}
		if apiKey == "" {
			apiKey = viper.GetString("api_key")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.dv/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "API base URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "organization API key")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(webhookCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() *client.Client {
	opts := []client.Option{}
	if apiKey != "" {
		opts = append(opts, client.WithAPIKey(apiKey))
	}
	return client.New(serverURL, opts...)
}

// ── create ───────────────────────────────────────────────────────────────────

var createMethod string

var createCmd = &cobra.Command{
	Use:   "create <domain>",
	Short: "Start a verification and print the proof to publish",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		domain := args[0]
		c := newClient()

		v, err := c.CreateVerification(context.Background(), domain, createMethod)
		if err != nil {
			return fmt.Errorf("create verification: %w", err)
		}

		fmt.Printf("Verification ID: %s\n\n", v.ID)
		switch v.Method {
		case "dns":
			fmt.Println("Add this DNS TXT record to your domain:")
			fmt.Printf("  Host:  _domainverify.%s\n", v.Domain)
			fmt.Printf("  Type:  TXT\n")
			fmt.Printf("  Value: %s\n\n", v.Token)
		case "file":
			fmt.Println("Serve this file from your domain:")
			fmt.Printf("  URL:     https://%s/domain-verification.txt\n", v.Domain)
			fmt.Printf("  Content: %s\n\n", v.Token)
		}
		fmt.Printf("When published, run:\n  dv check %s\n", v.ID)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createMethod, "method", "dns", "proof method: dns or file")
}

// ── check ────────────────────────────────────────────────────────────────────

var (
	checkWait    bool
	checkTimeout time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check <verification-id>",
	Short: "Trigger a proof check and report the resulting status",
	Long: `check asks the server to look for the published proof.

With --wait it polls every 15 seconds until the domain verifies or the
timeout elapses. Failed checks are retried; once verified, the state is
final and further checks are no-ops.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		c := newClient()
		ctx := context.Background()

		if !checkWait {
			v, err := c.CheckVerification(ctx, id)
			if err != nil {
				return fmt.Errorf("check: %w", err)
			}
			printOutcome(v)
			return nil
		}

		deadline := time.Now().Add(checkTimeout)
		spinner := []string{"|", "/", "-", "\\"}
		spinIdx := 0
		for time.Now().Before(deadline) {
			v, err := c.CheckVerification(ctx, id)
			if err != nil {
				fmt.Println()
				return fmt.Errorf("check: %w", err)
			}
			if v.Status == "verified" {
				fmt.Println()
				printOutcome(v)
				return nil
			}
			fmt.Printf("\rWaiting for proof to propagate... %s ", spinner[spinIdx%len(spinner)])
			spinIdx++
			time.Sleep(15 * time.Second)
		}
		fmt.Println()
		return fmt.Errorf("verification did not complete within %s", checkTimeout)
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkWait, "wait", false, "poll until verified or timeout")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 10*time.Minute, "polling timeout with --wait")
}

func printOutcome(v *client.Verification) {
	switch v.Status {
	case "verified":
		fmt.Printf("✓ Domain ownership verified: %s\n", v.Domain)
		if v.VerifiedAt != nil {
			fmt.Printf("  Verified at: %s\n", v.VerifiedAt.Format(time.RFC3339))
		}
	case "failed":
		fmt.Printf("✗ Proof not found for %s\n", v.Domain)
		fmt.Println("  Publish the proof and check again; failure is not final.")
	default:
		fmt.Printf("Status: %s\n", v.Status)
	}
}

// ── get ──────────────────────────────────────────────────────────────────────

var getCmd = &cobra.Command{
	Use:   "get <verification-id>",
	Short: "Show a verification record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		v, err := c.GetVerification(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("get: %w", err)
		}
		out, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(out))
		return nil
	},
}

// ── list ─────────────────────────────────────────────────────────────────────

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List verifications in your scope, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		vs, err := c.ListVerifications(context.Background())
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}
		if len(vs) == 0 {
			fmt.Println("No verifications.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDOMAIN\tMETHOD\tSTATUS\tCREATED")
		for _, v := range vs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				v.ID, v.Domain, v.Method, v.Status, v.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

// ── webhook ──────────────────────────────────────────────────────────────────

var webhookCmd = &cobra.Command{
	Use:   "webhook",
	Short: "Manage webhook subscriptions",
}

var webhookEvents []string

var webhookCreateCmd = &cobra.Command{
	Use:   "create <url>",
	Short: "Register a webhook endpoint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		res, err := c.CreateWebhook(context.Background(), args[0], webhookEvents)
		if err != nil {
			return fmt.Errorf("create webhook: %w", err)
		}

		fmt.Printf("✓ Webhook registered: %s\n\n", res.Webhook.ID)
		fmt.Printf("  Signing secret: %s\n\n", res.Secret)
		fmt.Println("Store the secret securely. It will not be shown again.")
		return nil
	},
}

var webhookListCmd = &cobra.Command{
	Use:   "list",
	Short: "List webhook subscriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		whs, err := c.ListWebhooks(context.Background())
		if err != nil {
			return fmt.Errorf("list webhooks: %w", err)
		}
		if len(whs) == 0 {
			fmt.Println("No webhooks.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tURL\tEVENTS\tACTIVE")
		for _, wh := range whs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%t\n",
				wh.ID, wh.URL, strings.Join(wh.Events, ","), wh.IsActive)
		}
		return w.Flush()
	},
}

var webhookDeleteCmd = &cobra.Command{
	Use:   "delete <webhook-id>",
	Short: "Remove a webhook subscription",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		if err := c.DeleteWebhook(context.Background(), args[0]); err != nil {
			return fmt.Errorf("delete webhook: %w", err)
		}
		fmt.Println("✓ Webhook deleted")
		return nil
	},
}

func init() {
	webhookCreateCmd.Flags().StringSliceVar(&webhookEvents, "events",
		[]string{"verification.completed", "verification.failed"},
		"events to subscribe to")
	webhookCmd.AddCommand(webhookCreateCmd)
	webhookCmd.AddCommand(webhookListCmd)
	webhookCmd.AddCommand(webhookDeleteCmd)
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the dv CLI version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("dv %s\n", version)
	},
}
