package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jmerrifield20/neverbounce-go/pkg/client"
	"github.com/jmerrifield20/neverbounce-go/pkg/neverbounce"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile string
	format  string
	verbose bool

	logger *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "nbctl",
	Short: "NeverBounce API command-line client",
	Long: `nbctl talks to the NeverBounce v3 API.

Credentials are read from flags, the environment (NEVERBOUNCE_API_KEY,
NEVERBOUNCE_API_SECRET), a .env file in the working directory, or
~/.nbctl/config.yaml, in that order of precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine.
		_ = godotenv.Load()

		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.nbctl")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("neverbounce")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
		viper.AutomaticEnv()

		viper.SetDefault("base_url", client.DefaultBaseURL)
		viper.SetDefault("timeout", 30*time.Second)

		if err := viper.ReadInConfig(); err != nil {
			var cfgNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &cfgNotFound) && cfgFile != "" {
				return fmt.Errorf("read config: %w", err)
			}
		}

		var err error
		logger, err = newLogger(verbose)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		if format != "text" && format != "json" {
			return fmt.Errorf("unknown --format %q (want text or json)", format)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default ~/.nbctl/config.yaml)")
	pf.StringVar(&format, "format", "text", "Output format: text or json")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log every exchange to stderr")
	pf.String("api-key", "", "API key (env NEVERBOUNCE_API_KEY)")
	pf.String("api-secret", "", "API secret (env NEVERBOUNCE_API_SECRET)")
	pf.String("base-url", "", "API base URL (default "+client.DefaultBaseURL+")")
	pf.Duration("timeout", 0, "Per-exchange timeout (default 30s)")

	_ = viper.BindPFlag("api_key", pf.Lookup("api-key"))
	_ = viper.BindPFlag("api_secret", pf.Lookup("api-secret"))
	_ = viper.BindPFlag("base_url", pf.Lookup("base-url"))
	_ = viper.BindPFlag("timeout", pf.Lookup("timeout"))

	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(requestCmd)
	rootCmd.AddCommand(versionCmd)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return cfg.Build()
}

func newClient() (*neverbounce.Client, error) {
	timeout := viper.GetDuration("timeout")
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return neverbounce.New(neverbounce.Config{
		APIKey:    viper.GetString("api_key"),
		APISecret: viper.GetString("api_secret"),
		BaseURL:   viper.GetString("base_url"),
		Timeout:   timeout,
	}, client.WithLogger(logger))
}

func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// exitCode maps error kinds to distinct process exit codes.
func exitCode(err error) int {
	switch client.KindOf(err) {
	case client.KindAuth:
		return 3
	case client.KindRequest:
		return 4
	case client.KindTransport, client.KindResponseParse, client.KindAccessTokenExpired:
		return 5
	default:
		return 1
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── token ────────────────────────────────────────────────────────────────────

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Exchange the API credentials for an access token and print it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nb, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		tok, err := nb.Transport().TokenSource(ctx).Token()
		if err != nil {
			return err
		}
		if format == "json" {
			return printJSON(tok)
		}
		fmt.Println(tok.AccessToken)
		return nil
	},
}

// ── account ──────────────────────────────────────────────────────────────────

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show the account's credit balance and job counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nb, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		info, err := nb.Account(ctx)
		if err != nil {
			return err
		}
		if format == "json" {
			return printJSON(info)
		}
		fmt.Printf("Credits:         %d\n", info.Credits)
		fmt.Printf("Jobs completed:  %d\n", info.JobsCompleted)
		fmt.Printf("Jobs processing: %d\n", info.JobsProcessing)
		return nil
	},
}

// ── check ────────────────────────────────────────────────────────────────────

// checkRow holds the outcome of one address verification.
type checkRow struct {
	email  string
	result *neverbounce.SingleResult
	err    error
}

var checkConcurrency int

var checkCmd = &cobra.Command{
	Use:   "check <email> [email] ...",
	Short: "Verify one or more email addresses",
	Long: `Check verifies each address with the single-check endpoint.

Multiple addresses are checked concurrently and displayed as a table:

  nbctl check alice@example.com bob@example.org`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().IntVar(&checkConcurrency, "concurrency", 4, "Maximum checks in flight")
}

func runCheck(cmd *cobra.Command, args []string) error {
	nb, err := newClient()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	if checkConcurrency < 1 {
		checkConcurrency = 1
	}
	sem := make(chan struct{}, checkConcurrency)
	rows := make([]checkRow, len(args))
	done := make(chan struct{}, len(args))
	for i, email := range args {
		i, email := i, email
		go func() {
			sem <- struct{}{}
			defer func() { <-sem; done <- struct{}{} }()
			r, err := nb.Single(ctx, email)
			rows[i] = checkRow{email: email, result: r, err: err}
		}()
	}
	for range args {
		<-done
	}

	if format == "json" {
		return printCheckJSON(rows)
	}
	return printCheckText(rows)
}

func printCheckJSON(rows []checkRow) error {
	type jsonRow struct {
		Email  string `json:"email"`
		Result string `json:"result,omitempty"`
		Code   *int   `json:"result_code,omitempty"`
		Error  string `json:"error,omitempty"`
	}
	out := make([]jsonRow, len(rows))
	for i, r := range rows {
		if r.err != nil {
			out[i] = jsonRow{Email: r.email, Error: r.err.Error()}
			continue
		}
		code := r.result.ResultCode
		out[i] = jsonRow{Email: r.email, Result: r.result.Result.String(), Code: &code}
	}
	var v any = out
	if len(out) == 1 {
		v = out[0]
	}
	return printJSON(v)
}

func printCheckText(rows []checkRow) error {
	if len(rows) == 1 {
		r := rows[0]
		if r.err != nil {
			return fmt.Errorf("check %q: %w", r.email, r.err)
		}
		fmt.Printf("Email:  %s\n", r.email)
		fmt.Printf("Result: %s\n", r.result.Result)
		return nil
	}

	var firstErr error
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "EMAIL\tRESULT\tERROR")
	for _, r := range rows {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			fmt.Fprintf(w, "%s\t\t%s\n", r.email, oneLine(r.err.Error()))
		} else {
			fmt.Fprintf(w, "%s\t%s\t\n", r.email, r.result.Result)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return firstErr
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ── request ──────────────────────────────────────────────────────────────────

var requestCmd = &cobra.Command{
	Use:   "request <path> [key=value] ...",
	Short: "Send an authenticated request to any endpoint and print the response",
	Long: `Request posts the given form fields to path with the access token
attached, for endpoints nbctl has no dedicated command for:

  nbctl request /v3/jobs/status job_id=1234`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := parseFields(args[1:])
		if err != nil {
			return err
		}
		nb, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext()
		defer cancel()

		resp, err := nb.Raw(ctx, args[0], p)
		if err != nil {
			return err
		}
		if format == "json" {
			return printJSON(resp)
		}
		keys := make([]string, 0, len(resp))
		for k := range resp {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, k := range keys {
			fmt.Fprintf(w, "%s\t%v\n", k, resp[k])
		}
		return w.Flush()
	},
}

func parseFields(args []string) (client.Payload, error) {
	var p client.Payload
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid field %q (want key=value)", a)
		}
		p = p.With(k, v)
	}
	return p, nil
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the nbctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nbctl %s (%s)\n", version, neverbounce.UserAgent)
	},
}
