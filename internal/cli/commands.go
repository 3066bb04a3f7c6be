package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/metrics/export/prometheus"
	"github.com/MrEthical07/goGate/receipt"
	"github.com/MrEthical07/goGate/session"
)

func newLoginCommand(opts *options) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with an email and password. The password is read from --password or,
when that is empty, from the WMSGATE_PASSWORD environment variable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = os.Getenv("WMSGATE_PASSWORD")
			}
			if email == "" || password == "" {
				return errors.New("--email and a password are required")
			}

			engine, err := opts.engine(cmd, nil)
			if err != nil {
				return err
			}
			defer engine.Close()

			user, err := engine.Session().Login(cmd.Context(), session.Credentials{Email: email, Password: password})
			if err != nil {
				printFieldErrors(cmd.OutOrStdout(), engine.Session().Errors())
				return err
			}
			color.New(color.FgGreen).Fprint(cmd.OutOrStdout(), "✓ ")
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s)\n", user.Email, engine.Session().State().Phase())
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}

func newLogoutCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := opts.engine(cmd, nil)
			if err != nil {
				return err
			}
			defer engine.Close()

			s := engine.Session()
			if !s.State().HasToken() {
				fmt.Fprintln(cmd.OutOrStdout(), "No session")
				return nil
			}
			s.Logout(cmd.Context(), true)
			if errs := s.Errors(); !errs.Empty() {
				color.New(color.FgYellow).Fprintln(cmd.OutOrStdout(), "Server logout failed; local session removed")
				printFieldErrors(cmd.OutOrStdout(), errs)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newVerifyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check the stored token with the Auth API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := opts.engine(cmd, nil)
			if err != nil {
				return err
			}
			defer engine.Close()

			s := engine.Session()
			if err := s.Verify(cmd.Context()); err != nil {
				if errors.Is(err, goGate.ErrNoToken) {
					fmt.Fprintln(cmd.OutOrStdout(), "No session")
					return err
				}
				color.New(color.FgRed).Fprintln(cmd.OutOrStdout(), "Session expired")
				printFieldErrors(cmd.OutOrStdout(), s.Errors())
				return err
			}
			color.New(color.FgGreen).Fprint(cmd.OutOrStdout(), "✓ ")
			fmt.Fprintf(cmd.OutOrStdout(), "Token valid for %s\n", s.State().User.Email)
			return nil
		},
	}
}

// statusReport is the JSON shape of the status command.
type statusReport struct {
	Authenticated  bool                `json:"authenticated"`
	HasToken       bool                `json:"has_token"`
	Phase          string              `json:"phase"`
	Email          string              `json:"email,omitempty"`
	Name           string              `json:"name,omitempty"`
	Permissions    []string            `json:"permissions,omitempty"`
	HasProduction  bool                `json:"has_production"`
	TokenExpiresAt *time.Time          `json:"token_expires_at,omitempty"`
	Errors         session.FieldErrors `json:"errors,omitempty"`
}

func buildStatusReport(st session.State) statusReport {
	r := statusReport{
		Authenticated: st.Authenticated,
		HasToken:      st.HasToken(),
		Phase:         st.Phase().String(),
	}
	if st.User != nil {
		r.Email = st.User.Email
		r.Name = strings.TrimSpace(st.User.Name + " " + st.User.Surname)
		r.Permissions = st.User.Permissions
		r.HasProduction = st.User.HasProduction
	}
	if !st.TokenExpiresAt.IsZero() {
		exp := st.TokenExpiresAt
		r.TokenExpiresAt = &exp
	}
	if !st.Errors.Empty() {
		r.Errors = st.Errors
	}
	return r
}

func newStatusCommand(opts *options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored session without contacting the API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := opts.engine(cmd, nil)
			if err != nil {
				return err
			}
			defer engine.Close()

			report := buildStatusReport(engine.Session().State())
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			yellow := color.New(color.FgYellow)
			yellow.Fprintln(out, "Session:")
			fmt.Fprintf(out, "  Phase:       %s\n", report.Phase)
			if !report.Authenticated {
				fmt.Fprintf(out, "  Token held:  %t\n", report.HasToken)
				return nil
			}
			fmt.Fprintf(out, "  Email:       %s\n", report.Email)
			if report.Name != "" {
				fmt.Fprintf(out, "  Name:        %s\n", report.Name)
			}
			fmt.Fprintf(out, "  Production:  %t\n", report.HasProduction)
			if report.TokenExpiresAt != nil {
				fmt.Fprintf(out, "  Expires:     %s\n", report.TokenExpiresAt.Local().Format(time.RFC1123))
			}
			if len(report.Permissions) > 0 {
				fmt.Fprintf(out, "  Permissions: %s\n", strings.Join(report.Permissions, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newNavigateCommand(opts *options) *cobra.Command {
	var stale bool
	cmd := &cobra.Command{
		Use:   "navigate <location>",
		Short: "Show where the navigation guard sends a location",
		Long: `Resolve a location through the route table and the navigation guard and print
the route the session lands on. Verification is awaited unless --stale is given, in which
case the guard decides on the stored session as the browser client does.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := opts.engine(cmd, func(cfg *goGate.Config) {
				cfg.Guard.AwaitVerification = !stale
			})
			if err != nil {
				return err
			}
			defer engine.Close()

			route, err := engine.Navigate(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			cyan := color.New(color.FgCyan)
			cyan.Fprint(out, route.RouteName())
			fmt.Fprintf(out, " %s\n", route.FullPath())
			if opts.viewport.title != "" {
				fmt.Fprintf(out, "  Title: %s\n", opts.viewport.title)
			}
			if st := engine.Session().State(); st.PasswordModalVisible {
				color.New(color.FgYellow).Fprintln(out, "  Password setup required")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stale, "stale", false, "decide on the stored session without awaiting verification")
	return cmd
}

func newRoutesCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the route table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := opts.table()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPATH\tAUTH\tTITLE\tREDIRECT")
			for _, s := range table.Summaries() {
				name := s.Name
				if name == "" {
					name = "-"
				}
				auth := ""
				if s.Meta.RequiresAuth() {
					auth = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name, s.Pattern, auth, s.Meta.PageTitle, s.Redirect)
			}
			return w.Flush()
		},
	}
}

func newMetricsCommand(opts *options) *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Print session metrics in the Prometheus text format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := opts.engine(cmd, nil)
			if err != nil {
				return err
			}
			defer engine.Close()

			if verify {
				// The outcome is reflected in the verify counters.
				_ = engine.Session().Verify(cmd.Context())
			}
			_, err = io.WriteString(cmd.OutOrStdout(), prometheus.NewPrometheusExporter(engine.Engine).Render())
			return err
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "verify the stored token before printing")
	return cmd
}

func newReceiptFiltersCommand(opts *options) *cobra.Command {
	var (
		plant, sloc, postingDate, palletStatus string
		reset                                  bool
	)
	cmd := &cobra.Command{
		Use:   "receipt-filters",
		Short: "Show or change the stored goods receipt filters",
		Long: `Without flags the stored filters are printed as JSON. Each flag that is given
replaces one filter; an empty value clears it. --clear resets every filter.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := opts.engine(cmd, nil)
			if err != nil {
				return err
			}
			defer engine.Close()

			store, err := receipt.Open(cmd.Context(), engine.StateStorage(), nil)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			var updates []receipt.Update
			if flags.Changed("plant") {
				updates = append(updates, receipt.WithPlant(codeLocation(plant)))
			}
			if flags.Changed("sloc") {
				updates = append(updates, receipt.WithStorageLocation(codeLocation(sloc)))
			}
			if flags.Changed("posting-date") {
				updates = append(updates, receipt.WithPostingDate(postingDate))
			}
			if flags.Changed("pallet-status") {
				updates = append(updates, receipt.WithPalletStatus(palletStatus))
			}

			switch {
			case reset:
				err = store.ClearFilters(cmd.Context())
			case len(updates) > 0:
				err = store.SetFilters(cmd.Context(), updates...)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(store.Filters())
		},
	}
	cmd.Flags().StringVar(&plant, "plant", "", "plant code")
	cmd.Flags().StringVar(&sloc, "sloc", "", "storage location code")
	cmd.Flags().StringVar(&postingDate, "posting-date", "", "posting date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&palletStatus, "pallet-status", "", "pallet status")
	cmd.Flags().BoolVar(&reset, "clear", false, "reset every filter")
	cmd.MarkFlagsMutuallyExclusive("clear", "plant")
	cmd.MarkFlagsMutuallyExclusive("clear", "sloc")
	cmd.MarkFlagsMutuallyExclusive("clear", "posting-date")
	cmd.MarkFlagsMutuallyExclusive("clear", "pallet-status")
	return cmd
}

func codeLocation(code string) receipt.Location {
	if code == "" {
		return nil
	}
	return receipt.Location{"code": code}
}

func printFieldErrors(w io.Writer, errs session.FieldErrors) {
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	red := color.New(color.FgRed)
	for _, field := range fields {
		for _, msg := range errs[field] {
			red.Fprintf(w, "  %s: ", field)
			fmt.Fprintln(w, msg)
		}
	}
}
