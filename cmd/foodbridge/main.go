package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"foodbridge/cmd/foodbridge/ui"
	"foodbridge/internal/api"
	"foodbridge/internal/config"
	"foodbridge/internal/donation"
	"foodbridge/internal/logging"
	"foodbridge/internal/query"
	"foodbridge/internal/session"
	"foodbridge/internal/syncer"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	// Global flags
	verbose    bool
	configPath string
	apiURL     string

	// Logger for non-interactive commands
	logger *zap.Logger
)

// rootCmd launches the interactive dashboard by default.
var rootCmd = &cobra.Command{
	Use:   "foodbridge",
	Short: "FoodBridge - connect food donors with NGOs",
	Long: `FoodBridge is a terminal client for the FoodBridge donation service.

Donors post surplus food; NGOs claim donations, collect them, and mark
them completed. A donation only ever moves forward through
AVAILABLE -> CLAIMED -> COMPLETED.

Run without arguments to start the interactive dashboard.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// The interactive dashboard has its own UI; skip the CLI logger.
		if cmd.Use == "foodbridge" && cmd.CalledAs() == "foodbridge" {
			return nil
		}
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

// env is everything a command needs: config, session, client, engine.
type env struct {
	cfg     *config.Config
	cfgPath string
	sess    *session.Store
	client  *api.Client
	engine  *syncer.Engine
}

func setup() (*env, error) {
	stateDir, err := config.StateDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve state directory: %w", err)
	}

	path := configPath
	if path == "" {
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	// Flag beats config file and env override.
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}

	if err := logging.Initialize(stateDir, logging.Options{
		DebugMode:  cfg.Logging.DebugMode,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
		JSONFormat: cfg.Logging.JSONFormat,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	sess := session.New(stateDir)
	sess.Hydrate()

	client := api.New(api.Options{
		BaseURL:        cfg.API.BaseURL,
		Timeout:        cfg.APITimeout(),
		Tokens:         sess.Token,
		OnUnauthorized: sess.Logout,
	})
	sess.SetClient(client)

	return &env{
		cfg:     cfg,
		cfgPath: path,
		sess:    sess,
		client:  client,
		engine:  syncer.NewEngine(client, sess),
	}, nil
}

func runInteractive() error {
	e, err := setup()
	if err != nil {
		return err
	}
	defer logging.CloseAll()
	logging.Boot("foodbridge %s starting, api %s", Version, e.cfg.API.BaseURL)

	styles := ui.NewStyles(ui.ThemeByName(e.cfg.UI.Theme))
	app := ui.NewApp(styles, e.sess, e.engine, e.cfg.UI.PageSize)
	program := tea.NewProgram(app, tea.WithAltScreen())

	// Live-reload the config file while the dashboard runs.
	watcher, werr := config.NewWatcher(e.cfgPath, func(c *config.Config) {
		program.Send(ui.ConfigReloaded(c.UI.Theme, c.UI.PageSize))
	})
	if werr == nil {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := watcher.Start(ctx); err == nil {
			defer watcher.Stop()
		}
	} else {
		logging.BootError("config watcher unavailable: %v", werr)
	}

	_, err = program.Run()
	return err
}

// loginCmd signs in and persists the session for later commands.
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer logging.CloseAll()

		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		user, err := e.sess.Login(cmd.Context(), email, password)
		if err != nil {
			logger.Error("login failed", zap.String("email", email), zap.Error(err))
			return fmt.Errorf("login failed: %s", api.UserMessage(err))
		}
		fmt.Printf("Signed in as %s (%s)\n", user.Name, user.Role)
		return nil
	},
}

// registerCmd creates an account and persists the session.
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer logging.CloseAll()

		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		roleFlag, _ := cmd.Flags().GetString("role")

		role := donation.RoleDonor
		if strings.EqualFold(roleFlag, "ngo") {
			role = donation.RoleNGO
		}
		user, err := e.sess.Register(cmd.Context(), name, email, password, role)
		if err != nil {
			logger.Error("registration failed", zap.String("email", email), zap.Error(err))
			return fmt.Errorf("registration failed: %s", api.UserMessage(err))
		}
		fmt.Printf("Account created for %s (%s)\n", user.Name, user.Role)
		return nil
	},
}

// logoutCmd clears the stored session.
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer logging.CloseAll()
		e.sess.Logout()
		fmt.Println("Signed out.")
		return nil
	},
}

// whoamiCmd prints the stored identity.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer logging.CloseAll()
		user, ok := e.sess.User()
		if !ok {
			fmt.Println("Not signed in.")
			return nil
		}
		fmt.Printf("%s <%s> (%s)\n", user.Name, user.Email, user.Role)
		return nil
	},
}

// donationsCmd lists donations without entering the dashboard.
var donationsCmd = &cobra.Command{
	Use:   "donations",
	Short: "List donations",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup()
		if err != nil {
			return err
		}
		defer logging.CloseAll()

		q := query.New()
		if n, _ := cmd.Flags().GetInt("page"); n > 0 {
			q.SetPage(n - 1)
		}
		if n, _ := cmd.Flags().GetInt("size"); n > 0 {
			q.SetSize(n)
		}
		if s, _ := cmd.Flags().GetString("status"); s != "" {
			q.Filter.Status = donation.Status(strings.ToUpper(s))
		}
		if s, _ := cmd.Flags().GetString("food-type"); s != "" {
			q.Filter.FoodType = donation.FoodType(strings.ToUpper(s))
		}
		if s, _ := cmd.Flags().GetString("location"); s != "" {
			q.Filter.Location = s
		}

		page, err := e.client.FilterDonations(cmd.Context(), q)
		if err != nil {
			logger.Error("listing failed", zap.Error(err))
			return fmt.Errorf("listing failed: %s", api.UserMessage(err))
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tQUANTITY\tTYPE\tLOCATION\tEXPIRES")
		for _, d := range page.Items {
			expires := "-"
			if !d.ExpiryDate.IsZero() {
				expires = d.ExpiryDate.Format("2006-01-02")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%g %s\t%s\t%s\t%s\n",
				d.ID, d.Title, d.Status, d.Quantity, d.Unit.Label(),
				d.FoodType.Label(), d.Location, expires)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\nPage %d of %d, %d donations total\n", q.Page+1, max(page.TotalPages, 1), page.TotalElements)
		return nil
	},
}

// versionCmd prints the build version.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("foodbridge %s\n", Version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: ~/.foodbridge/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Service base URL (overrides config and FOODBRIDGE_API_URL)")

	loginCmd.Flags().String("email", "", "Account email (required)")
	loginCmd.Flags().String("password", "", "Account password (required)")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")

	registerCmd.Flags().String("name", "", "Display name (required)")
	registerCmd.Flags().String("email", "", "Account email (required)")
	registerCmd.Flags().String("password", "", "Account password (required)")
	registerCmd.Flags().String("role", "donor", "Account role: donor or ngo")
	_ = registerCmd.MarkFlagRequired("name")
	_ = registerCmd.MarkFlagRequired("email")
	_ = registerCmd.MarkFlagRequired("password")

	donationsCmd.Flags().Int("page", 1, "Page number")
	donationsCmd.Flags().Int("size", query.DefaultSize, "Page size")
	donationsCmd.Flags().String("status", "", "Filter by status (available, claimed, completed)")
	donationsCmd.Flags().String("food-type", "", "Filter by food type")
	donationsCmd.Flags().String("location", "", "Filter by location")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(donationsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
