package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	domainconfig "github.com/felixgeelhaar/taskloop/domain/config"
	"github.com/felixgeelhaar/taskloop/domain/task"
	"github.com/felixgeelhaar/taskloop/infrastructure/config"
)

// validateOptions holds options for the validate command.
type validateOptions struct {
	configPath string
	strict     bool
}

// newValidateCmd creates the validate command.
func (a *App) newValidateCmd() *cobra.Command {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a session configuration file",
		Long: `Validate a session configuration file for correctness.

This command checks:
  - File format (YAML or JSON)
  - Required fields (name, version, items, bank and sites)
  - Value ranges and cross-field constraints
  - Environment variable references (in strict mode)

Examples:
  # Validate a configuration file
  taskloop validate -c session.yaml

  # Strict validation (fail on missing env vars)
  taskloop validate -c session.yaml --strict`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.validateConfig(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Enable strict validation (fail on missing env vars)")

	return cmd
}

// loadConfig loads and validates a configuration file.
func loadConfig(path string, strict bool) (*domainconfig.SessionConfig, *config.Loader, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("configuration file path is required (-c flag)")
	}
	loader := config.NewLoaderWithOptions(
		config.WithValidation(true),
		config.WithStrictEnv(strict),
	)
	cfg, err := loader.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, loader, nil
}

func (a *App) validateConfig(opts *validateOptions) error {
	cfg, _, err := loadConfig(opts.configPath, opts.strict)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result, err := config.NewBuilder(cfg).Build()
	if err != nil {
		return fmt.Errorf("configuration build failed: %w", err)
	}

	fmt.Fprintf(a.stdout, "✓ Configuration is valid\n")
	fmt.Fprintf(a.stdout, "  Name: %s\n", cfg.Name)
	fmt.Fprintf(a.stdout, "  Version: %s\n", cfg.Version)
	if cfg.Description != "" {
		fmt.Fprintf(a.stdout, "  Description: %s\n", cfg.Description)
	}

	o := result.Options
	fmt.Fprintf(a.stdout, "\nConfiguration summary:\n")
	fmt.Fprintf(a.stdout, "  Plan: %v\n", task.PlanFor(task.Options{ExtendedCarry: o.ExtendedCarry}).Steps())
	fmt.Fprintf(a.stdout, "  Items: tool=%d material=%d output=%d container=%d\n", o.Tool, o.Material, o.Output, o.Container)
	fmt.Fprintf(a.stdout, "  Output target: %d\n", o.OutputTarget)
	fmt.Fprintf(a.stdout, "  Bank: %s\n", o.Bank.Name)
	fmt.Fprintf(a.stdout, "  Sites: %d\n", len(o.Sites))
	for _, s := range o.Sites {
		fmt.Fprintf(a.stdout, "    - %s (%s)\n", s.Name, s.Object)
	}
	fmt.Fprintf(a.stdout, "  Claim offerings: %t (every %d-%d deliveries)\n", o.ClaimOfferings, o.OfferingMin, o.OfferingMax)
	if o.GoalExperience > 0 {
		fmt.Fprintf(a.stdout, "  Goal experience: %d\n", o.GoalExperience)
	}
	fmt.Fprintf(a.stdout, "  Watchdog: position=%s progress=%s task=%s\n",
		result.Watchdog.PositionWindow, result.Watchdog.ProgressWindow, result.Watchdog.TaskWindow)

	driver := result.Storage.Driver
	if driver == "" {
		driver = "memory"
	}
	fmt.Fprintf(a.stdout, "  History store: %s\n", driver)
	if result.Archive != nil {
		fmt.Fprintf(a.stdout, "  Archive: %s\n", result.Archive.URL)
	}
	if result.Reporter != nil {
		fmt.Fprintf(a.stdout, "  Reporter: every %s\n", result.Reporter.Interval)
	}

	return nil
}
