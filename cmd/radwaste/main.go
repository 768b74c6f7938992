package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mdobak/go-xerrors"
	"github.com/spf13/cobra"

	"radwaste/internal/logging"
	"radwaste/pkg/config"
	"radwaste/pkg/pipeline"
	"radwaste/pkg/report"
)

var (
	configFile string
	envFile    string
	outputDir  string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "radwaste",
		Short:         "radwaste dose post-processing",
		Long:          "computes dose at 1 meter and contact dose rate from activation simulation results",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "radwaste.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "optional file with RADWASTE_* overrides")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "output directory (overrides the configuration)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		generateProcessCmd(config.ModeStandard, "one row per voxel over every cell and isotope"),
		generateProcessCmd(config.ModeFiltered, "voxels restricted to the configured cells, isotopes and box"),
		generateProcessCmd(config.ModeByComponent, "one row per component of the components file"),
		cmdInitConfig,
		cmdRuns,
	)

	if err := rootCmd.Execute(); err != nil {
		logging.GetLogger().Error("radwaste failed", slog.Any("error", xerrors.New(err)))
		os.Exit(1)
	}
}

func generateProcessCmd(mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   mode + " <case-folder>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Processing.Mode = mode
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runCase(cfg, args[0])
		},
	}
}

var cmdInitConfig = &cobra.Command{
	Use:   "init-config [path]",
	Short: "write a default configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if len(args) == 1 {
			path = args[0]
		}
		if err := config.CreateDefaultConfigFile(path); err != nil {
			return err
		}
		fmt.Printf("Default configuration written to: %s\n", path)
		return nil
	},
}

var cmdRuns = &cobra.Command{
	Use:   "runs",
	Short: "list the runs recorded in the report database",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := report.Open(cfg.Output.ReportDB)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Runs()
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Printf("%s  %-12s  %s  %s\n", r.ID, r.Mode, r.CreatedAt.Format(time.RFC3339), r.InputDir)
		}
		return nil
	},
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(envFile); err != nil {
		return nil, err
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	logging.SetVerbose(cfg.Output.Verbose)
	return cfg, nil
}

func runCase(cfg *config.Config, inputDir string) error {
	params, err := pipeline.ParamsFromConfig(cfg, inputDir)
	if err != nil {
		return err
	}

	fmt.Println("================================")
	fmt.Println("RADWASTE DOSE POST-PROCESSING")
	fmt.Printf("Case: %s (%s mode)\n", inputDir, params.Mode)
	fmt.Println("================================")

	processor := pipeline.NewProcessor(params)
	startTime := time.Now()
	if err := processor.Process(); err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}
	processingTime := time.Since(startTime)

	fmt.Printf("\nProcessing completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Results saved to: %s\n\n", params.OutputDir)

	fmt.Println("Dose summary:")
	fmt.Println("=======================================")
	for _, r := range processor.GetResults() {
		fmt.Printf("Decay time %-10g rows %-6d dose at 1m %.4e  mean CDR %.4e  max CDR %.4e\n",
			r.DecayTime, r.Rows, r.TotalDose1m, r.MeanCDR, r.MaxCDR)
		if r.Degenerate > 0 {
			fmt.Printf("  %d rows without mass kept with zero CDR\n", r.Degenerate)
		}
	}
	if id := processor.GetRunID(); id != "" {
		fmt.Printf("\nReport run %s recorded in %s\n", id, params.ReportDB)
	}
	return nil
}
