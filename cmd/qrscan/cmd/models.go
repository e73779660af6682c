package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recibo-tech/qrscan/internal/config"
	"github.com/recibo-tech/qrscan/internal/models"
)

// modelsCmd reports which detector models are present on disk.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show detector model locations and availability",
	Long: `Show where qrscan looks for its ONNX detector models and whether each
model file is present. Scanning works without the models; the detection
level is skipped when they are missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		dir := models.GetModelsDir(cfg.Scan.Detector.ModelsDir)

		fmt.Fprintf(cmd.OutOrStdout(), "models directory: %s\n", dir)
		for _, name := range []string{models.DetectorSmall, models.DetectorLarge} {
			path := models.DetectorModelPath(dir, name)
			status := "ok"
			if err := models.ValidateModelFile(path); err != nil {
				status = "missing"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %s\n", name, status)
		}
		return nil
	},
}

// configCmd writes a default configuration file.
var configCmd = &cobra.Command{
	Use:   "config [file]",
	Short: "Write a default configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := ""
		if len(args) == 1 {
			target = args[0]
		}
		if target == "" {
			target = "qrscan.yaml"
		}
		if err := config.GenerateDefaultConfigFile(target); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", target)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(configCmd)
}
