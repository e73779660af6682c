package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/recibo-tech/qrscan/internal/cascade"
)

const (
	outputFormatText = "text"
	outputFormatJSON = "json"
)

// fileResult pairs one input file with its scan outcome for reporting.
type fileResult struct {
	File   string         `json:"file"`
	Result cascade.Result `json:"result"`
	Error  string         `json:"error,omitempty"`
}

// scanCmd represents the scan command.
var scanCmd = &cobra.Command{
	Use:   "scan [files...]",
	Short: "Scan image files for QR codes",
	Long: `Scan one or more image files for QR codes.

Supported formats: JPEG, PNG, GIF, BMP, WebP

Examples:
  qrscan scan receipt.jpg
  qrscan scan *.png --format json
  qrscan scan photo.jpg --decoders goqr,zxing-hybrid,zxing-global,zxing-multi
  qrscan scan photo.jpg --no-detector --no-fallback`,
	Args:         cobra.ArbitraryArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return errors.New("no input files provided")
		}

		cfg := GetConfig()
		scanner, err := cascade.NewBuilder().
			WithConfig(cfg.Scan).
			Build()
		if err != nil {
			return err
		}
		defer scanner.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")

		results := make([]fileResult, 0, len(args))
		misses := 0
		for _, file := range args {
			fr := scanFile(cmd.Context(), scanner, file, timeout)
			if !fr.Result.Found {
				misses++
			}
			results = append(results, fr)
		}

		if err := writeResults(cmd, results, cfg.Output.Format); err != nil {
			return err
		}
		if misses == len(args) {
			return errors.New("no QR code found in any input")
		}
		return nil
	},
}

func scanFile(ctx context.Context, scanner *cascade.Scanner, file string, timeout time.Duration) fileResult {
	data, err := os.ReadFile(file)
	if err != nil {
		return fileResult{File: file, Error: err.Error()}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := scanner.Scan(ctx, data)
	fr := fileResult{File: file, Result: res}
	if err != nil && !errors.Is(err, cascade.ErrNoQRDetected) {
		fr.Error = err.Error()
	}
	return fr
}

func writeResults(cmd *cobra.Command, results []fileResult, format string) error {
	out := cmd.OutOrStdout()
	switch format {
	case outputFormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case outputFormatText:
		for _, fr := range results {
			switch {
			case fr.Error != "":
				fmt.Fprintf(out, "%s: error: %s\n", fr.File, fr.Error)
			case fr.Result.Found:
				fmt.Fprintf(out, "%s: %s (level=%s", fr.File, fr.Result.Content, fr.Result.Level)
				if fr.Result.Decoder != "" {
					fmt.Fprintf(out, " decoder=%s", fr.Result.Decoder)
				}
				if fr.Result.RotationDeg != 0 {
					fmt.Fprintf(out, " rotation=%d", fr.Result.RotationDeg)
				}
				if fr.Result.ModelTier != "" {
					fmt.Fprintf(out, " tier=%s", fr.Result.ModelTier)
				}
				fmt.Fprintf(out, " elapsed=%s)\n", fr.Result.Elapsed.Round(time.Millisecond))
			default:
				fmt.Fprintf(out, "%s: no QR code found\n", fr.File)
			}
		}
		return nil
	default:
		return fmt.Errorf("invalid output format: %s", format)
	}
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	scanCmd.Flags().StringSlice("decoders", nil, "decode pool, in run order")
	scanCmd.Flags().Bool("no-detector", false, "disable the ONNX detection level")
	scanCmd.Flags().Bool("no-fallback", false, "disable the external fallback service")
	scanCmd.Flags().String("fallback-url", "", "external fallback service endpoint")
	scanCmd.Flags().Duration("fallback-timeout", 0, "external fallback request deadline")
	scanCmd.Flags().String("detector-mode", "", "detector model selection (small, large, hybrid)")
	scanCmd.Flags().Duration("timeout", 0, "per-file scan deadline (0 means none)")
	scanCmd.Flags().Bool("metrics", false, "record Prometheus metrics")

	_ = viper.BindPFlag("output.format", scanCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("scan.decoders", scanCmd.Flags().Lookup("decoders"))
	_ = viper.BindPFlag("scan.fallback.url", scanCmd.Flags().Lookup("fallback-url"))
	_ = viper.BindPFlag("scan.detector.mode", scanCmd.Flags().Lookup("detector-mode"))
	_ = viper.BindPFlag("scan.metrics", scanCmd.Flags().Lookup("metrics"))

	scanCmd.PreRun = func(cmd *cobra.Command, args []string) {
		v := GetConfigLoader().GetViper()
		if noDet, _ := cmd.Flags().GetBool("no-detector"); noDet {
			v.Set("scan.detector_enabled", false)
		}
		if noFb, _ := cmd.Flags().GetBool("no-fallback"); noFb {
			v.Set("scan.fallback.enabled", false)
		}
		if d, _ := cmd.Flags().GetDuration("fallback-timeout"); d > 0 {
			v.Set("scan.fallback.timeout", d)
		}
	}
}
