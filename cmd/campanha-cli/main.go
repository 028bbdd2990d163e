// Command campanha-cli publishes campaign uploads from local files against
// the configured blob backend, without going through the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"campanha/internal/cli"
	"campanha/internal/core"
	clog "campanha/internal/log"
	"campanha/internal/services"
)

const usage = `usage: campanha-cli <command> [flags]

commands:
  metrics  -file FILE                              compute and store upload metrics
  publish  -file FILE                              publish the current snapshot
  monthly  -file FILE -year YYYY -month M [-overwrite]  publish a closed month
  export   -out FILE                               write the current report as XLSX
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	ctx := context.Background()
	store := cli.InitBackend(ctx, logger, cfg)
	if store.Cleanup != nil {
		defer store.Cleanup()
	}

	svc := services.NewCampaignService(services.Options{
		Store:    store.Store,
		Campaign: cli.LoadCampaign(logger, cfg.CampaignConfigPath),
		Logger:   logger,
	})

	if err := run(ctx, svc, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		report(logger, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, svc *services.CampaignService, cmd string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	file := fs.String("file", "", "CSV upload to read")
	outPath := fs.String("out", "report.xlsx", "export destination")
	year := fs.Int("year", 0, "campaign year of a monthly batch")
	month := fs.Int("month", 0, "campaign month of a monthly batch (1-12)")
	overwrite := fs.Bool("overwrite", false, "replace an already published month")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch cmd {
	case "metrics":
		up, err := readUpload(*file)
		if err != nil {
			return err
		}
		res, err := svc.ComputeMetrics(ctx, up)
		if err != nil {
			return err
		}
		return printJSON(out, res)

	case "publish":
		up, err := readUpload(*file)
		if err != nil {
			return err
		}
		res, err := svc.Publish(ctx, up)
		if err != nil {
			return err
		}
		return printJSON(out, res)

	case "monthly":
		up, err := readUpload(*file)
		if err != nil {
			return err
		}
		res, err := svc.PublishMonthly(ctx, services.MonthlyRequest{
			Upload:    up,
			Year:      *year,
			Month:     *month,
			Overwrite: *overwrite,
		})
		if err != nil {
			return err
		}
		return printJSON(out, res)

	case "export":
		data, publishID, err := svc.ReportExport(ctx)
		if err != nil {
			return err
		}
		if err := os.WriteFile(*outPath, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", *outPath, err)
		}
		fmt.Fprintf(out, "wrote %s (%d bytes, publish %s)\n", *outPath, len(data), publishID)
		return nil

	default:
		return fmt.Errorf("unknown command %q\n\n%s", cmd, usage)
	}
}

func readUpload(path string) (services.Upload, error) {
	if path == "" {
		return services.Upload{}, fmt.Errorf("-file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return services.Upload{}, fmt.Errorf("read upload: %w", err)
	}
	return services.Upload{Filename: filepath.Base(path), Data: data}, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func report(logger *clog.Logger, err error) {
	if de, ok := core.AsDatasetError(err); ok {
		logger.Error("Upload rejected",
			"code", de.Code,
			"column", de.Column,
			"details", de.Details,
			"error", de.Message)
		return
	}
	logger.Error("Command failed", "error", err)
}
