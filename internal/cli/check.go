package cli

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/calvinalkan/cms/pkg/cms"
)

func checkCmd(a *app) *Command {
	return &Command{
		Flags: newFlags("check"),
		Usage: "check",
		Short: "Validate every document",
		Long: `Read every static document and every collection member and validate each
against its schema. Each failure is reported; the exit code is 1 if any
document fails.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if err := wantArgs(args); err != nil {
				return err
			}

			api, err := a.open()
			if err != nil {
				return err
			}

			report, err := api.Check(ctx)
			if err != nil {
				return err
			}

			a.metrics.CheckProblems.Set(float64(len(report.Problems)))
			reportCheck(o, report)

			return nil
		},
	}
}

func reportCheck(o *IO, report cms.Report) {
	for _, p := range report.Problems {
		o.Warn(p.Error(), "fix the document or its schema")
	}

	o.Printf("checked %d documents, %d problems\n", report.Checked, len(report.Problems))
}

func printConfigCmd(a *app) *Command {
	return &Command{
		Flags: newFlags("print-config"),
		Usage: "print-config",
		Short: "Show the resolved configuration",
		Long:  "Print the normalized configuration with every default filled in, and the file it was loaded from.",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if err := wantArgs(args); err != nil {
				return err
			}

			api, err := a.open()
			if err != nil {
				return err
			}

			cfg := api.Config()

			data, err := cfg.MarshalJSON()
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}

			var buf bytes.Buffer
			if err := json.Indent(&buf, data, "", "  "); err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}

			o.Println(buf.String())
			o.Println()
			o.Println("# source:", cfg.Source)

			return nil
		},
	}
}
