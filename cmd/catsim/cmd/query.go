package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/export"
	"github.com/Adithya-Monish-Kumar-K/Category-Term-Similarity/internal/searcher/dispatch"
)

type queryOptions struct {
	out string
}

func newQueryCmd(root *rootOptions) *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query [command...]",
		Short: "Run similarity commands against the indexed corpus",
		Long: `Query runs each argument as one command, or reads one command per line
from stdin when no arguments are given. Each result is printed as one JSON
line; failures are reported on stderr and the remaining commands still run.

Examples:
  catsim query '@ E14 10'
  catsim query '$ market C15' '# market 5'
  catsim query '* scores.xlsx'
  catsim query --out result.json 'P 2286 -c'
  echo 'C 2286 -t' | catsim query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := openEngine(ctx, root.cfg, prometheus.NewRegistry(), false)
			if err != nil {
				return err
			}
			defer e.Close()
			d := dispatch.New(e.executor, nil, nil, 0)

			commands := args
			if len(commands) == 0 {
				commands, err = readCommands(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			var (
				payloads []any
				failed   int
			)
			for _, raw := range commands {
				res, _, err := d.DispatchString(ctx, raw, analytics.SourceCLI)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
					continue
				}
				payload := res.Payload()
				payloads = append(payloads, payload)
				if err := enc.Encode(payload); err != nil {
					return err
				}
			}

			if opts.out != "" && len(payloads) > 0 {
				var v any = payloads
				if len(payloads) == 1 {
					v = payloads[0]
				}
				if err := export.SaveJSON(opts.out, v); err != nil {
					return fmt.Errorf("saving results: %w", err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d command(s) failed", failed, len(commands))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "also write the results to this JSON file")

	return cmd
}

// readCommands returns the non-blank lines of r.
func readCommands(r io.Reader) ([]string, error) {
	var commands []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			commands = append(commands, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading commands: %w", err)
	}
	return commands, nil
}
