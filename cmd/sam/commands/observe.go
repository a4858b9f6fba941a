// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pyaythar-k/sam-plugin-sub000/cmd/sam/internal/clierr"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/obs/errtrack"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/obs/metrics"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/obs/tracing"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/projection"
)

func newObserveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Inspect locally collected logs, metrics, traces and errors",
	}
	cmd.AddCommand(newObserveLogsCmd())
	cmd.AddCommand(newObserveMetricsCmd())
	cmd.AddCommand(newObserveErrorsCmd())
	cmd.AddCommand(newObserveTracesCmd())
	cmd.AddCommand(newObserveExportCmd())
	return cmd
}

func newObserveLogsCmd() *cobra.Command {
	var tail int
	var level string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("observe logs")
			if err != nil {
				return err
			}
			err = func() error {
				path := filepath.Join(s.ObsDir, "logs", "sam.log")
				lines, err := tailLines(path, tail, level)
				if err != nil {
					if os.IsNotExist(err) {
						fmt.Fprintln(cmd.OutOrStdout(), "No logs collected yet.")
						return nil
					}
					return clierr.Wrap(1, "reading logs", err)
				}
				for _, line := range lines {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			}()
			s.Close("observe logs", err)
			return err
		},
	}

	cmd.Flags().IntVar(&tail, "tail", 50, "number of entries to show")
	cmd.Flags().StringVar(&level, "level", "", "only show entries at this level")
	return cmd
}

// tailLines reads the last n lines of a JSON-lines log file, optionally
// keeping only entries whose level matches.
func tailLines(path string, n int, level string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if level != "" {
			var entry struct {
				Level string `json:"level"`
			}
			if json.Unmarshal([]byte(line), &entry) != nil ||
				!strings.EqualFold(entry.Level, level) {
				continue
			}
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

func newObserveMetricsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show the persisted metrics snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("observe metrics")
			if err != nil {
				return err
			}
			err = func() error {
				snap, err := metrics.Read(s.ObsDir)
				if err != nil {
					return clierr.Wrap(1, "reading metrics", err)
				}
				out := cmd.OutOrStdout()
				if snap == nil {
					fmt.Fprintln(out, "No metrics collected yet.")
					return nil
				}
				if asJSON {
					data, err := json.MarshalIndent(snap, "", "  ")
					if err != nil {
						return err
					}
					fmt.Fprintln(out, string(data))
					return nil
				}

				fmt.Fprintf(out, "Metrics as of %s\n\n", snap.UpdatedAt)
				if len(snap.Counters) > 0 {
					fmt.Fprintln(out, "Counters:")
					for _, key := range sortedSeriesKeys(snap.Counters) {
						fmt.Fprintf(out, "  %-40s %.0f\n", key, snap.Counters[key])
					}
				}
				if len(snap.Gauges) > 0 {
					fmt.Fprintln(out, "Gauges:")
					for _, key := range sortedSeriesKeys(snap.Gauges) {
						fmt.Fprintf(out, "  %-40s %.2f\n", key, snap.Gauges[key])
					}
				}
				if len(snap.Histograms) > 0 {
					fmt.Fprintln(out, "Histograms:")
					for _, key := range sortedSeriesKeys(snap.Histograms) {
						h := snap.Histograms[key]
						fmt.Fprintf(out, "  %-40s n=%d p50=%.1f p95=%.1f p99=%.1f\n",
							key, h.Count, h.P50, h.P95, h.P99)
					}
				}
				return nil
			}()
			s.Close("observe metrics", err)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "output JSON")
	return cmd
}

func sortedSeriesKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func newObserveErrorsCmd() *cobra.Command {
	var recent int
	var grouped bool

	cmd := &cobra.Command{
		Use:   "errors",
		Short: "Show tracked errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("observe errors")
			if err != nil {
				return err
			}
			err = func() error {
				out := cmd.OutOrStdout()
				if grouped {
					groups, err := s.Errors.Groups()
					if err != nil {
						return clierr.Wrap(1, "reading errors", err)
					}
					if len(groups) == 0 {
						fmt.Fprintln(out, "No errors tracked.")
						return nil
					}
					for _, g := range groups {
						fmt.Fprintf(out, "%s  x%d  %s\n", g.GroupID, g.Count, g.Message)
						fmt.Fprintf(out, "  first %s, last %s\n", g.FirstSeen, g.LastSeen)
					}
					return nil
				}

				events, err := s.Errors.Recent(recent)
				if err != nil {
					return clierr.Wrap(1, "reading errors", err)
				}
				if len(events) == 0 {
					fmt.Fprintln(out, "No errors tracked.")
					return nil
				}
				for _, e := range events {
					fmt.Fprintf(out, "%s  [%s]  %s  %s\n", e.Timestamp, e.Command, e.ErrorID, e.Message)
				}
				return nil
			}()
			s.Close("observe errors", err)
			return err
		},
	}

	cmd.Flags().IntVar(&recent, "recent", 20, "number of recent errors to show")
	cmd.Flags().BoolVar(&grouped, "grouped", false, "aggregate by error group")
	return cmd
}

func newObserveTracesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "traces",
		Short: "Show recent command traces",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("observe traces")
			if err != nil {
				return err
			}
			err = func() error {
				traces, err := tracing.ReadAll(s.ObsDir)
				if err != nil {
					return clierr.Wrap(1, "reading traces", err)
				}
				out := cmd.OutOrStdout()
				if len(traces) == 0 {
					fmt.Fprintln(out, "No traces collected.")
					return nil
				}
				if limit > 0 && len(traces) > limit {
					traces = traces[len(traces)-limit:]
				}
				for _, tr := range traces {
					fmt.Fprintf(out, "%s  %s  (%d span(s))\n", tr.StartedAt, tr.Name, len(tr.Spans))
					for _, sp := range tr.Spans {
						fmt.Fprintf(out, "  %s  %-30s %6dms  %s\n",
							sp.SpanID, sp.Name, sp.DurationMS, sp.Status)
					}
				}
				return nil
			}()
			s.Close("observe traces", err)
			return err
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of traces to show")
	return cmd
}

// observeExport bundles everything the observability directory holds into a
// single JSON document for external tooling.
type observeExport struct {
	ExportedAt string            `json:"exported_at"`
	Metrics    *metrics.Snapshot `json:"metrics,omitempty"`
	Errors     []errtrack.Event  `json:"errors,omitempty"`
	Groups     []errtrack.Group  `json:"error_groups,omitempty"`
	Traces     []tracing.Trace   `json:"traces,omitempty"`
}

func newObserveExportCmd() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all observability data as one JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession("observe export")
			if err != nil {
				return err
			}
			err = func() error {
				export := observeExport{ExportedAt: time.Now().Format(time.RFC3339)}

				if snap, err := metrics.Read(s.ObsDir); err == nil {
					export.Metrics = snap
				}
				if events, err := s.Errors.Recent(0); err == nil {
					export.Errors = events
				}
				if groups, err := s.Errors.Groups(); err == nil {
					export.Groups = groups
				}
				if traces, err := tracing.ReadAll(s.ObsDir); err == nil {
					export.Traces = traces
				}

				data, err := json.MarshalIndent(export, "", "  ")
				if err != nil {
					return err
				}
				data = append(data, '\n')

				if outFile == "" {
					fmt.Fprint(cmd.OutOrStdout(), string(data))
					return nil
				}
				if err := projection.AtomicWrite(outFile, data); err != nil {
					return clierr.Wrap(1, "writing export", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", outFile)
				return nil
			}()
			s.Close("observe export", err)
			return err
		},
	}

	cmd.Flags().StringVar(&outFile, "out", "", "write to a file instead of stdout")
	return cmd
}
