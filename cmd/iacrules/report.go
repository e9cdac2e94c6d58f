package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"iacrules/internal/manager"
	"iacrules/pkg/fileops"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

// errReportFailed signals that a report found errors. It maps to exit status 1
// without printing anything beyond the report.
var errReportFailed = errors.New("validation failed")

const backgroundQueryTimeout = 200 * time.Millisecond

func reportCmd(a *app) *cobra.Command {
	var (
		asJSON    bool
		recursive bool
		noColor   bool
	)

	cmd := &cobra.Command{
		Use:   "report <module-path>",
		Short: "Apply every rule to a module and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roots := []string{args[0]}
			if recursive {
				found, err := fileops.FindModules(args[0], fileops.DefaultModuleScanOptions())
				if err != nil {
					return fmt.Errorf("discovering modules: %w", err)
				}
				if len(found) == 0 {
					return fmt.Errorf("no modules found under %s", args[0])
				}
				roots = found
			}

			m := a.newManager()
			reports := make([]manager.Report, 0, len(roots))
			failed := false
			for _, root := range roots {
				rep, err := m.Report(cmd.Context(), root)
				if err != nil {
					return err
				}
				reports = append(reports, rep)
				failed = failed || !rep.Summary.OverallSuccess
			}

			out := cmd.OutOrStdout()
			var err error
			if asJSON {
				err = writeReportsJSON(out, reports, recursive)
			} else {
				err = writeReportsMarkdown(out, m, reports, a.cfg.Report.RenderWidth, noColor)
			}
			if err != nil {
				return err
			}

			if failed {
				return errReportFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "report on every module below the path")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func writeReportsJSON(w io.Writer, reports []manager.Report, asList bool) error {
	var (
		data []byte
		err  error
	)
	if asList {
		data, err = json.MarshalIndent(reports, "", "  ")
	} else {
		data, err = manager.ReportJSON(reports[0])
	}
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeReportsMarkdown(w io.Writer, m *manager.Manager, reports []manager.Report, width int, noColor bool) error {
	renderer, err := newRenderer(w, width, noColor)
	if err != nil {
		return fmt.Errorf("creating markdown renderer: %w", err)
	}
	for _, rep := range reports {
		out, err := renderer.Render(m.FormatReport(rep))
		if err != nil {
			return fmt.Errorf("rendering report: %w", err)
		}
		if _, err := io.WriteString(w, out); err != nil {
			return err
		}
	}
	return nil
}

// newRenderer picks a glamour style for the terminal behind w. Output that is
// not a terminal, or --no-color, gets the plain notty style.
func newRenderer(w io.Writer, width int, noColor bool) (*glamour.TermRenderer, error) {
	profile := termenv.NewOutput(w).Profile
	if noColor || os.Getenv("NO_COLOR") != "" {
		profile = termenv.Ascii
	}

	style := "notty"
	if profile != termenv.Ascii {
		style = backgroundStyle(w)
	}

	return glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithColorProfile(profile),
		glamour.WithWordWrap(width),
	)
}

// backgroundStyle queries the terminal background, giving up after a short
// timeout since some terminals never answer.
func backgroundStyle(w io.Writer) string {
	ch := make(chan string, 1)
	go func() {
		if termenv.NewOutput(w).HasDarkBackground() {
			ch <- "dark"
			return
		}
		ch <- "light"
	}()

	select {
	case style := <-ch:
		return style
	case <-time.After(backgroundQueryTimeout):
		return "dark"
	}
}
