package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"habit-gallery/internal/app"
	"habit-gallery/internal/detail"
	"habit-gallery/internal/render"
	"habit-gallery/internal/shared/config"
	"habit-gallery/internal/shared/telemetry"
	"habit-gallery/internal/shared/util"
	"habit-gallery/internal/tui"
)

const usage = `usage:
  gallery                          browse the gallery in the terminal
  gallery list                     print every shared work
  gallery analyze -id ID [-out F]  analyze one work and write the HTML result
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	telemetry.SetLevel(cfg.LogLevel)

	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "":
		err = runTUI(ctx, cfg)
	case "list":
		telemetry.SetOutput(os.Stderr)
		err = runList(ctx, cfg, os.Stdout)
	case "analyze":
		telemetry.SetOutput(os.Stderr)
		err = analyzeCommand(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", orDefault(cmd, "gallery"), err)
		os.Exit(1)
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func runTUI(ctx context.Context, cfg config.Config) error {
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	telemetry.SetOutput(logFile)

	return tui.Run(ctx, cfg)
}

func runList(ctx context.Context, cfg config.Config, w io.Writer) error {
	a, err := app.Build(cfg, app.Views{}, app.Deps{NoPlayer: true})
	if err != nil {
		return err
	}
	defer a.Shutdown()

	if err := a.Start(ctx); err != nil {
		return err
	}
	for _, rec := range a.Store.Snapshot() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", listField(rec.ID), listField(rec.Author), listField(rec.CurrentHabits))
	}
	return nil
}

// listField keeps server text on one line and free of terminal controls.
func listField(s string) string {
	return strings.ReplaceAll(util.StripControl(s), "\n", " ")
}

func analyzeCommand(ctx context.Context, cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	id := fs.String("id", "", "work id to analyze")
	outPath := fs.String("out", "", "output path for the HTML result (stdout when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("-id is required")
	}

	page, err := analyzeWork(ctx, cfg, *id)
	if err != nil {
		return err
	}
	if *outPath == "" {
		_, err = io.WriteString(os.Stdout, page)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(*outPath, []byte(page), 0o644); err != nil {
		return err
	}
	fmt.Printf("OK: wrote %s\n", *outPath)
	return nil
}

// nopModal accepts modal renders so the detail view can open without a
// screen.
type nopModal struct{}

func (nopModal) RenderModal(detail.ModalState) {}

// analyzeWork runs the page flow headlessly: load the works, open one and
// trigger its analysis. It returns the sanitized result as an HTML page.
func analyzeWork(ctx context.Context, cfg config.Config, id string) (string, error) {
	var alert string
	a, err := app.Build(cfg, app.Views{
		Modal: nopModal{},
		Alert: func(msg string) { alert = msg },
	}, app.Deps{NoPlayer: true, Renderer: render.NewHTML()})
	if err != nil {
		return "", err
	}
	defer a.Shutdown()

	if err := a.Start(ctx); err != nil {
		return "", err
	}
	if err := a.Modal.Open(ctx, id); err != nil {
		if alert != "" {
			return "", fmt.Errorf("%s: %w", alert, err)
		}
		return "", err
	}
	if err := a.Analysis.Trigger(ctx); err != nil {
		if msg := a.Analysis.State().Error; msg != "" {
			return "", fmt.Errorf("%s: %w", msg, err)
		}
		return "", err
	}

	st := a.Analysis.State()
	if st.AudioNotice != nil {
		fmt.Fprintln(os.Stderr, st.AudioNotice.Text)
	}
	// Modal fields are already HTML-escaped.
	author := a.Modal.State().Author
	return fmt.Sprintf("<!doctype html>\n<html><head><meta charset=\"utf-8\"><title>Habit review for %s</title></head>\n<body>\n%s\n</body></html>\n",
		author, st.Result), nil
}
