// Command diarize submits an audio file to the diarization backend,
// follows the job to a terminal state, and prints the speaker-attributed
// transcript.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jvarn/diarize-client/internal/api"
	"github.com/jvarn/diarize-client/internal/app"
	"github.com/jvarn/diarize-client/internal/config"
	"github.com/jvarn/diarize-client/internal/domain"
	"github.com/jvarn/diarize-client/internal/events"
	"github.com/jvarn/diarize-client/internal/job"
	"github.com/jvarn/diarize-client/internal/observability"
)

func main() {
	os.Exit(run())
}

func run() int {
	saveTxt := flag.String("save-txt", "", "save the finished transcript as text to this path")
	saveJSON := flag.String("save-json", "", "save the finished transcript as JSON to this path")
	flag.Parse()

	// Missing .env is fine; the environment itself may carry the config.
	_ = godotenv.Load()

	cfg := config.Load()
	application := app.New(cfg)
	application.Start()
	defer application.Shutdown()

	publisher := events.New(&events.Config{
		Enabled:       cfg.Kafka.Enabled,
		Brokers:       cfg.Kafka.Brokers,
		TopicStatus:   cfg.Kafka.TopicStatus,
		TopicTerminal: cfg.Kafka.TopicTerminal,
		Principal:     cfg.Kafka.Principal,
	})
	defer publisher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.MetricsEnabled {
		obs := observability.NewServer(cfg.Observability.MetricsAddr)
		obs.Start()
		defer obs.Shutdown(context.Background())
	}

	client := api.NewClient(cfg.Backend)
	orchestrator := job.NewOrchestrator(client, publisher, cfg)
	defer orchestrator.Stop()

	if _, err := orchestrator.Submit(ctx, flag.Arg(0)); err != nil {
		var ve *job.ValidationError
		if errors.As(err, &ve) {
			fmt.Fprintln(os.Stderr, "error:", ve.Reason)
			fmt.Fprintln(os.Stderr, "usage: diarize [flags] <audio-file>")
			return 2
		}
		fmt.Fprintln(os.Stderr, "error:", orchestrator.Current().Error)
		return 1
	}

	final, err := orchestrator.Wait(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "interrupted")
		return 130
	}

	switch final.Status {
	case domain.StatusDone:
		if final.Result == nil {
			fmt.Fprintln(os.Stderr, "job finished but the result could not be retrieved")
			return 1
		}
		printTranscript(final.Result)
		if code := saveArtifacts(ctx, client, final.ID, *saveTxt, *saveJSON); code != 0 {
			return code
		}
		return 0
	default:
		fmt.Fprintln(os.Stderr, "error:", final.Error)
		return 1
	}
}

func printTranscript(result *domain.Result) {
	for _, seg := range result.Segments {
		fmt.Printf("[%.2fs] %s: %s\n", seg.Start, seg.Speaker, seg.Text)
	}
}

func saveArtifacts(ctx context.Context, client *api.Client, jobID, txtPath, jsonPath string) int {
	targets := []struct {
		path   string
		format string
	}{
		{txtPath, "txt"},
		{jsonPath, "json"},
	}

	for _, target := range targets {
		if target.path == "" {
			continue
		}
		f, err := os.Create(target.path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		err = client.Download(ctx, jobID, target.format, f)
		f.Close()
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "saved %s\n", target.path)
	}
	return 0
}
