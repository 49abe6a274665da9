// Command stubd runs the in-memory stub diarization backend for local
// development of the client.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/jvarn/diarize-client/internal/app"
	"github.com/jvarn/diarize-client/internal/config"
	"github.com/jvarn/diarize-client/internal/stub"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	steps := flag.Int("steps", 3, "status checks spent in running before a job finishes")
	failWith := flag.String("fail", "", "when set, every job ends failed with this error message")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	application := app.New(cfg)
	application.Start()
	defer application.Shutdown()

	backend := stub.New(stub.Options{
		StepsRunning: *steps,
		FailError:    *failWith,
	})

	server := &http.Server{
		Addr:        *addr,
		Handler:     backend.Router(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", *addr).Msg("stub backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("stub backend serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down stub backend")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(ctx)
}
