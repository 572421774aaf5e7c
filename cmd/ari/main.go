// Ari - live conversational client streaming voice and vision to a
// Gemini Live session, gated by a webcam attention heuristic.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arilabs/go-ari/internal/config"
	"github.com/arilabs/go-ari/internal/log"
	"github.com/arilabs/go-ari/pkg/capture"
	"github.com/arilabs/go-ari/pkg/chatlog"
	"github.com/arilabs/go-ari/pkg/perception"
	"github.com/arilabs/go-ari/pkg/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := parseFlags()
	if err != nil {
		return err
	}
	log.Init(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("set GEMINI_API_KEY: %w", err)
	}

	chats := chatlog.New()

	var dashboard *web.Server
	opts := []perception.Option{
		perception.WithLogger(log.L()),
	}
	if cfg.WebPort != "" {
		dashboard = web.NewServer(cfg.WebPort, chats, log.L())
		opts = append(opts,
			perception.WithOnStatus(dashboard.UpdateStatus),
			perception.WithSnapshotTap(dashboard.SendSnapshot),
		)
	}

	pipeline, err := perception.NewPipeline(cfg.Pipeline, chats, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := pipeline.Start(ctx); err != nil {
		return err
	}
	defer pipeline.Close()

	if dashboard != nil {
		dashboard.StartAsync()
		defer dashboard.Shutdown()
	}

	log.Info("ari is live", "model", cfg.Pipeline.Session.Model)
	<-ctx.Done()
	log.Info("shutting down")
	return nil
}

// parseFlags parses command line flags and loads configuration.
func parseFlags() (config.Config, error) {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	model := flag.String("model", "", "Remote model identity")
	voice := flag.String("voice", "", "Prebuilt voice name")
	threshold := flag.Float64("threshold", 0, "Attention threshold as fraction of face width")
	camera := flag.Int("camera", -1, "Camera device index")
	mockAudio := flag.Bool("mock-audio", false, "Use the synthetic microphone backend")
	noWeb := flag.Bool("no-web", false, "Disable the status dashboard")
	webPort := flag.String("web-port", "", "Dashboard port")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}

	if *debug {
		cfg.LogLevel = "debug"
	}
	if *model != "" {
		cfg.Pipeline.Session.Model = *model
	}
	if *voice != "" {
		cfg.Pipeline.Session.Voice = *voice
	}
	if *threshold > 0 {
		cfg.Pipeline.AttentionThreshold = *threshold
	}
	if *camera >= 0 {
		cfg.Pipeline.Capture.CameraDevice = *camera
	}
	if *mockAudio {
		cfg.Pipeline.Capture.MicBackend = capture.BackendMock
	}
	if *webPort != "" {
		cfg.WebPort = *webPort
	}
	if *noWeb {
		cfg.WebPort = ""
	}
	return cfg, nil
}
