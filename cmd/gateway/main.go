package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rakshakai/rakshak/pkg/audio"
	"github.com/rakshakai/rakshak/pkg/config"
	"github.com/rakshakai/rakshak/pkg/decoy"
	"github.com/rakshakai/rakshak/pkg/evidence"
	"github.com/rakshakai/rakshak/pkg/gateway"
	"github.com/rakshakai/rakshak/pkg/intel"
	"github.com/rakshakai/rakshak/pkg/patterns"
	"github.com/rakshakai/rakshak/pkg/session"
	"github.com/rakshakai/rakshak/pkg/telemetry"
	"github.com/rakshakai/rakshak/pkg/threat"
)

const Version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe()
	case "analyze":
		if len(os.Args) < 3 {
			fmt.Println("Usage: rakshak analyze <transcript>")
			os.Exit(1)
		}
		runAnalyze(strings.Join(os.Args[2:], " "))
	case "personas":
		listPersonas()
	case "version":
		fmt.Printf("Rakshak v%s\n", Version)
		fmt.Println("Real-time fraud-call detection and decoy engagement gateway")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Rakshak v%s - fraud-call detection gateway\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  rakshak serve                 Start the gateway (REST + websocket stream)")
	fmt.Println("  rakshak analyze <transcript>  Score a transcript once and print the assessment")
	fmt.Println("  rakshak personas              List available decoy personas")
	fmt.Println("  rakshak version               Show version")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  RAKSHAK_LISTEN_ADDR       REST API address (default :8000)")
	fmt.Println("  RAKSHAK_STREAM_ADDR       WebSocket stream address (default :8001)")
	fmt.Println("  RAKSHAK_TRANSCRIBER_URL   External STT service (empty = transcription disabled)")
	fmt.Println("  RAKSHAK_REDIS_URL         Evidence sink (empty = evidence disabled)")
	fmt.Println("  RAKSHAK_DATABASE_URL      Optional Postgres archive for evidence packages")
	fmt.Println("  RAKSHAK_MODEL_PATH        ONNX transcript classifier directory")
	fmt.Println("  RAKSHAK_REPLY_PROVIDER    Decoy reply model: none, ollama, openrouter, groq")
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// buildClassifier picks the transcript-classifier layer: ONNX when a
// model is present, embedding similarity as the fallback, otherwise
// none. The scorer works with any of the three.
func buildClassifier(cfg *config.Config) threat.Classifier {
	if cfg.EnableClassifier {
		if clf := threat.NewAutoDetectedHugotClassifier(); clf != nil && clf.IsReady() {
			log.Info().Msg("✓ transcript classifier enabled (hugot/ONNX)")
			return clf
		}
		log.Info().Msg("○ ONNX classifier disabled (no model found)")
	}

	if cfg.EnableSemantic {
		sem, err := threat.NewSemanticClassifier(cfg.OllamaURL)
		if err != nil {
			log.Info().Err(err).Msg("○ semantic classifier disabled (init failed)")
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		if err := sem.LoadSeeds(ctx); err != nil {
			log.Info().Err(err).Msg("○ semantic classifier disabled (seed load failed)")
			return nil
		}
		log.Info().Msg("✓ semantic classifier enabled (chromem-go + Ollama embeddings)")
		return sem
	}

	log.Info().Msg("○ classifier layer disabled")
	return nil
}

func buildSink(cfg *config.Config) evidence.Sink {
	if cfg.RedisURL == "" {
		log.Info().Msg("○ evidence sink disabled (no redis url)")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var archive *evidence.PostgresArchive
	if cfg.DatabaseURL != "" {
		var err error
		archive, err = evidence.NewPostgresArchive(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Warn().Err(err).Msg("○ evidence archive disabled (postgres unavailable)")
		} else {
			log.Info().Msg("✓ evidence archive enabled (postgres)")
		}
	}

	sink, err := evidence.NewRedisSink(ctx, cfg.RedisURL, archive)
	if err != nil {
		log.Warn().Err(err).Msg("○ evidence sink disabled (redis unavailable)")
		return nil
	}
	log.Info().Msg("✓ evidence sink enabled (redis)")
	return sink
}

func runServe() {
	cfg := config.NewDefaultConfig()
	setupLogging(cfg.LogLevel)
	cfg.MustValidate()

	if cfg.PatternsFile != "" {
		if err := patterns.Get().LoadWeightOverrides(cfg.PatternsFile); err != nil {
			log.Fatal().Err(err).Str("file", cfg.PatternsFile).Msg("pattern_overrides_failed")
		}
		log.Info().Str("file", cfg.PatternsFile).Msg("✓ pattern weight overrides loaded")
	}
	if cfg.PersonasFile != "" {
		if err := decoy.LoadPersonaOverrides(cfg.PersonasFile); err != nil {
			log.Fatal().Err(err).Str("file", cfg.PersonasFile).Msg("persona_overrides_failed")
		}
		log.Info().Str("file", cfg.PersonasFile).Msg("✓ persona overrides loaded")
	}

	thresholds := threat.Thresholds{
		Low:    cfg.LowThreshold,
		Medium: cfg.MediumThreshold,
		High:   cfg.HighThreshold,
	}
	scorer := threat.NewScorer(thresholds, buildClassifier(cfg))

	var transcriber audio.Transcriber
	if cfg.TranscriberURL != "" {
		transcriber = audio.NewHTTPTranscriber(cfg.TranscriberURL, cfg.MaxTranscribers)
		log.Info().Str("url", cfg.TranscriberURL).Msg("✓ transcriber enabled")
	} else {
		log.Info().Msg("○ transcriber disabled (speech frames will not be scored)")
	}

	var replyModel decoy.ReplyModel
	if m := decoy.NewLLMReplyModel(decoy.ModelConfig{
		Provider: cfg.ReplyProvider,
		APIKey:   cfg.ReplyAPIKey,
		Model:    cfg.ReplyModel,
		BaseURL:  cfg.ReplyBaseURL,
	}); m != nil {
		replyModel = m
		log.Info().Str("provider", string(cfg.ReplyProvider)).Msg("✓ decoy reply model enabled")
	} else {
		log.Info().Msg("○ decoy reply model disabled (canned replies only)")
	}

	sink := buildSink(cfg)

	registry := session.NewRegistry(cfg.SessionIdleTTL, telemetry.Global)
	pipeline := session.NewPipeline(session.PipelineConfig{
		Registry:       registry,
		Gate:           audio.NewGate(cfg.SampleRate, nil),
		Scorer:         scorer,
		Transcriber:    transcriber,
		Sink:           sink,
		ReplyModel:     replyModel,
		Metrics:        telemetry.Global,
		DefaultPersona: cfg.DefaultPersona,
	})

	app := gateway.NewAPI(pipeline, registry, scorer, telemetry.Global, Version).App()
	stream := &http.Server{
		Addr:    cfg.StreamAddr,
		Handler: gateway.NewStreamServer(pipeline, registry).Handler(),
	}

	errs := make(chan error, 2)
	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("rest_listener_started")
		errs <- app.Listen(cfg.ListenAddr)
	}()
	go func() {
		log.Info().Str("addr", cfg.StreamAddr).Msg("stream_listener_started")
		if err := stream.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info().Str("signal", sig.String()).Msg("shutting_down")
	case err := <-errs:
		log.Error().Err(err).Msg("listener_failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = stream.Shutdown(shutdownCtx)
	_ = app.ShutdownWithContext(shutdownCtx)
	registry.Close()
	if sink != nil {
		_ = sink.Close()
	}
	log.Info().Msg("gateway_stopped")
}

func runAnalyze(text string) {
	cfg := config.NewDefaultConfig()
	setupLogging("warn")

	thresholds := threat.Thresholds{
		Low:    cfg.LowThreshold,
		Medium: cfg.MediumThreshold,
		High:   cfg.HighThreshold,
	}
	scorer := threat.NewScorer(thresholds, buildClassifier(cfg))

	assessment := scorer.Score(context.Background(), threat.Input{Transcript: text})
	entities := intel.NewExtractor().Extract(text)

	out, _ := json.MarshalIndent(map[string]any{
		"assessment": assessment,
		"entities":   entities,
	}, "", "  ")
	fmt.Println(string(out))
}

func listPersonas() {
	fmt.Println("Available decoy personas:")
	fmt.Println("")
	for _, id := range decoy.PersonaIDs() {
		p, _ := decoy.PersonaByID(id)
		fmt.Printf("  %s\n", id)
		fmt.Printf("    Name: %s, %d\n", p.Name, p.Age)
		fmt.Printf("    Background: %s\n", p.Background)
		fmt.Println()
	}
}
