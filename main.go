package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mrsingh-rishi/voice-translator/capture"
	"github.com/mrsingh-rishi/voice-translator/config"
	"github.com/mrsingh-rishi/voice-translator/language"
	"github.com/mrsingh-rishi/voice-translator/metrics"
	"github.com/mrsingh-rishi/voice-translator/output"
	"github.com/mrsingh-rishi/voice-translator/pipeline"
	"github.com/mrsingh-rishi/voice-translator/server"
	"github.com/mrsingh-rishi/voice-translator/workers"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	interactive := flag.Bool("interactive", false, "prompt for languages and translate from the microphone until Enter is pressed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		setupLogger(config.Default().Logging)
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	setupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *interactive); err != nil {
		log.Fatal().Err(err).Msg("translator failed")
	}
}

func setupLogger(lc config.LoggingConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl := zerolog.InfoLevel
	if l, err := zerolog.ParseLevel(lc.Level); err == nil {
		lvl = l
	}
	if lc.Format == "text" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	log.Logger = log.Level(lvl)
}

func run(ctx context.Context, cfg *config.Config, interactive bool) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	transcriber, closer, err := newTranscriber(cfg.Transcription)
	if err != nil {
		return fmt.Errorf("transcription: %w", err)
	}
	if closer != nil {
		defer closer.Close()
	}
	translation, err := newTranslation(cfg.Translation, cfg.Enhancement)
	if err != nil {
		return fmt.Errorf("translation: %w", err)
	}
	synthesizer, err := newSynthesizer(cfg.Synthesis)
	if err != nil {
		return fmt.Errorf("synthesis: %w", err)
	}

	device, err := output.NewDevice(cfg.Playback.SampleRate)
	if err != nil {
		return fmt.Errorf("output device: %w", err)
	}
	player, err := output.NewPlayer(device, cfg.Playback.GetPollInterval())
	if err != nil {
		return err
	}
	defer player.Close()

	hub := server.NewHub()
	cc := cfg.Capture
	controller, err := pipeline.New(pipeline.Options{
		Target: cfg.Pipeline.Target,
		Source: cfg.Pipeline.Source,
		Listener: capture.ListenerConfig{
			EnergyThreshold:    cc.EnergyThreshold,
			MinEnergyThreshold: cc.MinEnergyThreshold,
			DynamicEnergy:      cc.DynamicEnergy,
			DynamicDamping:     cc.DynamicDamping,
			DynamicRatio:       cc.DynamicRatio,
			PauseThreshold:     cc.GetPauseThreshold(),
			NonSpeaking:        cc.GetNonSpeaking(),
			FrameDuration:      cc.GetFrameDuration(),
		},
		Calibration: cc.GetCalibration(),
		PhraseLimit: cc.GetPhraseLimit(),
		WaitTimeout: cc.GetWaitTimeout(),
	}, pipeline.Deps{
		Microphone: capture.NewMicrophone(cc.SampleRate, cc.FramesPerBuffer),
		Stages: workers.Stages{
			Transcriber: transcriber,
			Translation: translation,
			Synthesizer: synthesizer,
			Playback:    player,
		},
		Sink:    hub.Publish,
		Metrics: m,
	})
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	if interactive {
		return runInteractive(ctx, controller)
	}

	if !cfg.Server.Enabled {
		return errors.New("server disabled and not running interactively; nothing to do")
	}
	srv := server.New(ctx, cfg.Server.BodyLimitMB, server.Deps{
		Translation: translation,
		Transcriber: transcriber,
		Synthesizer: synthesizer,
		Pipeline:    controller,
		Hub:         hub,
		Metrics:     m,
		Gatherer:    reg,
	})

	if cfg.Pipeline.AutoStart {
		if err := controller.Start(ctx); err != nil {
			return fmt.Errorf("start pipeline: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(cfg.Server.Address) }()

	select {
	case err := <-errCh:
		controller.Stop()
		controller.Wait()
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	controller.Stop()
	if err := srv.Shutdown(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	controller.Wait()
	return nil
}

// runInteractive asks for the language pair, runs the pipeline and stops it when
// the user presses Enter.
func runInteractive(ctx context.Context, controller *pipeline.Controller) error {
	in := bufio.NewReader(os.Stdin)
	fmt.Println("Available languages:")
	for _, name := range language.KnownNames() {
		fmt.Printf("  %-12s %s\n", name, language.Resolve(name))
	}

	st := controller.Status()
	target := prompt(in, fmt.Sprintf("Target language [%s]: ", st.Target), st.Target)
	source := prompt(in, fmt.Sprintf("Source language, or auto [%s]: ", st.Source), st.Source)
	if err := controller.SetLanguages(target, source); err != nil {
		return err
	}

	if err := controller.Start(ctx); err != nil {
		return err
	}
	st = controller.Status()
	fmt.Printf("Translating %s -> %s. Press Enter to stop.\n", st.Source, st.Target)

	enter := make(chan struct{})
	go func() {
		in.ReadString('\n')
		close(enter)
	}()
	select {
	case <-enter:
	case <-ctx.Done():
	}
	controller.Stop()
	fmt.Println("Stopping after the current phrase...")
	controller.Wait()

	if e := controller.Status().CaptureError; e != "" {
		return errors.New(e)
	}
	return nil
}

func prompt(in *bufio.Reader, question, fallback string) string {
	fmt.Print(question)
	line, err := in.ReadString('\n')
	if err != nil {
		return fallback
	}
	if line = strings.TrimSpace(line); line == "" {
		return fallback
	}
	return line
}
