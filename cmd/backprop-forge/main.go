package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gonum.org/v1/gonum/floats"

	"backprop-forge/internal/config"
	"backprop-forge/internal/dataset"
	"backprop-forge/internal/network"
	"backprop-forge/internal/server"
	"backprop-forge/internal/trainer"
)

func main() {
	cfgPath := flag.String("config", "configs/demo.yaml", "Path to YAML config")
	mode := flag.String("mode", "train", "train (train then test), test (test only) or serve")
	trainDir := flag.String("train-dir", "", "Override training directory")
	testDir := flag.String("test-dir", "", "Override test directory")
	rate := flag.Float64("learning-rate", 0, "Override initial learning rate")
	hidden := flag.Int("hidden", 0, "Override hidden layer size")
	weightsIn := flag.String("weights-in", "", "Load weights from this file before training or testing")
	weightsOut := flag.String("weights-out", "", "Save weights to this file after training")
	seed := flag.Int64("seed", 0, "PRNG seed (0 picks one from the clock)")
	maxEpochs := flag.Int("max-epochs", 0, "Override epoch cap")
	logEvery := flag.Int("log-every", 0, "Log every N epochs")
	listen := flag.String("listen", "", "Override listen address for serve mode")

	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	cfg.ApplyOverrides(config.Overrides{
		TrainDir:     *trainDir,
		TestDir:      *testDir,
		LearningRate: *rate,
		HiddenSize:   *hidden,
		WeightsIn:    *weightsIn,
		WeightsOut:   *weightsOut,
		Seed:         *seed,
		MaxEpochs:    *maxEpochs,
		LogEvery:     *logEvery,
		ListenAddr:   *listen,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "train":
		net := mustTrain(ctx, cfg)
		if cfg.TestDir != "" {
			runTests(ctx, cfg, net)
		}
	case "test":
		if cfg.TestDir == "" {
			log.Fatalf("test mode needs a test directory")
		}
		runTests(ctx, cfg, mustNetwork(cfg, nil))
	case "serve":
		serve(ctx, cfg, mustNetwork(cfg, nil))
	default:
		log.Fatalf("unknown mode %q", *mode)
	}
}

func options(cfg *config.Config) network.Options {
	return network.Options{
		Width:        cfg.ImageWidth,
		Height:       cfg.ImageHeight,
		Hidden:       cfg.HiddenSize,
		Classes:      cfg.Classes,
		LearningRate: cfg.LearningRate,
		Seed:         cfg.Seed,
	}
}

// mustNetwork builds the network and loads cfg.WeightsIn when set. A weight
// file that cannot be used leaves the random initial weights in place.
func mustNetwork(cfg *config.Config, samples []dataset.Sample) *network.Network {
	net, err := network.New(options(cfg), samples)
	if err != nil {
		log.Fatalf("build network: %v", err)
	}
	in, hidden, out := net.LayerSizes()
	log.Printf("network input=%d hidden=%d output=%d samples=%d seed=%d", in, hidden, out, net.Samples(), cfg.Seed)
	if cfg.WeightsIn != "" {
		if err := net.LoadFile(cfg.WeightsIn); err != nil {
			log.Printf("load weights: %v (continuing with initial weights)", err)
		} else {
			log.Printf("weights loaded from %s", cfg.WeightsIn)
		}
	}
	return net
}

func mustTrain(ctx context.Context, cfg *config.Config) *network.Network {
	if cfg.TrainDir == "" {
		log.Fatalf("train mode needs a training directory")
	}
	samples, err := dataset.Load(ctx, dataset.LoadOptions{
		Root:          cfg.TrainDir,
		Width:         cfg.ImageWidth,
		Height:        cfg.ImageHeight,
		NumWorkers:    cfg.NumWorkers,
		RequireLabels: true,
	})
	if err != nil {
		log.Fatalf("load training samples: %v", err)
	}
	net := mustNetwork(cfg, samples)

	_, err = trainer.Run(ctx, net, trainer.RunConfig{
		MaxEpochs:   cfg.MaxEpochs,
		TargetError: cfg.TargetError,
		Decay:       cfg.Decay,
		LogEvery:    cfg.LogEvery,
		WeightsOut:  cfg.WeightsOut,
	})
	if err != nil {
		log.Fatalf("training failed: %v", err)
	}
	return net
}

func runTests(ctx context.Context, cfg *config.Config, net *network.Network) {
	samples, err := dataset.Load(ctx, dataset.LoadOptions{
		Root:       cfg.TestDir,
		Width:      cfg.ImageWidth,
		Height:     cfg.ImageHeight,
		NumWorkers: cfg.NumWorkers,
	})
	if err != nil {
		log.Fatalf("load test samples: %v", err)
	}
	labeled, correct := 0, 0
	for _, s := range samples {
		signals, err := net.Forward(s.Image)
		if err != nil {
			log.Printf("test %s: %v", s.Key, err)
			continue
		}
		class := floats.MaxIdx(signals)
		log.Printf("test %s signals=%v winner=%d label=%d", s.Key, signals, class, s.Label)
		if s.Labeled() {
			labeled++
			if class == s.Label {
				correct++
			}
		}
	}
	if labeled > 0 {
		log.Printf("test accuracy=%.3f (%d/%d)", float64(correct)/float64(labeled), correct, labeled)
	}
}

func serve(ctx context.Context, cfg *config.Config, net *network.Network) {
	hs := server.NewHTTPServer(cfg.ListenAddr, net)
	errCh := make(chan error, 1)
	go func() { errCh <- hs.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("serve: %v", err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hs.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			log.Printf("shutdown: %v", err)
		}
	}
}
