package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spacemeshos/localnet/config"
	"github.com/spacemeshos/localnet/filesystem"
	"github.com/spacemeshos/localnet/log"
	"github.com/spacemeshos/localnet/metrics"
	"github.com/spacemeshos/localnet/nodeconfig"
	"github.com/spacemeshos/localnet/relay"
	"github.com/spacemeshos/localnet/supervisor"
)

// Run starts the local network described by conf and relays node output to stdout
// until the output of every node ended or ctx is canceled.
// Harness logs and the stderr of nodes go to stderr.
func Run(ctx context.Context, conf *config.Config, stdout, stderr io.Writer) error {
	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger, err := log.New("localnet", conf.LOGGING.Level, conf.LOGGING.Encoder, stderr)
	if err != nil {
		return err
	}
	defer logger.Sync()
	runID := uuid.New()
	logger = logger.With(zap.Stringer("run_id", runID))

	profile, err := nodeconfig.Get(conf.Profile)
	if err != nil {
		return err
	}
	configs, err := nodeconfig.Generate(profile, conf.Nodes, conf.Params())
	if err != nil {
		return err
	}

	if err := filesystem.ExistOrCreate(afero.NewOsFs(), conf.DataRoot); err != nil {
		return err
	}
	lock, err := filesystem.LockDir(conf.DataRoot, config.LockFileName)
	if err != nil {
		return err
	}
	defer lock.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	clock := clockwork.NewRealClock()
	sup := supervisor.New(logger.Named("supervisor"),
		supervisor.BinaryCommand(conf.Launch.Binary, conf.Launch.NodeArgs...),
		supervisor.WithClock(clock),
		supervisor.WithStderr(stderr),
	)
	set, err := sup.Spawn(ctx, configs)
	if err != nil {
		return err
	}
	defer func() {
		if err := set.Close(); err != nil {
			logger.Debug("nodes stopped", zap.Error(err))
		}
	}()
	logger.Info("local network started",
		zap.String("profile", profile.Name()),
		zap.Int("nodes", set.Len()),
		zap.String("data_root", conf.DataRoot),
	)

	manifest := supervisor.NewManifest(runID.String(), profile.Name(), conf.Launch.Binary, clock.Now(), set)
	if err := supervisor.WriteManifest(conf.ManifestPath(), manifest); err != nil {
		return err
	}

	var opts []relay.ReporterOpt
	if conf.Color {
		opts = append(opts, relay.WithColor(color.FgCyan))
	}
	mux := relay.NewMultiplexer(logger.Named("relay"), relay.NewTextReporter(stdout, opts...), relay.WithClock(clock))

	if conf.Metrics.Enabled {
		eg.Go(func() error {
			return metrics.StartCollectingMetrics(ctx, logger.Named("metrics"), conf.Metrics.Port)
		})
	}
	eg.Go(func() error {
		defer cancel()
		return mux.Run(ctx, set)
	})

	err = eg.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Info("interrupted, stopping nodes")
		return nil
	}
	return err
}
