package cmd

import (
	"context"

	"feed-processor/core/cloud"
	"feed-processor/core/config"
	"feed-processor/core/database"
	"feed-processor/core/feed"
	"feed-processor/core/ingest"
	"feed-processor/core/logger"
	"feed-processor/core/metrics"
	"feed-processor/core/params"
	"feed-processor/core/queue"
	"feed-processor/core/statestore"
	"feed-processor/core/storage"
	"feed-processor/feature/talos"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	metrics   *metrics.Recorder
	store     ingest.StateStore
	publisher ingest.Publisher
	snapshots *storage.Snapshots
	service   *talos.Service

	awsCfg  *aws.Config
	closers []func()
}

// appOptions selects the dependencies a command needs.
type appOptions struct {
	// logFormat overrides the configured log format (e.g. console for the CLI).
	logFormat string
	// withoutPublisher skips the queue connection for read-only commands.
	withoutPublisher bool
	// runID and trigger tag every log line of a run.
	runID   string
	trigger string
}

// newApp loads configuration and wires the store, publisher, snapshots and the
// Talos service.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	// 1. Load Configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}

	// 2. Initialize Logger
	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, errors.Wrap(err, "initialize logger")
	}
	a := &app{cfg: cfg, log: logg}

	// 3. Parameter Store overrides (secrets)
	if cfg.Params.Enabled {
		if err := a.applyParams(ctx); err != nil {
			return nil, err
		}
	}
	if err := a.cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	a.log = a.log.With(zap.String("env", a.cfg.App.Env))
	if opts.runID != "" {
		a.log = logger.WithRun(a.log, opts.runID, opts.trigger)
	}

	// 4. State store
	if a.store, err = a.newStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	// 5. Publisher
	if !opts.withoutPublisher {
		if a.publisher, err = a.newPublisher(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}

	// 6. Snapshots (optional)
	if !a.cfg.Storage.Disabled {
		client, err := storage.NewClient(a.cfg.Storage)
		if err != nil {
			a.Close()
			return nil, errors.Wrap(err, "create storage client")
		}
		a.snapshots = storage.NewSnapshots(client, a.cfg.Storage.Bucket, a.cfg.App.Env)
	}

	a.metrics = metrics.New()
	a.service = a.newService()
	return a, nil
}

func (a *app) awsConfig(ctx context.Context) (aws.Config, error) {
	if a.awsCfg != nil {
		return *a.awsCfg, nil
	}
	awsCfg, err := cloud.Load(ctx, a.cfg.AWS)
	if err != nil {
		return aws.Config{}, err
	}
	a.awsCfg = &awsCfg
	return awsCfg, nil
}

func (a *app) applyParams(ctx context.Context) error {
	awsCfg, err := a.awsConfig(ctx)
	if err != nil {
		return err
	}
	path := a.cfg.Params.Path(a.cfg.App.Env, a.cfg.App.Name)
	overrides, err := params.NewLoader(cloud.SSM(awsCfg)).Load(ctx, path)
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfigWith(".", overrides)
	if err != nil {
		return errors.Wrap(err, "reload configuration")
	}
	cfg.Log.Format = a.cfg.Log.Format
	a.cfg = cfg
	a.log.Info("Loaded parameters", zap.String("path", path), zap.Int("count", len(overrides)))
	return nil
}

// newStore opens the configured state store. Talos sources are scoped, so the
// key func receives "<source>/<feed>/<indicator>" ids.
func (a *app) newStore(ctx context.Context) (ingest.StateStore, error) {
	switch a.cfg.State.Driver {
	case statestore.DriverDynamo:
		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		return statestore.NewDynamo(cloud.DynamoDB(awsCfg, a.cfg.State.Endpoint), a.cfg.State, talos.AddressID), nil
	case statestore.DriverSQL:
		db, err := database.Connect(a.cfg.Database)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, func() { _ = sqlDB.Close() })
		}
		store := statestore.NewSQL(db, a.cfg.State.Table, talos.AddressID)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		a.log.Warn("Using in-memory state store; state is lost on exit")
		return statestore.NewMemory(), nil
	}
}

func (a *app) newPublisher(ctx context.Context) (ingest.Publisher, error) {
	var pub ingest.Publisher
	switch a.cfg.Queue.Driver {
	case queue.DriverSQS:
		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		p, err := queue.NewSQS(ctx, cloud.SQS(awsCfg, a.cfg.Queue.Endpoint), a.cfg.Queue.URL, a.cfg.Queue.Name)
		if err != nil {
			return nil, err
		}
		a.log.Info("Publishing to SQS", zap.String("queue_url", p.URL()))
		pub = p
	case queue.DriverNATS:
		nc, js, err := queue.ConnectJetStream(a.cfg.Queue.NatsURL, a.cfg.App.Name)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, nc.Close)
		a.log.Info("Publishing to JetStream", zap.String("subject", a.cfg.Queue.Subject))
		pub = queue.NewJetStream(js, a.cfg.Queue.Subject)
	default:
		a.log.Warn("Using in-memory publisher; messages are not delivered")
		pub = queue.NewMemory()
	}
	return queue.NewLimited(pub, a.cfg.Queue.RatePerSecond, a.cfg.Queue.Burst), nil
}

func (a *app) newService() *talos.Service {
	engine := ingest.NewEngine(ingest.Deps{
		Store:     a.store,
		Publisher: a.publisher,
		Logger:    a.log,
		Metrics:   a.metrics,
	}, a.cfg.Pipeline.Options())

	fetcher := feed.NewFetcher(a.cfg.Feed, nil, a.log)
	var archive talos.Archiver
	if a.snapshots != nil {
		archive = a.snapshots
	}
	maxInvalid := a.cfg.Feed.MaxInvalidFraction

	return talos.NewService(engine, a.store, a.cfg.Feeds, func(def feed.Definition) ingest.Source {
		return talos.NewSource(def, fetcher, archive, maxInvalid, a.log)
	}, a.log)
}

// ensureBucket creates the snapshot bucket if missing. A failure is only logged.
func (a *app) ensureBucket(ctx context.Context) {
	if a.snapshots == nil {
		return
	}
	if err := a.snapshots.EnsureBucket(ctx); err != nil {
		a.log.Warn("Snapshot bucket unavailable", zap.String("bucket", a.cfg.Storage.Bucket), zap.Error(err))
	}
}

// Close releases connections in reverse order and flushes the logger.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	if a.log != nil {
		_ = a.log.Sync()
	}
}
