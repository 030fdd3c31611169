// Package cmd contains all the commands included in the gridengine binary.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"go-grid-engine/internal/config"
	"go-grid-engine/internal/engine"
	"go-grid-engine/internal/host"
	"go-grid-engine/internal/model"
	"go-grid-engine/internal/store"
	"go-grid-engine/pkg/logger"
)

// NewRootCommand enables all children commands to read flags from CLI flags,
// environment variables prefixed with GRIDENGINE, or gridengine.yaml (in that order).
func NewRootCommand() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:   "gridengine",
		Short: "Filter, sort, group and paginate tabular rows off the caller's thread",
		Long: `Filter, sort, group and paginate tabular rows off the caller's thread.

gridengine runs a grid processing session in an isolated worker and talks to it
through request/response envelopes, the same way an interactive grid would.`,
		SilenceUsage: true,
	}

	d := config.DefaultConfig()
	flags := root.PersistentFlags()
	flags.String(config.FlagName(config.LogFormatKey), d.Log.Format, "log format: 'text' or 'json'")
	flags.String(config.FlagName(config.LogLevelKey), d.Log.Level, "log level: 'none', 'debug', 'info', 'warn' or 'error'")
	flags.Int(config.FlagName(config.QueueSizeKey), d.Engine.QueueSize, "requests that may wait for the engine")
	flags.Duration(config.FlagName(config.RequestTimeoutKey), d.Engine.RequestTimeout, "how long to wait for one response")
	flags.Int(config.FlagName(config.PageSizeKey), d.Engine.PageSize, "default page size; 0 returns every row")
	flags.Bool(config.FlagName(config.StageMetricsKey), d.Engine.StageMetrics, "attach per-stage timings to responses")
	flags.Bool(config.FlagName(config.JournalEnabledKey), d.Journal.Enabled, "record processed requests in a sqlite journal")
	flags.String(config.FlagName(config.JournalDSNKey), d.Journal.DSN, "sqlite DSN of the journal")
	flags.Bool(config.FlagName(config.MetricsEnabledKey), d.MetricsEnabled, "update the prometheus collectors")

	if err := config.BindFlags(v, flags); err != nil {
		panic(err)
	}

	root.AddCommand(newRunCommand(v))
	root.AddCommand(newReplayCommand(v))
	root.AddCommand(newJournalCommand(v))
	root.AddCommand(NewVersionCommand())
	return root
}

// runtime is what every engine-backed command needs.
type runtime struct {
	cfg     *config.Config
	logger  *logger.ZapLogger
	journal *store.Journal
}

func newRuntime(v *viper.Viper) (*runtime, error) {
	if err := config.ReadFile(v); err != nil {
		return nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: log}
	if cfg.Journal.Enabled {
		rt.journal, err = store.Open(cfg.Journal.DSN)
		if err != nil {
			return nil, err
		}
		log.Debug("journal opened", zap.String("dsn", cfg.Journal.DSN))
	}
	return rt, nil
}

func (rt *runtime) newClient(ctx context.Context) *host.Client {
	sessionOpts := []engine.Option{
		engine.WithMetrics(rt.cfg.MetricsEnabled),
		engine.WithStageMetrics(rt.cfg.Engine.StageMetrics),
	}
	if rt.journal != nil {
		sessionOpts = append(sessionOpts, engine.WithJournal(rt.journal))
	}

	trace := func(req model.Request) {
		rt.logger.Debug("engine picked up request",
			zap.String("request_id", req.ID),
			zap.String("action", string(req.Action)),
			zap.Int("data_rows", len(req.Data)),
		)
	}

	return host.New(ctx,
		host.WithLogger(rt.logger),
		host.WithQueueSize(rt.cfg.Engine.QueueSize),
		host.WithSessionOptions(sessionOpts...),
		host.WithWorkerOptions(engine.WithBeforeProcess(trace)),
	)
}

// requestContext bounds one request by the configured timeout.
func (rt *runtime) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, rt.cfg.Engine.RequestTimeout)
}

func (rt *runtime) close() {
	if rt.journal != nil {
		if err := rt.journal.Close(); err != nil {
			rt.logger.Warn("failed to close journal", zap.Error(err))
		}
	}
	_ = rt.logger.Sync()
}
