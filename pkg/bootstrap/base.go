package bootstrap

import (
	"context"
	"fmt"

	"callrouter/internal/config"
	"callrouter/internal/logger"
	"callrouter/internal/trace"
)

type Base struct {
	Config *config.Config
	Logger logger.Logger
	Sink   trace.Sink
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

func (b *Base) InitTraceSink() error {
	sink, err := trace.NewSink(b.Config.Trace, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create trace sink: %w", err)
	}

	b.Logger.Infow("Trace sink initialized", "type", b.Config.Trace.Type)
	b.Sink = sink
	return nil
}

func (b *Base) ShutdownTraceSink() []error {
	if b.Sink == nil {
		return nil
	}
	if err := b.Sink.Close(); err != nil {
		return []error{fmt.Errorf("trace sink close error: %w", err)}
	}
	return nil
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	errs = append(errs, b.ShutdownTraceSink()...)

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
