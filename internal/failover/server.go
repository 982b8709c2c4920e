package failover

import (
	"context"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"
	"golang.org/x/exp/slog"
)

// Server drives the engine for the lifetime of the process. Each
// long-running task is a suture service: the checker runs evaluation
// cycles on the configured interval, and the status reporter logs a
// snapshot periodically.
type Server struct {
	log    *slog.Logger
	engine *Engine

	// supervisor to manage the checker and reporter tasks.
	supervisor *suture.Supervisor
}

type ServerOpts struct {
	Log    *slog.Logger
	Engine *Engine

	// CheckInterval is the delay between evaluation cycles.
	CheckInterval time.Duration

	// StatusInterval is the delay between logged status snapshots.
	StatusInterval time.Duration
}

func NewServer(opts ServerOpts) *Server {
	if opts.StatusInterval == 0 {
		opts.StatusInterval = 5 * time.Minute
	}
	supervisor := suture.New("dnsfailover", suture.Spec{
		EventHook: func(ev suture.Event) {
			opts.Log.Error("event hook",
				slog.String("event", ev.String()))
		},
	})
	s := &Server{
		log:        opts.Log,
		engine:     opts.Engine,
		supervisor: supervisor,
	}
	_ = supervisor.Add(&checker{
		log:      opts.Log.With(slog.String("task", "checker")),
		engine:   opts.Engine,
		interval: opts.CheckInterval,
	})
	_ = supervisor.Add(&statusReporter{
		log:      opts.Log.With(slog.String("task", "statusReporter")),
		engine:   opts.Engine,
		interval: opts.StatusInterval,
	})
	return s
}

// Add attaches another long-running service, such as the admin listener,
// to the server's supervision tree.
func (s *Server) Add(svc suture.Service) {
	_ = s.supervisor.Add(svc)
}

func (s *Server) Serve(ctx context.Context) error {
	s.log.Info("starting server")
	if err := s.supervisor.Serve(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// checker runs one evaluation cycle per interval. Cycle errors are
// reportable conditions (no healthy alternative, aborted switches); they
// are logged and the loop keeps going.
type checker struct {
	log      *slog.Logger
	engine   *Engine
	interval time.Duration
}

func (c *checker) Serve(ctx context.Context) error {
	for {
		if err := c.engine.Cycle(ctx); err != nil {
			c.log.Error("cycle", slog.Any("error", err))
		}
		select {
		case <-time.After(c.interval):
			// Keep going
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *checker) String() string { return "checker" }

type statusReporter struct {
	log      *slog.Logger
	engine   *Engine
	interval time.Duration
}

func (r *statusReporter) Serve(ctx context.Context) error {
	for {
		select {
		case <-time.After(r.interval):
			// Keep going
		case <-ctx.Done():
			return ctx.Err()
		}

		snap := r.engine.Status(ctx)
		r.log.Info("status",
			slog.String("activeServer", snap.ActiveServer))
		for _, sv := range snap.Servers {
			r.log.Info("server",
				slog.String("name", sv.Name),
				slog.String("addr", sv.Addr),
				slog.Int("port", sv.Port),
				slog.Int("priority", sv.Priority),
				slog.Bool("healthy", sv.Healthy),
				slog.Int("failureCount", sv.FailureCount),
				slog.Bool("active", sv.Name == snap.ActiveServer))
		}
	}
}

func (r *statusReporter) String() string { return "statusReporter" }
