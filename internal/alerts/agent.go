package alerts

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/AngelCh415/yukti/internal/store"
)

// cronLogger routes cron's own logging through slog.
type cronLogger struct{ log *slog.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) { l.log.Debug(msg, kv...) }
func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error(msg, append(kv, "err", err)...)
}

// Agent resolves pending issues on a schedule without a browser attached. It owns a
// process-level session in auto mode, so its resolved set lives as long as the
// process.
type Agent struct {
	c       *Controller
	sess    *store.Session
	cron    *cron.Cron
	timeout time.Duration
	log     *slog.Logger
}

// NewAgent schedules one AutoResolveNext pass per tick of schedule, a cron expression
// or descriptor such as "@every 30s". Overlapping ticks are skipped.
func NewAgent(c *Controller, schedule string, timeout time.Duration, log *slog.Logger) (*Agent, error) {
	if log == nil {
		log = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	cl := cronLogger{log: log.With(slog.String("component", "agent"))}
	a := &Agent{
		c:       c,
		sess:    store.NewSession("agent"),
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		timeout: timeout,
		log:     cl.log,
	}
	a.sess.SetAuto(true)
	if _, err := a.cron.AddFunc(schedule, a.Tick); err != nil {
		return nil, err
	}
	return a, nil
}

// Session is the agent's own session.
func (a *Agent) Session() *store.Session { return a.sess }

func (a *Agent) Start() {
	a.log.Info("agent started")
	a.cron.Start()
}

// Stop halts scheduling and waits for a running pass, or ctx, whichever ends first.
func (a *Agent) Stop(ctx context.Context) {
	done := a.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	a.log.Info("agent stopped")
}

// Tick runs one pass.
func (a *Agent) Tick() {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	res, err := a.c.AutoResolveNext(ctx, a.sess, func(s Step) {
		a.log.Info(s.Message, slog.String("phase", string(s.Phase)))
	})
	if err != nil {
		a.log.Error("auto-resolve pass failed", slog.Any("err", err))
		return
	}
	if res.Empty {
		a.log.Debug("queue empty")
	}
}
