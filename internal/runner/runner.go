// Package runner executes one unit of work end to end: validate the unit
// value, open the page, run the handler pipeline, validate the result, and
// hand continuation units to the scheduler.
package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sizieks/parsers/internal/auth"
	"github.com/sizieks/parsers/internal/browser"
	"github.com/sizieks/parsers/internal/config"
	"github.com/sizieks/parsers/internal/pipeline"
	"github.com/sizieks/parsers/internal/ratelimit"
	"github.com/sizieks/parsers/internal/reqctx"
	"github.com/sizieks/parsers/internal/retry"
	"github.com/sizieks/parsers/internal/sched"
	"github.com/sizieks/parsers/internal/schema"
	urlutil "github.com/sizieks/parsers/internal/utils/url"
	"github.com/sizieks/parsers/internal/view"
	"github.com/sizieks/parsers/internal/view/cdp"
	"github.com/sizieks/parsers/pkg/models"
)

// Runner wires the extraction pipelines to the browser, the rate limiter
// and the scheduler.
type Runner struct {
	cfg       *config.Config
	registry  pipeline.Registry
	browser   *browser.Browser
	limiter   *ratelimit.HostLimiter
	scheduler sched.Scheduler
}

// New creates a Runner. A nil scheduler discards continuation units.
func New(cfg *config.Config, registry pipeline.Registry, b *browser.Browser, scheduler sched.Scheduler) *Runner {
	if scheduler == nil {
		scheduler = sched.Discard
	}
	return &Runner{
		cfg:       cfg,
		registry:  registry,
		browser:   b,
		limiter:   ratelimit.NewHostLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		scheduler: scheduler,
	}
}

// Options adjust how a single unit runs.
type Options struct {
	// SnapshotPath runs the pipeline against a saved HTML file instead of
	// a live browser tab. Useful for replays and selector debugging.
	SnapshotPath string

	// SessionName names a stored cookie set to inject when the unit value
	// carries none of its own.
	SessionName string
}

// Run executes one unit of work and returns the handler's result document.
func (r *Runner) Run(ctx context.Context, unit models.WorkUnit, opts Options) (any, error) {
	start := time.Now()
	ctx = reqctx.WithUnit(ctx, unit.Handler)
	info := reqctx.Unit(ctx)

	p, err := r.registry.Lookup(unit.Handler)
	if err != nil {
		return nil, reqctx.WrapError(ctx, err)
	}

	value := cloneValue(unit.Value)
	schema.ApplyDefaults(value, p.InputSchema())
	if res := schema.Validate(value, p.InputSchema()); !res.OK {
		verr := pipeline.NewError(pipeline.CodeValidation, "unit value rejected", nil)
		for _, fe := range res.Errors {
			verr = verr.WithDetail(fe.Path, fe.Message)
		}
		return nil, reqctx.WrapError(ctx, verr)
	}

	uc := pipeline.ContextFrom(unit.Handler, value)
	if len(uc.Cookies) == 0 && opts.SessionName != "" {
		session, err := auth.LoadSession(opts.SessionName)
		if err != nil {
			return nil, reqctx.WrapError(ctx, fmt.Errorf("session %q: %w", opts.SessionName, err))
		}
		uc.Cookies = session.Cookies
		uc.Session = opts.SessionName
	}

	log.Info().
		Str("unit_id", info.UnitID).
		Str("handler", unit.Handler).
		Str("sku", uc.SKU).
		Int("page", uc.Page).
		Msg("Unit started")

	page, closePage, err := r.openPage(ctx, p, uc, opts)
	if err != nil {
		return nil, reqctx.WrapError(ctx, err)
	}
	defer closePage()

	result, err := p.Run(ctx, uc, page)
	if err != nil {
		log.Error().
			Str("unit_id", info.UnitID).
			Str("handler", unit.Handler).
			Err(err).
			Msg("Unit failed")
		return nil, reqctx.WrapError(ctx, err)
	}

	value1, err := schema.Normalize(result.Value)
	if err != nil {
		return nil, reqctx.WrapError(ctx, pipeline.NewError(pipeline.CodeExtraction, "result not serializable", err))
	}
	if res := schema.Validate(value1, p.OutputSchema()); !res.OK {
		// Output drift is reported but the data still flows; the caller
		// decides whether a partial document is usable.
		for _, fe := range res.Errors {
			log.Warn().
				Str("unit_id", info.UnitID).
				Str("field", fe.Path).
				Str("problem", fe.Message).
				Msg("Result document mismatch")
		}
	}

	scheduled := 0
	for _, u := range result.Units {
		if err := r.scheduler.Schedule(ctx, u); err != nil {
			return value1, reqctx.WrapError(ctx, fmt.Errorf("scheduling continuation: %w", err))
		}
		scheduled++
	}

	log.Info().
		Str("unit_id", info.UnitID).
		Str("handler", unit.Handler).
		Int("continuations", scheduled).
		Dur("elapsed_ms", time.Since(start)).
		Msg("Unit completed")

	return value1, nil
}

// openPage produces the rendered view a pipeline runs against, either from
// a live tab or a saved snapshot.
func (r *Runner) openPage(ctx context.Context, p pipeline.Pipeline, uc models.UnitContext, opts Options) (pipeline.Page, func(), error) {
	if opts.SnapshotPath != "" {
		raw, err := os.ReadFile(opts.SnapshotPath)
		if err != nil {
			return pipeline.Page{}, nil, fmt.Errorf("reading snapshot: %w", err)
		}
		snap, err := view.NewSnapshot(string(raw))
		if err != nil {
			return pipeline.Page{}, nil, fmt.Errorf("parsing snapshot: %w", err)
		}
		return pipeline.Page{Tree: snap, State: view.NewScriptState(snap)}, func() {}, nil
	}

	url := p.PageURL(uc)
	log.Debug().Str("host", urlutil.Host(url)).Msg("Waiting on host rate limit")
	if err := r.limiter.Wait(ctx, url); err != nil {
		return pipeline.Page{}, nil, err
	}

	var tab *browser.Tab
	err := retry.Do(ctx, retryConfig(r.cfg), func() error {
		var err error
		tab, err = r.browser.Open(ctx, url, uc.Cookies)
		return err
	})
	if err != nil {
		return pipeline.Page{}, nil, pipeline.NewError(pipeline.CodeBrowser, "page never rendered", err)
	}

	tabCtx := tab.Context()
	return pipeline.Page{Tree: cdp.NewTree(tabCtx), State: cdp.NewState(tabCtx)}, tab.Close, nil
}

func retryConfig(cfg *config.Config) retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.RetryAttempts
	return rc
}

func cloneValue(value map[string]any) map[string]any {
	out := make(map[string]any, len(value))
	for k, v := range value {
		out[k] = v
	}
	return out
}
