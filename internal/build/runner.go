package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/docker/go-units"
	"github.com/google/uuid"

	"github.com/p-arndt/gotcc/internal/artifact"
	"github.com/p-arndt/gotcc/internal/config"
	"github.com/p-arndt/gotcc/internal/store"
	"github.com/p-arndt/gotcc/tcc"
)

var (
	ErrOutputTooLarge = errors.New("output exceeds max_output_size")
	ErrNoInput        = errors.New("no input files or sources")
	ErrOutputPath     = errors.New("output path required for file output types")
)

// Request is one compile job on top of the configured profile.
type Request struct {
	Files      []string
	Sources    []string // inline C translation units
	Libraries  []string
	Includes   []string
	Defines    map[string]string
	OutputType tcc.OutputType // zero uses the profile's type
	OutputPath string
	Args       []string // argv for main with memory output
}

type Result struct {
	BuildID     string         `json:"build_id"`
	SessionID   string         `json:"session_id"`
	OutputType  tcc.OutputType `json:"output_type"`
	ExitCode    int            `json:"exit_code"`
	Artifact    *artifact.Info `json:"artifact,omitempty"`
	Diagnostics []string       `json:"diagnostics,omitempty"`
	Duration    time.Duration  `json:"duration"`
}

type Runner struct {
	cfg       *config.Config
	open      SessionFactory
	journal   Journal // nil disables journaling
	logger    *slog.Logger
	maxOutput int64
}

func NewRunner(cfg *config.Config, open SessionFactory, journal Journal, logger *slog.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	maxOutput, err := cfg.MaxOutputBytes()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		cfg:       cfg,
		open:      open,
		journal:   journal,
		logger:    logger,
		maxOutput: maxOutput,
	}, nil
}

// Build compiles req in a fresh session. For memory output it runs main
// and reports its status in Result.ExitCode; otherwise it writes and checks
// the artifact. The outcome is journaled when a journal is configured.
//
// ctx is only checked between engine calls; a call in progress always
// completes.
func (r *Runner) Build(ctx context.Context, req Request) (*Result, error) {
	outType := req.OutputType
	if outType == 0 {
		var err error
		if outType, err = r.cfg.OutputType(); err != nil {
			return nil, err
		}
	}
	if len(req.Files) == 0 && len(req.Sources) == 0 {
		return nil, ErrNoInput
	}
	if outType != tcc.OutputMemory && req.OutputPath == "" {
		return nil, fmt.Errorf("%w: %s", ErrOutputPath, outType)
	}

	start := time.Now()
	buildID := uuid.New().String()
	logger := r.logger.With("build_id", buildID)

	sess, err := r.open(logger)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Warn("close session", "error", cerr)
		}
	}()

	res := &Result{
		BuildID:    buildID,
		SessionID:  sess.ID(),
		OutputType: outType,
	}

	r.journalCreate(logger, &store.Build{
		ID:         buildID,
		SessionID:  res.SessionID,
		OutputType: outType.String(),
		OutputPath: req.OutputPath,
		CreatedAt:  start.UTC(),
	})

	steps := func() error {
		if err := r.applyProfile(ctx, sess, outType, req); err != nil {
			return err
		}
		if err := r.feed(ctx, sess, req); err != nil {
			return err
		}
		if outType == tcc.OutputMemory {
			status, err := sess.Run(req.Args...)
			res.ExitCode = status
			return err
		}
		return sess.OutputFile(req.OutputPath)
	}

	if r.cfg.Trap {
		err = sess.Trap(steps)
	} else {
		err = steps()
	}

	if err == nil && outType != tcc.OutputMemory {
		res.Artifact, err = r.checkArtifact(logger, req.OutputPath, outType)
	}

	res.Diagnostics = sess.Errors()
	res.Duration = time.Since(start)
	r.journalFinish(logger, buildID, res, err)

	if err != nil {
		logger.Info("build failed", "error", err, "diagnostics", len(res.Diagnostics))
		return res, err
	}
	logger.Info("build finished",
		"output_type", outType.String(),
		"exit_code", res.ExitCode,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (r *Runner) applyProfile(ctx context.Context, sess Session, outType tcc.OutputType, req Request) error {
	p := r.cfg.Compiler

	var steps []func() error
	if p.LibPath != "" {
		steps = append(steps, func() error { return sess.SetLibPath(p.LibPath) })
	}
	if p.Options != "" {
		steps = append(steps, func() error { return sess.SetOptions(p.Options) })
	}
	for _, dir := range append(slices.Clone(p.IncludePaths), req.Includes...) {
		steps = append(steps, func() error { return sess.AddIncludePath(dir) })
	}
	for _, dir := range p.SysIncludePaths {
		steps = append(steps, func() error { return sess.AddSysIncludePath(dir) })
	}
	for _, dir := range p.LibraryPaths {
		steps = append(steps, func() error { return sess.AddLibraryPath(dir) })
	}
	for _, name := range sortedKeys(p.Flags) {
		flag, err := tcc.ParseFlag(name)
		if err != nil {
			return err
		}
		on := p.Flags[name]
		steps = append(steps, func() error { return sess.SetFlag(flag, on) })
	}
	for _, name := range sortedKeys(p.Defines) {
		value := p.Defines[name]
		steps = append(steps, func() error { return sess.DefineSymbol(name, value) })
	}
	for _, name := range sortedKeys(req.Defines) {
		value := req.Defines[name]
		steps = append(steps, func() error { return sess.DefineSymbol(name, value) })
	}
	for _, name := range p.Undefines {
		steps = append(steps, func() error { return sess.UndefineSymbol(name) })
	}
	steps = append(steps, func() error { return sess.SetOutputType(outType) })

	return runSteps(ctx, steps)
}

// feed adds files, then inline sources, then libraries, the order a tcc
// command line resolves them in.
func (r *Runner) feed(ctx context.Context, sess Session, req Request) error {
	var steps []func() error
	for _, f := range req.Files {
		steps = append(steps, func() error { return sess.AddFile(f) })
	}
	for _, src := range req.Sources {
		steps = append(steps, func() error { return sess.CompileString(src) })
	}
	for _, lib := range append(slices.Clone(req.Libraries), r.cfg.Compiler.Libraries...) {
		steps = append(steps, func() error { return sess.AddLibrary(lib) })
	}
	return runSteps(ctx, steps)
}

func runSteps(ctx context.Context, steps []func() error) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) checkArtifact(logger *slog.Logger, path string, outType tcc.OutputType) (*artifact.Info, error) {
	info, err := artifact.Inspect(path)
	if err != nil {
		return nil, err
	}
	if r.maxOutput > 0 && info.Size > r.maxOutput {
		return info, fmt.Errorf("%w: %s > %s", ErrOutputTooLarge,
			units.BytesSize(float64(info.Size)), units.BytesSize(float64(r.maxOutput)))
	}
	if !info.Matches(outType) {
		logger.Warn("artifact kind does not match output type",
			"path", path, "kind", info.Kind.String(), "output_type", outType.String())
	}
	logger.Debug("artifact written", "artifact", info.String())
	return info, nil
}

func (r *Runner) journalCreate(logger *slog.Logger, b *store.Build) {
	if r.journal == nil {
		return
	}
	if err := r.journal.CreateBuild(b); err != nil {
		logger.Warn("journal create build", "error", err)
	}
}

func (r *Runner) journalFinish(logger *slog.Logger, buildID string, res *Result, buildErr error) {
	if r.journal == nil {
		return
	}
	if err := r.journal.AddDiagnostics(buildID, res.Diagnostics); err != nil {
		logger.Warn("journal diagnostics", "error", err)
	}

	status, msg := store.StatusSucceeded, ""
	switch {
	case errors.Is(buildErr, tcc.ErrAbort):
		status, msg = store.StatusAborted, buildErr.Error()
	case buildErr != nil:
		status, msg = store.StatusFailed, buildErr.Error()
	}
	if err := r.journal.FinishBuild(buildID, status, res.ExitCode, msg); err != nil {
		logger.Warn("journal finish build", "error", err)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
