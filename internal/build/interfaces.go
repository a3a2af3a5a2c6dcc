package build

import (
	"log/slog"

	"github.com/p-arndt/gotcc/internal/store"
	"github.com/p-arndt/gotcc/tcc"
)

// Session is the part of *tcc.Session the runner drives.
type Session interface {
	ID() string
	SetLibPath(path string) error
	SetOptions(opts string) error
	AddIncludePath(path string) error
	AddSysIncludePath(path string) error
	AddLibraryPath(path string) error
	SetFlag(flag tcc.Flag, on bool) error
	SetOutputType(t tcc.OutputType) error
	DefineSymbol(name, value string) error
	UndefineSymbol(name string) error
	AddFile(path string) error
	CompileString(src string) error
	AddLibrary(name string) error
	OutputFile(path string) error
	Run(args ...string) (int, error)
	Trap(fn func() error) error
	Errors() []string
	Close() error
}

type Journal interface {
	CreateBuild(b *store.Build) error
	FinishBuild(id, status string, exitCode int, errMsg string) error
	AddDiagnostics(buildID string, msgs []string) error
}

// SessionFactory opens a new compiler session logging to logger.
type SessionFactory func(logger *slog.Logger) (Session, error)

// OpenSession is the SessionFactory backed by libtcc.
func OpenSession(logger *slog.Logger) (Session, error) {
	s, err := tcc.New(tcc.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return s, nil
}
