package build

import (
	"github.com/stretchr/testify/mock"

	"github.com/p-arndt/gotcc/internal/store"
	"github.com/p-arndt/gotcc/tcc"
)

type MockSession struct {
	mock.Mock
}

func (m *MockSession) ID() string {
	return "sess-123"
}

func (m *MockSession) SetLibPath(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockSession) SetOptions(opts string) error {
	args := m.Called(opts)
	return args.Error(0)
}

func (m *MockSession) AddIncludePath(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockSession) AddSysIncludePath(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockSession) AddLibraryPath(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockSession) SetFlag(flag tcc.Flag, on bool) error {
	args := m.Called(flag, on)
	return args.Error(0)
}

func (m *MockSession) SetOutputType(t tcc.OutputType) error {
	args := m.Called(t)
	return args.Error(0)
}

func (m *MockSession) DefineSymbol(name, value string) error {
	args := m.Called(name, value)
	return args.Error(0)
}

func (m *MockSession) UndefineSymbol(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

func (m *MockSession) AddFile(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockSession) CompileString(src string) error {
	args := m.Called(src)
	return args.Error(0)
}

func (m *MockSession) AddLibrary(name string) error {
	args := m.Called(name)
	return args.Error(0)
}

func (m *MockSession) OutputFile(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockSession) Run(argv ...string) (int, error) {
	args := m.Called(argv)
	return args.Int(0), args.Error(1)
}

// Trap runs fn unless the expectation returns an error, in which case that
// error replaces fn's result as an engine abort would.
func (m *MockSession) Trap(fn func() error) error {
	args := m.Called()
	err := fn()
	if aerr := args.Error(0); aerr != nil {
		return aerr
	}
	return err
}

func (m *MockSession) Errors() []string {
	args := m.Called()
	if msgs := args.Get(0); msgs != nil {
		return msgs.([]string)
	}
	return nil
}

func (m *MockSession) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) CreateBuild(b *store.Build) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockJournal) FinishBuild(id, status string, exitCode int, errMsg string) error {
	args := m.Called(id, status, exitCode, errMsg)
	return args.Error(0)
}

func (m *MockJournal) AddDiagnostics(buildID string, msgs []string) error {
	args := m.Called(buildID, msgs)
	return args.Error(0)
}
