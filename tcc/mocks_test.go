package tcc

import (
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/mock"

	"github.com/p-arndt/gotcc/internal/engine"
)

// MockEngine records engine calls. Arm, Aborted, SetErrorFunc and Close are
// tracked outside mock.Mock so tests only set expectations for the calls
// they care about.
type MockEngine struct {
	mock.Mock

	emit       engine.ErrorFunc
	armed      bool
	aborted    bool
	closed     atomic.Int32
	superseded atomic.Bool // another native instance became current
}

var _ engine.Engine = (*MockEngine)(nil)

// diagnose emits msg through the registered error function, as the engine
// does from inside a call.
func (m *MockEngine) diagnose(msg string) {
	if m.emit != nil {
		m.emit(msg)
	}
}

// abort simulates a fatal engine error unwinding to the armed checkpoint.
func (m *MockEngine) abort(msg string) {
	m.diagnose(msg)
	if m.armed {
		m.aborted = true
	}
}

func (m *MockEngine) SetErrorFunc(fn engine.ErrorFunc) {
	m.emit = fn
}

func (m *MockEngine) SetLibPath(path string) {
	m.Called(path)
}

func (m *MockEngine) SetOptions(opts string) int {
	args := m.Called(opts)
	return args.Int(0)
}

func (m *MockEngine) AddIncludePath(path string) {
	m.Called(path)
}

func (m *MockEngine) AddSysIncludePath(path string) {
	m.Called(path)
}

func (m *MockEngine) AddLibraryPath(path string) {
	m.Called(path)
}

func (m *MockEngine) SetFlag(flag engine.Flag, on bool) {
	m.Called(flag, on)
}

func (m *MockEngine) SetOutputType(code int) int {
	args := m.Called(code)
	return args.Int(0)
}

func (m *MockEngine) DefineSymbol(name, value string) {
	m.Called(name, value)
}

func (m *MockEngine) UndefineSymbol(name string) {
	m.Called(name)
}

func (m *MockEngine) AddFile(path string) int {
	args := m.Called(path)
	return args.Int(0)
}

func (m *MockEngine) CompileString(src string) int {
	args := m.Called(src)
	return args.Int(0)
}

func (m *MockEngine) AddLibrary(name string) int {
	args := m.Called(name)
	return args.Int(0)
}

func (m *MockEngine) AddSymbol(name string, addr unsafe.Pointer) {
	m.Called(name, addr)
}

func (m *MockEngine) OutputFile(path string) int {
	args := m.Called(path)
	return args.Int(0)
}

func (m *MockEngine) Relocate(dst unsafe.Pointer) int {
	args := m.Called(dst)
	return args.Int(0)
}

func (m *MockEngine) RelocateAuto() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockEngine) Symbol(name string) unsafe.Pointer {
	args := m.Called(name)
	if p := args.Get(0); p != nil {
		return p.(unsafe.Pointer)
	}
	return nil
}

func (m *MockEngine) Run(argv []string) int {
	args := m.Called(argv)
	return args.Int(0)
}

func (m *MockEngine) Arm(on bool) {
	m.armed = on
	m.aborted = false
}

func (m *MockEngine) Aborted() bool {
	a := m.aborted
	m.aborted = false
	return a
}

func (m *MockEngine) Current() bool {
	return !m.superseded.Load()
}

func (m *MockEngine) Close() {
	m.closed.Add(1)
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *MockEngine) {
	t.Helper()
	eng := &MockEngine{}
	s := newSession(eng, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, eng
}

// sourcesAdded returns a session that already consumed one source.
func sourcesAdded(t *testing.T) (*Session, *MockEngine) {
	t.Helper()
	s, eng := newTestSession(t)
	eng.On("CompileString", "int x;").Return(0).Once()
	if err := s.CompileString("int x;"); err != nil {
		t.Fatalf("compile: %v", err)
	}
	return s, eng
}
