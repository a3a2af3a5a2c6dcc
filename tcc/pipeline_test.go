package tcc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAddFileFailureCarriesFileAndDiagnostic(t *testing.T) {
	s, eng := newTestSession(t)
	eng.On("AddFile", "missing.c").Run(func(mock.Arguments) {
		eng.diagnose("file 'missing.c' not found")
	}).Return(-1)

	err := s.AddFile("missing.c")
	require.ErrorIs(t, err, ErrAddFile)

	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "missing.c", terr.File)
	assert.Equal(t, "file 'missing.c' not found", terr.Message)
	assert.Same(t, s, terr.Session)
	assert.Equal(t, []string{"file 'missing.c' not found"}, terr.Diagnostics())
	assert.Equal(t, StateSourcesAdded, s.State())
}

func TestCompileStringFailureCarriesSource(t *testing.T) {
	s, eng := newTestSession(t)
	src := "int main( { return 0; }"
	eng.On("CompileString", src).Run(func(mock.Arguments) {
		eng.diagnose("<string>:1: error: identifier expected")
	}).Return(-1)

	err := s.CompileString(src)
	require.ErrorIs(t, err, ErrCompile)

	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, src, terr.Source)
	assert.Empty(t, terr.File)
	assert.Equal(t, "<string>:1: error: identifier expected", terr.Message)
}

func TestCompileMessageIsMostRecentDiagnostic(t *testing.T) {
	s, eng := newTestSession(t)
	eng.On("CompileString", "bad").Run(func(mock.Arguments) {
		eng.diagnose("first")
		eng.diagnose("second")
	}).Return(-1)

	err := s.CompileString("bad")

	var terr *Error
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "second", terr.Message)
	assert.Equal(t, []string{"first", "second"}, s.Errors())
}

func TestAddLibraryFailure(t *testing.T) {
	s, eng := newTestSession(t)
	eng.On("AddLibrary", "nosuch").Run(func(mock.Arguments) {
		eng.diagnose("library 'nosuch' not found")
	}).Return(-1)

	err := s.AddLibrary("nosuch")
	assert.ErrorIs(t, err, ErrAddLibrary)
	assert.ErrorIs(t, s.AddLibrary(""), ErrInvalidArgument)
}

func TestSuccessfulIntakeIsAnyNonNegativeResult(t *testing.T) {
	s, eng := newTestSession(t)
	eng.On("AddFile", "lib.o").Return(1)
	eng.On("AddLibrary", "m").Return(0)

	require.NoError(t, s.AddFile("lib.o"))
	require.NoError(t, s.AddLibrary("m"))
	assert.Equal(t, StateSourcesAdded, s.State())
}

func TestDefineAndUndefineSymbol(t *testing.T) {
	s, eng := newTestSession(t)
	eng.On("DefineSymbol", "NDEBUG", "").Return()
	eng.On("DefineSymbol", "VERSION", "3").Return()
	eng.On("UndefineSymbol", "NDEBUG").Return()

	require.NoError(t, s.DefineSymbol("NDEBUG", ""))
	require.NoError(t, s.DefineSymbol("VERSION", "3"))
	require.NoError(t, s.UndefineSymbol("NDEBUG"))

	assert.Equal(t, map[string]string{"VERSION": "3"}, s.Settings().Defines)
	assert.ErrorIs(t, s.DefineSymbol("", "1"), ErrInvalidArgument)
	eng.AssertExpectations(t)
}

func TestAddSymbolRequiresPointer(t *testing.T) {
	s, eng := newTestSession(t)

	err := s.AddSymbol("host_value", nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	eng.AssertNotCalled(t, "AddSymbol", mock.Anything, mock.Anything)
}

func TestAddSymbolPassesAddress(t *testing.T) {
	s, eng := newTestSession(t)
	var value int32 = 7
	addr := unsafe.Pointer(&value)
	eng.On("AddSymbol", "host_value", addr).Return()

	require.NoError(t, s.AddSymbol("host_value", addr))
	eng.AssertExpectations(t)
}

func TestOutputFile(t *testing.T) {
	s, eng := sourcesAdded(t)
	eng.On("OutputFile", "out/app").Return(0)

	require.NoError(t, s.OutputFile("out/app"))
	assert.Equal(t, StateOutputWritten, s.State())
}

func TestOutputFileFailureKeepsState(t *testing.T) {
	s, eng := sourcesAdded(t)
	eng.On("OutputFile", "/nope/app").Run(func(mock.Arguments) {
		eng.diagnose("could not write '/nope/app'")
	}).Return(-1)

	err := s.OutputFile("/nope/app")
	require.ErrorIs(t, err, ErrOutputFile)
	assert.Contains(t, err.Error(), "could not write")
	assert.Equal(t, StateSourcesAdded, s.State())
}

func TestOutputFileBeforeSourcesFails(t *testing.T) {
	s, eng := newTestSession(t)

	assert.ErrorIs(t, s.OutputFile("a.out"), ErrState)
	assert.ErrorIs(t, s.OutputFile(""), ErrInvalidArgument)
	eng.AssertNotCalled(t, "OutputFile", mock.Anything)
}

func TestOutputWrittenIsTerminal(t *testing.T) {
	s, eng := sourcesAdded(t)
	eng.On("OutputFile", "a.out").Return(0).Once()
	require.NoError(t, s.OutputFile("a.out"))

	var value int
	assert.ErrorIs(t, s.OutputFile("a.out"), ErrState)
	assert.ErrorIs(t, s.CompileString("int y;"), ErrState)
	assert.ErrorIs(t, s.AddFile("more.c"), ErrState)
	assert.ErrorIs(t, s.DefineSymbol("X", "1"), ErrState)
	assert.ErrorIs(t, s.AddSymbol("v", unsafe.Pointer(&value)), ErrState)

	_, err := s.Relocate(RelocateAuto)
	assert.ErrorIs(t, err, ErrState)

	_, err = s.Run()
	assert.ErrorIs(t, err, ErrState)

	eng.AssertNumberOfCalls(t, "OutputFile", 1)
	eng.AssertNumberOfCalls(t, "CompileString", 1)
}
