package tcc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/p-arndt/gotcc/internal/engine"
)

func TestConfigureMovesToConfiguring(t *testing.T) {
	s, eng := newTestSession(t)
	eng.On("SetLibPath", "/usr/lib/tcc").Return()

	require.NoError(t, s.SetLibPath("/usr/lib/tcc"))

	assert.Equal(t, StateConfiguring, s.State())
	assert.Equal(t, "/usr/lib/tcc", s.Settings().LibPath)
	eng.AssertExpectations(t)
}

func TestIncludePathsAppend(t *testing.T) {
	s, eng := newTestSession(t)
	eng.On("AddIncludePath", mock.Anything).Return()
	eng.On("AddSysIncludePath", "/opt/sys").Return()
	eng.On("AddLibraryPath", "/opt/lib").Return()

	require.NoError(t, s.AddIncludePath("a"))
	require.NoError(t, s.AddIncludePath("b"))
	require.NoError(t, s.AddSysIncludePath("/opt/sys"))
	require.NoError(t, s.AddLibraryPath("/opt/lib"))

	st := s.Settings()
	assert.Equal(t, []string{"a", "b"}, st.IncludePaths)
	assert.Equal(t, []string{"/opt/sys"}, st.SysIncludePaths)
	assert.Equal(t, []string{"/opt/lib"}, st.LibraryPaths)
	eng.AssertNumberOfCalls(t, "AddIncludePath", 2)
}

func TestEmptyPathsAreInvalid(t *testing.T) {
	s, eng := newTestSession(t)

	assert.ErrorIs(t, s.SetLibPath(""), ErrInvalidArgument)
	assert.ErrorIs(t, s.AddIncludePath(""), ErrInvalidArgument)
	assert.ErrorIs(t, s.AddSysIncludePath(""), ErrInvalidArgument)
	assert.ErrorIs(t, s.AddLibraryPath(""), ErrInvalidArgument)
	assert.ErrorIs(t, s.SetOptions(""), ErrInvalidArgument)

	assert.Equal(t, StateFresh, s.State())
	eng.AssertNotCalled(t, "AddIncludePath", mock.Anything)
}

func TestSetOptionsNegativeResultIsInvalidArgument(t *testing.T) {
	s, eng := newTestSession(t)
	eng.On("SetOptions", "-Wall").Return(0)
	eng.On("SetOptions", "-bogus").Run(func(mock.Arguments) {
		eng.diagnose("invalid option -- '-bogus'")
	}).Return(-1)

	require.NoError(t, s.SetOptions("-Wall"))

	err := s.SetOptions("-bogus")
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "invalid option")
	assert.Equal(t, []string{"-Wall"}, s.Settings().Options)
}

func TestSetFlagsAreIndependent(t *testing.T) {
	s, eng := newTestSession(t)
	eng.On("SetFlag", engine.FlagWarnError, true).Return()
	eng.On("SetFlag", engine.FlagNoStdLib, true).Return()
	eng.On("SetFlag", engine.FlagWarnError, false).Return()

	require.NoError(t, s.SetFlag(FlagWarnError, true))
	require.NoError(t, s.SetFlag(FlagNoStdLib, true))
	require.NoError(t, s.SetFlag(FlagWarnError, false))

	flags := s.Settings().Flags
	assert.False(t, flags[FlagWarnError])
	assert.True(t, flags[FlagNoStdLib])
	eng.AssertExpectations(t)
}

func TestSetFlagRejectsUnknown(t *testing.T) {
	s, _ := newTestSession(t)
	assert.ErrorIs(t, s.SetFlag(Flag(99), true), ErrInvalidArgument)
	assert.ErrorIs(t, s.SetFlag(Flag(-1), true), ErrInvalidArgument)
}

func TestSetOutputType(t *testing.T) {
	s, eng := newTestSession(t)
	eng.On("SetOutputType", int(engine.OutputExe)).Return(0)

	require.NoError(t, s.SetOutputType(OutputExe))

	assert.Equal(t, OutputExe, s.Settings().OutputType)
	assert.Equal(t, StateConfiguring, s.State())
}

func TestSetOutputTypeRejectsInvalidCodes(t *testing.T) {
	s, eng := newTestSession(t)

	for _, code := range []OutputType{0, 6, -1, 42} {
		assert.ErrorIs(t, s.SetOutputType(code), ErrInvalidArgument, "code %d", code)
	}
	eng.AssertNotCalled(t, "SetOutputType", mock.Anything)
	assert.Equal(t, StateFresh, s.State())
}

func TestSetOutputTypeAcceptsRawPreprocessCode(t *testing.T) {
	s, eng := newTestSession(t)
	eng.On("SetOutputType", 5).Return(0)

	require.NoError(t, s.SetOutputType(OutputType(5)))
	assert.Equal(t, OutputPreprocess, s.Settings().OutputType)
}

func TestOutputTypeFixedOnceSourcesAdded(t *testing.T) {
	s, eng := newTestSession(t)
	eng.On("SetOutputType", int(engine.OutputMemory)).Return(0).Once()
	eng.On("CompileString", "int x;").Return(0)

	require.NoError(t, s.SetOutputType(OutputMemory))
	require.NoError(t, s.CompileString("int x;"))

	assert.NoError(t, s.SetOutputType(OutputMemory))
	assert.ErrorIs(t, s.SetOutputType(OutputDLL), ErrState)
	assert.Equal(t, OutputMemory, s.Settings().OutputType)
	eng.AssertNumberOfCalls(t, "SetOutputType", 1)
}

func TestOutputTypeMustPrecedeFirstSource(t *testing.T) {
	s, eng := sourcesAdded(t)

	err := s.SetOutputType(OutputMemory)
	require.ErrorIs(t, err, ErrState)
	assert.Contains(t, err.Error(), "before the first source")
	eng.AssertNotCalled(t, "SetOutputType", mock.Anything)
}

func TestSetOptionsRejectionWithoutDiagnostic(t *testing.T) {
	s, eng := newTestSession(t)
	eng.On("SetOptions", "-Wall").Run(func(mock.Arguments) {
		eng.diagnose("warning: earlier")
	}).Return(0)
	eng.On("SetOptions", "-bogus").Return(-1)

	require.NoError(t, s.SetOptions("-Wall"))

	err := s.SetOptions("-bogus")
	require.ErrorIs(t, err, ErrInvalidArgument)
	assert.Contains(t, err.Error(), "engine rejected set options")
	assert.NotContains(t, err.Error(), "earlier")
}

func TestConfigurationInterleavesWithSources(t *testing.T) {
	s, eng := sourcesAdded(t)
	eng.On("AddIncludePath", "more").Return()

	require.NoError(t, s.AddIncludePath("more"))
	assert.Equal(t, StateSourcesAdded, s.State())
}

func TestConfigurationAfterRelocationFails(t *testing.T) {
	s, eng := sourcesAdded(t)
	eng.On("RelocateAuto").Return(0)

	_, err := s.Relocate(RelocateAuto)
	require.NoError(t, err)

	assert.ErrorIs(t, s.AddIncludePath("late"), ErrState)
	assert.ErrorIs(t, s.SetFlag(FlagVerbose, true), ErrState)
	assert.ErrorIs(t, s.SetOutputType(OutputMemory), ErrState)
	eng.AssertNotCalled(t, "AddIncludePath", mock.Anything)
}
