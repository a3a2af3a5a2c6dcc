package tcc

import (
	"strconv"
	"strings"

	"github.com/p-arndt/gotcc/internal/engine"
)

// OutputType selects the artifact the engine produces. The values are the
// engine's own codes.
type OutputType int

const (
	OutputMemory     OutputType = engine.OutputMemory
	OutputExe        OutputType = engine.OutputExe
	OutputDLL        OutputType = engine.OutputDLL
	OutputObj        OutputType = engine.OutputObj
	OutputPreprocess OutputType = engine.OutputPreprocess // engine-internal, raw code only
)

var outputTypeNames = map[string]OutputType{
	"memory": OutputMemory,
	"exe":    OutputExe,
	"dll":    OutputDLL,
	"obj":    OutputObj,
}

// Valid reports whether t is a code the engine understands.
func (t OutputType) Valid() bool {
	return t >= OutputMemory && t <= OutputPreprocess
}

func (t OutputType) String() string {
	switch t {
	case OutputMemory:
		return "memory"
	case OutputExe:
		return "exe"
	case OutputDLL:
		return "dll"
	case OutputObj:
		return "obj"
	case OutputPreprocess:
		return "preprocess"
	}
	return "OutputType(" + strconv.Itoa(int(t)) + ")"
}

// ParseOutputType accepts one of memory, exe, dll, obj or a decimal engine
// code.
func ParseOutputType(s string) (OutputType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if t, ok := outputTypeNames[key]; ok {
		return t, nil
	}
	if n, err := strconv.Atoi(key); err == nil && OutputType(n).Valid() {
		return OutputType(n), nil
	}
	return 0, invalidArgument(nil, "invalid output type: %q", s)
}

func (t OutputType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, invalidArgument(nil, "invalid output type: %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *OutputType) UnmarshalText(b []byte) error {
	v, err := ParseOutputType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Flag is one of the engine's boolean compiler switches.
type Flag int

const (
	FlagVerbose                         = Flag(engine.FlagVerbose)
	FlagNoStdInc                        = Flag(engine.FlagNoStdInc)
	FlagNoStdLib                        = Flag(engine.FlagNoStdLib)
	FlagNoCommon                        = Flag(engine.FlagNoCommon)
	FlagStaticLink                      = Flag(engine.FlagStaticLink)
	FlagRDynamic                        = Flag(engine.FlagRDynamic)
	FlagSymbolic                        = Flag(engine.FlagSymbolic)
	FlagAlacarteLink                    = Flag(engine.FlagAlacarteLink)
	FlagCharIsUnsigned                  = Flag(engine.FlagCharIsUnsigned)
	FlagLeadingUnderscore               = Flag(engine.FlagLeadingUnderscore)
	FlagMSExtensions                    = Flag(engine.FlagMSExtensions)
	FlagDollarsInIdentifiers            = Flag(engine.FlagDollarsInIdentifiers)
	FlagMSBitfields                     = Flag(engine.FlagMSBitfields)
	FlagWarnWriteStrings                = Flag(engine.FlagWarnWriteStrings)
	FlagWarnUnsupported                 = Flag(engine.FlagWarnUnsupported)
	FlagWarnError                       = Flag(engine.FlagWarnError)
	FlagWarnNone                        = Flag(engine.FlagWarnNone)
	FlagWarnImplicitFunctionDeclaration = Flag(engine.FlagWarnImplicitFunctionDeclaration)
	FlagWarnGCCCompat                   = Flag(engine.FlagWarnGCCCompat)
)

var flagNames = [engine.NumFlags]string{
	engine.FlagVerbose:                         "verbose",
	engine.FlagNoStdInc:                        "nostdinc",
	engine.FlagNoStdLib:                        "nostdlib",
	engine.FlagNoCommon:                        "nocommon",
	engine.FlagStaticLink:                      "static_link",
	engine.FlagRDynamic:                        "rdynamic",
	engine.FlagSymbolic:                        "symbolic",
	engine.FlagAlacarteLink:                    "alacarte_link",
	engine.FlagCharIsUnsigned:                  "char_is_unsigned",
	engine.FlagLeadingUnderscore:               "leading_underscore",
	engine.FlagMSExtensions:                    "ms_extensions",
	engine.FlagDollarsInIdentifiers:            "dollars_in_identifiers",
	engine.FlagMSBitfields:                     "ms_bitfields",
	engine.FlagWarnWriteStrings:                "warn_write_strings",
	engine.FlagWarnUnsupported:                 "warn_unsupported",
	engine.FlagWarnError:                       "warn_error",
	engine.FlagWarnNone:                        "warn_none",
	engine.FlagWarnImplicitFunctionDeclaration: "warn_implicit_function_declaration",
	engine.FlagWarnGCCCompat:                   "warn_gcc_compat",
}

func (f Flag) Valid() bool {
	return f >= 0 && int(f) < len(flagNames)
}

func (f Flag) String() string {
	if !f.Valid() {
		return "Flag(" + strconv.Itoa(int(f)) + ")"
	}
	return flagNames[f]
}

// ParseFlag maps a snake_case flag name such as "warn_error" to its Flag.
func ParseFlag(name string) (Flag, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	for i, n := range flagNames {
		if n == key {
			return Flag(i), nil
		}
	}
	return 0, invalidArgument(nil, "unknown flag: %q", name)
}

// Flags lists every flag in engine order.
func Flags() []Flag {
	out := make([]Flag, len(flagNames))
	for i := range out {
		out[i] = Flag(i)
	}
	return out
}
