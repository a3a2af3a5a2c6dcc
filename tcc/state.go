package tcc

// State is the position of a Session in its lifecycle. Configuration and
// source intake may interleave; OutputWritten and Relocated are terminal
// for compilation and never lead back to an earlier state.
type State int

const (
	StateFresh State = iota
	StateConfiguring
	StateSourcesAdded
	StateOutputWritten
	StateRelocated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateConfiguring:
		return "configuring"
	case StateSourcesAdded:
		return "sources added"
	case StateOutputWritten:
		return "output written"
	case StateRelocated:
		return "relocated"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

func (s State) linked() bool {
	return s == StateOutputWritten || s == StateRelocated
}

// Settings is a snapshot of the configuration applied to a session.
type Settings struct {
	LibPath         string
	Options         []string
	IncludePaths    []string
	SysIncludePaths []string
	LibraryPaths    []string
	Defines         map[string]string
	Flags           map[Flag]bool
	OutputType      OutputType // zero until set
}

func (st Settings) clone() Settings {
	out := st
	out.Options = append([]string(nil), st.Options...)
	out.IncludePaths = append([]string(nil), st.IncludePaths...)
	out.SysIncludePaths = append([]string(nil), st.SysIncludePaths...)
	out.LibraryPaths = append([]string(nil), st.LibraryPaths...)
	out.Defines = make(map[string]string, len(st.Defines))
	for k, v := range st.Defines {
		out.Defines[k] = v
	}
	out.Flags = make(map[Flag]bool, len(st.Flags))
	for k, v := range st.Flags {
		out.Flags[k] = v
	}
	return out
}
