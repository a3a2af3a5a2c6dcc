// Package artifact classifies files written by the compiler so the build
// runner can tell whether an output matches the requested type.
package artifact

import (
	"bytes"
	"debug/elf"
	"debug/pe"
	"fmt"
	"io"
	"os"

	"github.com/docker/go-units"

	"github.com/p-arndt/gotcc/tcc"
)

type Kind int8

const (
	KindUnknown Kind = iota
	KindEmpty
	KindExecutable
	KindSharedLib
	KindObject
	KindArchive
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindExecutable:
		return "executable"
	case KindSharedLib:
		return "shared library"
	case KindObject:
		return "object"
	case KindArchive:
		return "archive"
	}
	return "unknown"
}

var (
	elfMagic = []byte("\x7fELF")
	peMagic  = []byte("MZ")
	arMagic  = []byte("!<arch>\n")
)

// Info describes an artifact on disk.
type Info struct {
	Path    string
	Kind    Kind
	Format  string // elf, pe, ar
	Machine string
	Size    int64
}

func (i *Info) String() string {
	s := fmt.Sprintf("%s: %s", i.Path, i.Kind)
	if i.Format != "" {
		s += " (" + i.Format
		if i.Machine != "" {
			s += ", " + i.Machine
		}
		s += ")"
	}
	return s + ", " + units.HumanSize(float64(i.Size))
}

// Matches reports whether the artifact kind is what output type t produces.
func (i *Info) Matches(t tcc.OutputType) bool {
	switch t {
	case tcc.OutputExe:
		return i.Kind == KindExecutable
	case tcc.OutputDLL:
		return i.Kind == KindSharedLib
	case tcc.OutputObj:
		return i.Kind == KindObject
	}
	return false
}

// Inspect opens path and classifies it.
func Inspect(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat artifact: %w", err)
	}

	info := &Info{Path: path, Size: st.Size()}
	if err := classify(f, info); err != nil {
		return nil, fmt.Errorf("inspect %s: %w", path, err)
	}
	return info, nil
}

func classify(r io.ReaderAt, info *Info) error {
	if info.Size == 0 {
		info.Kind = KindEmpty
		return nil
	}

	head := make([]byte, len(arMagic))
	n, err := r.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return err
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, elfMagic):
		return classifyELF(r, info)
	case bytes.HasPrefix(head, arMagic):
		info.Kind = KindArchive
		info.Format = "ar"
	case bytes.HasPrefix(head, peMagic):
		return classifyPE(r, info)
	}
	return nil
}

func classifyELF(r io.ReaderAt, info *Info) error {
	f, err := elf.NewFile(r)
	if err != nil {
		return err
	}
	defer f.Close()

	info.Format = "elf"
	info.Machine = f.Machine.String()

	switch f.Type {
	case elf.ET_EXEC:
		info.Kind = KindExecutable
	case elf.ET_REL:
		info.Kind = KindObject
	case elf.ET_DYN:
		// Position independent executables are ET_DYN with an interpreter.
		info.Kind = KindSharedLib
		for _, p := range f.Progs {
			if p.Type == elf.PT_INTERP {
				info.Kind = KindExecutable
				break
			}
		}
	}
	return nil
}

func classifyPE(r io.ReaderAt, info *Info) error {
	f, err := pe.NewFile(r)
	if err != nil {
		return err
	}
	defer f.Close()

	info.Format = "pe"
	info.Machine = fmt.Sprintf("0x%04x", f.FileHeader.Machine)

	if f.FileHeader.Characteristics&pe.IMAGE_FILE_DLL != 0 {
		info.Kind = KindSharedLib
	} else {
		info.Kind = KindExecutable
	}
	return nil
}
