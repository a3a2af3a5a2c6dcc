//go:build cgo && !nolibtcc

package tcc

import (
	"github.com/p-arndt/gotcc/internal/engine"
	"github.com/p-arndt/gotcc/internal/engine/libtcc"
)

func openEngine() (engine.Engine, error) {
	e, err := libtcc.New()
	if err != nil {
		return nil, err
	}
	return e, nil
}
