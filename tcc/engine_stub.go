//go:build !cgo || nolibtcc

package tcc

import "github.com/p-arndt/gotcc/internal/engine"

func openEngine() (engine.Engine, error) {
	return nil, ErrNotBuilt
}
