package cmd

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceWire/pkg/kicad/symlib"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/netsync"
	"github.com/OpenTraceLab/OpenTraceWire/pkg/script"
)

// lazySymbols loads the symbol directory on first use, so commands that
// never place a component do not need a KiCad install.
type lazySymbols struct {
	dir        string
	categories map[string]bool
	cacheSize  int

	once  sync.Once
	index *symlib.Index
	err   error
}

func (l *lazySymbols) load() (*symlib.Index, error) {
	l.once.Do(func() {
		idx, err := symlib.NewIndex(l.cacheSize)
		if err != nil {
			l.err = err
			return
		}
		n, err := idx.LoadDir(l.dir, l.categories)
		if err != nil {
			l.err = fmt.Errorf("loading symbols from %s: %w", l.dir, err)
			return
		}
		logger.Debug("symbol libraries loaded", "dir", l.dir, "libraries", n)
		l.index = idx
	})
	return l.index, l.err
}

func (l *lazySymbols) Resolve(libID string) (*symlib.Symbol, error) {
	idx, err := l.load()
	if err != nil {
		return nil, err
	}
	return idx.Resolve(libID)
}

func symbolsFrom(dir string) *lazySymbols {
	if dir == "" {
		dir = cfg.Library.Dir
	}
	return &lazySymbols{dir: dir, categories: cfg.Categories(), cacheSize: cfg.Library.CacheSize}
}

// newEnv builds a controller from the loaded config and attaches it to a
// fresh in-memory canvas.
func newEnv(symbols script.Symbols) (*script.Env, error) {
	ctrl := netsync.New(netsync.Context{
		Config:   cfg.Engine,
		Logger:   logger,
		NewNetID: uuid.NewString,
	})
	env, err := script.NewEnv(ctrl, symbols)
	if err != nil {
		return nil, err
	}
	env.Scale = cfg.Library.Scale
	env.Log = logger
	return env, nil
}
