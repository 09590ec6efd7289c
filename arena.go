package cfile

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/discochess/cfile/internal/backend"
	"github.com/discochess/cfile/internal/backend/plainbackend"
	"github.com/discochess/cfile/internal/sizecache"
	"github.com/discochess/cfile/internal/sizememo"
	"github.com/discochess/cfile/internal/sizememo/lru"
	"github.com/discochess/cfile/internal/stats"
)

// Arena owns open files. Closing an arena closes every file still open
// under it and every arena parented to it. An Arena is safe for concurrent
// use.
type Arena struct {
	opts  options
	cache *sizecache.Cache
	memo  *sizememo.Memo

	mu       sync.Mutex
	parent   *Arena
	files    map[*File]struct{}
	children map[*Arena]struct{}
	closed   bool
}

// NewArena creates an arena. The options apply to every file opened
// under it.
func NewArena(opts ...Option) *Arena {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	a := &Arena{
		opts:     cfg,
		files:    make(map[*File]struct{}),
		children: make(map[*Arena]struct{}),
	}
	if cfg.sizeCache {
		a.cache = sizecache.New(sizecache.WithLogger(cfg.logger))
	}
	if cfg.sizeMemoSize > 0 {
		strategy, err := lru.New(cfg.sizeMemoSize)
		if err != nil {
			cfg.logger.Warn("size memo disabled", zap.Error(err))
		} else {
			a.memo = sizememo.New(strategy, cfg.stats)
		}
	}
	return a
}

var defaultArena struct {
	once  sync.Once
	arena *Arena
}

// DefaultArena returns the arena used by the package-level Open and
// OpenFD, creating it on first use with default options. Reparent it to
// tie its files to an arena of your own.
func DefaultArena() *Arena {
	defaultArena.once.Do(func() {
		defaultArena.arena = NewArena()
	})
	return defaultArena.arena
}

// Open opens name under the default arena. See Arena.Open.
func Open(name, mode string) (*File, error) {
	return DefaultArena().Open(name, mode)
}

// OpenFD wraps a descriptor under the default arena. See Arena.OpenFD.
func OpenFD(fd uintptr, mode string) (*File, error) {
	return DefaultArena().OpenFD(fd, mode)
}

// Open opens name with an fopen-style mode: "r", "w" or "a", optionally
// followed by "b". The backend is chosen by SelectBackend. "-" is standard
// input or output and "/dev/null" is the null sink.
//
// Errors from the operating system or codec are wrapped, not replaced, so
// errors.Is(err, fs.ErrNotExist) and similar checks work.
func (a *Arena) Open(name, mode string) (*File, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidArgument)
	}
	m, err := backend.ParseMode(mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if a.isClosed() {
		return nil, ErrArenaClosed
	}

	kind := a.selectKind(name, m)
	b, err := a.openBackend(kind, name, m)
	if err != nil {
		a.opts.stats.IncCounter(stats.MetricOpenErrors, 1)
		a.opts.logger.Debug("open failed",
			zap.String("name", name),
			zap.String("mode", mode),
			zap.Error(err),
		)
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}

	path := name
	if kind == kindStdio || kind == kindNull {
		path = ""
	}
	return a.track(name, path, m, b)
}

// OpenFD wraps an open descriptor as an uncompressed file named
// "file descriptor N (mode M)". Closing the File closes the descriptor
// unless it is standard input, output or error.
func (a *Arena) OpenFD(fd uintptr, mode string) (*File, error) {
	m, err := backend.ParseMode(mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	if a.isClosed() {
		return nil, ErrArenaClosed
	}

	name := fmt.Sprintf("file descriptor %d (mode %s)", fd, mode)
	var osf *os.File
	switch fd {
	case os.Stdin.Fd():
		osf = os.Stdin
	case os.Stdout.Fd():
		osf = os.Stdout
	case os.Stderr.Fd():
		osf = os.Stderr
	default:
		osf = os.NewFile(fd, name)
	}
	if osf == nil {
		return nil, fmt.Errorf("%w: bad descriptor %d", ErrInvalidArgument, fd)
	}

	b := plainbackend.FromFile(osf, m, plainbackend.WithBufferSize(a.opts.bufferSize))
	return a.track(name, "", m, b)
}

// track registers a newly opened backend as a File of this arena.
func (a *Arena) track(name, path string, m backend.Mode, b backend.Backend) (*File, error) {
	f := &File{
		name:    name,
		path:    path,
		mode:    m,
		backend: b,
		arena:   a,
		logger:  a.opts.logger,
		stats:   a.opts.stats,
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		_ = b.Close()
		return nil, ErrArenaClosed
	}
	a.files[f] = struct{}{}
	a.mu.Unlock()

	a.opts.stats.IncCounter(stats.MetricOpens, 1)
	a.opts.logger.Debug("opened",
		zap.String("name", name),
		zap.String("backend", b.Name()),
		zap.String("mode", m.String()),
	)
	return f, nil
}

// forget drops a closed file.
func (a *Arena) forget(f *File) {
	a.mu.Lock()
	delete(a.files, f)
	a.mu.Unlock()
}

func (a *Arena) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Len returns the number of files open under the arena itself, not
// counting child arenas.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.files)
}

// SizeMemoStats reports the in-memory size memo statistics. It is zero
// when WithSizeMemo was not given.
func (a *Arena) SizeMemoStats() sizememo.Stats {
	if a.memo == nil {
		return sizememo.Stats{}
	}
	return a.memo.Stats()
}

// Reparent moves a under parent, so that closing parent also closes a. A
// nil parent detaches a. Parenting an arena to itself or to one of its
// descendants is an error.
func (a *Arena) Reparent(parent *Arena) error {
	for p := parent; p != nil; p = p.getParent() {
		if p == a {
			return fmt.Errorf("%w: arena cycle", ErrInvalidArgument)
		}
	}

	if parent != nil {
		parent.mu.Lock()
		if parent.closed {
			parent.mu.Unlock()
			return ErrArenaClosed
		}
		parent.children[a] = struct{}{}
		parent.mu.Unlock()
	}

	a.mu.Lock()
	old := a.parent
	a.parent = parent
	a.mu.Unlock()

	if old != nil && old != parent {
		old.mu.Lock()
		delete(old.children, a)
		old.mu.Unlock()
	}
	return nil
}

func (a *Arena) getParent() *Arena {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.parent
}

// Close closes every file still open under the arena and every child
// arena, then detaches the arena from its parent. All close errors are
// returned joined. Opening under a closed arena fails with ErrArenaClosed.
func (a *Arena) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrArenaClosed
	}
	a.closed = true
	files := make([]*File, 0, len(a.files))
	for f := range a.files {
		files = append(files, f)
	}
	children := make([]*Arena, 0, len(a.children))
	for c := range a.children {
		children = append(children, c)
	}
	a.children = make(map[*Arena]struct{})
	parent := a.parent
	a.parent = nil
	a.mu.Unlock()

	var errs []error
	for _, f := range files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range children {
		if err := c.Close(); err != nil && !errors.Is(err, ErrArenaClosed) {
			errs = append(errs, err)
		}
	}
	if parent != nil {
		parent.mu.Lock()
		delete(parent.children, a)
		parent.mu.Unlock()
	}

	a.opts.logger.Debug("arena closed",
		zap.Int("files", len(files)),
		zap.Int("children", len(children)),
	)
	return errors.Join(errs...)
}
