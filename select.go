package cfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/discochess/cfile/internal/backend"
	"github.com/discochess/cfile/internal/backend/bzip2backend"
	"github.com/discochess/cfile/internal/backend/gzipbackend"
	"github.com/discochess/cfile/internal/backend/nullbackend"
	"github.com/discochess/cfile/internal/backend/plainbackend"
	"github.com/discochess/cfile/internal/backend/streambackend"
	"github.com/discochess/cfile/internal/codec"
	"github.com/discochess/cfile/internal/codec/bzip2codec"
	"github.com/discochess/cfile/internal/codec/gzipcodec"
	"github.com/discochess/cfile/internal/codec/lz4codec"
	"github.com/discochess/cfile/internal/codec/lzocodec"
	"github.com/discochess/cfile/internal/codec/xzcodec"
	"github.com/discochess/cfile/internal/codec/zstdcodec"
)

// Backend names reported by File.BackendName.
const (
	BackendPlain = plainbackend.Name
	BackendGzip  = gzipbackend.Name
	BackendBzip2 = bzip2backend.Name
	BackendXZ    = "xz file"
	BackendLZO   = "LZO file"
	BackendNull  = nullbackend.Name
	BackendZstd  = "Zstandard file"
	BackendLZ4   = "LZ4 file"
)

type kind int

const (
	kindPlain kind = iota
	kindStdio
	kindNull
	kindGzip
	kindBzip2
	kindXZ
	kindLZO
	kindZstd
	kindLZ4
)

func (k kind) name() string {
	switch k {
	case kindNull:
		return BackendNull
	case kindGzip:
		return BackendGzip
	case kindBzip2:
		return BackendBzip2
	case kindXZ:
		return BackendXZ
	case kindLZO:
		return BackendLZO
	case kindZstd:
		return BackendZstd
	case kindLZ4:
		return BackendLZ4
	default:
		return BackendPlain
	}
}

var suffixes = []struct {
	suffix string
	kind   kind
}{
	{".gz", kindGzip},
	{".bz2", kindBzip2},
	{".xz", kindXZ},
	{".lzo", kindLZO},
	{".zst", kindZstd},
	{".lz4", kindLZ4},
}

var magics = []struct {
	magic []byte
	kind  kind
}{
	{[]byte{0x1f, 0x8b}, kindGzip},
	{[]byte("BZh"), kindBzip2},
	{[]byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, kindXZ},
	{lzocodec.Magic, kindLZO},
	{[]byte{0x28, 0xb5, 0x2f, 0xfd}, kindZstd},
	{[]byte{0x04, 0x22, 0x4d, 0x18}, kindLZ4},
}

// kindByName applies the naming rules: "-" is a standard stream,
// "/dev/null" the null sink, a known suffix its codec, anything else a
// plain file.
func kindByName(name string) kind {
	switch name {
	case "-":
		return kindStdio
	case "/dev/null":
		return kindNull
	}
	for _, s := range suffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.kind
		}
	}
	return kindPlain
}

// kindByContent matches the leading bytes of head against known magic
// numbers.
func kindByContent(head []byte) (kind, bool) {
	for _, m := range magics {
		if bytes.HasPrefix(head, m.magic) {
			return m.kind, true
		}
	}
	return kindPlain, false
}

// sniff reads the first bytes of path and matches them.
func sniff(path string) (kind, bool) {
	f, err := os.Open(path)
	if err != nil {
		return kindPlain, false
	}
	defer f.Close()

	head := make([]byte, len(lzocodec.Magic))
	n, _ := io.ReadFull(f, head)
	return kindByContent(head[:n])
}

// BackendFor reports the name of the backend Open would choose for name
// by its naming rules, without touching the file.
func BackendFor(name string) string {
	return kindByName(name).name()
}

// SelectBackend reports the backend the arena would choose to open name in
// the given mode, sniffing content when the arena was created with
// WithSniffing.
func (a *Arena) SelectBackend(name, mode string) (string, error) {
	m, err := backend.ParseMode(mode)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return a.selectKind(name, m).name(), nil
}

func (a *Arena) selectKind(name string, m backend.Mode) kind {
	byName := kindByName(name)
	if !a.opts.sniffing || !m.Reading() || byName == kindStdio || byName == kindNull {
		return byName
	}
	if k, ok := sniff(name); ok {
		if k != byName {
			a.opts.logger.Debug("content overrides name",
				zap.String("name", name),
				zap.String("by_name", byName.name()),
				zap.String("by_content", k.name()),
			)
		}
		return k
	}
	return byName
}

// openBackend constructs the backend for k.
func (a *Arena) openBackend(k kind, name string, m backend.Mode) (backend.Backend, error) {
	o := a.opts
	switch k {
	case kindStdio:
		f := os.Stdin
		if m.Writing() {
			f = os.Stdout
		}
		return plainbackend.FromFile(f, m, plainbackend.WithBufferSize(o.bufferSize)), nil

	case kindNull:
		return nullbackend.New(m), nil

	case kindGzip:
		c, err := gzipcodec.NewLevel(o.gzipLevel)
		if err != nil {
			return nil, err
		}
		return gzipbackend.Open(name, m,
			gzipbackend.WithCodec(c),
			gzipbackend.WithBufferSize(o.bufferSize),
			gzipbackend.WithLogger(o.logger),
		)

	case kindBzip2:
		c, err := bzip2codec.NewLevel(o.bzip2Level)
		if err != nil {
			return nil, err
		}
		return bzip2backend.Open(name, m,
			bzip2backend.WithCodec(c),
			bzip2backend.WithSizeCache(a.cache),
			bzip2backend.WithCounter(o.sizeCounter),
			bzip2backend.WithLogger(o.logger),
			bzip2backend.WithStats(o.stats),
		)

	case kindXZ:
		return a.openStream(BackendXZ, name, m, xzcodec.New(), streambackend.XZSize)
	case kindLZO:
		return a.openStream(BackendLZO, name, m, lzocodec.New(), streambackend.LZOSize)
	case kindZstd:
		return a.openStream(BackendZstd, name, m, zstdcodec.New(), streambackend.ZstdSize)
	case kindLZ4:
		return a.openStream(BackendLZ4, name, m, lz4codec.New(), streambackend.LZ4Size)

	default:
		return plainbackend.Open(name, m, plainbackend.WithBufferSize(o.bufferSize))
	}
}

func (a *Arena) openStream(backendName, name string, m backend.Mode, c codec.Codec, sizer streambackend.Sizer) (backend.Backend, error) {
	return streambackend.Open(backendName, name, m, c,
		streambackend.WithBufferSize(a.opts.bufferSize),
		streambackend.WithSizer(sizer),
		streambackend.WithLogger(a.opts.logger),
	)
}
