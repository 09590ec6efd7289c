package streambackend

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/discochess/cfile/internal/codec/lz4codec"
	"github.com/discochess/cfile/internal/codec/lzocodec"
	"github.com/discochess/cfile/internal/codec/zstdcodec"
	"github.com/discochess/cfile/internal/sizecount"
	"github.com/discochess/cfile/internal/xzindex"
)

// XZSize reads the stream indexes of an xz file.
func XZSize(path string) (int64, error) {
	f, size, err := openSized(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	idx, err := xzindex.Decode(f, size)
	if err != nil {
		return 0, err
	}
	return idx.UncompressedSize(), nil
}

// LZOSize walks the block headers of an lzop file.
func LZOSize(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return lzocodec.UncompressedSize(f)
}

// ZstdSize sums the content sizes declared by the frames of a zstd file.
// Frames written by a streaming encoder often omit their size; such files
// are decoded and counted instead.
func ZstdSize(path string) (int64, error) {
	f, size, err := openSized(path)
	if err != nil {
		return 0, err
	}
	n, err := zstdcodec.ContentSize(f, size)
	f.Close()
	if errors.Is(err, zstdcodec.ErrUnknownSize) {
		return sizecount.NewDecoder(zstdcodec.New()).Count(context.Background(), path)
	}
	return n, err
}

// LZ4Size decodes and counts an lz4 file.
func LZ4Size(path string) (int64, error) {
	return sizecount.NewDecoder(lz4codec.New()).Count(context.Background(), path)
}

func openSized(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return f, info.Size(), nil
}
