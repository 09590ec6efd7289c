//go:build linux || darwin

package sizecache

import (
	"errors"

	"golang.org/x/sys/unix"
)

func getAttr(path, name string) ([]byte, error) {
	buf := make([]byte, recordSize+1)
	n, err := unix.Getxattr(path, name, buf)
	if err != nil {
		return nil, mapErr(err)
	}
	return buf[:n], nil
}

func setAttr(path, name string, value []byte) error {
	return mapErr(unix.Setxattr(path, name, value, 0))
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.ENOTSUP), errors.Is(err, unix.EOPNOTSUPP):
		return ErrUnsupported
	case errors.Is(err, errNoAttr):
		return ErrNotFound
	case errors.Is(err, unix.ERANGE):
		// Larger than any record this package writes.
		return errors.New("sizecache: attribute value too large")
	default:
		return err
	}
}
