//go:build !linux && !darwin

package sizecache

func getAttr(path, name string) ([]byte, error) {
	return nil, ErrUnsupported
}

func setAttr(path, name string, value []byte) error {
	return ErrUnsupported
}
