package inspect

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// UnpackUint decodes an unsigned integer of size bytes from the front of buf.
func UnpackUint(order binary.ByteOrder, size int, buf []byte) (uint64, error) {
	if size < 0 || len(buf) < size {
		return 0, errors.Errorf("buffer too small (%d < %d)", len(buf), size)
	}
	switch size {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(order.Uint16(buf)), nil
	case 4:
		return uint64(order.Uint32(buf)), nil
	case 8:
		return order.Uint64(buf), nil
	}
	return 0, errors.Errorf("unsupported uint size: %d", size)
}
