package read

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunixbochs/coremem/go/models/mem"
	"github.com/lunixbochs/coremem/go/snapshot"
)

func writeSnapshot(t *testing.T) string {
	data := []byte("0123456789abcdefXYZW")
	path := filepath.Join(t.TempDir(), "snap")
	snap := &snapshot.Snapshot{Order: binary.LittleEndian, Bits: 32, Segments: mem.Segments{
		{Addr: 0x8000, Size: uint64(len(data)), Prot: mem.PROT_READ, Data: data},
	}}
	require.NoError(t, snapshot.SaveFile(path, snap, snapshot.CodecGzip))
	return path
}

func run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	c := newCmd()
	c.Stdout, c.Stderr = &stdout, &stderr
	code := c.Main(append([]string{"read"}, args...))
	return code, stdout.String(), stderr.String()
}

func TestRead(t *testing.T) {
	path := writeSnapshot(t)
	code, out, errOut := run(path, "0x8000", "20")
	require.Equal(t, 0, code, errOut)
	require.Equal(t, "0x00008000: 30313233 34353637 38396162 63646566 58595a57 [0123 4567 89ab cdef XYZW]\n", out)
}

func TestReadUnmapped(t *testing.T) {
	path := writeSnapshot(t)
	// starts inside the segment but runs past its end
	code, out, errOut := run(path, "0x8010", "0x10")
	require.Equal(t, 1, code)
	require.Empty(t, out)
	require.Contains(t, errOut, "unmapped read at 0x8010(16)")
}

func TestReadArgs(t *testing.T) {
	path := writeSnapshot(t)
	code, _, errOut := run(path, "0x8000")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, "Usage:")

	code, _, errOut = run(path, "banana", "4")
	require.Equal(t, 1, code)
	require.Contains(t, errOut, `invalid number "banana"`)
}
