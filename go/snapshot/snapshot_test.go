package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/lunixbochs/struc"
	"github.com/stretchr/testify/require"

	"github.com/lunixbochs/coremem/go/models"
	"github.com/lunixbochs/coremem/go/models/mem"
)

func seq(start, n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(start + i)
	}
	return p
}

func testSnapshot() *Snapshot {
	return &Snapshot{
		Order: binary.BigEndian,
		Bits:  32,
		Segments: mem.Segments{
			{Addr: 0x1000, Size: 16, Prot: mem.PROT_READ | mem.PROT_EXEC, Data: seq(0, 16), Desc: ".text"},
			{Addr: 0x2000, Size: 0x1000, Prot: mem.PROT_READ | mem.PROT_WRITE, Data: bytes.Repeat([]byte("ab"), 0x800)},
			{Addr: 0x8000, Size: 0, Data: []byte{}, Desc: "empty"},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, codec := range []Codec{CodecNone, CodecGzip, CodecSnappy, CodecLZ4} {
		t.Run(codec.String(), func(t *testing.T) {
			want := testSnapshot()
			var buf bytes.Buffer
			require.NoError(t, Save(&buf, want, codec))
			require.True(t, Match(bytes.NewReader(buf.Bytes())))

			got, err := Load(&buf)
			require.NoError(t, err)
			require.Equal(t, want.Order, got.Order)
			require.Equal(t, want.Bits, got.Bits)
			if diff := cmp.Diff(want.Segments, got.Segments); diff != "" {
				t.Fatalf("segments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadedTableReads(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, testSnapshot(), CodecGzip))
	snap, err := Load(&buf)
	require.NoError(t, err)
	tab, err := snap.Table()
	require.NoError(t, err)

	p, err := tab.MemRead(0x1008, 8)
	require.NoError(t, err)
	require.Equal(t, seq(8, 8), p)

	_, err = tab.MemRead(0x1010, 1)
	require.True(t, errors.Is(err, models.ErrUnmapped))
}

func TestEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, &Snapshot{Bits: 64}, CodecLZ4))
	snap, err := Load(&buf)
	require.NoError(t, err)
	require.Empty(t, snap.Segments)
	require.Equal(t, binary.LittleEndian, snap.Order)
}

func TestCorrupt(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, testSnapshot(), CodecSnappy))
	good := buf.Bytes()

	flip := func(off int) []byte {
		p := append([]byte(nil), good...)
		p[off] ^= 0xff
		return p
	}
	cases := map[string][]byte{
		"magic":     flip(0),
		"version":   flip(7),
		"checksum":  flip(15),
		"body":      flip(len(good) - 1),
		"truncated": good[:len(good)-4],
		"header":    good[:10],
		"empty":     nil,
	}
	for name, p := range cases {
		_, err := Load(bytes.NewReader(p))
		require.Truef(t, errors.Is(err, ErrCorrupt), "%s: expected ErrCorrupt, got %v", name, err)
	}
}

func TestUnknownCodec(t *testing.T) {
	var buf bytes.Buffer
	require.True(t, errors.Is(Save(&buf, testSnapshot(), Codec(99)), ErrCodec))

	_, err := ParseCodec("zip")
	require.True(t, errors.Is(err, ErrCodec))
	c, err := ParseCodec("lz4")
	require.NoError(t, err)
	require.Equal(t, CodecLZ4, c)
}

func TestSaveBadSegment(t *testing.T) {
	snap := &Snapshot{Segments: mem.Segments{{Addr: 0x1000, Size: 8, Data: []byte{1}}}}
	err := Save(&bytes.Buffer{}, snap, CodecNone)
	require.True(t, errors.Is(err, mem.ErrBadSegment))
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.snap")
	require.NoError(t, SaveFile(path, testSnapshot(), CodecGzip))
	snap, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, snap.Segments, 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

// a well-formed header whose checksum matches a body that isn't valid for its codec
func rawSnapshot(t *testing.T, codec Codec, body []byte) []byte {
	var buf bytes.Buffer
	header := &fileHeader{
		Magic:   Magic,
		Version: Version,
		Codec:   uint32(codec),
		Crc:     crc32.ChecksumIEEE(body),
		Length:  uint64(len(body)),
	}
	require.NoError(t, struc.PackWithOrder(&buf, header, order))
	buf.Write(body)
	return buf.Bytes()
}

func TestLoadBadBody(t *testing.T) {
	for _, codec := range []Codec{CodecNone, CodecGzip, CodecSnappy, CodecLZ4} {
		raw := rawSnapshot(t, codec, []byte("definitely not gzip"))
		_, err := Load(bytes.NewReader(raw))
		require.Truef(t, errors.Is(err, ErrCorrupt), "%s: expected ErrCorrupt, got %v", codec, err)
	}
	_, err := Load(bytes.NewReader(rawSnapshot(t, Codec(99), []byte("x"))))
	require.True(t, errors.Is(err, ErrCodec), "%v", err)
}

func TestSaveBadBits(t *testing.T) {
	for _, bits := range []int{-1, 256} {
		snap := testSnapshot()
		snap.Bits = bits
		require.Error(t, Save(&bytes.Buffer{}, snap, CodecNone), "bits=%d", bits)
	}
}

func TestTrimDesc(t *testing.T) {
	require.Equal(t, "abc", trimDesc("abc", 3))
	require.Equal(t, "a", trimDesc("a\u00e9", 2))
	require.Equal(t, "a\u00e9", trimDesc("a\u00e9z", 3))

	long := strings.Repeat("\u00e9", 40000)
	snap := &Snapshot{Bits: 64, Segments: mem.Segments{{Addr: 0x1000, Data: []byte{}, Desc: long}}}
	var buf bytes.Buffer
	require.NoError(t, Save(&buf, snap, CodecNone))
	got, err := Load(&buf)
	require.NoError(t, err)
	desc := got.Segments[0].Desc
	require.Len(t, desc, 65534)
	require.True(t, utf8.ValidString(desc))
}

func TestSaveFileFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "core.snap")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0644))

	require.Error(t, SaveFile(path, testSnapshot(), Codec(99)))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "old", string(data))

	require.Error(t, SaveFile(filepath.Join(dir, "new.snap"), testSnapshot(), Codec(99)))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
