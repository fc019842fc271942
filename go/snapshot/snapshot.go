package snapshot

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lunixbochs/coremem/go/models/mem"
)

// snapshot format:
//
// file header
// [4]byte("CMSS")
// uint32(snapshot format version)
// uint32(body codec)
// uint32(crc32 of compressed body)
// uint64(length of compressed body)
// remainder is the compressed body
//
// -- uncompressed body start --
// uint8(byte order, 0 little 1 big)
// uint8(address bits)
// uint64(number of mapped sections)
// 1..num: uint64(addr), uint64(len), uint32(prot), uint16(desc len), desc, <raw memory bytes of len>
//
// all integers are big endian

const (
	Magic   = "CMSS"
	Version = 1
)

var ErrCorrupt = errors.New("corrupt snapshot")

var order = binary.BigEndian

type fileHeader struct {
	Magic   string `struc:"[4]byte"`
	Version uint32
	Codec   uint32
	Crc     uint32
	Length  uint64
}

type bodyHeader struct {
	Order uint8
	Bits  uint8
	Count uint64
}

type mapping struct {
	Addr    uint64
	Size    uint64
	Prot    uint32
	DescLen int `struc:"uint16,sizeof=Desc"`
	Desc    string
}

// Snapshot is a decoded set of segments plus enough metadata to decode
// values read from them.
type Snapshot struct {
	Order    binary.ByteOrder
	Bits     int
	Segments mem.Segments
}

func (s *Snapshot) Table() (*mem.Table, error) {
	return mem.NewTable(s.Segments...)
}

type strucStream struct {
	w io.Writer
	r io.Reader
}

func (s *strucStream) Pack(vals ...interface{}) error {
	for _, v := range vals {
		if err := struc.PackWithOrder(s.w, v, order); err != nil {
			return err
		}
	}
	return nil
}

func (s *strucStream) Unpack(vals ...interface{}) error {
	for _, v := range vals {
		if err := struc.UnpackWithOrder(s.r, v, order); err != nil {
			return err
		}
	}
	return nil
}

// trimDesc cuts desc to at most max bytes without splitting a UTF-8 sequence.
func trimDesc(desc string, max int) string {
	if len(desc) <= max {
		return desc
	}
	n := max
	for n > 0 && !utf8.RuneStart(desc[n]) {
		n--
	}
	return desc[:n]
}

func Save(w io.Writer, snap *Snapshot, codec Codec) error {
	if snap.Bits < 0 || snap.Bits > math.MaxUint8 {
		return errors.Errorf("invalid pointer width %d", snap.Bits)
	}
	// build compressed body
	var compressed bytes.Buffer
	zw, err := codec.writer(&compressed)
	if err != nil {
		return err
	}
	s := &strucStream{w: zw}
	bh := &bodyHeader{Bits: uint8(snap.Bits), Count: uint64(len(snap.Segments))}
	if snap.Order == binary.BigEndian {
		bh.Order = 1
	}
	if err := s.Pack(bh); err != nil {
		return errors.Wrap(err, "failed to pack body header")
	}
	for _, seg := range snap.Segments {
		if uint64(len(seg.Data)) != seg.Size {
			return errors.Wrapf(mem.ErrBadSegment, "segment at %#x", seg.Addr)
		}
		desc := trimDesc(seg.Desc, math.MaxUint16)
		m := &mapping{Addr: seg.Addr, Size: seg.Size, Prot: uint32(seg.Prot), Desc: desc}
		if err := s.Pack(m); err != nil {
			return errors.Wrap(err, "failed to pack mapping")
		}
		if _, err := zw.Write(seg.Data); err != nil {
			return errors.Wrap(err, "failed to compress body")
		}
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "failed to compress body")
	}

	// write file header
	data := compressed.Bytes()
	header := &fileHeader{
		Magic:   Magic,
		Version: Version,
		Codec:   uint32(codec),
		Crc:     crc32.ChecksumIEEE(data),
		Length:  uint64(len(data)),
	}
	if err := struc.PackWithOrder(w, header, order); err != nil {
		return errors.Wrap(err, "failed to pack header")
	}
	_, err = w.Write(data)
	return err
}

func Load(r io.Reader) (*Snapshot, error) {
	var header fileHeader
	if err := struc.UnpackWithOrder(r, &header, order); err != nil {
		return nil, errors.Wrap(ErrCorrupt, "failed to unpack header")
	}
	if header.Magic != Magic {
		return nil, errors.Wrap(ErrCorrupt, "invalid snapshot magic")
	}
	if header.Version != Version {
		return nil, errors.Wrapf(ErrCorrupt, "unsupported snapshot version %d", header.Version)
	}
	if header.Length > math.MaxInt64 {
		return nil, errors.Wrap(ErrCorrupt, "body length out of range")
	}
	var compressed bytes.Buffer
	if n, err := io.CopyN(&compressed, r, int64(header.Length)); err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "truncated body (%d < %d)", n, header.Length)
	}
	if crc32.ChecksumIEEE(compressed.Bytes()) != header.Crc {
		return nil, errors.Wrap(ErrCorrupt, "body checksum mismatch")
	}
	codec := Codec(header.Codec)
	if _, ok := codecNames[codec]; !ok {
		return nil, errors.Wrapf(ErrCodec, "%d", header.Codec)
	}
	zr, err := codec.reader(&compressed)
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "failed to open %s body: %v", codec, err)
	}
	return readBody(zr)
}

func readBody(zr io.Reader) (*Snapshot, error) {
	s := &strucStream{r: zr}
	var bh bodyHeader
	if err := s.Unpack(&bh); err != nil {
		return nil, errors.Wrap(ErrCorrupt, "failed to unpack body header")
	}
	snap := &Snapshot{Order: binary.LittleEndian, Bits: int(bh.Bits)}
	if bh.Order == 1 {
		snap.Order = binary.BigEndian
	}
	for i := uint64(0); i < bh.Count; i++ {
		var m mapping
		if err := s.Unpack(&m); err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "failed to unpack mapping %d", i)
		}
		if m.Size > math.MaxInt64 || m.Addr+m.Size < m.Addr {
			return nil, errors.Wrapf(ErrCorrupt, "mapping %d at %#x has bad size %#x", i, m.Addr, m.Size)
		}
		// grows with the data actually present, so a lying size can't force a huge allocation
		var data bytes.Buffer
		if n, err := io.CopyN(&data, zr, int64(m.Size)); err != nil {
			return nil, errors.Wrapf(ErrCorrupt, "mapping %d at %#x truncated (%d < %d)", i, m.Addr, n, m.Size)
		}
		buf := data.Bytes()
		if buf == nil {
			buf = []byte{}
		}
		snap.Segments = append(snap.Segments, mem.Segment{
			Addr: m.Addr,
			Size: m.Size,
			Prot: int(m.Prot),
			Data: buf,
			Desc: m.Desc,
		})
	}
	return snap, nil
}

// SaveFile writes to a temporary file next to path and renames it into
// place, so a failed save never leaves a partial snapshot behind.
func SaveFile(path string, snap *Snapshot, codec Codec) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return errors.WithStack(err)
	}
	tmp := f.Name()
	if err := Save(f, snap, codec); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Chmod(0644); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.WithStack(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.WithStack(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.WithStack(err)
	}
	return nil
}

func LoadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return Load(f)
}

// Match reports whether r starts with the snapshot magic.
func Match(r io.ReaderAt) bool {
	magic := make([]byte, len(Magic))
	if _, err := r.ReadAt(magic, 0); err != nil {
		return false
	}
	return string(magic) == Magic
}
