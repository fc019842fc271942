package loader

import (
	"bytes"
	"debug/elf"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lunixbochs/coremem/go/models/mem"
)

var machineMap = map[elf.Machine]string{
	elf.EM_386:     "x86",
	elf.EM_X86_64:  "x86_64",
	elf.EM_ARM:     "arm",
	elf.EM_AARCH64: "arm64",
	elf.EM_MIPS:    "mips",
	elf.EM_PPC:     "ppc",
	elf.EM_PPC64:   "ppc64",
}

var elfMagic = []byte{0x7f, 0x45, 0x4c, 0x46}

func MatchElf(p []byte) bool {
	return bytes.Equal(getMagic(p), elfMagic)
}

// LoadElf builds a Core from raw ELF bytes. Segment data aliases raw.
func LoadElf(raw []byte, opts *Options) (*Core, error) {
	log := opts.logger()
	file, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ELF")
	}
	var bits int
	switch file.Class {
	case elf.ELFCLASS32:
		bits = 32
	case elf.ELFCLASS64:
		bits = 64
	default:
		return nil, errors.New("Unknown ELF class.")
	}
	machineName, ok := machineMap[file.Machine]
	if !ok {
		machineName = file.Machine.String()
	}
	if file.Type != elf.ET_CORE {
		log.Debug("loading non-core ELF", zap.Stringer("type", file.Type))
	}

	var segs []mem.Segment
	switch opts.source() {
	case SourceSections:
		segs, err = elfSections(file, raw)
	default:
		segs, err = elfProgs(file, raw)
	}
	if err != nil {
		return nil, err
	}
	for _, s := range segs {
		log.Debug("segment", zap.String("range", s.String()))
	}
	table, err := mem.NewTable(segs...)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded ELF",
		zap.String("arch", machineName),
		zap.Int("bits", bits),
		zap.Int("segments", len(segs)),
		zap.Uint64("bytes", mem.Segments(segs).Size()),
	)
	return &Core{
		Table:     table,
		Arch:      machineName,
		Bits:      bits,
		ByteOrder: file.ByteOrder,
	}, nil
}

func fileSlice(raw []byte, off, size uint64) ([]byte, error) {
	end := off + size
	if end < off || end > uint64(len(raw)) {
		return nil, errors.Errorf("file range %#x+%#x outside of %#x byte file", off, size, len(raw))
	}
	return raw[off:end:end], nil
}

// Only the captured bytes (Filesz) are mapped. Kernel core dumps leave Filesz
// at zero for regions they didn't dump, so those are skipped entirely.
func elfProgs(file *elf.File, raw []byte) ([]mem.Segment, error) {
	segs := make([]mem.Segment, 0, len(file.Progs))
	for i, prog := range file.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 {
			continue
		}
		data, err := fileSlice(raw, prog.Off, prog.Filesz)
		if err != nil {
			return nil, errors.Wrapf(err, "program header %d", i)
		}
		var prot int
		if prog.Flags&elf.PF_R != 0 {
			prot |= mem.PROT_READ
		}
		if prog.Flags&elf.PF_W != 0 {
			prot |= mem.PROT_WRITE
		}
		if prog.Flags&elf.PF_X != 0 {
			prot |= mem.PROT_EXEC
		}
		segs = append(segs, mem.Segment{
			Addr: prog.Vaddr,
			Size: prog.Filesz,
			Prot: prot,
			Data: data,
			Desc: fmt.Sprintf("load%d", i),
		})
	}
	return segs, nil
}

func elfSections(file *elf.File, raw []byte) ([]mem.Segment, error) {
	segs := make([]mem.Segment, 0, len(file.Sections))
	for _, sec := range file.Sections {
		if sec.Flags&elf.SHF_ALLOC == 0 || sec.Type == elf.SHT_NOBITS || sec.Size == 0 {
			continue
		}
		if sec.Flags&elf.SHF_COMPRESSED != 0 {
			return nil, errors.Errorf("section %s: compressed sections are not supported", sec.Name)
		}
		data, err := fileSlice(raw, sec.Offset, sec.Size)
		if err != nil {
			return nil, errors.Wrapf(err, "section %s", sec.Name)
		}
		prot := mem.PROT_READ
		if sec.Flags&elf.SHF_WRITE != 0 {
			prot |= mem.PROT_WRITE
		}
		if sec.Flags&elf.SHF_EXECINSTR != 0 {
			prot |= mem.PROT_EXEC
		}
		segs = append(segs, mem.Segment{
			Addr: sec.Addr,
			Size: sec.Size,
			Prot: prot,
			Data: data,
			Desc: sec.Name,
		})
	}
	return segs, nil
}
