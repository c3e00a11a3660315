package mappers

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"dotboy/cart"
	"dotboy/hw"
	"dotboy/hw/hwio"
)

// controller is implemented by each bank controller.
type controller interface {
	ROMBankA() int
	ROMBankB() int
	SRAMBank() int // negative when no RAM bank is visible

	// writeReg handles a write to the 0000-7FFF register window.
	writeReg(addr uint16, val uint8)
	readRAM(off uint16) uint8
	writeRAM(off uint16, val uint8)
}

type base struct {
	desc MapperDesc
	rom  *cart.Rom
	bus  *hw.Bus
	ctrl controller

	romMask int
	ram     []byte
	ramMask int

	ramEnabled bool
	save       *os.File
}

func ispow2(n int) bool {
	return n&(n-1) == 0
}

func newbase(desc MapperDesc, rom *cart.Rom, bus *hw.Bus, saveDir string) (*base, error) {
	nbanks := len(rom.Data) / cart.BankSize
	if !ispow2(nbanks) {
		return nil, fmt.Errorf("only support ROM with power of 2 banks, got %d", nbanks)
	}

	b := &base{desc: desc, rom: rom, bus: bus, romMask: nbanks - 1}
	ramsz := rom.RAMBanks() * cart.RAMBankSize
	if desc.RAMSize != 0 {
		ramsz = desc.RAMSize
	}
	if ramsz > 0 {
		b.ram = make([]byte, ramsz)
		if n := ramsz / cart.RAMBankSize; n > 0 {
			b.ramMask = n - 1
		}
	}

	if rom.HasBattery() && len(b.ram) > 0 && saveDir != "" {
		if err := b.openSave(saveDir); err != nil {
			return nil, fmt.Errorf("battery save: %w", err)
		}
	}
	return b, nil
}

func (b *base) load() (Mapper, error) {
	ctrl, err := b.desc.Load(b)
	if err != nil {
		return nil, err
	}
	b.ctrl = ctrl

	r := &regs{base: b}
	hwio.MustInitRegs(r)
	b.bus.MapBank(0x0000, r, 0)
	b.remap()
	return r, nil
}

func (b *base) Name() string { return b.desc.Name }

// savePath returns <dir>/<rom>.sav.
func (b *base) savePath(dir string) string {
	name := b.rom.Title()
	if b.rom.Path != "" {
		name = filepath.Base(b.rom.Path)
		name = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return filepath.Join(dir, name+".sav")
}

// openSave loads the battery save into RAM. A missing save file, or one
// which size doesn't match, is replaced by a zeroed one.
func (b *base) openSave(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := b.savePath(dir)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	switch {
	case fi.Size() == int64(len(b.ram)):
		if _, err := io.ReadFull(f, b.ram); err != nil {
			f.Close()
			return fmt.Errorf("read %s: %w", path, err)
		}
		modMBC.InfoZ("battery save loaded").String("path", path).End()
	default:
		if fi.Size() != 0 {
			modMBC.WarnZ("battery save size mismatch, resetting").
				String("path", path).
				Int("size", int(fi.Size())).
				Int("want", len(b.ram)).
				End()
		}
		if err := f.Truncate(0); err != nil {
			f.Close()
			return err
		}
		if _, err := f.WriteAt(b.ram, 0); err != nil {
			f.Close()
			return err
		}
	}
	b.save = f
	return nil
}

// persist writes a single RAM byte through to the battery save.
func (b *base) persist(pos int, val uint8) {
	if b.save == nil {
		return
	}
	if _, err := b.save.WriteAt([]byte{val}, int64(pos)); err != nil {
		modMBC.FatalZ("battery save write failed").
			String("path", b.save.Name()).
			Error("err", err).
			End()
	}
}

func (b *base) Close() error {
	if b.save == nil {
		return nil
	}
	err := b.save.Close()
	b.save = nil
	if errors.Is(err, fs.ErrClosed) {
		return nil
	}
	return err
}

// remap makes the currently selected banks visible on the bus.
func (b *base) remap() {
	b.bus.SetMem(hw.ROMA, b.rom.Bank(b.ctrl.ROMBankA()))
	b.bus.SetMem(hw.ROMB, b.rom.Bank(b.ctrl.ROMBankB()))
	b.bus.SetMem(hw.SRAM, b.sramWindow())

	modMBC.DebugZ("remap").
		Int("rom A", b.ctrl.ROMBankA()).
		Int("rom B", b.ctrl.ROMBankB()).
		Int("sram", b.ctrl.SRAMBank()).
		Bool("ram enabled", b.ramEnabled).
		End()
}

func (b *base) sramWindow() []byte {
	bank := b.ctrl.SRAMBank()
	if !b.ramEnabled || bank < 0 || len(b.ram) < cart.RAMBankSize {
		return nil
	}
	off := bank * cart.RAMBankSize
	return b.ram[off : off+cart.RAMBankSize]
}

// ramEnable follows the common 0000-1FFF protocol: 0xA in the low nibble
// enables external RAM, anything else disables it.
func (b *base) ramEnable(val uint8) {
	b.ramEnabled = val&0x0F == 0x0A
}

func (b *base) readRAM(off uint16) uint8 {
	bank := b.ctrl.SRAMBank()
	if !b.ramEnabled || bank < 0 || len(b.ram) == 0 {
		return 0xFF
	}
	return b.ram[bank*cart.RAMBankSize+int(off)]
}

func (b *base) writeRAM(off uint16, val uint8) {
	bank := b.ctrl.SRAMBank()
	if !b.ramEnabled || bank < 0 || len(b.ram) == 0 {
		return
	}
	pos := bank*cart.RAMBankSize + int(off)
	b.ram[pos] = val
	b.persist(pos, val)
}

// regs maps a bank controller onto the cartridge windows of the bus.
type regs struct {
	*base

	ROMLO hwio.Device `hwio:"offset=0x0000,size=0x4000,wcb"`
	ROMHI hwio.Device `hwio:"offset=0x4000,size=0x4000,wcb"`
	SRAM  hwio.Device `hwio:"offset=0xA000,size=0x2000,rcb,wcb"`
}

func (r *regs) ROMBankA() int { return r.ctrl.ROMBankA() }
func (r *regs) ROMBankB() int { return r.ctrl.ROMBankB() }
func (r *regs) SRAMBank() int { return r.ctrl.SRAMBank() }

func (r *regs) WriteROMLO(off uint16, val uint8) {
	r.ctrl.writeReg(off, val)
	r.remap()
}

func (r *regs) WriteROMHI(off uint16, val uint8) {
	r.ctrl.writeReg(0x4000|off, val)
	r.remap()
}

func (r *regs) ReadSRAM(off uint16) uint8       { return r.ctrl.readRAM(off) }
func (r *regs) WriteSRAM(off uint16, val uint8) { r.ctrl.writeRAM(off, val) }
