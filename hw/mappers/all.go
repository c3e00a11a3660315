package mappers

import (
	"fmt"

	"dotboy/cart"
	"dotboy/emu/log"
	"dotboy/hw"
)

var modMBC = log.NewModule("mbc")

// Mapper is a loaded cartridge bank controller. The bank numbers reflect the
// last writes to its registers.
type Mapper interface {
	Name() string
	ROMBankA() int
	ROMBankB() int
	SRAMBank() int

	// Close flushes and closes the battery save, if any.
	Close() error
}

// Load maps the rom on the bus, along with the registers of its bank
// controller. Battery backed RAM is persisted under saveDir; an empty saveDir
// keeps it in memory only.
func Load(rom *cart.Rom, bus *hw.Bus, saveDir string) (Mapper, error) {
	ctrl, err := rom.Controller()
	if err != nil {
		return nil, err
	}
	desc, ok := All[ctrl]
	if !ok {
		return nil, fmt.Errorf("unsupported bank controller %s", ctrl)
	}
	base, err := newbase(desc, rom, bus, saveDir)
	if err != nil {
		return nil, fmt.Errorf("mapper initialization failed: %w", err)
	}
	m, err := base.load()
	if err != nil {
		base.Close()
		return nil, fmt.Errorf("failed to load mapper %s: %w", desc.Name, err)
	}
	modMBC.InfoZ("cartridge loaded").
		String("title", rom.Title()).
		String("type", rom.TypeName()).
		Int("rom banks", rom.ROMBanks()).
		Int("ram banks", rom.RAMBanks()).
		End()
	return m, nil
}

type MapperDesc struct {
	Name string
	Load func(*base) (controller, error)

	// RAMSize overrides the RAM size given by the header, for controllers
	// with built-in memory.
	RAMSize int
}

var All = map[cart.Controller]MapperDesc{
	cart.MBC0: MBC0,
	cart.MBC1: MBC1,
	cart.MBC2: MBC2,
	cart.MBC3: MBC3,
	cart.MBC5: MBC5,
}
