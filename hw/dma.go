package hw

import (
	"dotboy/emu/log"
	"dotboy/hw/hwio"
)

const oamSize = 160

// OAMDMA copies 160 bytes to OAM, one byte every 4 ticks, reading the source
// through the external bus.
type OAMDMA struct {
	bus *Bus

	DMA hwio.Reg8 `hwio:"wcb"`

	running bool
	wait    int    // ticks before the next byte copy
	src     uint16 // source base address
	n       int    // bytes copied so far
}

func NewDMA(bus *Bus) *OAMDMA {
	dma := &OAMDMA{bus: bus}
	hwio.MustInitRegs(dma)
	bus.MapReg8(int(IO), DMA&0x7F, &dma.DMA)
	return dma
}

func (dma *OAMDMA) Reset() {
	dma.running = false
	dma.wait = 0
	dma.n = 0
}

// Running reports whether a transfer is in progress.
func (dma *OAMDMA) Running() bool { return dma.running }

func (dma *OAMDMA) WriteDMA(_, val uint8) {
	if dma.running {
		log.ModDMA.DebugZ("ignored OAM DMA write").Hex8("val", val).End()
		return
	}
	log.ModDMA.DebugZ("start OAM DMA transfer").Hex8("page", val).End()
	dma.running = true
	dma.wait = 3
	dma.src = uint16(val) << 8
	dma.n = 0
}

func (dma *OAMDMA) Tick() {
	if !dma.running {
		return
	}
	if dma.wait > 0 {
		dma.wait--
		return
	}

	off := uint16(dma.n)
	dma.bus.StoreDirect(0xFE00+off, dma.bus.LoadExternal(dma.src+off))
	dma.n++
	if dma.n < oamSize {
		dma.wait = 3
		return
	}
	dma.running = false
	log.ModDMA.DebugZ("OAM DMA transfer done").Hex16("src", dma.src).End()
}
