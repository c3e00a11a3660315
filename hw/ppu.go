package hw

import (
	"dotboy/emu/event"
	"dotboy/emu/log"
	"dotboy/hw/hwdefs"
	"dotboy/hw/hwio"
	"dotboy/hw/snapshot"
)

const (
	DotsPerLine   = 456
	LinesPerFrame = 154
	DotsPerFrame  = DotsPerLine * LinesPerFrame // 70224
)

// PPU modes, as reported in STAT bits 0-1.
const (
	ModeHBlank uint8 = iota
	ModeVBlank
	ModeOAMScan
	ModeDraw
)

const (
	// LCDC bits
	// $FF40

	// BG and window enable (0: off, 1: on)
	bgEnable = 0

	// Objects enable (0: off, 1: on)
	objEnable = 1

	// Object size (0: 8x8, 1: 8x16)
	objSize = 2

	// BG tile map area (0: $9800, 1: $9C00)
	bgTileMap = 3

	// BG and window tile data area
	// (0: $8800-$97FF signed indices, 1: $8000-$8FFF)
	tileData = 4

	// Window enable (0: off, 1: on)
	winEnable = 5

	// Window tile map area (0: $9800, 1: $9C00)
	winTileMap = 6

	// LCD and PPU enable (0: off, 1: on)
	lcdEnable = 7
)

const (
	// STAT bits
	// $FF41

	statLYCEqual  = 2
	statSelHBlank = 3
	statSelVBlank = 4
	statSelOAM    = 5
	statSelLYC    = 6
)

// Pixel is a color index (0-3, or 4-7 for the debug palette) at a screen
// location.
type Pixel struct {
	X, Y  int
	Color uint8
}

// PPU is the pixel processing unit. Tick advances it by one dot.
type PPU struct {
	bus  *Bus
	vram []byte
	oam  []byte

	LCDC hwio.Reg8 `hwio:"wcb"`
	STAT hwio.Reg8 `hwio:"romask=0x07,ormask=0x80"`
	LY   hwio.Reg8 `hwio:"readonly"`
	LYC  hwio.Reg8 `hwio:"wcb"`

	enabled  bool
	suppress int // frames left before pixels are output again

	// STAT interrupt line.
	statHigh bool

	// On line 144 an OAM STAT interrupt can still fire for a few dots.
	line144Allowed   bool
	line144Requested bool

	dot  int  // dot within the frame
	x, y int  // x is the next pixel column, starting at -8
	mode uint8 // fetcher mode, may differ from the STAT mode

	bg  bgFetcher
	obj objFetcher

	// Pixels receives every visible pixel, while the LCD is enabled.
	Pixels event.Hub[Pixel]
}

func NewPPU(bus *Bus) *PPU {
	p := &PPU{
		bus:  bus,
		vram: bus.Mem(VRAM),
		oam:  bus.Mem(OAM),
	}
	hwio.MustInitRegs(p)
	bus.MapReg8(int(IO), LCDC&0x7F, &p.LCDC)
	bus.MapReg8(int(IO), STAT&0x7F, &p.STAT)
	bus.MapReg8(int(IO), LY&0x7F, &p.LY)
	bus.MapReg8(int(IO), LYC&0x7F, &p.LYC)
	p.setMode(ModeHBlank)
	p.setLY(0)
	return p
}

func (p *PPU) Reset() {
	p.enabled = false
	p.suppress = 0
	p.statHigh = false
	p.line144Allowed = false
	p.line144Requested = false
	p.mode = ModeHBlank
	p.bg = bgFetcher{}
	p.obj = objFetcher{}
	p.resetPosition()
	for _, addr := range []uint16{LCDC, STAT, LYC} {
		p.bus.StoreDirect(addr, 0)
	}
	p.setMode(ModeHBlank)
	p.setLY(0)
}

func (p *PPU) resetPosition() {
	p.dot = 0
	p.x = -8
	p.y = 0
}

func (p *PPU) lcdc(bit uint8) bool {
	return nthbit8(p.bus.LoadDirect(LCDC), bit) != 0
}

func (p *PPU) Enabled() bool { return p.enabled }

// Dot returns the current dot within the frame.
func (p *PPU) Dot() int { return p.dot }

func (p *PPU) WriteLCDC(old, val uint8) {
	wasOn := p.enabled
	p.enabled = val&(1<<lcdEnable) != 0

	switch {
	case !wasOn && p.enabled:
		log.ModPPU.DebugZ("LCD on").End()
		p.suppress = 2
		p.updateCoincidence()
	case !p.enabled:
		if wasOn {
			log.ModPPU.DebugZ("LCD off").Int("dot", p.dot).End()
		}
		p.setLY(0)
		p.setMode(ModeHBlank)
		p.resetPosition()
		p.mode = ModeHBlank
		p.bg = bgFetcher{}
		p.obj = objFetcher{}
		p.statHigh = false
		p.line144Allowed = false
		p.line144Requested = false
	}
}

func (p *PPU) WriteLYC(_, _ uint8) {
	if p.enabled {
		p.updateCoincidence()
	}
}

func (p *PPU) setMode(mode uint8) {
	stat := p.bus.LoadDirect(STAT)
	p.bus.StoreDirect(STAT, stat&^0x03|mode)
	if mode == ModeVBlank {
		p.bus.RequestIRQ(hwdefs.VBlank)
	}
}

func (p *PPU) setLY(ly int) {
	p.bus.StoreDirect(LY, uint8(ly))
	if p.enabled {
		p.updateCoincidence()
	}
}

func (p *PPU) updateCoincidence() {
	p.bus.StoreBit(STAT, statLYCEqual, p.bus.LoadDirect(LY) == p.bus.LoadDirect(LYC))
}

// Tick advances the PPU by one dot.
func (p *PPU) Tick() {
	if !p.enabled {
		return
	}
	p.step()
	p.checkSTAT()
}

func (p *PPU) step() {
	if p.dot == 0 {
		p.bg.frameStart()
	}
	if p.dot%DotsPerLine == 0 {
		p.x = -8
		p.bgLineStart()
		p.obj.lineStart()
	}

	switch p.mode {
	case ModeOAMScan:
		p.oamScanStep()
	case ModeDraw:
		p.drawStep()
	}

	p.dot = (p.dot + 1) % DotsPerFrame
	p.y = p.dot / DotsPerLine
	p.frameDot()
}

func (p *PPU) drawStep() {
	p.bg.bgEnabled = p.lcdc(bgEnable)
	p.checkWindowLine()
	p.checkWindowEnable()
	p.obj.large = p.lcdc(objSize)
	p.obj.enabled = p.lcdc(objEnable)

	p.checkObject()
	if p.bg.canYield && p.obj.waiting {
		p.bg.active = false
		p.obj.active = true
		p.obj.waiting = false
	}

	if p.bg.active {
		if !p.obj.waiting {
			p.pushPixel()
		}
		p.bgAdvance()
	} else {
		p.objAdvance()
		if !p.obj.active {
			p.bg.active = true
		}
	}

	if p.x == hwdefs.ScreenWidth {
		p.mode = ModeHBlank
		p.setMode(ModeHBlank)
	}
}

// frameDot applies the mode and LY changes happening at fixed dots. The
// fetcher mode and the mode reported in STAT are not always in sync.
func (p *PPU) frameDot() {
	ldot := p.dot % DotsPerLine

	switch {
	case p.y < hwdefs.ScreenHeight:
		switch ldot {
		case 0:
			p.mode = ModeOAMScan
		case 80:
			p.mode = ModeDraw
			p.checkWindowFrame()
		}
	case p.y == hwdefs.ScreenHeight && ldot == 0:
		p.mode = ModeVBlank
	}

	// Line 0 reports mode 0 for 4 dots before mode 2.
	switch {
	case p.y == 0:
		switch ldot {
		case 0:
			p.setMode(ModeHBlank)
		case 4:
			p.setMode(ModeOAMScan)
		case 80:
			p.setMode(ModeDraw)
		}
	case p.y < hwdefs.ScreenHeight:
		switch ldot {
		case 0:
			p.setMode(ModeOAMScan)
		case 80:
			p.setMode(ModeDraw)
		}
	case p.y == hwdefs.ScreenHeight && ldot == 8:
		p.setMode(ModeVBlank)
	}

	// LY switches to 0 early on line 153.
	switch {
	case p.y == LinesPerFrame-1 && ldot == 4:
		p.setLY(0)
	case ldot == 0:
		p.setLY(p.y)
	}

	if p.y == hwdefs.ScreenHeight {
		switch ldot {
		case 0:
			p.setLine144Allowed(true)
		case 8:
			p.setLine144Allowed(false)
		}
	}

	if p.dot == 0 && p.suppress > 0 {
		p.suppress--
	}
}

// checkSTAT updates the STAT interrupt line, requesting an interrupt on its
// rising edge.
func (p *PPU) checkSTAT() {
	stat := p.bus.LoadDirect(STAT)
	mode := stat & 0x03
	sel := func(bit uint8) bool { return nthbit8(stat, bit) != 0 }

	switch {
	case sel(statSelLYC) && sel(statLYCEqual),
		sel(statSelOAM) && mode == ModeOAMScan,
		sel(statSelVBlank) && mode == ModeVBlank,
		sel(statSelHBlank) && mode == ModeHBlank:
		if !p.statHigh {
			p.statHigh = true
			p.bus.RequestIRQ(hwdefs.LCDStat)
			p.line144Requested = false
		}
	case sel(statSelOAM) && p.line144Allowed:
		if !p.statHigh {
			p.statHigh = true
			p.line144Requested = true
			p.bus.RequestIRQ(hwdefs.LCDStat)
		}
	default:
		p.statHigh = false
	}
}

func (p *PPU) setLine144Allowed(allowed bool) {
	p.line144Allowed = allowed
	if !allowed && p.line144Requested {
		// The pseudo interrupt had its chance.
		p.line144Requested = false
		p.statHigh = false
		p.bus.StoreBit(IF, 1, false)
	}
}

// pushPixel pops one pixel from the FIFOs and outputs it.
func (p *PPU) pushPixel() {
	if p.bg.n == 0 {
		return
	}
	bgColor := p.bg.pop()
	o := p.obj.pop()

	if p.bg.discard > 0 {
		p.bg.discard--
		return
	}
	if p.x < 0 {
		p.x++
		return
	}

	color := mixPixel(p.bg.bgEnabled, bgColor, p.obj.enabled, o,
		p.bus.LoadDirect(BGP), p.bus.LoadDirect(OBP0), p.bus.LoadDirect(OBP1))
	if p.suppress == 0 {
		p.Pixels.Publish(Pixel{X: p.x, Y: p.y, Color: color})
	}
	p.x++
}

// mixPixel resolves the final color of a pixel from the background and
// object FIFO outputs.
func mixPixel(bgOn bool, bg uint8, objOn bool, o objPixel, bgp, obp0, obp1 uint8) uint8 {
	objVisible := objOn && o.color != 0
	if bgOn && objVisible && o.priority && bg != 0 {
		objVisible = false
	}

	switch {
	case objVisible:
		pal := obp0
		if o.palette {
			pal = obp1
		}
		return pal >> (o.color * 2) & 0x03
	case bgOn:
		return bgp >> (bg * 2) & 0x03
	}
	return 0
}

func (p *PPU) Snapshot() snapshot.PPU {
	return snapshot.PPU{
		Dot:       p.dot,
		LY:        p.bus.LoadDirect(LY),
		Mode:      p.bus.LoadDirect(STAT) & 0x03,
		Enabled:   p.enabled,
		Suppress:  p.suppress,
		WindowHit: p.bg.winFrame,
	}
}
