package hw

// bgFetcher is the background and window pixel fetcher and its FIFO.
type bgFetcher struct {
	pixels [8]uint8
	n      int

	scx, scy uint8
	wly      int // window internal line counter
	discard  int // pixels to drop for fine horizontal scroll

	winFrame   bool // LY reached WY during this frame
	winLine    bool // x reached WX-7 during this line
	winEnabled bool // fetching from the window for the rest of the line
	bgEnabled  bool

	tileID     uint8
	lo, hi     uint8
	fetchX     int
	fromWindow bool

	state    int // 0: tile id, 1: idle, 2: low, 3: idle, 4: high, 5: push, 6: retry push
	active   bool
	canYield bool
}

func (bg *bgFetcher) frameStart() {
	bg.wly = 0
	bg.winFrame = false
}

func (p *PPU) bgLineStart() {
	bg := &p.bg
	bg.n = 0
	bg.scx = p.bus.LoadDirect(SCX)
	bg.discard = int(bg.scx % 8)
	bg.winLine = false
	bg.fetchX = -8
	bg.fromWindow = false
	bg.state = 0

	// The window line counter only advances on lines showing the window.
	if bg.winEnabled {
		bg.winEnabled = false
		bg.wly++
	}

	bg.active = true
	bg.canYield = false
}

func (bg *bgFetcher) pop() uint8 {
	px := bg.pixels[0]
	bg.n--
	copy(bg.pixels[:bg.n], bg.pixels[1:bg.n+1])
	return px
}

func (p *PPU) bgAdvance() {
	bg := &p.bg
	switch bg.state {
	case 0:
		p.bgFetchTileID()
		bg.canYield = false
		bg.state++
	case 2:
		bg.lo = p.bgTileData(0)
		bg.state++
	case 4:
		bg.hi = p.bgTileData(1)
		bg.state++
	case 5:
		bg.state++
		bg.push()
		bg.canYield = true
	case 6:
		bg.push()
	default:
		bg.state++
	}
}

// push moves 8 pixels into the FIFO, only when it is empty.
func (bg *bgFetcher) push() {
	if bg.n != 0 {
		return
	}
	for i := range 8 {
		bit := uint8(7 - i)
		bg.pixels[i] = nthbit8(bg.hi, bit)<<1 | nthbit8(bg.lo, bit)
	}
	bg.n = 8
	bg.state = 0
}

func (p *PPU) bgFetchTileID() {
	bg := &p.bg

	// Coarse SCX and SCY are latched at each tile fetch.
	bg.scx = p.bus.LoadDirect(SCX)&0xF8 | bg.scx&0x07
	bg.scy = p.bus.LoadDirect(SCY)

	fx := max(bg.fetchX, 0)
	var mapBase, tx, ty int
	if bg.fromWindow {
		mapBase = tileMapBase(p.lcdc(winTileMap))
		tx = fx / 8
		ty = bg.wly / 8
	} else {
		mapBase = tileMapBase(p.lcdc(bgTileMap))
		tx = ((fx + int(bg.scx)) & 0xFF) / 8
		ty = ((p.y + int(bg.scy)) & 0xFF) / 8
	}
	bg.tileID = p.vram[mapBase+tx+32*ty]
	bg.fetchX += 8
}

// bgTileData returns the low (plane 0) or high (plane 1) byte of the
// current tile row.
func (p *PPU) bgTileData(plane int) uint8 {
	bg := &p.bg

	var row int
	if bg.fromWindow {
		row = bg.wly % 8
	} else {
		row = (p.y + int(bg.scy)) % 8
	}

	var base int
	if p.lcdc(tileData) {
		base = int(bg.tileID) * 16
	} else {
		base = 0x1000 + int(int8(bg.tileID))*16
	}
	return p.vram[base+row*2+plane]
}

// tileMapBase returns the VRAM offset of one of the two tile maps.
func tileMapBase(high bool) int {
	if high {
		return 0x1C00
	}
	return 0x1800
}

// checkWindowFrame is evaluated at the start of mode 3.
func (p *PPU) checkWindowFrame() {
	if !p.bg.winFrame {
		p.bg.winFrame = p.y == int(p.bus.LoadDirect(WY))
	}
}

func (p *PPU) checkWindowLine() {
	if !p.bg.winLine && p.bg.winFrame {
		p.bg.winLine = p.x == int(p.bus.LoadDirect(WX))-7
	}
}

// checkWindowEnable switches the fetcher to the window when all the window
// conditions hold. It stays on the window until the end of the line.
func (p *PPU) checkWindowEnable() {
	bg := &p.bg
	if bg.winEnabled || !bg.winLine || !bg.winFrame {
		return
	}
	if bg.bgEnabled && p.lcdc(winEnable) {
		bg.winEnabled = true
		bg.fromWindow = true
		bg.n = 0
		bg.state = 0
		bg.fetchX = 0
	}
}
