package hw

const maxLineObjects = 10

type objPixel struct {
	color    uint8
	priority bool // BG colors 1-3 are drawn over the object
	palette  bool // OBP1 instead of OBP0
}

// A lineObject is an object visible on the current line.
type lineObject struct {
	x  int // screen x of the object left column (OAM x - 8)
	id int // OAM index
}

// objFetcher is the object pixel fetcher and its FIFO.
type objFetcher struct {
	pixels [8]objPixel

	// Objects visible on the line, sorted by x then OAM index.
	visible [maxLineObjects]lineObject
	nvis    int
	last    int // index in visible of the last object fetched
	scanID  int // next OAM entry to scan
	scanDot int

	enabled bool
	large   bool

	cur    int // OAM index of the object being fetched
	tileID uint8
	lo, hi uint8
	state  int

	active  bool
	waiting bool
}

func (o *objFetcher) lineStart() {
	o.scanDot = 0
	o.state = 0
	o.nvis = 0
	o.last = -1
	o.scanID = 0
	o.pixels = [8]objPixel{}
	o.active = false
	o.waiting = false
}

func (o *objFetcher) pop() objPixel {
	px := o.pixels[0]
	copy(o.pixels[:7], o.pixels[1:])
	o.pixels[7] = objPixel{}
	return px
}

// oamScanStep scans one OAM entry every 2 dots.
func (p *PPU) oamScanStep() {
	o := &p.obj
	if o.scanDot%2 == 0 {
		p.oamScan()
	}
	o.scanDot++
}

func (p *PPU) objHeight() int {
	if p.lcdc(objSize) {
		return 16
	}
	return 8
}

func (p *PPU) oamScan() {
	o := &p.obj
	if o.nvis == maxLineObjects || o.scanID >= 40 {
		return
	}

	entry := p.oam[o.scanID*4:]
	y := int(entry[0]) - 16
	if p.y >= y && p.y < y+p.objHeight() {
		obj := lineObject{x: int(entry[1]) - 8, id: o.scanID}

		// Objects with equal x keep the OAM order.
		i := 0
		for i < o.nvis && o.visible[i].x <= obj.x {
			i++
		}
		copy(o.visible[i+1:o.nvis+1], o.visible[i:o.nvis])
		o.visible[i] = obj
		o.nvis++
	}
	o.scanID++
}

// checkObject looks for the next object starting at the current column.
func (p *PPU) checkObject() {
	o := &p.obj
	if o.waiting || o.active {
		return
	}
	for i := o.last + 1; i < o.nvis; i++ {
		if o.visible[i].x == p.x {
			o.last = i
			o.cur = o.visible[i].id
			o.waiting = true
			return
		}
	}
}

func (p *PPU) objAdvance() {
	o := &p.obj
	switch o.state {
	case 0:
		o.tileID = p.oam[o.cur*4+2]
		if o.large {
			o.tileID &= 0xFE
		}
		o.state++
	case 2:
		o.lo = p.objTileData(0)
		o.state++
	case 4:
		o.hi = p.objTileData(1)
		o.state++
	case 5:
		p.objPush()
	default:
		o.state++
	}
}

func (p *PPU) objTileData(plane int) uint8 {
	o := &p.obj
	attrs := p.oam[o.cur*4+3]
	y := int(p.oam[o.cur*4]) - 16

	h := 8
	if o.large {
		h = 16
	}
	row := (p.y - y) % h
	if attrs&0x40 != 0 {
		row = h - 1 - row
	}
	return p.vram[int(o.tileID)*16+row*2+plane]
}

// objPush merges the fetched row into the FIFO. Non transparent pixels
// already in the FIFO win.
func (p *PPU) objPush() {
	o := &p.obj
	attrs := p.oam[o.cur*4+3]
	flipX := attrs&0x20 != 0

	for i := range 8 {
		if o.pixels[i].color != 0 {
			continue
		}
		bit := uint8(7 - i)
		if flipX {
			bit = uint8(i)
		}
		o.pixels[i] = objPixel{
			color:    nthbit8(o.hi, bit)<<1 | nthbit8(o.lo, bit),
			priority: attrs&0x80 != 0,
			palette:  attrs&0x10 != 0,
		}
	}
	o.state = 0
	o.active = false
}
