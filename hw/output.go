package hw

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"sync/atomic"

	"dotboy/emu/event"
	"dotboy/hw/hwdefs"
)

// Palette holds the colors of the 4 shades, lightest first.
type Palette [4]color.RGBA

// DefaultPalette mimics the greenish DMG screen.
var DefaultPalette = Palette{
	{0xE0, 0xF8, 0xD0, 0xFF},
	{0x88, 0xC0, 0x70, 0xFF},
	{0x34, 0x68, 0x56, 0xFF},
	{0x08, 0x18, 0x20, 0xFF},
}

// ParsePalette parses 4 colors in the "#RRGGBB" form.
func ParsePalette(hex []string) (Palette, error) {
	var pal Palette
	if len(hex) != len(pal) {
		return pal, fmt.Errorf("palette needs %d colors, got %d", len(pal), len(hex))
	}
	for i, s := range hex {
		var r, g, b uint8
		if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err != nil {
			return pal, fmt.Errorf("palette color %d %q: %w", i, s, err)
		}
		pal[i] = color.RGBA{r, g, b, 0xFF}
	}
	return pal, nil
}

// color returns the RGBA color of a pixel color index. Indices 4-7 are the
// debug shades, tinted red.
func (p *Palette) color(idx uint8) color.RGBA {
	c := p[idx&3]
	if idx >= 4 {
		c.R = uint8(min(0xFF, int(c.R)+0x60))
		c.G /= 2
		c.B /= 2
	}
	return c
}

type OutputConfig struct {
	Palette         Palette
	NumVideoBuffers int
}

// Output draws pixels on a persistent screen image and hands out copies of
// it at frame boundaries. Pixel and EndFrame run on the emulation goroutine
// while Frame can be called from any goroutine.
type Output struct {
	cfg OutputConfig

	screen *image.RGBA
	drawn  bool // at least one pixel drawn since the last EndFrame

	framebufidx int
	framebuf    []*image.RGBA
	last        atomic.Pointer[image.RGBA]

	framecounter uint64

	// Frames receives each completed frame. The image is only valid until
	// NumVideoBuffers-1 more frames completed.
	Frames event.Hub[*image.RGBA]

	// DebugImage receives the tile sheets drawn by PublishDebug. It is
	// separate from the frame path: subscribers and PublishDebug must share
	// a goroutine.
	DebugImage event.Hub[*image.RGBA]
	tiles      *image.RGBA
}

func NewOutput(cfg OutputConfig) *Output {
	if cfg.NumVideoBuffers < 2 {
		cfg.NumVideoBuffers = 3
	}
	if cfg.Palette == (Palette{}) {
		cfg.Palette = DefaultPalette
	}
	o := &Output{
		cfg:      cfg,
		framebuf: make([]*image.RGBA, cfg.NumVideoBuffers),
	}
	rect := image.Rect(0, 0, hwdefs.ScreenWidth, hwdefs.ScreenHeight)
	o.screen = image.NewRGBA(rect)
	o.fill(o.screen)
	for i := range o.framebuf {
		o.framebuf[i] = image.NewRGBA(rect)
		o.fill(o.framebuf[i])
	}
	o.last.Store(o.framebuf[len(o.framebuf)-1])
	return o
}

// fill paints img with the lightest shade, the color of a disabled LCD.
func (o *Output) fill(img *image.RGBA) {
	c := o.cfg.Palette[0]
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
}

// Pixel draws px on the screen, use it as a PPU.Pixels subscriber.
func (o *Output) Pixel(px Pixel) {
	if px.X < 0 || px.X >= hwdefs.ScreenWidth || px.Y < 0 || px.Y >= hwdefs.ScreenHeight {
		return
	}
	c := o.cfg.Palette.color(px.Color)
	i := o.screen.PixOffset(px.X, px.Y)
	o.screen.Pix[i+0] = c.R
	o.screen.Pix[i+1] = c.G
	o.screen.Pix[i+2] = c.B
	o.screen.Pix[i+3] = c.A
	o.drawn = true
}

// EndFrame snapshots the screen into the next video buffer and publishes
// it. A frame without any pixel (LCD off) blanks the screen.
func (o *Output) EndFrame() {
	if !o.drawn {
		o.fill(o.screen)
	}
	o.drawn = false

	o.framebufidx++
	if o.framebufidx == len(o.framebuf) {
		o.framebufidx = 0
	}
	img := o.framebuf[o.framebufidx]
	copy(img.Pix, o.screen.Pix)
	o.last.Store(img)
	o.framecounter++
	o.Frames.Publish(img)
}

// Frame returns the last completed frame.
func (o *Output) Frame() *image.RGBA { return o.last.Load() }

// FrameCount returns the number of completed frames.
func (o *Output) FrameCount() uint64 { return o.framecounter }

// PublishDebug draws the 384 tiles of vram, a copy of the VRAM region, and
// publishes the sheet on DebugImage.
func (o *Output) PublishDebug(vram []byte) {
	if !o.DebugImage.Active() {
		return
	}
	o.DebugImage.Publish(o.tileSheet(vram))
}

// tileSheet draws the 384 tiles of vram, 16 per row.
func (o *Output) tileSheet(vram []byte) *image.RGBA {
	const perRow, ntiles = 16, 384
	if o.tiles == nil {
		o.tiles = image.NewRGBA(image.Rect(0, 0, perRow*8, ntiles/perRow*8))
	}
	for t := range ntiles {
		tile := vram[t*16 : t*16+16]
		ox, oy := (t%perRow)*8, (t/perRow)*8
		for y := range 8 {
			lo, hi := tile[y*2], tile[y*2+1]
			for x := range 8 {
				bit := 7 - x
				idx := (hi>>bit&1)<<1 | lo>>bit&1
				o.tiles.SetRGBA(ox+x, oy+y, o.cfg.Palette.color(idx))
			}
		}
	}
	return o.tiles
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// SavePNG writes img as a PNG file.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePNG(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
