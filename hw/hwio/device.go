package hwio

// Device is a handler covering a range of bytes. Callbacks receive the offset
// relative to the start of the device. A nil ReadCb or WriteCb falls back to
// direct access of the backing memory; with ReadOnlyFlag, writes are dropped.
type Device struct {
	Name  string // name of the memory area (for debugging)
	Size  int    // size of the memory area
	Flags RWFlags

	ReadCb  func(off uint16) uint8
	PeekCb  func(off uint16) uint8
	WriteCb func(off uint16, val uint8)
}

func (d *Device) read(off uint16) uint8 {
	if d.Flags&WriteOnlyFlag != 0 {
		return 0xFF
	}
	return d.ReadCb(off)
}
