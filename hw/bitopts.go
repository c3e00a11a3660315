package hw

import "unsafe"

func nthbit8(val uint8, n uint8) uint8    { return (val >> n) & 1 }
func nthbit16(val uint16, n uint8) uint16 { return (val >> n) & 1 }

// Avoid branches. In the SSA compiler, this compiles to
// exactly what you would want it to.

func b2u8(x bool) uint8 { return *(*uint8)(unsafe.Pointer(&x)) }
func b2i(x bool) int    { return int(*(*uint8)(unsafe.Pointer(&x))) }
