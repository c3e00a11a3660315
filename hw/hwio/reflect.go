package hwio

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type regInfo struct {
	offset uint16
	regPtr any
}

type tagOpts map[string]string

func parseTag(tag string) tagOpts {
	opts := make(tagOpts)
	for _, kv := range strings.Split(tag, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		opts[k] = v
	}
	return opts
}

func (o tagOpts) number(key string, bits int) (uint64, bool, error) {
	s, ok := o[key]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, true, fmt.Errorf("invalid %s value %q: %w", key, s, err)
	}
	return v, true, nil
}

// callback looks up the method to use for the given callback option. The
// option either names the method explicitly (rcb=MyRead) or the name is
// derived from the register name (rcb on field Foo looks for ReadFOO).
func (o tagOpts) callback(v reflect.Value, opt, prefix, field string) (reflect.Value, bool, error) {
	name, ok := o[opt]
	if !ok {
		return reflect.Value{}, false, nil
	}
	if name == "" {
		name = prefix + strings.ToUpper(field)
	}
	m := v.MethodByName(name)
	if !m.IsValid() {
		return reflect.Value{}, true, fmt.Errorf("%s: method %s not found on %s", field, name, v.Type())
	}
	return m, true, nil
}

// InitRegs initializes all the Reg8 and Device fields of the struct pointed to
// by data, according to their "hwio" struct tag:
//
//	rcb, wcb, pcb   attach the read, write and peek callbacks. The method
//	                name is ReadNAME, WriteNAME or PeekNAME where NAME is
//	                the upper-cased field name, unless specified with
//	                rcb=MethodName.
//	readonly        writes are ignored.
//	writeonly       reads return 0xFF.
//	romask=0xNN     bits that are not affected by writes (Reg8).
//	ormask=0xNN     bits that always read as 1 (Reg8).
//	size=0xNN       size of the device (Device).
func InitRegs(data any) error {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("hwio: InitRegs wants a pointer to struct, got %T", data)
	}

	sv := v.Elem()
	st := sv.Type()
	for i := range st.NumField() {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		if !f.IsExported() {
			return fmt.Errorf("hwio: field %s must be exported", f.Name)
		}

		opts := parseTag(tag)
		var err error
		switch ptr := sv.Field(i).Addr().Interface().(type) {
		case *Reg8:
			err = initReg8(v, f.Name, ptr, opts)
		case *Device:
			err = initDevice(v, f.Name, ptr, opts)
		default:
			err = fmt.Errorf("unsupported type %s", f.Type)
		}
		if err != nil {
			return fmt.Errorf("hwio: field %s: %w", f.Name, err)
		}
	}
	return nil
}

// MustInitRegs is like InitRegs but panics on error.
func MustInitRegs(data any) {
	if err := InitRegs(data); err != nil {
		panic(err)
	}
}

func flags(opts tagOpts) RWFlags {
	var fl RWFlags
	if _, ok := opts["readonly"]; ok {
		fl |= ReadOnlyFlag
	}
	if _, ok := opts["writeonly"]; ok {
		fl |= WriteOnlyFlag
	}
	return fl
}

func initReg8(v reflect.Value, name string, reg *Reg8, opts tagOpts) error {
	reg.Name = name
	reg.Flags = flags(opts)

	romask, _, err := opts.number("romask", 8)
	if err != nil {
		return err
	}
	ormask, _, err := opts.number("ormask", 8)
	if err != nil {
		return err
	}
	reg.RoMask = uint8(romask)
	reg.OrMask = uint8(ormask)

	if m, ok, err := opts.callback(v, "rcb", "Read", name); err != nil {
		return err
	} else if ok {
		cb, ok := m.Interface().(func(uint8) uint8)
		if !ok {
			return fmt.Errorf("invalid read callback signature: %s", m.Type())
		}
		reg.ReadCb = cb
	}
	if m, ok, err := opts.callback(v, "pcb", "Peek", name); err != nil {
		return err
	} else if ok {
		cb, ok := m.Interface().(func(uint8) uint8)
		if !ok {
			return fmt.Errorf("invalid peek callback signature: %s", m.Type())
		}
		reg.PeekCb = cb
	}
	if m, ok, err := opts.callback(v, "wcb", "Write", name); err != nil {
		return err
	} else if ok {
		cb, ok := m.Interface().(func(uint8, uint8))
		if !ok {
			return fmt.Errorf("invalid write callback signature: %s", m.Type())
		}
		reg.WriteCb = cb
	}
	return nil
}

func initDevice(v reflect.Value, name string, dev *Device, opts tagOpts) error {
	dev.Name = name
	dev.Flags = flags(opts)

	size, ok, err := opts.number("size", 16)
	if err != nil {
		return err
	}
	if !ok || size == 0 {
		return fmt.Errorf("device requires a size")
	}
	dev.Size = int(size)

	if m, ok, err := opts.callback(v, "rcb", "Read", name); err != nil {
		return err
	} else if ok {
		cb, ok := m.Interface().(func(uint16) uint8)
		if !ok {
			return fmt.Errorf("invalid read callback signature: %s", m.Type())
		}
		dev.ReadCb = cb
	}
	if m, ok, err := opts.callback(v, "pcb", "Peek", name); err != nil {
		return err
	} else if ok {
		cb, ok := m.Interface().(func(uint16) uint8)
		if !ok {
			return fmt.Errorf("invalid peek callback signature: %s", m.Type())
		}
		dev.PeekCb = cb
	}
	if m, ok, err := opts.callback(v, "wcb", "Write", name); err != nil {
		return err
	} else if ok {
		cb, ok := m.Interface().(func(uint16, uint8))
		if !ok {
			return fmt.Errorf("invalid write callback signature: %s", m.Type())
		}
		dev.WriteCb = cb
	}
	return nil
}

// bankGetRegs returns the registers of data that belong to the given bank.
func bankGetRegs(data any, bankNum int) ([]regInfo, error) {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("hwio: bank must be a pointer to struct, got %T", data)
	}

	var regs []regInfo
	sv := v.Elem()
	st := sv.Type()
	for i := range st.NumField() {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts := parseTag(tag)
		off, ok, err := opts.number("offset", 16)
		if err != nil {
			return nil, fmt.Errorf("hwio: field %s: %w", f.Name, err)
		}
		if !ok {
			continue
		}
		bank, _, err := opts.number("bank", 8)
		if err != nil {
			return nil, fmt.Errorf("hwio: field %s: %w", f.Name, err)
		}
		if int(bank) != bankNum {
			continue
		}
		regs = append(regs, regInfo{
			offset: uint16(off),
			regPtr: sv.Field(i).Addr().Interface(),
		})
	}
	return regs, nil
}
