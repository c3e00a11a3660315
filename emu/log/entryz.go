package log

import (
	"fmt"
	"sync"
	"time"

	"gopkg.in/Sirupsen/logrus.v0"
)

const maxZFields = 16

// EntryZ is a log entry built through chained calls. A nil *EntryZ is valid
// and every method on it is a no-op, so that disabled log calls cost only
// a module mask check.
type EntryZ struct {
	lvl Level
	mod Module
	msg string

	zfbuf [maxZFields]ZField
	zfidx int
}

var entryzPool = sync.Pool{
	New: func() any { return new(EntryZ) },
}

func NewEntryZ() *EntryZ {
	z := entryzPool.Get().(*EntryZ)
	z.zfidx = 0
	return z
}

func (z *EntryZ) next() *ZField {
	if z.zfidx == maxZFields {
		return nil
	}
	f := &z.zfbuf[z.zfidx]
	*f = ZField{}
	z.zfidx++
	return f
}

func (z *EntryZ) String(key, val string) *EntryZ {
	if z != nil {
		if f := z.next(); f != nil {
			f.Type, f.Key, f.String = FieldTypeString, key, val
		}
	}
	return z
}

func (z *EntryZ) Bool(key string, val bool) *EntryZ {
	if z != nil {
		if f := z.next(); f != nil {
			f.Type, f.Key, f.Boolean = FieldTypeBool, key, val
		}
	}
	return z
}

func (z *EntryZ) integer(typ FieldType, key string, val uint64) *EntryZ {
	if z != nil {
		if f := z.next(); f != nil {
			f.Type, f.Key, f.Integer = typ, key, val
		}
	}
	return z
}

func (z *EntryZ) Hex8(key string, val uint8) *EntryZ {
	return z.integer(FieldTypeHex8, key, uint64(val))
}

func (z *EntryZ) Hex16(key string, val uint16) *EntryZ {
	return z.integer(FieldTypeHex16, key, uint64(val))
}

func (z *EntryZ) Hex32(key string, val uint32) *EntryZ {
	return z.integer(FieldTypeHex32, key, uint64(val))
}

func (z *EntryZ) Hex64(key string, val uint64) *EntryZ {
	return z.integer(FieldTypeHex64, key, val)
}

func (z *EntryZ) Int(key string, val int) *EntryZ {
	return z.integer(FieldTypeInt, key, uint64(val))
}

func (z *EntryZ) Int64(key string, val int64) *EntryZ {
	return z.integer(FieldTypeInt, key, uint64(val))
}

func (z *EntryZ) Uint(key string, val uint) *EntryZ {
	return z.integer(FieldTypeUint, key, uint64(val))
}

func (z *EntryZ) Uint8(key string, val uint8) *EntryZ {
	return z.integer(FieldTypeUint, key, uint64(val))
}

func (z *EntryZ) Uint16(key string, val uint16) *EntryZ {
	return z.integer(FieldTypeUint, key, uint64(val))
}

func (z *EntryZ) Uint64(key string, val uint64) *EntryZ {
	return z.integer(FieldTypeUint, key, val)
}

func (z *EntryZ) Error(key string, err error) *EntryZ {
	if z != nil {
		if f := z.next(); f != nil {
			f.Type, f.Key, f.Error = FieldTypeError, key, err
		}
	}
	return z
}

func (z *EntryZ) Duration(key string, d time.Duration) *EntryZ {
	if z != nil {
		if f := z.next(); f != nil {
			f.Type, f.Key, f.Duration = FieldTypeDuration, key, d
		}
	}
	return z
}

func (z *EntryZ) Stringer(key string, s fmt.Stringer) *EntryZ {
	if z != nil {
		if f := z.next(); f != nil {
			f.Type, f.Key, f.Interface = FieldTypeStringer, key, s
		}
	}
	return z
}

func (z *EntryZ) Blob(key string, buf []byte) *EntryZ {
	if z != nil {
		if f := z.next(); f != nil {
			f.Type, f.Key, f.Blob = FieldTypeBlob, key, buf
		}
	}
	return z
}

// End emits the entry. Fatal entries exit the program and panic entries
// panic, after having been logged.
func (z *EntryZ) End() {
	if z == nil {
		return
	}

	for _, c := range contexts {
		c.AddLogContext(z)
	}

	fields := make(logrus.Fields, z.zfidx+1)
	fields["_mod"] = modNames[z.mod]
	for i := range z.zfbuf[:z.zfidx] {
		fields[z.zfbuf[i].Key] = z.zfbuf[i].Value()
	}

	entry := logrus.StandardLogger().WithFields(fields)
	lvl, msg := z.lvl, z.msg
	entryzPool.Put(z)

	switch lvl {
	case PanicLevel:
		entry.Panic(msg)
	case FatalLevel:
		entry.Fatal(msg)
	case ErrorLevel:
		entry.Error(msg)
	case WarnLevel:
		entry.Warn(msg)
	case InfoLevel:
		entry.Info(msg)
	default:
		entry.Debug(msg)
	}
}
