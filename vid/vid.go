package vid

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	fieldMask = 0xFFFF

	shiftFlags    = 0
	shiftItem     = 16
	shiftDocument = 32
	shiftDomain   = 48

	// MaxField is the largest value a 16-bit address field can hold.
	MaxField = fieldMask

	flagFalse = 0b00
	flagTrue  = 0b10
	flagNone  = 0b01
	flagBits  = 0b11
)

// ErrRange is returned when a component does not fit in 16 bits.
var ErrRange = errors.New("vid: value out of 16-bit range")

// Flag is the tri-state temporary attribute.
type Flag uint8

const (
	FlagNone Flag = iota
	FlagFalse
	FlagTrue
)

// String implements fmt.Stringer.
func (f Flag) String() string {
	switch f {
	case FlagFalse:
		return "false"
	case FlagTrue:
		return "true"
	default:
		return "none"
	}
}

// Bool returns the flag value and whether it is set.
func (f Flag) Bool() (bool, bool) {
	switch f {
	case FlagTrue:
		return true, true
	case FlagFalse:
		return false, true
	default:
		return false, false
	}
}

// FlagOf converts a bool into a set flag.
func FlagOf(v bool) Flag {
	if v {
		return FlagTrue
	}
	return FlagFalse
}

// Vid is a packed semantic address.
type Vid uint64

// Option sets one address component.
type Option func(p *parts)

type parts struct {
	domain, document, item int
	temporary              Flag
}

// WithDomain sets the domain id.
func WithDomain(id int) Option { return func(p *parts) { p.domain = id } }

// WithDocument sets the document id.
func WithDocument(id int) Option { return func(p *parts) { p.document = id } }

// WithItem sets the raw item field.
func WithItem(item int) Option { return func(p *parts) { p.item = item } }

// WithTemporary sets the temporary flag.
func WithTemporary(temporary bool) Option {
	return func(p *parts) { p.temporary = FlagOf(temporary) }
}

// WithFlag sets the temporary flag, FlagNone leaves it unset.
func WithFlag(f Flag) Option { return func(p *parts) { p.temporary = f } }

// New encodes an address from components. Omitted components decode as none.
func New(opts ...Option) (Vid, error) {
	p := parts{}
	for _, opt := range opts {
		opt(&p)
	}
	for _, f := range []struct {
		name  string
		value int
	}{{"domain", p.domain}, {"document", p.document}, {"item", p.item}} {
		if f.value < 0 || f.value > MaxField {
			return 0, fmt.Errorf("%w: %s=%d", ErrRange, f.name, f.value)
		}
	}
	v := uint64(p.domain)<<shiftDomain |
		uint64(p.document)<<shiftDocument |
		uint64(p.item)<<shiftItem |
		uint64(encodeFlag(p.temporary))<<shiftFlags
	return Vid(v), nil
}

// MustNew is like New but panics on error. Intended for constants and tests.
func MustNew(opts ...Option) Vid {
	v, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return v
}

// FromUint64 wraps a raw packed value.
func FromUint64(v uint64) Vid { return Vid(v) }

// FromInt64 reinterprets the bits of a signed integer, as stored by SQLite.
func FromInt64(v int64) Vid { return Vid(uint64(v)) }

// Uint64 returns the raw packed value.
func (v Vid) Uint64() uint64 { return uint64(v) }

// Int64 returns the bit-identical signed value suitable for SQLite INTEGER columns.
func (v Vid) Int64() int64 { return int64(uint64(v)) }

func (v Vid) field(shift uint) (uint16, bool) {
	f := uint16((uint64(v) >> shift) & fieldMask)
	return f, f != 0
}

// Domain returns the domain id and whether it is present.
func (v Vid) Domain() (uint16, bool) { return v.field(shiftDomain) }

// Document returns the document id and whether it is present.
func (v Vid) Document() (uint16, bool) { return v.field(shiftDocument) }

// Item returns the raw item field and whether it is present.
func (v Vid) Item() (uint16, bool) { return v.field(shiftItem) }

// Flags returns the raw flag field.
func (v Vid) Flags() uint16 { return uint16(uint64(v) & fieldMask) }

// Temporary decodes the tri-state temporary flag.
func (v Vid) Temporary() Flag { return decodeFlag(v.Flags() & flagBits) }

// IsAddress reports whether v points at a single concrete atom.
func (v Vid) IsAddress() bool {
	_, hasDomain := v.Domain()
	_, hasDocument := v.Document()
	_, hasItem := v.Item()
	return hasDomain && hasDocument && hasItem && v.Temporary() != FlagNone
}

// DocumentMask returns the mask matching every atom of v's document,
// regardless of item and temporary flag.
func (v Vid) DocumentMask() Vid {
	return Vid(uint64(v)&^(uint64(fieldMask)<<shiftItem|fieldMask) | flagNone)
}

// DomainMask returns the mask matching every atom of v's domain.
func (v Vid) DomainMask() Vid {
	return Vid(uint64(v)&(uint64(fieldMask)<<shiftDomain) | flagNone)
}

// String implements fmt.Stringer.
func (v Vid) String() string {
	format := func(f uint16, ok bool) string {
		if !ok {
			return "none"
		}
		return strconv.Itoa(int(f))
	}
	d, okD := v.Domain()
	doc, okDoc := v.Document()
	item, okItem := v.Item()
	return fmt.Sprintf("Vid(domain=%s, document=%s, item=%s, temporary=%s)",
		format(d, okD), format(doc, okDoc), format(item, okItem), v.Temporary())
}

func encodeFlag(f Flag) uint16 {
	switch f {
	case FlagTrue:
		return flagTrue
	case FlagFalse:
		return flagFalse
	default:
		return flagNone
	}
}

func decodeFlag(bits uint16) Flag {
	switch bits {
	case flagFalse:
		return FlagFalse
	case flagTrue:
		return FlagTrue
	default:
		return FlagNone
	}
}
