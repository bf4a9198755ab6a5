package vid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Scenario(t *testing.T) {
	v, err := New(WithDomain(3), WithDocument(7), WithItem(2), WithTemporary(false))
	require.NoError(t, err)
	assert.Equal(t, uint64(3)<<48+uint64(7)<<32+uint64(2)<<16, v.Uint64())

	d, ok := v.Domain()
	assert.True(t, ok)
	assert.Equal(t, uint16(3), d)
	doc, ok := v.Document()
	assert.True(t, ok)
	assert.Equal(t, uint16(7), doc)
	item, ok := v.Item()
	assert.True(t, ok)
	assert.Equal(t, uint16(2), item)
	assert.Equal(t, FlagFalse, v.Temporary())
	assert.True(t, v.IsAddress())
}

func TestRoundTrip(t *testing.T) {
	values := []int{0, 1, 2, 255, 32768, 65534, 65535}
	flags := []Flag{FlagNone, FlagFalse, FlagTrue}
	for _, d := range values {
		for _, doc := range values {
			for _, item := range values {
				for _, f := range flags {
					v, err := New(WithDomain(d), WithDocument(doc), WithItem(item), WithFlag(f))
					require.NoError(t, err)

					gotD, okD := v.Domain()
					gotDoc, okDoc := v.Document()
					gotItem, okItem := v.Item()
					assert.Equal(t, d != 0, okD)
					assert.Equal(t, uint16(d), gotD)
					assert.Equal(t, uint16(doc), gotDoc)
					assert.Equal(t, doc != 0, okDoc)
					assert.Equal(t, uint16(item), gotItem)
					assert.Equal(t, item != 0, okItem)
					assert.Equal(t, f, v.Temporary())

					again, err := New(WithDomain(int(gotD)), WithDocument(int(gotDoc)), WithItem(int(gotItem)), WithFlag(v.Temporary()))
					require.NoError(t, err)
					assert.Equal(t, v, again)
					assert.Equal(t, v, FromUint64(v.Uint64()))
					assert.Equal(t, v, FromInt64(v.Int64()))
				}
			}
		}
	}
}

func TestNew_Overflow(t *testing.T) {
	testCases := []struct {
		name string
		opt  Option
	}{
		{name: "domain", opt: WithDomain(65536)},
		{name: "document", opt: WithDocument(1 << 20)},
		{name: "item", opt: WithItem(70000)},
		{name: "negative", opt: WithItem(-1)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.opt)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRange))
		})
	}
}

func TestTemporaryBits(t *testing.T) {
	assert.Equal(t, uint16(0b00), MustNew(WithTemporary(false)).Flags())
	assert.Equal(t, uint16(0b10), MustNew(WithTemporary(true)).Flags())
	assert.Equal(t, uint16(0b01), MustNew().Flags())
	assert.Equal(t, FlagNone, FromUint64(0b11).Temporary())
	assert.Equal(t, FlagNone, FromUint64(0b01).Temporary())
}

func TestIsAddress(t *testing.T) {
	assert.False(t, MustNew(WithDomain(1), WithDocument(1), WithItem(1)).IsAddress())
	assert.False(t, MustNew(WithDomain(1), WithDocument(1), WithTemporary(true)).IsAddress())
	assert.True(t, MustNew(WithDomain(1), WithDocument(1), WithItem(1), WithTemporary(true)).IsAddress())
}

func TestMasks(t *testing.T) {
	a := MustNew(WithDomain(4), WithDocument(9), WithItem(3), WithTemporary(true))
	docMask := a.DocumentMask()
	assert.Equal(t, MustNew(WithDomain(4), WithDocument(9)), docMask)
	assert.Equal(t, MustNew(WithDomain(4)), a.DomainMask())
	assert.True(t, docMask.Matches(a))
	assert.False(t, docMask.Matches(MustNew(WithDomain(4), WithDocument(8), WithItem(3), WithTemporary(true))))
	assert.False(t, MustNew(WithTemporary(false)).Matches(a))
	assert.True(t, MustNew(WithTemporary(true)).Matches(a))
}

func TestWhere(t *testing.T) {
	clause, args := MustNew().Where("id")
	assert.Equal(t, "1 = 1", clause)
	assert.Empty(t, args)

	clause, args = MustNew(WithDomain(3), WithDocument(7), WithTemporary(false)).Where("id")
	assert.Equal(t, "((id >> 48) & 65535) = ? AND ((id >> 32) & 65535) = ? AND (id & 3) = ?", clause)
	assert.Equal(t, []any{int64(3), int64(7), int64(0)}, args)

	clause, args = MustNew(WithItem(5), WithTemporary(true)).Where("a.id")
	assert.Equal(t, "((a.id >> 16) & 65535) = ? AND (a.id & 3) = ?", clause)
	assert.Equal(t, []any{int64(5), int64(2)}, args)
}

func TestString(t *testing.T) {
	v := MustNew(WithDomain(3), WithItem(2), WithTemporary(true))
	assert.Equal(t, "Vid(domain=3, document=none, item=2, temporary=true)", v.String())
}
