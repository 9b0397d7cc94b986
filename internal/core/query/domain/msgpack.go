package domain

import (
	"github.com/vmihailenco/msgpack/v5"
)

var (
	_ msgpack.CustomEncoder = Value{}
	_ msgpack.CustomEncoder = Row(nil)
	_ msgpack.CustomEncoder = TableInfo{}
)

// EncodeMsgpack writes the value with its native msgpack type.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	switch v.kind {
	case KindInt:
		return enc.EncodeInt(v.i)
	case KindFloat:
		return enc.EncodeFloat64(v.f)
	case KindText:
		return enc.EncodeString(v.s)
	case KindBool:
		return enc.EncodeBool(v.b)
	default:
		return enc.EncodeNil()
	}
}

// EncodeMsgpack writes the row as a map in projection order.
func (r Row) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(len(r)); err != nil {
		return err
	}
	for _, f := range r {
		if err := enc.EncodeString(f.Name); err != nil {
			return err
		}
		if err := f.Value.EncodeMsgpack(enc); err != nil {
			return err
		}
	}
	return nil
}

// EncodeMsgpack mirrors MarshalJSON.
func (t TableInfo) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(1); err != nil {
		return err
	}
	if err := enc.EncodeString(t.Table); err != nil {
		return err
	}
	if err := enc.EncodeMapLen(len(t.Columns)); err != nil {
		return err
	}
	for _, col := range t.Columns {
		if err := enc.EncodeString(col.Name); err != nil {
			return err
		}
		if err := enc.EncodeString(col.DeclaredType); err != nil {
			return err
		}
	}
	return nil
}
