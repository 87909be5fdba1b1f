// Package binary implements the engine's compact binary schema format (spec
// §6 "Binary schema format"): a length-prefixed tag-based encoding of a Json
// value tree, used to persist a pre-parsed schema's raw document or ship it
// over transport without re-serializing through JSON. Round-trip is lossless
// modulo insignificant float representation, matching the Json value grammar
// itself (spec §4.2 canonicalization already collapses that noise before a
// value ever reaches this package).
//
// The format carries an explicit version byte (spec "Stability contract"),
// so a future incompatible revision can be rejected by Decode rather than
// silently misread.
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/kaptinlin/formlogic/jsonvalue"
)

// Version is the current binary format tag. Decode rejects any other value.
const Version byte = 1

// Tag identifies one encoded value's Kind on the wire.
type tag byte

const (
	tagNull tag = iota
	tagBoolFalse
	tagBoolTrue
	tagInt
	tagFloat
	tagString
	tagArray
	tagObject
)

var (
	// ErrTruncated is returned when the input ends before a value it started
	// encoding is complete, and (wrapped) when bytes remain after the
	// top-level value.
	ErrTruncated = errors.New("binary: truncated input")

	// ErrUnsupportedVersion is returned when Decode sees a version byte this
	// package does not know how to read.
	ErrUnsupportedVersion = errors.New("binary: unsupported version")

	// ErrUnknownTag is returned when a byte that should be a value tag does
	// not match any known encoding.
	ErrUnknownTag = errors.New("binary: unknown tag")
)

// Encode serializes v into the versioned binary form.
func Encode(v jsonvalue.Value) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, Version)
	return encodeValue(buf, v)
}

// Decode parses a versioned binary form produced by Encode back into a Json
// value tree.
func Decode(data []byte) (jsonvalue.Value, error) {
	if len(data) == 0 {
		return jsonvalue.Value{}, ErrTruncated
	}
	if data[0] != Version {
		return jsonvalue.Value{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[0])
	}
	v, rest, err := decodeValue(data[1:])
	if err != nil {
		return jsonvalue.Value{}, err
	}
	if len(rest) != 0 {
		return jsonvalue.Value{}, fmt.Errorf("%w: %d trailing bytes", ErrTruncated, len(rest))
	}
	return v, nil
}

func encodeValue(buf []byte, v jsonvalue.Value) []byte {
	switch v.Kind() {
	case jsonvalue.KindNull:
		return append(buf, byte(tagNull))
	case jsonvalue.KindBool:
		if v.AsBool() {
			return append(buf, byte(tagBoolTrue))
		}
		return append(buf, byte(tagBoolFalse))
	case jsonvalue.KindInt:
		buf = append(buf, byte(tagInt))
		return binary.AppendVarint(buf, v.AsInt())
	case jsonvalue.KindFloat:
		buf = append(buf, byte(tagFloat))
		var bits [8]byte
		binary.BigEndian.PutUint64(bits[:], math.Float64bits(v.AsFloat()))
		return append(buf, bits[:]...)
	case jsonvalue.KindString:
		return encodeString(buf, tagString, v.AsString())
	case jsonvalue.KindArray:
		items := v.AsArray()
		buf = append(buf, byte(tagArray))
		buf = binary.AppendUvarint(buf, uint64(len(items)))
		for _, item := range items {
			buf = encodeValue(buf, item)
		}
		return buf
	case jsonvalue.KindObject:
		obj := v.AsObject()
		keys := obj.Keys()
		buf = append(buf, byte(tagObject))
		buf = binary.AppendUvarint(buf, uint64(len(keys)))
		for _, k := range keys {
			child, _ := obj.Get(k)
			buf = encodeString(buf, 0, k)
			buf = encodeValue(buf, child)
		}
		return buf
	default:
		return append(buf, byte(tagNull))
	}
}

func encodeString(buf []byte, t tag, s string) []byte {
	if t != 0 {
		buf = append(buf, byte(t))
	}
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func decodeValue(data []byte) (jsonvalue.Value, []byte, error) {
	if len(data) == 0 {
		return jsonvalue.Value{}, nil, ErrTruncated
	}
	t := tag(data[0])
	rest := data[1:]
	switch t {
	case tagNull:
		return jsonvalue.Null(), rest, nil
	case tagBoolFalse:
		return jsonvalue.Bool(false), rest, nil
	case tagBoolTrue:
		return jsonvalue.Bool(true), rest, nil
	case tagInt:
		i, n := binary.Varint(rest)
		if n <= 0 {
			return jsonvalue.Value{}, nil, ErrTruncated
		}
		return jsonvalue.Int(i), rest[n:], nil
	case tagFloat:
		if len(rest) < 8 {
			return jsonvalue.Value{}, nil, ErrTruncated
		}
		bits := binary.BigEndian.Uint64(rest[:8])
		return jsonvalue.RawFloat(math.Float64frombits(bits)), rest[8:], nil
	case tagString:
		s, tail, err := decodeString(rest)
		if err != nil {
			return jsonvalue.Value{}, nil, err
		}
		return jsonvalue.String(s), tail, nil
	case tagArray:
		count, n := binary.Uvarint(rest)
		if n <= 0 {
			return jsonvalue.Value{}, nil, ErrTruncated
		}
		tail := rest[n:]
		items := make([]jsonvalue.Value, 0, count)
		for i := uint64(0); i < count; i++ {
			var item jsonvalue.Value
			var err error
			item, tail, err = decodeValue(tail)
			if err != nil {
				return jsonvalue.Value{}, nil, err
			}
			items = append(items, item)
		}
		return jsonvalue.Array(items), tail, nil
	case tagObject:
		count, n := binary.Uvarint(rest)
		if n <= 0 {
			return jsonvalue.Value{}, nil, ErrTruncated
		}
		tail := rest[n:]
		obj := jsonvalue.NewObject()
		for i := uint64(0); i < count; i++ {
			key, afterKey, err := decodeString(tail)
			if err != nil {
				return jsonvalue.Value{}, nil, err
			}
			var child jsonvalue.Value
			child, tail, err = decodeValue(afterKey)
			if err != nil {
				return jsonvalue.Value{}, nil, err
			}
			obj.Set(key, child)
		}
		return jsonvalue.Obj(obj), tail, nil
	default:
		return jsonvalue.Value{}, nil, fmt.Errorf("%w: %d", ErrUnknownTag, t)
	}
}

func decodeString(data []byte) (string, []byte, error) {
	l, n := binary.Uvarint(data)
	if n <= 0 {
		return "", nil, ErrTruncated
	}
	data = data[n:]
	if uint64(len(data)) < l {
		return "", nil, ErrTruncated
	}
	return string(data[:l]), data[l:], nil
}
