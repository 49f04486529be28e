package kvdata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	dynamo "github.com/sffej/jcabi-dynamo"
	"github.com/sffej/jcabi-dynamo/ident"
)

// Row keys: [rowPrefix][escaped table name][separator][hash][separator][sort]
// Table records: [metaPrefix][table name]
//
// The separator byte (0x00) splits components; 0x00 and 0x01 inside a
// component are escaped so arbitrary table names and string keys cannot
// forge a separator. Key values are encoded to preserve the emulated
// ordering under Badger's byte-wise key order: strings and binary
// byte-wise, numbers through a sign-flipped big-endian float64.
const (
	metaPrefix = "!mk!tbl!"
	rowPrefix  = "!mk!row!"

	keySeparator byte = 0x00
)

// Key type markers.
const (
	keyTypeString byte = 'S'
	keyTypeNumber byte = 'N'
	keyTypeBinary byte = 'B'
)

func metaKey(table string) []byte {
	return append([]byte(metaPrefix), table...)
}

func tablePrefix(table string) []byte {
	buf := []byte(rowPrefix)
	buf = append(buf, escapeBytes([]byte(table))...)
	return append(buf, keySeparator)
}

func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("name is empty")
	}
	if len(name) > ident.MaxNameLen {
		return fmt.Errorf("name is %d characters, limit is %d", len(name), ident.MaxNameLen)
	}
	return nil
}

// itemKey encodes the full row key for the key attributes of a row.
func itemKey(rec *tableRecord, keys dynamo.Attributes) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(tablePrefix(rec.Name))

	hash, err := encodeKeyValue(keys[rec.Keys.Hash.Name], rec.Keys.Hash.Kind)
	if err != nil {
		return nil, fmt.Errorf("hash key %q: %w", rec.Keys.Hash.Name, err)
	}
	buf.Write(hash)
	buf.WriteByte(keySeparator)

	if rec.Keys.Range != nil {
		sort, err := encodeKeyValue(keys[rec.Keys.Range.Name], rec.Keys.Range.Kind)
		if err != nil {
			return nil, fmt.Errorf("range key %q: %w", rec.Keys.Range.Name, err)
		}
		buf.Write(sort)
	}
	return buf.Bytes(), nil
}

// encodeKeyValue encodes one key component with proper ordering for its
// kind.
func encodeKeyValue(av types.AttributeValue, kind dynamo.Kind) ([]byte, error) {
	var buf bytes.Buffer
	switch kind {
	case dynamo.KindS:
		v, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return nil, fmt.Errorf("expected S value, got %T", av)
		}
		buf.WriteByte(keyTypeString)
		buf.Write(escapeBytes([]byte(v.Value)))
	case dynamo.KindN:
		v, ok := av.(*types.AttributeValueMemberN)
		if !ok {
			return nil, fmt.Errorf("expected N value, got %T", av)
		}
		encoded, err := encodeNumber(v.Value)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(keyTypeNumber)
		buf.Write(encoded)
	case dynamo.KindB:
		v, ok := av.(*types.AttributeValueMemberB)
		if !ok {
			return nil, fmt.Errorf("expected B value, got %T", av)
		}
		buf.WriteByte(keyTypeBinary)
		buf.Write(escapeBytes(v.Value))
	default:
		return nil, fmt.Errorf("unsupported key kind %q", kind)
	}
	return buf.Bytes(), nil
}

// encodeNumber encodes a decimal string so byte-wise comparison matches
// numeric ordering. Positive numbers flip the float64 sign bit under a
// 0x80 marker; negative numbers invert all bits under 0x7F, which orders
// them before every positive number and reverses their magnitude order.
func encodeNumber(numStr string) ([]byte, error) {
	f, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return nil, fmt.Errorf("parse number %q: %w", numStr, err)
	}
	if f == 0 {
		// Fold negative zero onto zero, or "-0" and "0" would encode
		// to two distinct row keys for one numeric value.
		f = 0
	}
	bits := math.Float64bits(f)
	buf := make([]byte, 9)
	if f >= 0 {
		buf[0] = 0x80
		bits ^= 1 << 63
	} else {
		buf[0] = 0x7F
		bits = ^bits
	}
	binary.BigEndian.PutUint64(buf[1:], bits)
	return buf, nil
}

// escapeBytes escapes 0x00 to 0x01 0x01 and 0x01 to 0x01 0x02, keeping
// the separator byte unforgeable while preserving byte order.
func escapeBytes(b []byte) []byte {
	var buf bytes.Buffer
	for _, c := range b {
		switch c {
		case 0x00:
			buf.WriteByte(0x01)
			buf.WriteByte(0x01)
		case 0x01:
			buf.WriteByte(0x01)
			buf.WriteByte(0x02)
		default:
			buf.WriteByte(c)
		}
	}
	return buf.Bytes()
}
