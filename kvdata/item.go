package kvdata

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	dynamo "github.com/sffej/jcabi-dynamo"
)

// storedValue is the gob-encodable shape of one attribute value. One
// struct with a kind tag keeps the encoding stable without registering
// interface implementations.
type storedValue struct {
	Kind string
	S    string
	B    []byte
	Bool bool
	List []string
}

func serializeItem(attrs dynamo.Attributes) ([]byte, error) {
	stored := make(map[string]storedValue, len(attrs))
	for name, av := range attrs {
		sv, err := toStored(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		stored[name] = sv
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(stored); err != nil {
		return nil, fmt.Errorf("encode item: %w", err)
	}
	return buf.Bytes(), nil
}

func deserializeItem(data []byte) (dynamo.Attributes, error) {
	var stored map[string]storedValue
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&stored); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	attrs := make(dynamo.Attributes, len(stored))
	for name, sv := range stored {
		av, err := fromStored(sv)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		attrs[name] = av
	}
	return attrs, nil
}

func toStored(av types.AttributeValue) (storedValue, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return storedValue{Kind: string(dynamo.KindS), S: v.Value}, nil
	case *types.AttributeValueMemberN:
		return storedValue{Kind: string(dynamo.KindN), S: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return storedValue{Kind: string(dynamo.KindBOOL), Bool: v.Value}, nil
	case *types.AttributeValueMemberB:
		return storedValue{Kind: string(dynamo.KindB), B: v.Value}, nil
	case *types.AttributeValueMemberSS:
		return storedValue{Kind: string(dynamo.KindSS), List: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return storedValue{Kind: string(dynamo.KindNS), List: v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return storedValue{Kind: string(dynamo.KindNULL)}, nil
	default:
		return storedValue{}, fmt.Errorf("unsupported attribute value type %T", av)
	}
}

func fromStored(sv storedValue) (types.AttributeValue, error) {
	switch dynamo.Kind(sv.Kind) {
	case dynamo.KindS:
		return &types.AttributeValueMemberS{Value: sv.S}, nil
	case dynamo.KindN:
		return &types.AttributeValueMemberN{Value: sv.S}, nil
	case dynamo.KindBOOL:
		return &types.AttributeValueMemberBOOL{Value: sv.Bool}, nil
	case dynamo.KindB:
		return &types.AttributeValueMemberB{Value: sv.B}, nil
	case dynamo.KindSS:
		return &types.AttributeValueMemberSS{Value: emptyIfNil(sv.List)}, nil
	case dynamo.KindNS:
		return &types.AttributeValueMemberNS{Value: emptyIfNil(sv.List)}, nil
	case dynamo.KindNULL:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	default:
		return nil, fmt.Errorf("unsupported stored kind %q", sv.Kind)
	}
}

// emptyIfNil keeps an empty set an empty set: gob drops zero-length
// slices, and a nil member list must not decode as an absent value.
func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func encodeRecord(rec *tableRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte, rec *tableRecord) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(rec); err != nil {
		return err
	}
	if rec.Cols == nil {
		rec.Cols = make(map[string]dynamo.Kind)
	}
	return nil
}
