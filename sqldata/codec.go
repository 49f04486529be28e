package sqldata

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"golang.org/x/exp/slices"

	dynamo "github.com/sffej/jcabi-dynamo"
)

// encodeCell turns an attribute value into the driver-level value stored
// in its column. Numbers become int64 when integral and float64
// otherwise, so the NUMERIC column keeps 64-bit integers exact. Sets are
// canonicalized (sorted, duplicate-free JSON) so that set equality holds
// at the text level. A NULL value stores a presence flag, distinct from
// the SQL NULL of an absent attribute.
func encodeCell(av types.AttributeValue) (any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value, nil
	case *types.AttributeValueMemberN:
		return encodeNumber(v.Value)
	case *types.AttributeValueMemberBOOL:
		if v.Value {
			return int64(1), nil
		}
		return int64(0), nil
	case *types.AttributeValueMemberB:
		return slices.Clone(v.Value), nil
	case *types.AttributeValueMemberSS:
		return encodeSet(v.Value, false)
	case *types.AttributeValueMemberNS:
		return encodeSet(v.Value, true)
	case *types.AttributeValueMemberNULL:
		return int64(1), nil
	default:
		return nil, fmt.Errorf("unsupported attribute value type %T", av)
	}
}

func encodeNumber(s string) (any, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("parse number %q: %w", s, err)
	}
	return f, nil
}

func encodeSet(members []string, numeric bool) (any, error) {
	canon := make([]string, 0, len(members))
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if numeric {
			cell, err := encodeNumber(m)
			if err != nil {
				return nil, err
			}
			m = formatNumberCell(cell)
		}
		if !seen[m] {
			seen[m] = true
			canon = append(canon, m)
		}
	}
	slices.Sort(canon)
	raw, err := json.Marshal(canon)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// decodeCell is the inverse of encodeCell for a non-NULL cell of a column
// of the given kind.
func decodeCell(cell any, kind dynamo.Kind) (types.AttributeValue, error) {
	switch kind {
	case dynamo.KindS:
		s, err := cellString(cell)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberS{Value: s}, nil
	case dynamo.KindN:
		return decodeNumberCell(cell)
	case dynamo.KindBOOL:
		i, ok := cell.(int64)
		if !ok {
			return nil, fmt.Errorf("BOOL cell holds %T", cell)
		}
		return &types.AttributeValueMemberBOOL{Value: i != 0}, nil
	case dynamo.KindB:
		b, ok := cell.([]byte)
		if !ok {
			return nil, fmt.Errorf("B cell holds %T", cell)
		}
		return &types.AttributeValueMemberB{Value: slices.Clone(b)}, nil
	case dynamo.KindSS:
		members, err := decodeSetCell(cell)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberSS{Value: members}, nil
	case dynamo.KindNS:
		members, err := decodeSetCell(cell)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberNS{Value: members}, nil
	case dynamo.KindNULL:
		return &types.AttributeValueMemberNULL{Value: true}, nil
	default:
		return nil, fmt.Errorf("unsupported kind %q", kind)
	}
}

func cellString(cell any) (string, error) {
	switch v := cell.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("text cell holds %T", cell)
	}
}

func decodeNumberCell(cell any) (types.AttributeValue, error) {
	switch v := cell.(type) {
	case int64, float64:
		return &types.AttributeValueMemberN{Value: formatNumberCell(v)}, nil
	case []byte:
		return &types.AttributeValueMemberN{Value: string(v)}, nil
	case string:
		return &types.AttributeValueMemberN{Value: v}, nil
	default:
		return nil, fmt.Errorf("N cell holds %T", cell)
	}
}

func formatNumberCell(cell any) string {
	switch v := cell.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func decodeSetCell(cell any) ([]string, error) {
	raw, err := cellString(cell)
	if err != nil {
		return nil, err
	}
	members := []string{}
	if err := json.Unmarshal([]byte(raw), &members); err != nil {
		return nil, fmt.Errorf("decode set cell: %w", err)
	}
	return members, nil
}
