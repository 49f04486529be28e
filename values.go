package dynamo

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Kind is the wire-level type tag of an attribute value.
type Kind string

const (
	KindS    Kind = "S"
	KindN    Kind = "N"
	KindBOOL Kind = "BOOL"
	KindB    Kind = "B"
	KindSS   Kind = "SS"
	KindNS   Kind = "NS"
	KindNULL Kind = "NULL"
)

// KindOf reports the kind of an attribute value. Map, list and binary-set
// members of the union are not part of the emulated surface.
func KindOf(av types.AttributeValue) (Kind, error) {
	switch av.(type) {
	case *types.AttributeValueMemberS:
		return KindS, nil
	case *types.AttributeValueMemberN:
		return KindN, nil
	case *types.AttributeValueMemberBOOL:
		return KindBOOL, nil
	case *types.AttributeValueMemberB:
		return KindB, nil
	case *types.AttributeValueMemberSS:
		return KindSS, nil
	case *types.AttributeValueMemberNS:
		return KindNS, nil
	case *types.AttributeValueMemberNULL:
		return KindNULL, nil
	default:
		return "", fmt.Errorf("unsupported attribute value type %T", av)
	}
}

// Number parses the decimal payload of an N value. Integers round-trip
// through int64, everything else through float64.
func Number(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", s, err)
	}
	return f, nil
}

// Equal compares two attribute values. Values of different kinds are never
// equal; N values compare numerically even when their payloads differ
// textually ("1" equals "1.0"); set equality ignores member order.
func Equal(a, b types.AttributeValue) (bool, error) {
	ka, err := KindOf(a)
	if err != nil {
		return false, err
	}
	kb, err := KindOf(b)
	if err != nil {
		return false, err
	}
	if ka != kb {
		return false, nil
	}
	switch ka {
	case KindS, KindN, KindB:
		c, err := Compare(a, b)
		return c == 0, err
	case KindBOOL:
		return a.(*types.AttributeValueMemberBOOL).Value == b.(*types.AttributeValueMemberBOOL).Value, nil
	case KindNULL:
		return true, nil
	case KindSS:
		return sameMembers(a.(*types.AttributeValueMemberSS).Value, b.(*types.AttributeValueMemberSS).Value), nil
	case KindNS:
		return sameNumericMembers(a.(*types.AttributeValueMemberNS).Value, b.(*types.AttributeValueMemberNS).Value)
	default:
		return false, fmt.Errorf("unsupported kind %q", ka)
	}
}

// Compare orders two scalar attribute values of the same kind: numeric for
// N, lexicographic for S and B. Cross-kind comparison and non-scalar kinds
// are a type mismatch, not an ordering.
func Compare(a, b types.AttributeValue) (int, error) {
	ka, err := KindOf(a)
	if err != nil {
		return 0, err
	}
	kb, err := KindOf(b)
	if err != nil {
		return 0, err
	}
	if ka != kb {
		return 0, fmt.Errorf("cannot compare %q value with %q value", ka, kb)
	}
	switch ka {
	case KindS:
		return compareStrings(a.(*types.AttributeValueMemberS).Value, b.(*types.AttributeValueMemberS).Value), nil
	case KindB:
		return bytes.Compare(a.(*types.AttributeValueMemberB).Value, b.(*types.AttributeValueMemberB).Value), nil
	case KindN:
		fa, err := Number(a.(*types.AttributeValueMemberN).Value)
		if err != nil {
			return 0, err
		}
		fb, err := Number(b.(*types.AttributeValueMemberN).Value)
		if err != nil {
			return 0, err
		}
		switch {
		case fa < fb:
			return -1, nil
		case fa > fb:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, fmt.Errorf("values of kind %q have no ordering", ka)
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func sameMembers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, s := range a {
		seen[s]++
	}
	for _, s := range b {
		seen[s]--
		if seen[s] < 0 {
			return false
		}
	}
	return true
}

func sameNumericMembers(a, b []string) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	seen := make(map[float64]int, len(a))
	for _, s := range a {
		f, err := Number(s)
		if err != nil {
			return false, err
		}
		seen[f]++
	}
	for _, s := range b {
		f, err := Number(s)
		if err != nil {
			return false, err
		}
		seen[f]--
		if seen[f] < 0 {
			return false, nil
		}
	}
	return true, nil
}
