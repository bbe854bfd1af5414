package cleaning

import (
	"context"
	"fmt"

	"osm-ingest/changelog"
)

// TagKind selects the normalizer applied to a tag value.
type TagKind int

const (
	KindOther TagKind = iota
	KindStreet
	KindPhone
	KindPostcode
)

func (k TagKind) String() string {
	switch k {
	case KindStreet:
		return "street"
	case KindPhone:
		return "phone"
	case KindPostcode:
		return "postcode"
	default:
		return "other"
	}
}

// KindOf classifies a full tag key, namespace included.
func KindOf(fullKey string) TagKind {
	switch fullKey {
	case "addr:street":
		return KindStreet
	case "phone":
		return KindPhone
	case "addr:postcode":
		return KindPostcode
	default:
		return KindOther
	}
}

// Result is a normalized value. Value is nil when the normalizer did not
// recognize the input.
type Result struct {
	Value   *string
	Changed bool
}

// ValueNormalizer dispatches on TagKind and logs every altered value.
type ValueNormalizer struct {
	street StreetNormalizer
	log    changelog.Logger
}

func NewValueNormalizer(street StreetNormalizer, log changelog.Logger) *ValueNormalizer {
	if log == nil {
		log = changelog.Discard
	}
	return &ValueNormalizer{street: street, log: log}
}

// Normalize returns the canonical form of raw. When it differs from raw, a
// change record is logged before returning.
func (v *ValueNormalizer) Normalize(ctx context.Context, kind TagKind, raw string) (Result, error) {
	var (
		out string
		ok  = true
	)
	switch kind {
	case KindStreet:
		out = v.street.Normalize(raw)
	case KindPhone:
		out, ok = Phone(raw)
	case KindPostcode:
		out, ok = Zip(raw)
	default:
		out = raw
	}

	if !ok {
		if err := v.log.Log(ctx, changelog.ChangeRecord{Original: raw}); err != nil {
			return Result{}, fmt.Errorf("log change: %w", err)
		}
		return Result{Changed: true}, nil
	}

	res := Result{Value: &out}
	if out != raw {
		res.Changed = true
		if err := v.log.Log(ctx, changelog.ChangeRecord{Original: raw, New: &out}); err != nil {
			return Result{}, fmt.Errorf("log change: %w", err)
		}
	}
	return res, nil
}
