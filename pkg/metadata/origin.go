package metadata

import (
	"errors"
	"strings"
)

var ErrInvalidOrigin = errors.New("origin must be purchase, grant, donation, lease, transfer or other-<detail>")

// Origin records how an asset was acquired.
type Origin string

const (
	OriginPurchase Origin = "purchase"
	OriginGrant    Origin = "grant"
	OriginDonation Origin = "donation"
	OriginLease    Origin = "lease"
	OriginTransfer Origin = "transfer"
	OriginOther    Origin = "other"
)

var originLabels = map[Origin]string{
	OriginPurchase: "Pembelian",
	OriginGrant:    "Hibah",
	OriginDonation: "Donasi",
	OriginLease:    "Sewa",
	OriginTransfer: "Mutasi",
	OriginOther:    "Lainnya",
}

func (o Origin) IsValid() bool {
	_, ok := originLabels[o]
	return ok && o != OriginOther
}

// IsOther reports free text origins such as "other-hadiah-vendor".
func (o Origin) IsOther() bool {
	return o == OriginOther || strings.HasPrefix(string(o), string(OriginOther)+"-")
}

// NewOrigin lowercases value, turns spaces into dashes and defaults an empty
// value to purchase.
func NewOrigin(value string) (Origin, error) {
	normalized := strings.Join(strings.Fields(strings.ToLower(value)), "-")
	if normalized == "" {
		return OriginPurchase, nil
	}

	origin := Origin(normalized)
	if !origin.IsValid() && !origin.IsOther() {
		return origin, ErrInvalidOrigin
	}
	return origin, nil
}

// Label is the Indonesian name used in exported documents.
func (o Origin) Label() string {
	if label, ok := originLabels[o]; ok {
		return label
	}
	if o.IsOther() {
		return originLabels[OriginOther] + " (" + strings.ReplaceAll(strings.TrimPrefix(string(o), "other-"), "-", " ") + ")"
	}
	return string(o)
}

func (o Origin) String() string {
	return string(o)
}
