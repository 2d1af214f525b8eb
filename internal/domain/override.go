package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OverrideRecord is a per-(service, product) exception to a service's defaults.
// At most one record exists per pair. A missing record is equivalent to one with
// no price, no time and IsDisabled=false.
type OverrideRecord struct {
	ServiceID     string           `json:"service_id"`
	ProductID     string           `json:"product_id"`
	PriceOverride *decimal.Decimal `json:"price_override"`
	TimeOverride  *int             `json:"time_override"`
	IsDisabled    bool             `json:"is_disabled"`
	UpdatedAt     time.Time        `json:"updated_at,omitempty"`
}

// DefaultOverride is the all-default equivalent of an absent record.
func DefaultOverride(serviceID, productID string) OverrideRecord {
	return OverrideRecord{ServiceID: serviceID, ProductID: productID}
}

// EffectivePrice applies the override to a base price.
func (o OverrideRecord) EffectivePrice(base decimal.Decimal) decimal.Decimal {
	if o.PriceOverride != nil {
		return *o.PriceOverride
	}
	return base
}

// EffectiveTime applies the override to a base time in minutes.
func (o OverrideRecord) EffectiveTime(base int) int {
	if o.TimeOverride != nil {
		return *o.TimeOverride
	}
	return base
}

// OverrideFields is a partial update of price/time. Nil fields keep their stored value.
type OverrideFields struct {
	Price *decimal.Decimal `json:"price"`
	Time  *int             `json:"time"`
}
