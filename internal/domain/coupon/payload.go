package coupon

import (
	"math"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// ValidationResult lists every problem found in a coupon payload.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Err returns a *ValidationError for invalid results and nil otherwise.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ValidationError{Errors: r.Errors}
}

// timeLayouts are the accepted startDate/endDate forms. Layouts without a
// zone are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Validate checks a raw JSON coupon definition. It never stops at the first
// problem so callers see everything wrong with the payload at once.
func Validate(payload []byte) ValidationResult {
	_, res := Decode(payload)
	return res
}

// Decode validates a raw JSON coupon definition and, when it is valid,
// returns the normalized coupon with dates as UTC instants.
//
// Eligibility sub-fields are not validated. Sub-fields of the wrong JSON
// type are dropped and behave as if they were not configured.
func Decode(payload []byte) (*Coupon, ValidationResult) {
	fields, ok := readObject(payload)
	if !ok {
		return nil, ValidationResult{Errors: []string{"payload must be a JSON object"}}
	}

	var (
		errs []string
		c    Coupon
	)

	code, ok := rawString(fields["code"])
	if !ok {
		errs = append(errs, "code is required and must be a string")
	}
	c.Code = code

	desc, ok := rawString(fields["description"])
	if !ok || desc == "" {
		errs = append(errs, "description is required and must be a string")
	}
	c.Description = desc

	dt, _ := rawString(fields["discountType"])
	c.DiscountType = DiscountType(dt)
	if c.DiscountType != DiscountFlat && c.DiscountType != DiscountPercent {
		errs = append(errs, "discountType must be one of FLAT, PERCENT")
	}

	value, ok := rawNumber(fields["discountValue"])
	if !ok || value.IsNegative() {
		errs = append(errs, "discountValue must be a non-negative number")
	}
	c.DiscountValue = value

	if c.DiscountType == DiscountPercent && provided(fields, "maxDiscountAmount") {
		maxAmount, ok := rawNumber(fields["maxDiscountAmount"])
		if !ok || maxAmount.IsNegative() {
			errs = append(errs, "maxDiscountAmount must be a non-negative number")
		} else {
			c.MaxDiscountAmount = &maxAmount
		}
	}

	start, startOK := rawTime(fields["startDate"])
	if !startOK {
		errs = append(errs, "startDate is required and must be a valid date")
	}
	end, endOK := rawTime(fields["endDate"])
	if !endOK {
		errs = append(errs, "endDate is required and must be a valid date")
	}
	if startOK && endOK && !start.Before(end) {
		errs = append(errs, "startDate must be before endDate")
	}
	c.StartDate, c.EndDate = start, end

	if provided(fields, "usageLimitPerUser") {
		limit, ok := rawNumber(fields["usageLimitPerUser"])
		if !ok || !limit.IsInteger() || limit.LessThan(decimal.NewFromInt(1)) || limit.GreaterThan(decimal.NewFromInt(math.MaxInt32)) {
			errs = append(errs, "usageLimitPerUser must be an integer >= 1")
		} else {
			n := int(limit.IntPart())
			c.UsageLimitPerUser = &n
		}
	}

	if provided(fields, "eligibility") {
		raw := fields["eligibility"]
		if raw.Type() != jx.Object {
			errs = append(errs, "eligibility must be an object")
		} else {
			c.Eligibility = decodeEligibility(raw)
		}
	}

	if len(errs) > 0 {
		return nil, ValidationResult{Errors: errs}
	}
	return &c, ValidationResult{Valid: true}
}

func decodeEligibility(raw jx.Raw) *Eligibility {
	fields, ok := readObject(raw)
	if !ok {
		return nil
	}
	e := &Eligibility{
		AllowedUserTiers:     rawStrings(fields["allowedUserTiers"]),
		MinLifetimeSpend:     rawOptNumber(fields["minLifetimeSpend"]),
		FirstOrderOnly:       truthy(fields["firstOrderOnly"]),
		AllowedCountries:     rawStrings(fields["allowedCountries"]),
		MinCartValue:         rawOptNumber(fields["minCartValue"]),
		ApplicableCategories: rawStrings(fields["applicableCategories"]),
		ExcludedCategories:   rawStrings(fields["excludedCategories"]),
		MinItemsCount:        rawOptNumber(fields["minItemsCount"]),
	}
	// Orders placed is a whole number, so a fractional bound rounds up.
	if n := rawOptNumber(fields["minOrdersPlaced"]); n != nil {
		v := n.Ceil()
		e.MinOrdersPlaced = &v
	}
	return e
}

// readObject splits a JSON object into its raw field values. Repeated keys
// keep the last value. Anything after the closing brace is rejected.
func readObject(data []byte) (map[string]jx.Raw, bool) {
	if !jx.Valid(data) {
		return nil, false
	}
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return nil, false
	}
	fields := make(map[string]jx.Raw)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		fields[key] = raw
		return nil
	}); err != nil {
		return nil, false
	}
	return fields, true
}

// provided reports whether key is present and not null.
func provided(fields map[string]jx.Raw, key string) bool {
	raw, ok := fields[key]
	return ok && raw.Type() != jx.Null
}

func rawString(raw jx.Raw) (string, bool) {
	if len(raw) == 0 || raw.Type() != jx.String {
		return "", false
	}
	s, err := jx.DecodeBytes(raw).Str()
	if err != nil {
		return "", false
	}
	return s, true
}

func rawNumber(raw jx.Raw) (decimal.Decimal, bool) {
	if len(raw) == 0 || raw.Type() != jx.Number {
		return zero, false
	}
	d, err := decimal.NewFromString(raw.String())
	if err != nil {
		return zero, false
	}
	return d, true
}

func rawOptNumber(raw jx.Raw) *decimal.Decimal {
	d, ok := rawNumber(raw)
	if !ok {
		return nil
	}
	return &d
}

// rawStrings returns the string elements of a JSON array, skipping anything
// else. Non-arrays yield nil.
func rawStrings(raw jx.Raw) []string {
	if len(raw) == 0 || raw.Type() != jx.Array {
		return nil
	}
	var out []string
	_ = jx.DecodeBytes(raw).Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.String {
			return d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return err
		}
		out = append(out, s)
		return nil
	})
	return out
}

func rawTime(raw jx.Raw) (time.Time, bool) {
	s, ok := rawString(raw)
	if !ok {
		return time.Time{}, false
	}
	return ParseTime(s)
}

// ParseTime parses a coupon date in any accepted layout and returns it in UTC.
func ParseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// truthy mirrors loose JSON truthiness: null, false, 0 and "" are false.
func truthy(raw jx.Raw) bool {
	if len(raw) == 0 {
		return false
	}
	switch raw.Type() {
	case jx.String:
		s, _ := rawString(raw)
		return s != ""
	case jx.Number:
		d, ok := rawNumber(raw)
		return ok && !d.IsZero()
	case jx.Bool:
		b, err := jx.DecodeBytes(raw).Bool()
		return err == nil && b
	case jx.Object, jx.Array:
		return true
	default:
		return false
	}
}
