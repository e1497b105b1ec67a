package extract

import (
	"regexp"
	"strconv"

	"quicperf/internal/core"
)

var deliveryRatePattern = regexp.MustCompile(`delivery_rate=([0-9]+)`)

// DeliveryRate extracts the delivery_rate path statistic from client output.
type DeliveryRate struct{}

func (DeliveryRate) Kind() core.Kind { return core.KindDeliveryRate }

// Extract returns the first delivery_rate value in text.
func (DeliveryRate) Extract(text string) ([]core.Sample, error) {
	m := deliveryRatePattern.FindStringSubmatch(text)
	if m == nil {
		return nil, &ExtractionError{Kind: core.KindDeliveryRate, Pattern: deliveryRatePattern.String()}
	}

	rate, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return nil, &ExtractionError{
			Kind:    core.KindDeliveryRate,
			Pattern: deliveryRatePattern.String(),
			Detail:  "invalid rate " + strconv.Quote(m[1]),
		}
	}

	return []core.Sample{{Kind: core.KindDeliveryRate, Value: float64(rate)}}, nil
}
