package models

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// StatusSucceeded is the application-level success marker of the DataSource.
// Any other status is a logical failure regardless of transport status.
const StatusSucceeded = "REQUEST_SUCCEEDED"

// SeriesRequest is the DataSource request body for one region's batch fetch.
type SeriesRequest struct {
	SeriesIDs       []string `json:"seriesid"`
	StartYear       string   `json:"startyear"`
	EndYear         string   `json:"endyear"`
	RegistrationKey string   `json:"registrationKey"`
	Calculations    bool     `json:"calculations"`
	AnnualAverage   bool     `json:"annualaverage"`
}

// SeriesResponse is the DataSource response envelope. The provider reports
// diagnostics as a list of message strings.
type SeriesResponse struct {
	Status  string   `json:"status"`
	Message []string `json:"message,omitempty"`
	Results struct {
		Series []RawSeries `json:"series"`
	} `json:"Results"`
}

// RawSeries is one series as returned by the DataSource.
type RawSeries struct {
	SeriesID string        `json:"seriesID"`
	Data     []SeriesPoint `json:"data"`
}

// SeriesPoint is a single raw observation. All numeric fields arrive as
// strings and are validated during normalization.
type SeriesPoint struct {
	Year         string        `json:"year"`
	Period       string        `json:"period"`
	Value        string        `json:"value"`
	Calculations *Calculations `json:"calculations,omitempty"`
}

// Calculations carries provider-computed change buckets keyed by the number
// of periods spanned ("1" is the change versus the prior period).
type Calculations struct {
	NetChanges map[string]string `json:"net_changes"`
	PctChanges map[string]string `json:"pct_changes"`
}

// NormalizedPoint is a SeriesPoint with validated fields. Sequences of
// normalized points are ordered most recent first.
type NormalizedPoint struct {
	Year         int
	Month        int
	MonthKey     string
	Value        decimal.Decimal
	Calculations *Calculations
}

// Trend is the net and percentage change of a series' latest observation
// versus the immediately preceding one.
type Trend struct {
	NetChange     decimal.Decimal `json:"net_change"`
	PercentChange decimal.Decimal `json:"percent_change"`
}

// Trend extracts the prior-period trend from the point's calculations.
// Returns false when the point has no calculations or the one-period bucket
// is absent or unparseable.
func (p *NormalizedPoint) Trend() (Trend, bool) {
	if p.Calculations == nil {
		return Trend{}, false
	}

	netRaw, ok := p.Calculations.NetChanges["1"]
	if !ok {
		return Trend{}, false
	}
	pctRaw, ok := p.Calculations.PctChanges["1"]
	if !ok {
		return Trend{}, false
	}

	net, err := decimal.NewFromString(netRaw)
	if err != nil {
		return Trend{}, false
	}
	pct, err := decimal.NewFromString(pctRaw)
	if err != nil {
		return Trend{}, false
	}

	return Trend{NetChange: net, PercentChange: pct}, true
}

// ParsePeriod validates a monthly period code ("M01".."M12") and returns the
// month number. Codes outside the monthly range (such as annual averages,
// which are never requested) do not parse.
func ParsePeriod(period string) (int, error) {
	if len(period) != 3 || period[0] != 'M' {
		return 0, fmt.Errorf("period %q is not a monthly code", period)
	}

	month, err := strconv.Atoi(period[1:])
	if err != nil {
		return 0, fmt.Errorf("period %q is not a monthly code", period)
	}

	if month < 1 || month > 12 {
		return 0, fmt.Errorf("period %q: month %d out of range", period, month)
	}

	return month, nil
}

// MonthKey derives the canonical zero-padded "YYYY-MM" join key. Zero
// padding makes lexicographic order match chronological order.
func MonthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
