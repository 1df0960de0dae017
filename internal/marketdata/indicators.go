package marketdata

import (
	"math"

	"github.com/raghavkal/equitypilot/pkg/models"
)

// barSeries is a cleaned daily price series: bars with a nil close are
// dropped so the indicator math never sees holes.
type barSeries struct {
	closes  []float64
	highs   []float64
	lows    []float64
	volumes []float64
}

func extractBars(result yfChartResult) barSeries {
	quote := result.Indicators.Quote[0]
	var bars barSeries
	for i, c := range quote.Close {
		if c == nil {
			continue
		}
		bars.closes = append(bars.closes, *c)

		high, low := *c, *c
		if i < len(quote.High) && quote.High[i] != nil {
			high = *quote.High[i]
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			low = *quote.Low[i]
		}
		bars.highs = append(bars.highs, high)
		bars.lows = append(bars.lows, low)

		var vol float64
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			vol = float64(*quote.Volume[i])
		}
		bars.volumes = append(bars.volumes, vol)
	}
	return bars
}

// computeSnapshot derives the technical snapshot from a daily series:
// simple moving averages, Wilder RSI, annualized volatility, and one/three
// month price changes (21/63 trading days).
func computeSnapshot(bars barSeries) *models.TechnicalSnapshot {
	n := len(bars.closes)
	current := bars.closes[n-1]

	snap := &models.TechnicalSnapshot{
		CurrentPrice: current,
		MA50:         smaLatest(bars.closes, 50),
		MA200:        smaLatest(bars.closes, 200),
		RSI:          rsiLatest(bars.closes, 14),
		WeekHigh52:   maxOf(bars.highs),
		WeekLow52:    minOf(bars.lows),
		Volatility:   annualizedVolatility(bars.closes),
		VolumeAvg:    mean(bars.volumes),
	}

	snap.PriceChange1M = pctChangeFrom(bars.closes, 21)
	snap.PriceChange3M = pctChangeFrom(bars.closes, 63)

	return snap
}

// smaLatest returns the latest simple moving average over period closes, or
// nil when the series is too short.
func smaLatest(closes []float64, period int) *float64 {
	if len(closes) < period {
		return nil
	}
	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	v := sum / float64(period)
	return &v
}

// rsiLatest returns the latest Wilder-smoothed RSI, or nil when the series
// is shorter than period+1.
func rsiLatest(closes []float64, period int) *float64 {
	n := len(closes)
	if n < period+1 {
		return nil
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	var rsi float64
	if avgLoss == 0 {
		rsi = 100
	} else {
		rs := avgGain / avgLoss
		rsi = 100 - (100 / (1 + rs))
	}
	return &rsi
}

// annualizedVolatility is the standard deviation of daily returns scaled by
// sqrt(252), in percent.
func annualizedVolatility(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	var ss float64
	for _, r := range returns {
		ss += (r - m) * (r - m)
	}
	std := math.Sqrt(ss / float64(len(returns)-1))
	return std * math.Sqrt(252) * 100
}

// pctChangeFrom returns the percent change from the close daysAgo bars back;
// series shorter than daysAgo fall back to the first close.
func pctChangeFrom(closes []float64, daysAgo int) float64 {
	n := len(closes)
	var base float64
	if n > daysAgo {
		base = closes[n-1-daysAgo]
	} else {
		base = closes[0]
	}
	if base == 0 {
		return 0
	}
	return (closes[n-1] - base) / base * 100
}

func mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func maxOf(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := data[0]
	for _, v := range data[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	m := data[0]
	for _, v := range data[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
