package indicator

import (
	"fmt"
	"math"
	"strings"

	"github.com/rxtech-lab/argo-robot/internal/types"
	"github.com/rxtech-lab/argo-robot/pkg/errors"
)

// WindowFunc computes one indicator value from a trailing window of bars,
// oldest first. The window always holds exactly the registered period of bars.
type WindowFunc func(window []types.Bar) (float64, error)

// Kind names a built-in window function.
type Kind string

const (
	KindClose  Kind = "close"
	KindSMA    Kind = "sma"
	KindEMA    Kind = "ema"
	KindRSI    Kind = "rsi"
	KindATR    Kind = "atr"
	KindStdDev Kind = "stddev"
)

// Builtin returns the window function for kind together with the window length
// it needs for the given period. RSI and ATR need one extra bar for the first
// price change; EMA is seeded with an SMA of period bars and then smoothed over
// another period bars.
func Builtin(kind Kind, period int) (WindowFunc, int, error) {
	kind = Kind(strings.ToLower(string(kind)))
	if period <= 0 && kind != KindClose {
		return nil, 0, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	switch kind {
	case KindClose:
		return Close, 1, nil
	case KindSMA:
		return SMA, period, nil
	case KindEMA:
		return EMA(period), 2 * period, nil
	case KindRSI:
		return RSI, period + 1, nil
	case KindATR:
		return ATR, period + 1, nil
	case KindStdDev:
		return StdDev, period, nil
	default:
		return nil, 0, errors.Newf(errors.ErrCodeIndicatorNotFound, "unknown indicator kind %q", kind)
	}
}

// Close returns the close of the last bar in the window.
func Close(window []types.Bar) (float64, error) {
	if len(window) == 0 {
		return 0, errors.NewInsufficientDataError(1, 0, "", "close requires at least one bar")
	}

	return window[len(window)-1].Close, nil
}

// SMA is the arithmetic mean of the closes in the window.
func SMA(window []types.Bar) (float64, error) {
	if len(window) == 0 {
		return 0, errors.NewInsufficientDataError(1, 0, "", "sma requires at least one bar")
	}

	return calculateSimpleMovingAverage(window), nil
}

// EMA returns an exponential moving average with alpha = 2/(period+1). The
// first period closes seed the average; the remaining closes are smoothed in
// order, matching pandas ewm with adjust=False.
func EMA(period int) WindowFunc {
	return func(window []types.Bar) (float64, error) {
		if len(window) < period {
			return 0, errors.NewInsufficientDataErrorf(period, len(window), symbolOf(window),
				"ema requires %d bars, got %d", period, len(window))
		}

		return calculateExponentialMovingAverage(window, period), nil
	}
}

// RSI averages the gains and losses of the price changes in the window, which
// is the seed of Wilder's smoothing. A window of n bars yields an RSI of period
// n-1. A window without losses gives 100.
func RSI(window []types.Bar) (float64, error) {
	if len(window) < 2 {
		return 0, errors.NewInsufficientDataErrorf(2, len(window), symbolOf(window),
			"rsi requires at least 2 bars, got %d", len(window))
	}

	period := len(window) - 1
	avgGain := 0.0
	avgLoss := 0.0

	for i := 1; i < len(window); i++ {
		change := window[i].Close - window[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss == 0 {
		return 100, nil
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs)), nil
}

// ATR is the mean true range over the window. The first bar only provides the
// previous close.
func ATR(window []types.Bar) (float64, error) {
	if len(window) < 2 {
		return 0, errors.NewInsufficientDataErrorf(2, len(window), symbolOf(window),
			"atr requires at least 2 bars, got %d", len(window))
	}

	sum := 0.0

	for i := 1; i < len(window); i++ {
		prevClose := window[i-1].Close
		tr := math.Max(
			window[i].High-window[i].Low,
			math.Max(math.Abs(window[i].High-prevClose), math.Abs(window[i].Low-prevClose)),
		)
		sum += tr
	}

	return sum / float64(len(window)-1), nil
}

// StdDev is the population standard deviation of the closes in the window.
func StdDev(window []types.Bar) (float64, error) {
	if len(window) == 0 {
		return 0, errors.NewInsufficientDataError(1, 0, "", "stddev requires at least one bar")
	}

	mean := calculateSimpleMovingAverage(window)
	variance := 0.0

	for _, b := range window {
		variance += (b.Close - mean) * (b.Close - mean)
	}

	return math.Sqrt(variance / float64(len(window))), nil
}

func calculateSimpleMovingAverage(data []types.Bar) float64 {
	sum := 0.0
	for _, d := range data {
		sum += d.Close
	}

	return sum / float64(len(data))
}

func calculateExponentialMovingAverage(data []types.Bar, period int) float64 {
	ema := calculateSimpleMovingAverage(data[:period])
	alpha := 2.0 / float64(period+1)

	for i := period; i < len(data); i++ {
		ema = (data[i].Close * alpha) + (ema * (1 - alpha))
	}

	return ema
}

func symbolOf(window []types.Bar) string {
	if len(window) == 0 {
		return ""
	}

	return window[0].Symbol
}

// ColumnName is the default column name for a built-in, e.g. "sma_50".
func ColumnName(kind Kind, period int) string {
	if kind == KindClose {
		return string(KindClose)
	}

	return fmt.Sprintf("%s_%d", strings.ToLower(string(kind)), period)
}
