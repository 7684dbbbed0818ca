package s2_signals

import (
	"math"

	"github.com/markcheno/go-talib"
)

// talib returns index-aligned outputs with zeros in the lookback window and
// panics on inputs shorter than its lookback, so every call is length guarded
// and the lookback is masked to NaN.

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func maskBefore(values []float64, first int) []float64 {
	for i := 0; i < first && i < len(values); i++ {
		values[i] = math.NaN()
	}
	return values
}

func defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// sma is the trailing simple moving average, defined from index period-1
func sma(values []float64, period int) []float64 {
	if len(values) < period {
		return nanSlice(len(values))
	}
	return maskBefore(talib.Sma(values, period), period-1)
}

// rollingMean is an SMA that tolerates NaN input: any NaN in the window yields NaN
func rollingMean(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		ok := true
		for j := i - period + 1; j <= i; j++ {
			if !defined(values[j]) {
				ok = false
				break
			}
			sum += values[j]
		}
		if ok {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// ema seeds with the first defined value and applies
// ema[t] = ema[t-1] + alpha*(x[t]-ema[t-1]) with alpha = 2/(span+1).
// Leading NaNs stay NaN.
func ema(values []float64, span int) []float64 {
	return ewm(values, 2.0/(float64(span)+1.0))
}

func ewm(values []float64, alpha float64) []float64 {
	out := nanSlice(len(values))
	seeded := false
	prev := 0.0
	for i, v := range values {
		if !defined(v) {
			if seeded {
				out[i] = prev
			}
			continue
		}
		if !seeded {
			prev = v
			seeded = true
		} else {
			prev = prev + alpha*(v-prev)
		}
		out[i] = prev
	}
	return out
}

// wilderRSI smooths gains and losses with alpha = 1/period seeded at the first
// delta (taken as zero). Defined from index period-1; 100 when the average loss is 0.
func wilderRSI(closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if n == 0 {
		return out
	}

	alpha := 1.0 / float64(period)
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i < n; i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else if delta < 0 {
			loss = -delta
		}
		avgGain += alpha * (gain - avgGain)
		avgLoss += alpha * (loss - avgLoss)

		if i < period-1 {
			continue
		}
		if avgLoss == 0 {
			out[i] = 100
		} else {
			out[i] = 100 - 100/(1+avgGain/avgLoss)
		}
	}
	return out
}

// bollinger returns upper, middle, lower bands using population standard deviation
func bollinger(closes []float64, period int, k float64) ([]float64, []float64, []float64) {
	n := len(closes)
	if n < period {
		return nanSlice(n), nanSlice(n), nanSlice(n)
	}
	upper, middle, lower := talib.BBands(closes, period, k, k, talib.SMA)
	return maskBefore(upper, period-1), maskBefore(middle, period-1), maskBefore(lower, period-1)
}

// directional returns ADX, +DI and -DI (Wilder). DI is defined from index
// period, ADX from index 2*period-1.
func directional(high, low, close []float64, period int) ([]float64, []float64, []float64) {
	n := len(close)
	adx, pos, neg := nanSlice(n), nanSlice(n), nanSlice(n)

	if n > period {
		pos = maskBefore(talib.PlusDI(high, low, close, period), period)
		neg = maskBefore(talib.MinusDI(high, low, close, period), period)
	}
	if n > 2*period-1 {
		adx = maskBefore(talib.Adx(high, low, close, period), 2*period-1)
	}
	return adx, pos, neg
}

// onBalanceVolume starts at the first volume, adds on up closes, subtracts on down closes
func onBalanceVolume(closes, volumes []float64) []float64 {
	if len(closes) == 0 {
		return []float64{}
	}
	return talib.Obv(closes, volumes)
}

// stochastic returns %K over kPeriod and %D as a dPeriod mean of %K.
// %K is NaN when the high/low range is zero.
func stochastic(high, low, close []float64, kPeriod, dPeriod int) ([]float64, []float64) {
	n := len(close)
	k := nanSlice(n)
	for i := kPeriod - 1; i < n; i++ {
		hh, ll := math.Inf(-1), math.Inf(1)
		for j := i - kPeriod + 1; j <= i; j++ {
			hh = math.Max(hh, high[j])
			ll = math.Min(ll, low[j])
		}
		if hh == ll {
			continue
		}
		k[i] = (close[i] - ll) / (hh - ll) * 100
	}
	return k, rollingMean(k, dPeriod)
}

// ratio divides element-wise; NaN where the denominator is zero or undefined
func ratio(num, den []float64) []float64 {
	out := nanSlice(len(num))
	for i := range num {
		if defined(num[i]) && defined(den[i]) && den[i] != 0 {
			out[i] = num[i] / den[i]
		}
	}
	return out
}

func diff(a, b []float64) []float64 {
	out := nanSlice(len(a))
	for i := range a {
		if defined(a[i]) && defined(b[i]) {
			out[i] = a[i] - b[i]
		}
	}
	return out
}
