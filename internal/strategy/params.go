package strategy

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// Params holds the immutable thresholds of every strategy. Values are copied
// into each instance at construction; nothing reads them afterwards.
type Params struct {
	ADX  ADXParams  `yaml:"adx"`
	EMVS EMVSParams `yaml:"emvs"`
	MER  MERParams  `yaml:"mer"`
	BBR  BBRParams  `yaml:"bbr"`
	OBV  OBVParams  `yaml:"obv"`
	NR4  NR4Params  `yaml:"nr4"`
	NR7  NR7Params  `yaml:"nr7"`
	MARS MARSParams `yaml:"mars"`
	MACS MACSParams `yaml:"macs"`
}

type ADXParams struct {
	PeriodsSMA int     `yaml:"periods_sma"`
	PeriodsADX int     `yaml:"periods_adx"`
	Trend      float64 `yaml:"trend"`
}

type EMVSParams struct {
	PeriodsEMV int `yaml:"periods_emv"`
	PeriodsSMA int `yaml:"periods_sma"`
}

type MERParams struct {
	PeriodsEMA []int   `yaml:"periods_ema"` // exactly five, ascending
	PeriodsRSI int     `yaml:"periods_rsi"`
	RSILine    float64 `yaml:"rsi_line"`
}

type BBRParams struct {
	PeriodsBB     int     `yaml:"periods_bb"`
	Multiplier    float64 `yaml:"multiplier"`
	PeriodsRSI    int     `yaml:"periods_rsi"`
	SqueezeRatio  float64 `yaml:"squeeze_ratio"`
	RSITrend      float64 `yaml:"rsi_trend"`
	RSIOverbought float64 `yaml:"rsi_overbought"`
}

type OBVParams struct {
	Periods int `yaml:"periods"`
}

type NR4Params struct {
	Periods  int     `yaml:"periods"`
	Oversold float64 `yaml:"oversold"`
}

type NR7Params struct {
	Periods int `yaml:"periods"`
}

type MARSParams struct {
	PeriodsEMA []int `yaml:"periods_ema"`
}

type MACSParams struct {
	Fast            int `yaml:"fast"`
	Slow            int `yaml:"slow"`
	Trend           int `yaml:"trend"`
	Confirm         int `yaml:"confirm"`
	ConfirmIncrease int `yaml:"confirm_increase"`
}

// DefaultParams returns the stock thresholds.
func DefaultParams() Params {
	return Params{
		ADX:  ADXParams{PeriodsSMA: 50, PeriodsADX: 14, Trend: 20.0},
		EMVS: EMVSParams{PeriodsEMV: 14, PeriodsSMA: 30},
		MER:  MERParams{PeriodsEMA: []int{3, 5, 13, 21, 80}, PeriodsRSI: 14, RSILine: 50.0},
		BBR: BBRParams{
			PeriodsBB: 10, Multiplier: 2.0, PeriodsRSI: 21,
			SqueezeRatio: 0.040, RSITrend: 50.0, RSIOverbought: 70.0,
		},
		OBV:  OBVParams{Periods: 10},
		NR4:  NR4Params{Periods: 4, Oversold: 30.0},
		NR7:  NR7Params{Periods: 7},
		MARS: MARSParams{PeriodsEMA: []int{10, 20, 30, 40, 50, 60, 70, 80}},
		MACS: MACSParams{Fast: 5, Slow: 10, Trend: 50, Confirm: 3, ConfirmIncrease: 3},
	}
}

// LoadParams reads a YAML override file on top of DefaultParams.
// An empty path returns the defaults.
func LoadParams(path string) (Params, error) {
	p := DefaultParams()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("failed to read strategy config: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("%w: failed to parse strategy config: %v", model.ErrConfig, err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Validate checks every threshold combination. Errors wrap model.ErrConfig.
func (p Params) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{model.ErrConfig}, args...)...))
		}
	}

	check(p.ADX.PeriodsSMA > 0 && p.ADX.PeriodsADX > 0, "adx periods must be positive")
	check(p.ADX.Trend >= 0 && p.ADX.Trend <= 100, "adx trend %.2f out of [0,100]", p.ADX.Trend)

	check(p.EMVS.PeriodsEMV > 0 && p.EMVS.PeriodsSMA > 0, "emvs periods must be positive")

	check(len(p.MER.PeriodsEMA) == 5, "mer needs five ema periods, got %d", len(p.MER.PeriodsEMA))
	check(strictlyAscending(p.MER.PeriodsEMA), "mer ema periods must be positive and ascending: %v", p.MER.PeriodsEMA)
	check(p.MER.PeriodsRSI > 0, "mer rsi period must be positive")

	check(p.BBR.PeriodsBB > 0 && p.BBR.PeriodsRSI > 0, "bbr periods must be positive")
	check(p.BBR.Multiplier > 0, "bbr multiplier must be positive")
	check(p.BBR.SqueezeRatio > 0, "bbr squeeze ratio must be positive")
	check(p.BBR.RSITrend < p.BBR.RSIOverbought, "bbr rsi trend %.2f must be below overbought %.2f", p.BBR.RSITrend, p.BBR.RSIOverbought)

	check(p.OBV.Periods >= 2, "obv periods must be at least 2")
	check(p.NR4.Periods > 0, "nr4 periods must be positive")
	check(p.NR7.Periods > 0, "nr7 periods must be positive")

	mars := append([]int(nil), p.MARS.PeriodsEMA...)
	sort.Ints(mars)
	check(len(mars) >= 2, "mars needs at least two ema periods")
	check(strictlyAscending(mars), "mars ema periods must be positive and distinct: %v", p.MARS.PeriodsEMA)

	check(p.MACS.Fast > 0, "macs fast period must be positive")
	check(p.MACS.Fast < p.MACS.Slow, "macs fast %d must be below slow %d", p.MACS.Fast, p.MACS.Slow)
	check(p.MACS.Slow < p.MACS.Trend, "macs slow %d must be below trend %d", p.MACS.Slow, p.MACS.Trend)
	check(p.MACS.Confirm > 0 && p.MACS.ConfirmIncrease > 0, "macs confirm counts must be positive")

	return errors.Join(errs...)
}

func strictlyAscending(v []int) bool {
	for i, n := range v {
		if n <= 0 || (i > 0 && n <= v[i-1]) {
			return false
		}
	}
	return true
}
