package strategy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gamesbykevin/TradingBot/internal/model"
)

// Strategy names accepted by New.
const (
	NameADX  = "ADX"
	NameEMVS = "EMVS"
	NameMER  = "MER"
	NameBBR  = "BBR"
	NameOBV  = "OBV"
	NameNR4  = "NR4"
	NameNR7  = "NR7"
	NameMARS = "MARS"
	NameMACS = "MACS"
)

var constructors = map[string]func(Params) Strategy{
	NameADX:  func(p Params) Strategy { return NewADX(p.ADX) },
	NameEMVS: func(p Params) Strategy { return NewEMVS(p.EMVS) },
	NameMER:  func(p Params) Strategy { return NewMER(p.MER) },
	NameBBR:  func(p Params) Strategy { return NewBBR(p.BBR) },
	NameOBV:  func(p Params) Strategy { return NewOBV(p.OBV) },
	NameNR4:  func(p Params) Strategy { return NewNR4(p.NR4) },
	NameNR7:  func(p Params) Strategy { return NewNR7(p.NR7) },
	NameMARS: func(p Params) Strategy { return NewMARS(p.MARS) },
	NameMACS: func(p Params) Strategy { return NewMACS(p.MACS) },
}

// Names lists every registered strategy, sorted.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New validates p and constructs the named strategy (case-insensitive).
// Each call returns a fresh instance; strategies are never shared between agents.
func New(name string, p Params) (Strategy, error) {
	ctor, ok := constructors[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q (known: %s)", model.ErrConfig, name, strings.Join(Names(), ","))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return ctor(p), nil
}
