package sim

import (
	"strings"

	"github.com/Iron-Ham/chatcore/internal/engine"
)

type arrayObj struct {
	ids []uint32
}

type lotObj struct {
	text1     string
	text2     string
	meaning   int
	state     int
	id        uint32
	timestamp int64
}

type providerObj struct {
	overview string
	hint     string
	status   int
}

// providers is the offline provider database, keyed by domain.
var providers = map[string]providerObj{
	"example.org": {
		overview: "https://providers.example.com/example-org",
		status:   engine.ProviderStatusOK,
	},
	"example.net": {
		overview: "https://providers.example.com/example-net",
		hint:     "Enable app passwords in the web interface before logging in.",
		status:   engine.ProviderStatusPreparation,
	},
	"broken.example": {
		overview: "https://providers.example.com/broken-example",
		hint:     "This provider currently does not work with chat clients.",
		status:   engine.ProviderStatusBroken,
	},
}

func (e *Engine) array(h engine.Handle) *arrayObj {
	a, ok := lookup[*arrayObj](e, h)
	if !ok {
		return &arrayObj{}
	}
	return a
}

// ArrayUnref implements engine.ValueAPI.
func (e *Engine) ArrayUnref(arr engine.Handle) { release[*arrayObj](e, arr) }

// ArrayGetCnt implements engine.ValueAPI.
func (e *Engine) ArrayGetCnt(arr engine.Handle) int { return len(e.array(arr).ids) }

// ArrayGetID implements engine.ValueAPI.
func (e *Engine) ArrayGetID(arr engine.Handle, index int) uint32 {
	ids := e.array(arr).ids
	if index < 0 || index >= len(ids) {
		return 0
	}
	return ids[index]
}

func (e *Engine) lot(h engine.Handle) *lotObj {
	l, ok := lookup[*lotObj](e, h)
	if !ok {
		return &lotObj{}
	}
	return l
}

// LotUnref implements engine.ValueAPI.
func (e *Engine) LotUnref(lot engine.Handle) { release[*lotObj](e, lot) }

// LotGetText1 implements engine.ValueAPI.
func (e *Engine) LotGetText1(lot engine.Handle) engine.Str {
	if t := e.lot(lot).text1; t != "" {
		return e.str(t)
	}
	return 0
}

// LotGetText2 implements engine.ValueAPI.
func (e *Engine) LotGetText2(lot engine.Handle) engine.Str {
	if t := e.lot(lot).text2; t != "" {
		return e.str(t)
	}
	return 0
}

// LotGetText1Meaning implements engine.ValueAPI.
func (e *Engine) LotGetText1Meaning(lot engine.Handle) int { return e.lot(lot).meaning }

// LotGetState implements engine.ValueAPI.
func (e *Engine) LotGetState(lot engine.Handle) int { return e.lot(lot).state }

// LotGetID implements engine.ValueAPI.
func (e *Engine) LotGetID(lot engine.Handle) uint32 { return e.lot(lot).id }

// LotGetTimestamp implements engine.ValueAPI.
func (e *Engine) LotGetTimestamp(lot engine.Handle) int64 { return e.lot(lot).timestamp }

// ProviderNewFromEmail implements engine.ValueAPI. Unknown domains yield a
// null handle.
func (e *Engine) ProviderNewFromEmail(ctx engine.Handle, addr string) engine.Handle {
	if e.ctx(ctx) == nil {
		return 0
	}
	_, domain, ok := strings.Cut(strings.ToLower(strings.TrimSpace(addr)), "@")
	if !ok {
		return 0
	}
	p, ok := providers[domain]
	if !ok {
		return 0
	}
	return e.alloc(&p)
}

func (e *Engine) provider(h engine.Handle) *providerObj {
	p, ok := lookup[*providerObj](e, h)
	if !ok {
		return &providerObj{}
	}
	return p
}

// ProviderUnref implements engine.ValueAPI.
func (e *Engine) ProviderUnref(provider engine.Handle) { release[*providerObj](e, provider) }

// ProviderGetOverviewPage implements engine.ValueAPI.
func (e *Engine) ProviderGetOverviewPage(provider engine.Handle) engine.Str {
	return e.str(e.provider(provider).overview)
}

// ProviderGetBeforeLoginHint implements engine.ValueAPI.
func (e *Engine) ProviderGetBeforeLoginHint(provider engine.Handle) engine.Str {
	return e.str(e.provider(provider).hint)
}

// ProviderGetStatus implements engine.ValueAPI.
func (e *Engine) ProviderGetStatus(provider engine.Handle) int { return e.provider(provider).status }
