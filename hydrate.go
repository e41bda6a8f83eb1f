// CLAUDE:SUMMARY Entry point composing payload location with devalue decoding or sandboxed script evaluation.
// Package hydrate extracts the hydration state a server embedded in a
// rendered HTML page and rebuilds it as a Go value graph.
//
// Two delivery modes exist. In data-island mode the page carries a
// <script type="application/json" data-nuxt-data> element whose body is a
// devalue payload, decoded with a caller-supplied reviver registry. In
// script mode the page carries an inline script assigning window.__NUXT__,
// which runs in a sandbox; no revival happens on that path.
package hydrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/hydrate/attrs"
	"github.com/hazyhaar/hydrate/devalue"
	"github.com/hazyhaar/hydrate/idgen"
	"github.com/hazyhaar/hydrate/locate"
	"github.com/hazyhaar/hydrate/nuxt"
	"github.com/hazyhaar/hydrate/observability"
	"github.com/hazyhaar/hydrate/sandbox"
)

// ErrDocumentTooLarge is returned for documents above Config.MaxDocumentSize.
var ErrDocumentTooLarge = errors.New("hydrate: document too large")

// Result is a decoded payload.
type Result struct {
	Mode    locate.Mode
	Value   any
	Attrs   attrs.Map
	Payload string // raw payload text as found in the document
}

// Plain projects Value with devalue.Plain.
func (r *Result) Plain() (any, error) {
	return devalue.Plain(r.Value)
}

// ExtractAndDecode locates the payload for mode in document and decodes it.
// reg is used in data-island mode only.
func ExtractAndDecode(document string, mode locate.Mode, reg *devalue.Registry) (*Result, error) {
	return extractAndDecode(document, mode, reg, sandbox.DefaultTimeout)
}

func extractAndDecode(document string, mode locate.Mode, reg *devalue.Registry, timeout time.Duration) (*Result, error) {
	p, err := locate.Locate(document, mode)
	if err != nil {
		return nil, err
	}

	var v any
	switch mode {
	case locate.ModeDataIsland:
		v, err = devalue.Parse(p.Text, reg)
	case locate.ModeScript:
		sc := sandbox.DefaultContext()
		sc.Timeout = timeout
		v, err = sandbox.Evaluate(p.Text, sc)
	}
	if err != nil {
		return nil, err
	}
	return &Result{Mode: mode, Value: v, Attrs: p.Attrs, Payload: p.Text}, nil
}

// Decoder decodes documents with a fixed mode and registry.
// It is safe for concurrent use.
type Decoder struct {
	cfg     Config
	reg     *devalue.Registry
	ids     idgen.Generator
	metrics *observability.Metrics
}

// New creates a Decoder. A nil registry selects nuxt.Revivers().
func New(cfg Config, reg *devalue.Registry) (*Decoder, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		reg = nuxt.Revivers()
	}
	return &Decoder{
		cfg:     cfg,
		reg:     reg,
		ids:     idgen.Prefixed("dec_", idgen.NanoID(12)),
		metrics: observability.NewMetrics(ErrorKind),
	}, nil
}

// Metrics returns the counters of calls made through the HTTP and MCP
// surfaces.
func (d *Decoder) Metrics() *observability.Metrics { return d.metrics }

// Mode returns the configured decode mode.
func (d *Decoder) Mode() locate.Mode { return d.cfg.Mode }

// Decode extracts and decodes the payload of document.
func (d *Decoder) Decode(ctx context.Context, document string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if int64(len(document)) > d.cfg.MaxDocumentSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrDocumentTooLarge, len(document), d.cfg.MaxDocumentSize)
	}

	start := time.Now()
	res, err := extractAndDecode(document, d.cfg.Mode, d.reg, d.cfg.ScriptTimeout)
	if err != nil {
		d.cfg.Logger.WarnContext(ctx, "hydrate: decode failed",
			"mode", d.cfg.Mode, "size", len(document), "kind", ErrorKind(err), "error", err)
		return nil, err
	}
	d.cfg.Logger.DebugContext(ctx, "hydrate: decoded",
		"mode", d.cfg.Mode, "size", len(document), "payload_size", len(res.Payload),
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// ErrorKind classifies a decode failure for transports.
func ErrorKind(err error) string {
	var (
		ute *devalue.UnknownTagError
		de  *devalue.DecodeError
		ee  *sandbox.EvaluationError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, locate.ErrPayloadNotFound):
		return "payload_not_found"
	case errors.As(err, &ute):
		return "unknown_tag"
	case errors.As(err, &de):
		return "decode"
	case errors.As(err, &ee):
		return "evaluation"
	case errors.Is(err, ErrDocumentTooLarge):
		return "too_large"
	case errors.Is(err, devalue.ErrCyclic):
		return "cyclic"
	}
	return "internal"
}
