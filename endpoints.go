// CLAUDE:SUMMARY Transport-neutral decode and locate endpoints shared by the HTTP handler and MCP tools.
package hydrate

import (
	"context"
	"errors"

	"github.com/hazyhaar/hydrate/kit"
	"github.com/hazyhaar/hydrate/locate"
)

type decodeReq struct {
	HTML string `json:"html"`
}

// DecodeResponse is the wire shape of a decode call. Value is the plain
// projection of the decoded graph.
type DecodeResponse struct {
	RequestID string            `json:"request_id,omitempty"`
	Mode      locate.Mode       `json:"mode"`
	Attrs     map[string]string `json:"attrs"`
	Value     any               `json:"value"`
}

type locateReq struct {
	HTML string `json:"html"`
	All  bool   `json:"all,omitempty"`
}

// LocatedPayload is the wire shape of one located payload.
type LocatedPayload struct {
	Text   string            `json:"text"`
	Attrs  map[string]string `json:"attrs"`
	Offset int               `json:"offset"`
}

// LocateResponse is the wire shape of a locate call.
type LocateResponse struct {
	Mode     locate.Mode      `json:"mode"`
	Payloads []LocatedPayload `json:"payloads"`
}

var errEmptyHTML = errors.New("hydrate: html is required")

func (d *Decoder) decodeEndpoint() kit.Endpoint {
	ep := func(ctx context.Context, req any) (any, error) {
		r := req.(*decodeReq)
		if r.HTML == "" {
			return nil, errEmptyHTML
		}
		res, err := d.Decode(ctx, r.HTML)
		if err != nil {
			return nil, err
		}
		v, err := res.Plain()
		if err != nil {
			return nil, err
		}
		return &DecodeResponse{
			RequestID: kit.GetRequestID(ctx),
			Mode:      res.Mode,
			Attrs:     res.Attrs,
			Value:     v,
		}, nil
	}
	return d.wrap("decode", ep)
}

func (d *Decoder) locateEndpoint() kit.Endpoint {
	ep := func(_ context.Context, req any) (any, error) {
		r := req.(*locateReq)
		if r.HTML == "" {
			return nil, errEmptyHTML
		}
		var (
			found []*locate.Payload
			err   error
		)
		if r.All {
			found, err = locate.LocateAll(r.HTML, d.cfg.Mode)
		} else {
			var p *locate.Payload
			p, err = locate.Locate(r.HTML, d.cfg.Mode)
			found = []*locate.Payload{p}
		}
		if err != nil {
			return nil, err
		}
		resp := &LocateResponse{Mode: d.cfg.Mode, Payloads: make([]LocatedPayload, len(found))}
		for i, p := range found {
			resp.Payloads[i] = LocatedPayload{Text: p.Text, Attrs: p.Attrs, Offset: p.Offset}
		}
		return resp, nil
	}
	return d.wrap("locate", ep)
}

func (d *Decoder) wrap(op string, ep kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(d.cfg.Logger, op), d.metrics.Instrument(op))(ep)
}
