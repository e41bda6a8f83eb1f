package hydrate

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/hydrate/devalue"
	"github.com/hazyhaar/hydrate/observability"
	"github.com/hazyhaar/hydrate/shield"
)

// Handler returns the HTTP surface of the decoder, behind the shield stack:
//
//	GET  /health  liveness, configured mode and runtime stats
//	GET  /metrics per-operation call and failure counters
//	POST /decode  body is the HTML document, response is DecodeResponse
//	POST /locate  body is the HTML document, ?all=1 returns every match
func (d *Decoder) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range shield.APIStack(shield.Config{
		RateLimit: d.cfg.RateLimit,
		IDs:       d.ids,
		Logger:    d.cfg.Logger,
	}) {
		r.Use(mw)
	}

	decode := d.decodeEndpoint()
	loc := d.locateEndpoint()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"mode":    d.cfg.Mode,
			"runtime": observability.CollectRuntimeMetrics(),
		})
	})

	r.Get("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, d.metrics.Snapshot())
	})

	r.Post("/decode", func(w http.ResponseWriter, req *http.Request) {
		body, err := d.readBody(w, req)
		if err != nil {
			d.writeError(w, err)
			return
		}
		resp, err := decode(req.Context(), &decodeReq{HTML: body})
		if err != nil {
			d.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	r.Post("/locate", func(w http.ResponseWriter, req *http.Request) {
		body, err := d.readBody(w, req)
		if err != nil {
			d.writeError(w, err)
			return
		}
		all := req.URL.Query().Get("all") == "1"
		resp, err := loc(req.Context(), &locateReq{HTML: body, All: all})
		if err != nil {
			d.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	})

	return r
}

func (d *Decoder) readBody(w http.ResponseWriter, req *http.Request) (string, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, req.Body, d.cfg.MaxDocumentSize))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return "", ErrDocumentTooLarge
		}
		return "", err
	}
	return string(data), nil
}

type errorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Offset *int   `json:"offset,omitempty"`
}

func (d *Decoder) writeError(w http.ResponseWriter, err error) {
	kind := ErrorKind(err)
	body := errorBody{Error: err.Error(), Kind: kind}

	var de *devalue.DecodeError
	if errors.As(err, &de) && de.Offset >= 0 {
		off := de.Offset
		body.Offset = &off
	}

	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, errEmptyHTML):
		status = http.StatusBadRequest
		body.Kind = "bad_request"
	case kind == "too_large":
		status = http.StatusRequestEntityTooLarge
	case kind == "internal":
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
