package render

import (
	"fmt"
	"strings"
)

// ConsoleMessage is one console API call observed on a page.
type ConsoleMessage struct {
	Type string `json:"type"` // log, info, warning, error, debug, ...
	Text string `json:"text"`
}

// ClientErrors lists what went wrong on the client for one path.
type ClientErrors struct {
	Path       string
	PageErrors []string
	Console    []ConsoleMessage
}

func (e *ClientErrors) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "render: %s: %d page error(s), %d console error(s)/warning(s)",
		e.Path, len(e.PageErrors), len(e.Console))
	for _, pe := range e.PageErrors {
		b.WriteString("\n  pageerror: ")
		b.WriteString(pe)
	}
	for _, m := range e.Console {
		fmt.Fprintf(&b, "\n  console.%s: %s", m.Type, m.Text)
	}
	return b.String()
}

// ConsoleErrors keeps the error and warning messages of logs.
func ConsoleErrors(logs []ConsoleMessage) []ConsoleMessage {
	var out []ConsoleMessage
	for _, m := range logs {
		if m.Type == "error" || m.Type == "warning" {
			out = append(out, m)
		}
	}
	return out
}

// CheckClientErrors returns a *ClientErrors when pageErrors is non-empty or
// logs contain errors or warnings, nil otherwise.
func CheckClientErrors(path string, pageErrors []string, logs []ConsoleMessage) error {
	bad := ConsoleErrors(logs)
	if len(pageErrors) == 0 && len(bad) == 0 {
		return nil
	}
	return &ClientErrors{Path: path, PageErrors: pageErrors, Console: bad}
}
