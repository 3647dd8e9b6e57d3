package gateway

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// errorResponse is the wire shape of every non-2xx reply.
type errorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeJSON encodes v with the given status. Encoding failures are logged;
// the status line has already been sent at that point.
func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// writeError sends the standard error envelope. details carries the
// underlying cause and may be empty.
func (g *Gateway) writeError(w http.ResponseWriter, status int, msg, details string) {
	g.writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

// decodeBody parses the request body into dst, tolerating an empty body
// when dst's zero value is acceptable.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}
