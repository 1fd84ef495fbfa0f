package assign

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	coreassign "github.com/cleanbear/dispatch/core/assign"
)

// ParseRunJSON decodes raw request JSON with the same wire contract as
// POST /assign into an engine request. It backs the assign subcommand,
// so recorded API payloads replay offline.
func ParseRunJSON(data []byte) (coreassign.Request, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var req runRequest
	if err := dec.Decode(&req); err != nil {
		return coreassign.Request{}, fmt.Errorf("invalid run request: %w", err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return coreassign.Request{}, errors.New("run request must contain only one JSON object")
	}
	return req.toEngineRequest()
}

// EncodeResult renders a run result in the wire response format.
func EncodeResult(res coreassign.Result, pretty bool) ([]byte, error) {
	out := newRunResponse(res)
	if pretty {
		return json.MarshalIndent(out, "", "  ")
	}
	return json.Marshal(out)
}

// RunPayload executes a batch run from raw request JSON and returns the
// wire response body.
func RunPayload(ctx context.Context, engine Engine, data []byte, pretty bool) ([]byte, error) {
	req, err := ParseRunJSON(data)
	if err != nil {
		return nil, err
	}
	return EncodeResult(engine.Run(ctx, req), pretty)
}
