package agent

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ToolCallResult is the payload a tool-role message carries back to the model.
// Exactly one of Data (when OK) or Error (when not OK) is serialized.
type ToolCallResult struct {
	OK    bool
	Tool  string
	Data  any
	Error string
	// Err is the failure behind Error. It is not serialized.
	Err error
}

type okPayload struct {
	OK   bool   `json:"ok"`
	Tool string `json:"tool"`
	Data any    `json:"data"`
}

type errPayload struct {
	OK    bool   `json:"ok"`
	Tool  string `json:"tool"`
	Error string `json:"error"`
}

// Succeeded builds a successful result.
func Succeeded(tool string, data any) ToolCallResult {
	return ToolCallResult{OK: true, Tool: tool, Data: data}
}

// Failed builds a failed result. For a ToolExecutionError the model sees
// the tool's own message; Err keeps the full chain.
func Failed(tool string, err error) ToolCallResult {
	msg := err.Error()
	var execErr *ToolExecutionError
	if errors.As(err, &execErr) && execErr.Err != nil {
		msg = execErr.Err.Error()
	}
	return ToolCallResult{Tool: tool, Error: msg, Err: err}
}

// MarshalJSON renders {"ok":true,"tool":..,"data":..} or
// {"ok":false,"tool":..,"error":..}. HTML characters are not escaped.
func (r ToolCallResult) MarshalJSON() ([]byte, error) {
	var v any = errPayload{OK: false, Tool: r.Tool, Error: r.Error}
	if r.OK {
		v = okPayload{OK: true, Tool: r.Tool, Data: r.Data}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// content serializes r for a tool-role message. A result whose data cannot
// be encoded is reported to the model as a failure instead.
func (r ToolCallResult) content() string {
	data, err := r.MarshalJSON()
	if err != nil {
		data, _ = ToolCallResult{Tool: r.Tool, Error: "encode result: " + err.Error()}.MarshalJSON()
	}
	return string(data)
}
