package domain

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Result is the interpreted response of an invocation paired with the output
// headers. Headers are only ever populated on success.
type Result struct {
	Value   any            `json:"result"`
	Headers map[string]any `json:"headers,omitempty"`
}

// Decode copies Value into target, converting leaf strings into the target's
// field types ("3" into an int field).
func (r Result) Decode(target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
		TagName:          "soap",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(r.Value); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	return nil
}
