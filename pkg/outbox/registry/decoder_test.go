package registry

import (
	"encoding/json"
	"testing"

	"github.com/wattly/wattly-backend/pkg/enums"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventInvoiceSent, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	input := json.RawMessage(`{"number":"2026-03-0001"}`)
	output, err := reg.Decode(enums.EventInvoiceSent, 1, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outMap, ok := output.(map[string]string); !ok || outMap["number"] != "2026-03-0001" {
		t.Fatalf("unexpected output %+v", output)
	}
}
