package event

import "encoding/json"

// DecodePayload decodes an event payload into T. In-process MemoryBus delivery carries
// the typed struct already; payloads read back from SSE or the dead-letter file are
// generic JSON and take the round-trip path.
func DecodePayload[T any](input interface{}) (T, error) {
	if v, ok := input.(T); ok {
		return v, nil
	}
	if p, ok := input.(*T); ok && p != nil {
		return *p, nil
	}
	var result T
	data, err := json.Marshal(input)
	if err != nil {
		return result, err
	}
	return result, json.Unmarshal(data, &result)
}
