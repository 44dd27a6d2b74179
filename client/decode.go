package client

import "encoding/json"

// decodeInto re-marshals a generic response payload into a typed result,
// since the wire response's Data field decodes as map[string]interface{}.
func decodeInto(data interface{}, out interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
