package json

import (
	"encoding/json"

	"github.com/bububa/ljson"
	"github.com/effective-security/felix/pkg/llmutils"
)

type Encoder struct{}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Marshal(req any) ([]byte, error) {
	return json.MarshalIndent(req, "", "  ")
}

// Unmarshal tolerates text around the JSON document
// and loosely typed values.
func (e *Encoder) Unmarshal(bs []byte, ret any) error {
	data := llmutils.CleanJSON(bs)
	return ljson.Unmarshal(data, ret)
}
