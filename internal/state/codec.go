package state

import (
	"encoding/json"

	"github.com/pkg/errors"
)

func encodeSnapshot(snapshot *Snapshot) (string, error) {
	body, err := json.Marshal(snapshot)
	if err != nil {
		return "", errors.Wrap(err, "encoding state")
	}
	return string(body), nil
}

func decodeSnapshot(body string, snapshot *Snapshot) error {
	if err := json.Unmarshal([]byte(body), snapshot); err != nil {
		return errors.Wrap(err, "decoding state")
	}
	if snapshot.Resources == nil {
		snapshot.Resources = map[string]Record{}
	}
	return nil
}
