package credentials

import (
	"encoding/json"
	"fmt"
	"os"
)

// AccountKey represents a storage account name and key pair.
type AccountKey struct {
	Account string `json:"account" mapstructure:"account"`
	Key     string `json:"key" mapstructure:"key"`
}

// LoadKeysFromFile loads account keys from a JSON file. The file should
// contain an array of account key pairs:
//
//	[
//	  {"account": "prodstore", "key": "bXkta2V5..."},
//	  {"account": "devstoreaccount1", "key": "Eby8vdM0..."}
//	]
//
// Returns a map of account name to account key.
func LoadKeysFromFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return nil, fmt.Errorf("read keys file: %w", err)
	}

	var pairs []AccountKey
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, fmt.Errorf("parse keys file: %w", err)
	}

	keys := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if p.Account != "" && p.Key != "" {
			keys[p.Account] = p.Key
		}
	}

	return keys, nil
}
