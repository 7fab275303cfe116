package credentials

// KeysConfig holds configuration for loading account keys.
type KeysConfig struct {
	Inline []AccountKey `mapstructure:"inline"` // Inline account keys from config
	File   string       `mapstructure:"file"`   // Path to JSON file containing account keys
}

// NewStore creates a Store from the given configuration. It loads keys from
// both inline config and file (if specified), merging them into a single
// store. File keys take precedence over inline keys if there are duplicates.
func NewStore(cfg KeysConfig) (Store, error) {
	keys := make(map[string]string)

	for _, p := range cfg.Inline {
		if p.Account != "" && p.Key != "" {
			keys[p.Account] = p.Key
		}
	}

	if cfg.File != "" {
		fileKeys, err := LoadKeysFromFile(cfg.File)
		if err != nil {
			return nil, err
		}
		for k, v := range fileKeys {
			keys[k] = v
		}
	}

	return NewMapStore(keys), nil
}
