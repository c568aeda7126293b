package kv

// StoreType represents the type of key/value store.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeFile   StoreType = "file"
	StoreTypeRedis  StoreType = "redis"
)

// NewStore creates a new Store based on the given type.
// For Redis, requires WithRedisClient option.
// For file, requires WithFilePath option.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	config := &storeConfig{}

	for _, opt := range opts {
		opt(config)
	}

	switch storeType {
	case StoreTypeMemory:
		return NewMemoryStore(), nil

	case StoreTypeFile:
		if config.filePath == "" {
			return nil, ErrInvalidConfig
		}
		s, err := NewFileStore(config.filePath)
		if err != nil {
			return nil, err
		}
		return s, nil

	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return NewRedisStore(config.redisClient, config.redisPrefix, config.redisTTL), nil

	default:
		return nil, ErrInvalidStoreType
	}
}
