package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/tonearm/data/db/catalog.db"
	}
	if cfg.Storage.CatalogIndexPath == "" {
		cfg.Storage.CatalogIndexPath = "/usr/local/var/tonearm/data/indices/catalog"
	}
	if cfg.Encoder.CategoryMapPath == "" {
		cfg.Encoder.CategoryMapPath = "/usr/local/etc/tonearm/categories.yaml"
	}
	if cfg.Recommend.DefaultLimit == 0 {
		cfg.Recommend.DefaultLimit = 10
	}
	if cfg.Recommend.MaxLimit == 0 {
		cfg.Recommend.MaxLimit = 100
	}
	if cfg.Recommend.EnrichedPageSize == 0 {
		cfg.Recommend.EnrichedPageSize = 4
	}
	if cfg.Recommend.SimilarityWeight == 0 {
		cfg.Recommend.SimilarityWeight = 0.7
	}
	if cfg.Recommend.BoostWeight == 0 {
		cfg.Recommend.BoostWeight = 0.3
	}
	if cfg.Recommend.HighTierThreshold == 0 {
		cfg.Recommend.HighTierThreshold = 0.80
	}
	if cfg.Recommend.ModerateTierThreshold == 0 {
		cfg.Recommend.ModerateTierThreshold = 0.65
	}
	// JitterAmplitude defaults to 0 (off): the jitter is presentation
	// policy, not a correctness requirement.
	if cfg.Enrich.TimeoutSeconds == 0 {
		cfg.Enrich.TimeoutSeconds = 3
	}
}
