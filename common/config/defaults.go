package config

func NewDefaultConfig() LayerConfig {
	return LayerConfig{
		General: GeneralConfig{
			LogDirectory:     "logs",
			LogColors:        false,
			JsonLogs:         false,
			LogLevel:         "info",
			LogRetentionDays: 14,
		},
		Server: ServerConfig{
			BaseUrl:        "https://cloud.example.org",
			DavEndpoint:    "/remote.php/dav/files/",
			UserAgent:      "",
			TimeoutSeconds: 30,
			BackoffAt:      10,
		},
		Storage: StorageConfig{
			LocalRoot:     "media",
			CacheDir:      "media/cache",
			RefreshDbPath: "media/refresh.db",
		},
		Cache: CacheConfig{
			MaxSizeBytes:      0,
			MemoryBudgetBytes: 268435456, // 256mb
			BudgetDivisor:     8,
		},
		Fetch: FetchConfig{
			NumWorkers: 3,
			AnimatedTypes: []string{
				"image/agif",
				"image/awebp",
			},
			CameraRollAnimated: []string{
				"image/gif",
				"image/webp",
			},
			MaxDecodedPixels:      25000000,
			PreviewFailureMinutes: 5,
			ThumbnailJpegQuality:  90,
			AutoReplayAnimations:  true,
		},
		Previews: PreviewConfig{
			Endpoint: "/index.php/core/preview?x=1024&y=1024&a=true&fileId=",
		},
		Frames: FramesConfig{
			FfmpegPath: "ffmpeg",
			AtMillis:   0,
		},
		Metrics: MetricsConfig{
			Enabled:     false,
			BindAddress: "127.0.0.1",
			Port:        9000,
		},
		Sentry: SentryConfig{
			Enabled: false,
		},
	}
}

// CacheCapacity is the artifact cache size in bytes. It is computed once at
// startup and never changes while the layer is running.
func (c CacheConfig) CacheCapacity() int64 {
	if c.MaxSizeBytes > 0 {
		return c.MaxSizeBytes
	}
	divisor := c.BudgetDivisor
	if divisor <= 0 {
		divisor = 8
	}
	return c.MemoryBudgetBytes / divisor
}
