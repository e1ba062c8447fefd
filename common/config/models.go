package config

type LayerConfig struct {
	General  GeneralConfig `yaml:"general"`
	Server   ServerConfig  `yaml:"server"`
	Storage  StorageConfig `yaml:"storage"`
	Cache    CacheConfig   `yaml:"cache"`
	Fetch    FetchConfig   `yaml:"fetch"`
	Frames   FramesConfig  `yaml:"frames"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Sentry   SentryConfig  `yaml:"sentry"`
	Previews PreviewConfig `yaml:"previews"`
}

type GeneralConfig struct {
	LogDirectory string `yaml:"logDirectory"`
	LogColors    bool   `yaml:"logColors"`
	JsonLogs     bool   `yaml:"jsonLogs"`
	LogLevel     string `yaml:"logLevel"`
	// Days rotated log files are kept.
	LogRetentionDays int `yaml:"logRetentionDays"`
}

type ServerConfig struct {
	BaseUrl        string `yaml:"baseUrl"`
	Username       string `yaml:"username"`
	Token          string `yaml:"token"`
	DavEndpoint    string `yaml:"davEndpoint"`
	UserAgent      string `yaml:"userAgent"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
	BackoffAt      int    `yaml:"backoffAt"`
	SelfSigned     bool   `yaml:"selfSigned"`
}

type StorageConfig struct {
	LocalRoot     string `yaml:"localRoot"`
	CacheDir      string `yaml:"cacheDir"`
	RefreshDbPath string `yaml:"refreshDbPath"`
}

type CacheConfig struct {
	// MaxSizeBytes wins over MemoryBudgetBytes when set.
	MaxSizeBytes      int64 `yaml:"maxSizeBytes"`
	MemoryBudgetBytes int64 `yaml:"memoryBudgetBytes"`
	BudgetDivisor     int64 `yaml:"budgetDivisor"`
}

type FetchConfig struct {
	NumWorkers            int      `yaml:"numWorkers"`
	AnimatedTypes         []string `yaml:"animatedTypes,flow"`
	CameraRollAnimated    []string `yaml:"cameraRollAnimatedTypes,flow"`
	MaxDecodedPixels      int      `yaml:"maxDecodedPixels"`
	PreviewFailureMinutes int      `yaml:"previewFailureMinutes"`
	ThumbnailJpegQuality  int      `yaml:"thumbnailJpegQuality"`
	AutoReplayAnimations  bool     `yaml:"autoReplayAnimations"`
}

type PreviewConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type FramesConfig struct {
	FfmpegPath string `yaml:"ffmpegPath"`
	// Still frame position, in milliseconds from the start of the video.
	AtMillis int64 `yaml:"atMillis"`
}

type MetricsConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BindAddress string `yaml:"bindAddress"`
	Port        int    `yaml:"port"`
}

type SentryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Dsn         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
	Debug       bool   `yaml:"debug"`
}
