package recommend

// Config bounds the orchestrated pipeline.
type Config struct {
	DefaultRadiusM    float64
	DefaultLimit      int
	TopKActions       int
	ActionConcurrency int
}

func DefaultConfig() *Config {
	return &Config{
		DefaultRadiusM:    1000,
		DefaultLimit:      20,
		TopKActions:       5,
		ActionConcurrency: 5,
	}
}

func (c *Config) normalize() {
	if c.DefaultRadiusM <= 0 {
		c.DefaultRadiusM = 1000
	}
	if c.DefaultLimit < 1 {
		c.DefaultLimit = 20
	}
	if c.TopKActions < 1 {
		c.TopKActions = 5
	}
	if c.ActionConcurrency < 1 {
		c.ActionConcurrency = c.TopKActions
	}
}
