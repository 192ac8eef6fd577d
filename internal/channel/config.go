package channel

import "fmt"

type Config struct {
	Type   string      `mapstructure:"type"`
	Memory *MemConfig  `mapstructure:"memory"`
	File   *FileConfig `mapstructure:"file"`
}

type MemConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type FileConfig struct {
	Dir       string `mapstructure:"dir"`
	SyncOnPut bool   `mapstructure:"sync_on_put"`
}

func (c *Config) Validate() error {
	switch c.Type {
	case "memory":
		if c.Memory == nil {
			return fmt.Errorf("memory config must be provided for type=memory")
		}
		if err := c.Memory.Validate(); err != nil {
			return fmt.Errorf("memory config: %w", err)
		}
	case "file":
		if c.File == nil {
			return fmt.Errorf("file config must be provided for type=file")
		}
		if err := c.File.Validate(); err != nil {
			return fmt.Errorf("file config: %w", err)
		}
	case "":
		return fmt.Errorf("channel type is required")
	default:
		return fmt.Errorf("unsupported channel type: %s", c.Type)
	}
	return nil
}

func (m *MemConfig) Validate() error {
	if m.Capacity <= 0 {
		return fmt.Errorf("memory.capacity must be > 0")
	}
	return nil
}

func (f *FileConfig) Validate() error {
	if f.Dir == "" {
		return fmt.Errorf("file.dir is required")
	}
	return nil
}
