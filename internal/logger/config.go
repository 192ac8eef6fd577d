package logger

import "fmt"

type Config struct {
	Level       string `mapstructure:"level"`
	WriteToFile bool   `mapstructure:"write_to_file"`
	FilePath    string `mapstructure:"file_path"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

func (c *Config) Validate() error {
	if c.WriteToFile {
		if c.FilePath == "" {
			return fmt.Errorf("file_path is required")
		}
		if c.MaxSizeMB <= 0 {
			return fmt.Errorf("max_size_mb must be > 0")
		}
		if c.MaxBackups < 0 {
			return fmt.Errorf("max_backups must be >= 0")
		}
		if c.MaxAgeDays < 0 {
			return fmt.Errorf("max_age_days must be >= 0")
		}
	}
	return nil
}
