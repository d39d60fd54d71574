package config

// TextractConfig holds AWS Textract settings for the textract OCR engine.
type TextractConfig struct {
	Region        string  `yaml:"region"`
	Endpoint      string  `yaml:"endpoint"`
	AccessKey     string  `yaml:"accessKey"`
	SecretKey     string  `yaml:"secretKey"`
	MinConfidence float32 `yaml:"minConfidence"`
}

func (c *TextractConfig) fromEnv() {
	setString(&c.Region, "AWS_REGION")
	setString(&c.Endpoint, "AWS_ENDPOINT")
	setString(&c.AccessKey, "AWS_ACCESS_KEY")
	setString(&c.SecretKey, "AWS_SECRET_KEY")
}
