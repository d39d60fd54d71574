package config

import "fmt"

const (
	ArchiveNone  = "none"
	ArchiveS3    = "s3"
	ArchiveMinio = "minio"
)

// ArchiveConfig selects an object store that mirrors routed documents.
type ArchiveConfig struct {
	Type   string      `yaml:"type"`
	Prefix string      `yaml:"prefix"`
	S3     S3Config    `yaml:"s3"`
	Minio  MinioConfig `yaml:"minio"`
}

type S3Config struct {
	BucketName string `yaml:"bucketName"`
	Region     string `yaml:"region"`
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"accessKey"`
	SecretKey  string `yaml:"secretKey"`
}

func (c *S3Config) fromEnv() {
	setString(&c.BucketName, "AWS_S3_BUCKET_NAME")
	setString(&c.Region, "AWS_REGION")
	setString(&c.Endpoint, "AWS_ENDPOINT")
	setString(&c.AccessKey, "AWS_ACCESS_KEY")
	setString(&c.SecretKey, "AWS_SECRET_KEY")
}

// Validate checks the selected archive has what it needs.
func (c ArchiveConfig) Validate() error {
	switch c.Type {
	case "", ArchiveNone:
		return nil
	case ArchiveS3:
		if c.S3.BucketName == "" || c.S3.Region == "" {
			return fmt.Errorf("archive.s3: bucketName and region are required")
		}
	case ArchiveMinio:
		if c.Minio.BucketName == "" || c.Minio.Endpoint == "" {
			return fmt.Errorf("archive.minio: bucketName and endpoint are required")
		}
	default:
		return fmt.Errorf("archive.type: unknown archive %q", c.Type)
	}
	return nil
}
