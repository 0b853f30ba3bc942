package config

type S3Config struct {
	BucketName string
	Region     string
}

// GetS3Config returns nil when no bucket is configured: publishing the
// finished video to an object store is optional.
func GetS3Config() (*S3Config, error) {
	bucketName := envString("S3_BUCKET", "")
	if bucketName == "" {
		return nil, nil
	}

	return &S3Config{
		BucketName: bucketName,
		Region:     envString("S3_REGION", "us-east-1"),
	}, nil
}
