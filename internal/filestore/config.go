package filestore

// Provider identifies the file storage backend.
type Provider string

const (
	ProviderMinIO Provider = "minio"
)

// Config holds all settings needed to reach the storage backend that
// exported query results are written to.
type Config struct {
	// Provider is the storage backend (e.g. ProviderMinIO).
	Provider Provider

	// Endpoint is the host:port of the storage server.
	// Example: "localhost:9000" for local MinIO.
	Endpoint string

	// AccessKey is the access key ID (MinIO / S3 style).
	AccessKey string

	// SecretKey is the secret access key.
	SecretKey string

	// UseSSL controls whether TLS is used for the connection.
	UseSSL bool

	// Region is used by region-aware backends (e.g. AWS S3).
	// Setting it also skips the bucket location lookup.
	Region string

	// Bucket receives exported results.
	Bucket string
}

// DefaultConfig returns a sensible local-dev config for MinIO.
func DefaultConfig(endpoint, accessKey, secretKey, bucket string) *Config {
	return &Config{
		Provider:  ProviderMinIO,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		Region:    "us-east-1",
		Bucket:    bucket,
	}
}
