package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"justice_flow_go/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const defaultContentType = "application/octet-stream"

// StorageProvider keeps the binary artifacts of the platform: evidence exhibits,
// complaint receipts and generated reports. Keys are slash separated and relative.
type StorageProvider interface {
	UploadReader(ctx context.Context, reader io.Reader, key string, contentType string, size int64) (*StoredObject, error)
	// Get returns the object and its content type; a missing key is ErrNotFound
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// StoredObject describes an object after upload
type StoredObject struct {
	Key         string
	Size        int64
	ContentType string
}

// Storage is the global storage instance
var Storage StorageProvider

// InitializeStorage picks the object store when R2 credentials are present and
// reachable, and the local vault directory otherwise
func InitializeStorage(cfg *config.Config) {
	if !cfg.HasObjectStorage() {
		Storage = NewLocalStorage(cfg.UploadDir)
		log.Printf("[STORAGE] Local vault at %s", cfg.UploadDir)
		return
	}

	store, err := NewR2Storage(cfg)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = store.ping(ctx)
		cancel()
	}
	if err != nil {
		log.Warnf("[STORAGE] Object storage unavailable (%v), falling back to local vault at %s", err, cfg.UploadDir)
		Storage = NewLocalStorage(cfg.UploadDir)
		return
	}

	Storage = store
	log.Printf("[STORAGE] Object storage bucket %s", cfg.R2BucketName)
}

// R2Storage stores objects in a Cloudflare R2 bucket through the S3 API
type R2Storage struct {
	client *s3.Client
	bucket string
}

// NewR2Storage creates a client for the configured R2 account
func NewR2Storage(cfg *config.Config) (*R2Storage, error) {
	creds := credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})
	return &R2Storage{client: client, bucket: cfg.R2BucketName}, nil
}

func (r *R2Storage) ping(ctx context.Context) error {
	_, err := r.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(r.bucket)})
	return err
}

// UploadReader streams reader into the bucket under key
func (r *R2Storage) UploadReader(ctx context.Context, reader io.Reader, key string, contentType string, size int64) (*StoredObject, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = defaultContentType
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          reader,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return &StoredObject{Key: key, Size: size, ContentType: contentType}, nil
}

// Get opens an object from the bucket
func (r *R2Storage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, "", err
	}

	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, "", NotFound("stored object %s not found", key)
		}
		return nil, "", fmt.Errorf("failed to read %s: %w", key, err)
	}

	contentType := defaultContentType
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return out.Body, contentType, nil
}

// Delete removes an object; deleting a missing key is not an error
func (r *R2Storage) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if _, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// LocalStorage keeps objects under a directory on the local filesystem.
// Files are private to the service user and written atomically.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a vault rooted at baseDir
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{baseDir: baseDir}
}

func (l *LocalStorage) path(key string) (string, string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	return key, filepath.Join(l.baseDir, filepath.FromSlash(key)), nil
}

// UploadReader writes reader to a temporary file next to the target and renames it into place
func (l *LocalStorage) UploadReader(ctx context.Context, reader io.Reader, key string, contentType string, size int64) (*StoredObject, error) {
	key, fullPath, err := l.path(key)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = defaultContentType
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, reader)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o640); err != nil {
		return nil, fmt.Errorf("failed to protect file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return nil, fmt.Errorf("failed to move file into place: %w", err)
	}

	return &StoredObject{Key: key, Size: written, ContentType: contentType}, nil
}

// Get opens a stored file; the content type is derived from its extension
func (l *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	_, fullPath, err := l.path(key)
	if err != nil {
		return nil, "", err
	}
	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", NotFound("stored object %s not found", key)
		}
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(fullPath)))
	if contentType == "" {
		contentType = defaultContentType
	}
	return file, contentType, nil
}

// Delete removes a stored file; deleting a missing key is not an error
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	_, fullPath, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// cleanKey normalizes a key and refuses anything that would escape the vault
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || cleaned != strings.TrimPrefix(key, "/") {
		return "", Validation("invalid storage key %q", key)
	}
	return cleaned, nil
}

// objectKey builds a unique key under prefix, keeping only a safe extension of the original name
func objectKey(prefix, originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(originalFilename))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return path.Join(prefix, uuid.New().String()+ext)
}

// GenerateEvidenceKey creates a storage key for an evidence exhibit file
func GenerateEvidenceKey(caseID, originalFilename string) string {
	return objectKey(path.Join("cases", caseID, "evidence"), originalFilename)
}

// GenerateReceiptKey creates the storage key of a complaint's PDF receipt
func GenerateReceiptKey(complaintID string) string {
	return path.Join("complaints", complaintID, "receipt.pdf")
}

// GenerateReportKey creates the storage key of a generated spreadsheet report
func GenerateReportKey(name string, at time.Time) string {
	return path.Join("reports", at.Format("2006"), name+"-"+at.Format("20060102")+".xlsx")
}
