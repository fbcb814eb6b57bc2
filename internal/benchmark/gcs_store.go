package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const gcsTimeout = 30 * time.Second

// GCSStore keeps the JSON history as a single Cloud Storage object. Writes are
// conditional on the generation that was read, so two concurrent saves cannot
// silently drop a record.
type GCSStore struct {
	client *storage.Client
	bucket string
	object string
}

// ParseGCSURL splits gs://bucket/path/to/object.
func ParseGCSURL(raw string) (bucket, object string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid gcs url %q: %w", raw, err)
	}
	object = strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "gs" || u.Host == "" || object == "" {
		return "", "", fmt.Errorf("invalid gcs url %q: want gs://bucket/object", raw)
	}
	return u.Host, object, nil
}

// NewGCSStore opens a client using application default credentials.
func NewGCSStore(ctx context.Context, rawURL string, opts ...option.ClientOption) (*GCSStore, error) {
	bucket, object, err := ParseGCSURL(rawURL)
	if err != nil {
		return nil, err
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gcs client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, object: object}, nil
}

func (s *GCSStore) handle() *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.object)
}

// read returns the stored records and the generation they were read at; 0 means
// the object does not exist yet.
func (s *GCSStore) read(ctx context.Context) ([]Record, int64, error) {
	r, err := s.handle().NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return []Record{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open gs://%s/%s: %w", s.bucket, s.object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read gs://%s/%s: %w", s.bucket, s.object, err)
	}
	records, err := decodeRecords(data)
	if err != nil {
		return nil, 0, err
	}
	return records, r.Attrs.Generation, nil
}

func (s *GCSStore) Save(rec Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), gcsTimeout)
	defer cancel()

	records, gen, err := s.read(ctx)
	if err != nil {
		return err
	}
	data, err := encodeRecords(append(records, rec))
	if err != nil {
		return err
	}

	cond := storage.Conditions{DoesNotExist: true}
	if gen != 0 {
		cond = storage.Conditions{GenerationMatch: gen}
	}
	w := s.handle().If(cond).NewWriter(ctx)
	w.ContentType = "application/json"
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to write gs://%s/%s: %w", s.bucket, s.object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to write gs://%s/%s: %w", s.bucket, s.object, err)
	}
	return nil
}

func (s *GCSStore) LoadAll() ([]Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), gcsTimeout)
	defer cancel()
	records, _, err := s.read(ctx)
	return records, err
}

func (s *GCSStore) LoadLatest() (*Record, error) {
	return latest(s)
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
