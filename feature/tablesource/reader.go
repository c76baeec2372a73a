package tablesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"docsync/core/storage"
	syncengine "docsync/core/sync"
	"docsync/core/value"
)

// Config holds the source reader options.
type Config struct {
	// Prefix is the object key prefix under which tables live.
	Prefix string `mapstructure:"prefix" default:"tables"`
	// PrimaryKeyField names the record field carrying the logical key.
	PrimaryKeyField string `mapstructure:"primary_key_field" default:"id"`
	// DatetimeFields is a comma-separated list of fields normalized to
	// RFC 3339 UTC strings during coercion.
	DatetimeFields string `mapstructure:"datetime_fields" default:""`
	// CacheTTLSeconds is how long fetched snapshots stay cached. Zero
	// disables caching.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" default:"0"`
}

// Reader fetches table snapshots from object storage. It implements
// sync.Reader.
type Reader struct {
	client   storage.Client
	bucket   string
	cfg      Config
	datetime map[string]struct{}
	log      *zap.Logger
}

// NewReader creates a reader over the given bucket.
func NewReader(client storage.Client, bucket string, cfg Config, log *zap.Logger) *Reader {
	datetime := make(map[string]struct{})
	for _, f := range strings.Split(cfg.DatetimeFields, ",") {
		f = strings.TrimSpace(f)
		if f != "" {
			datetime[f] = struct{}{}
		}
	}
	return &Reader{
		client:   client,
		bucket:   bucket,
		cfg:      cfg,
		datetime: datetime,
		log:      log,
	}
}

// Fetch materializes the full snapshot of a table. Pages are read in object
// name order so page-file naming controls record order; the snapshot is only
// returned once every page decoded cleanly.
func (r *Reader) Fetch(ctx context.Context, table string) ([]syncengine.SourceRecord, error) {
	if table == "" {
		return nil, fmt.Errorf("table name must not be empty")
	}

	prefix := path.Join(r.cfg.Prefix, table) + "/"
	var pages []string
	for obj := range r.client.ListObjects(ctx, r.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list table pages under %q: %w", prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, ".json") {
			pages = append(pages, obj.Key)
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("table %q has no pages under %q", table, prefix)
	}
	sort.Strings(pages)

	var records []syncengine.SourceRecord
	for _, key := range pages {
		page, err := r.readPage(ctx, key)
		if err != nil {
			return nil, err
		}
		records = append(records, page...)
	}

	r.log.Debug("table fetched",
		zap.String("table", table),
		zap.Int("pages", len(pages)),
		zap.Int("records", len(records)),
	)
	return records, nil
}

func (r *Reader) readPage(ctx context.Context, key string) ([]syncengine.SourceRecord, error) {
	obj, err := r.client.GetObject(ctx, r.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page %q: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read page %q: %w", key, err)
	}

	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode page %q: %w", key, err)
	}

	records := make([]syncengine.SourceRecord, 0, len(raw))
	for i, row := range raw {
		rec, err := r.coerce(row)
		if err != nil {
			return nil, fmt.Errorf("page %q record %d: %w", key, i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// coerce converts one decoded row into a SourceRecord: the primary key field
// is extracted as a string, datetime fields are normalized to RFC 3339 UTC
// and the remaining values pass through the canonical value model.
func (r *Reader) coerce(row map[string]any) (syncengine.SourceRecord, error) {
	fields, err := value.ObjectFromAny(row)
	if err != nil {
		return syncengine.SourceRecord{}, err
	}

	for name := range r.datetime {
		v, ok := fields[name]
		if !ok {
			continue
		}
		s, ok := v.(value.String)
		if !ok {
			continue
		}
		normalized, err := normalizeDatetime(string(s))
		if err != nil {
			return syncengine.SourceRecord{}, fmt.Errorf("field %q: %w", name, err)
		}
		fields[name] = value.String(normalized)
	}

	pk := ""
	switch v := fields[r.cfg.PrimaryKeyField].(type) {
	case value.String:
		pk = string(v)
	case value.Number:
		pk = strings.TrimSpace(fmt.Sprintf("%v", float64(v)))
	}

	return syncengine.SourceRecord{PrimaryKey: pk, Fields: fields}, nil
}

var datetimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func normalizeDatetime(s string) (string, error) {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("unrecognized datetime %q", s)
}
