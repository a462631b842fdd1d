package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/foundry-iot/telemetry-ingest/internal/secrets"
	"github.com/foundry-iot/telemetry-ingest/pkg/types"
)

// ColdStore archives readings (and, on partial failure, error markers)
// as JSON objects in an S3-compatible bucket (spec.md 4.5 "Cold tier").
type ColdStore struct {
	client *s3.Client
	keys   secrets.KeyStore
}

// NewColdStore constructs a ColdStore. keys may be nil, in which case
// objects are written unencrypted beyond whatever default bucket
// policy applies — a tenant only gets SSE-C when both keys is set and
// its object_config.encryption_key_ref is non-empty.
func NewColdStore(client *s3.Client, keys secrets.KeyStore) *ColdStore {
	return &ColdStore{client: client, keys: keys}
}

// coldRecord is the JSON body written to every cold-tier object.
type coldRecord struct {
	Reading         types.SensorReading `json:"reading"`
	ArchivedAt      string              `json:"archived_at"`
	ProcessingFailed bool               `json:"processing_failed,omitempty"`
}

// Archive writes the reading at the standard key layout (spec.md 4.5):
// isolated tenants get <facility>/<equipment>/<Y>/<M>/<D>/<H>/<ts>.json
// rooted at their dedicated bucket; shared tenants get the same path
// rooted at tenants/<tenant_id>/ in the shared bucket. When target
// carries an EncryptionKeyRef, the object is written with SSE-C using
// that tenant's resolved key.
func (c *ColdStore) Archive(ctx context.Context, target types.ObjectTarget, r types.SensorReading) (string, error) {
	key := target.Prefix + objectKey(r)
	body, err := json.Marshal(coldRecord{Reading: r, ArchivedAt: time.Now().UTC().Format(time.RFC3339)})
	if err != nil {
		return "", fmt.Errorf("storage: marshal cold tier record: %w", err)
	}
	if err := c.put(ctx, target, key, body, r); err != nil {
		return "", err
	}
	return key, nil
}

// ArchiveError writes the raw reading to the error location with a
// processing_failed marker, per spec.md 4.5 "Partial failure policy".
func (c *ColdStore) ArchiveError(ctx context.Context, target types.ObjectTarget, r types.SensorReading) (string, error) {
	key := target.Prefix + "errors/" + fmt.Sprintf("%s-%d.json", r.EquipmentID, time.Now().UnixMilli())
	body, err := json.Marshal(coldRecord{Reading: r, ArchivedAt: time.Now().UTC().Format(time.RFC3339), ProcessingFailed: true})
	if err != nil {
		return "", fmt.Errorf("storage: marshal cold tier error record: %w", err)
	}
	if err := c.put(ctx, target, key, body, r); err != nil {
		return "", err
	}
	return key, nil
}

func (c *ColdStore) put(ctx context.Context, target types.ObjectTarget, key string, body []byte, r types.SensorReading) error {
	input := &s3.PutObjectInput{
		Bucket:      &target.Bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: strPtr("application/json"),
		Metadata: map[string]string{
			"equipment_id": r.EquipmentID,
			"tenant_id":    r.TenantID,
			"sensor_type":  "multi",
			"archived_at":  time.Now().UTC().Format(time.RFC3339),
		},
	}

	if target.EncryptionKeyRef != "" && c.keys != nil {
		sseKey, sseKeyMD5, err := c.resolveSSECKey(ctx, target.EncryptionKeyRef)
		if err != nil {
			return fmt.Errorf("storage: resolve encryption key %q: %w", target.EncryptionKeyRef, err)
		}
		input.SSECustomerAlgorithm = strPtr("AES256")
		input.SSECustomerKey = &sseKey
		input.SSECustomerKeyMD5 = &sseKeyMD5
	}

	if _, err := c.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("storage: put cold tier object %q: %w", key, err)
	}
	return nil
}

// resolveSSECKey resolves ref to base64-encoded key material via the
// keystore and derives the MD5 digest S3 requires alongside an SSE-C
// request (the digest is computed over the raw key bytes, not the
// base64 form).
func (c *ColdStore) resolveSSECKey(ctx context.Context, ref string) (key, keyMD5 string, err error) {
	material, err := c.keys.Resolve(ctx, ref)
	if err != nil {
		return "", "", err
	}
	raw, err := base64.StdEncoding.DecodeString(material)
	if err != nil {
		return "", "", fmt.Errorf("decode key material: %w", err)
	}
	sum := md5.Sum(raw)
	return material, base64.StdEncoding.EncodeToString(sum[:]), nil
}

// ListKeys implements the Query Surface's "historical keys" operation
// (spec.md 4.8): object keys only, no bodies, for one equipment within
// [start, end]. Listing is rooted at prefix (empty for a dedicated
// bucket, tenants/<id>/ in shared mode) and filtered by equipment_id
// and the key's embedded date path, since the layout in objectKey does
// not support a native date-range list.
func (c *ColdStore) ListKeys(ctx context.Context, bucket, prefix, equipmentID string, start, end time.Time) ([]string, error) {
	var keys []string
	var continuationToken *string
	for {
		out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &bucket,
			Prefix:            &prefix,
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("storage: list cold tier keys under %q: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			if obj.Key == nil {
				continue
			}
			key := *obj.Key
			if !strings.Contains(key, "/"+equipmentID+"/") {
				continue
			}
			if within, ok := keyWithinRange(key, start, end); ok && !within {
				continue
			}
			keys = append(keys, key)
		}
		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuationToken = out.NextContinuationToken
	}
	return keys, nil
}

// keyWithinRange parses the <Y>/<M>/<D>/<H>/ path segment embedded by
// objectKey and reports whether it falls within [start, end]. The
// second return is false when the key does not match the expected
// layout, in which case the caller keeps it.
func keyWithinRange(key string, start, end time.Time) (bool, bool) {
	parts := strings.Split(key, "/")
	if len(parts) < 5 {
		return false, false
	}
	datePart := parts[len(parts)-5 : len(parts)-1]
	t, err := time.Parse("2006/1/2/15", strings.Join(datePart, "/"))
	if err != nil {
		return false, false
	}
	return !t.Before(start) && !t.After(end), true
}

func objectKey(r types.SensorReading) string {
	t := r.Timestamp.UTC()
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%02d/%s.json",
		r.FacilityID, r.EquipmentID, t.Year(), t.Month(), t.Day(), t.Hour(),
		t.Format("20060102T150405Z0700"),
	)
}

func strPtr(s string) *string { return &s }
