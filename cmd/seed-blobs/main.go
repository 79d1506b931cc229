// Command seed-blobs uploads generated JSON record blobs to S3 and can
// trigger an ingestion invocation for each one. Meant for local demo and
// load testing against a running sluice service.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/okian/sluice/internal/adapters/blob"
	"github.com/okian/sluice/internal/domain/record"
)

var (
	bucket      = flag.String("bucket", "", "target S3 bucket (required)")
	prefix      = flag.String("prefix", "seed/", "object key prefix")
	blobCount   = flag.Int("blobs", 5, "number of blobs to upload")
	recordCount = flag.Int("records", 100, "records per blob")
	invalidRate = flag.Float64("invalid-rate", 0.0, "fraction of records without a key field")
	region      = flag.String("region", "us-east-1", "AWS region")
	endpoint    = flag.String("endpoint", "", "AWS endpoint override for local stacks")
	serviceURL  = flag.String("service-url", "", "sluice base URL; when set, POST /invocations per blob")
)

func main() {
	flag.Parse()
	if *bucket == "" {
		log.Fatal("bucket is required. Use -bucket flag")
	}

	gofakeit.Seed(time.Now().UnixNano())
	ctx := context.Background()

	source, err := buildSource(ctx)
	if err != nil {
		log.Fatalf("build S3 client: %v", err)
	}
	client := &http.Client{Timeout: 30 * time.Second}

	for i := 0; i < *blobCount; i++ {
		key := fmt.Sprintf("%s%s.json", *prefix, uuid.NewString())
		data, err := json.Marshal(generateRecords(*recordCount, *invalidRate))
		if err != nil {
			log.Fatalf("marshal records: %v", err)
		}
		if err := source.Put(ctx, blob.Ref{Bucket: *bucket, Key: key}, data); err != nil {
			log.Fatalf("upload %s: %v", key, err)
		}
		log.Printf("uploaded s3://%s/%s (%d records, %d bytes)", *bucket, key, *recordCount, len(data))

		if *serviceURL != "" {
			if err := trigger(ctx, client, *serviceURL, *bucket, key); err != nil {
				log.Printf("trigger %s: %v", key, err)
			}
		}
	}
}

func buildSource(ctx context.Context) (*blob.S3Source, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(*region),
	}
	if *endpoint != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("local", "local", ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if *endpoint != "" {
			o.BaseEndpoint = aws.String(*endpoint)
			o.UsePathStyle = true
		}
	})
	return blob.NewS3Source(client), nil
}

// generateRecords builds records with a high-precision amount so precision
// preservation is visible end to end.
func generateRecords(n int, invalids float64) []record.Record {
	records := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		r := record.Record{
			"id":     uuid.NewString(),
			"name":   gofakeit.Name(),
			"email":  gofakeit.Email(),
			"city":   gofakeit.City(),
			"active": gofakeit.Bool(),
			"amount": json.Number(fmt.Sprintf("%d.%012d", gofakeit.Number(1, 99999), gofakeit.Number(0, 999999999999))),
			"tags":   []any{gofakeit.Word(), gofakeit.Word()},
		}
		if rand.Float64() < invalids {
			delete(r, "id")
		}
		records = append(records, r)
	}
	return records
}

func trigger(ctx context.Context, client *http.Client, baseURL, bucket, key string) error {
	body, err := json.Marshal(map[string]string{"bucket": bucket, "key": key})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/invocations", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	log.Printf("invocation status=%d result=%v", resp.StatusCode, result["message"])
	return nil
}
