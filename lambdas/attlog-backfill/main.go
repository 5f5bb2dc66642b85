// attlog-backfill replays archived ATTLOG bodies from the evidence
// bucket through the regular ingestion pipeline. It is deployed as an
// S3-event lambda; with BACKFILL_PREFIX set it instead walks the
// bucket once and exits, for manual re-ingestion after an incident.
package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"rollcall.net.au/rollcall/core"
	"rollcall.net.au/rollcall/iclock"
	"rollcall.net.au/rollcall/infrastructure/devops"
	"rollcall.net.au/rollcall/infrastructure/filesystem"
	"rollcall.net.au/rollcall/lambdas/attlog-backfill/helper"
	"rollcall.net.au/rollcall/web/handlers/device"
)

var (
	store  *core.Store
	ingest *device.Endpoint
)

func main() {
	ctx := context.Background()

	cfg, err := devops.Load(ctx)
	if err != nil {
		log.Fatal(err)
	}

	dm, err := core.New(cfg.DSN, 2)
	if err != nil {
		log.Fatal(err)
	}
	defer dm.Close()

	store = core.NewStore(dm)
	ingest = device.NewEndpoint(store, cfg, nil, nil)

	if prefix := os.Getenv("BACKFILL_PREFIX"); prefix != "" {
		keys, err := filesystem.ListFiles(cfg.EvidenceBucket, prefix, ctx)
		if err != nil {
			log.Fatal(err)
		}
		for _, key := range keys {
			if err := processKey(ctx, cfg.EvidenceBucket, key); err != nil {
				log.Printf("backfill: %s: %v", key, err)
			}
		}
		return
	}

	lambda.Start(handleS3Event)
}

func handleS3Event(ctx context.Context, event events.S3Event) error {
	for _, record := range event.Records {
		if err := processKey(ctx, record.S3.Bucket.Name, record.S3.Object.Key); err != nil {
			// One bad object must not poison the rest of the event.
			log.Printf("backfill: %s: %v", record.S3.Object.Key, err)
		}
	}
	return nil
}

func processKey(ctx context.Context, bucket string, key string) error {
	serial, err := helper.SerialFromKey(key)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	if err := filesystem.ReadFile(bucket, key, ctx, &body); err != nil {
		return err
	}

	dev, err := store.FindDeviceBySerial(ctx, serial)
	if err != nil {
		return err
	}
	if dev == nil {
		return fmt.Errorf("no active device with serial %q", serial)
	}

	ingest.ProcessAttlog(ctx, dev, serial, iclock.TableAttlog, body.String())
	return nil
}
