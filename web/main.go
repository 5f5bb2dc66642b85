package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"rollcall.net.au/rollcall/core"
	"rollcall.net.au/rollcall/infrastructure/communication"
	"rollcall.net.au/rollcall/infrastructure/devops"
	"rollcall.net.au/rollcall/infrastructure/filesystem"
	"rollcall.net.au/rollcall/web/handlers/admin"
	"rollcall.net.au/rollcall/web/handlers/device"
	"rollcall.net.au/rollcall/web/middlewares"
)

func main() {
	ctx := context.Background()

	cfg, err := devops.Load(ctx)
	if err != nil {
		log.Fatal(err)
	}

	dm, err := core.New(cfg.DSN, 10)
	if err != nil {
		log.Fatal(err)
	}
	defer dm.Close()
	store := core.NewStore(dm)

	r := gin.Default()
	if !cfg.TrustProxies {
		r.SetTrustedProxies(nil)
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	var notify device.Notifier
	if os.Getenv("SLACK_BOT_TOKEN") != "" {
		notify = communication.ConnectSlack()
	}

	var archive device.ArchiveFunc
	if cfg.EvidenceBucket != "" {
		bucket := cfg.EvidenceBucket
		archive = func(ctx context.Context, rec *core.RawInboundRecord) {
			key := device.EvidenceKey(rec)
			if err := filesystem.WriteFile(bucket, key, ctx, strings.NewReader(rec.Body)); err != nil {
				log.Printf("evidence mirror failed for %s: %v", key, err)
			}
		}
	}

	ingest := device.NewEndpoint(store, cfg, notify, archive)
	device.Register(r, ingest)

	protected := r.Group("/api/v1.0")
	protected.Use(middlewares.Authentication(cfg.JWTSecret))
	admin.Register(protected, store, ingest)

	r.Run(cfg.ListenAddr)
}
