package main

import (
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"rollcall.net.au/rollcall/web/middlewares"
)

func main() {
	subject := flag.String("subject", "ops", "token subject")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	secret, err := base64.StdEncoding.DecodeString(os.Getenv("ROLLCALL_SIGNING_SECRET"))
	if err != nil || len(secret) == 0 {
		log.Fatal("ROLLCALL_SIGNING_SECRET must be set to a base64 secret")
	}

	token, err := middlewares.CreateJWT(*subject, secret, *ttl)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(token)
}
