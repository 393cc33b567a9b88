// Command kiosktoken mints the bearer token a kiosk device presents to the
// check-in API. The signing secret is KIOSK_JWT_SECRET from the server config.
//
//	kiosktoken -device lobby-1 -ttl 720h
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"enaya/config"
	"enaya/utils"
)

func mint(device, secret string, ttl time.Duration) (string, error) {
	switch {
	case strings.TrimSpace(device) == "":
		return "", errors.New("-device is required")
	case ttl <= 0:
		return "", errors.New("-ttl must be positive")
	case secret == "":
		return "", errors.New("KIOSK_JWT_SECRET is not set; kiosk auth is disabled")
	}
	return utils.GenerateKioskToken(device, secret, ttl)
}

func main() {
	var device string
	var ttl time.Duration

	flag.StringVar(&device, "device", "", "Kiosk device id (token subject)")
	flag.DurationVar(&ttl, "ttl", 30*24*time.Hour, "Token lifetime")
	flag.Parse()

	config.LoadConfig()
	token, err := mint(device, config.AppConfig.KioskJWTSecret, ttl)
	if err != nil {
		log.Fatalf("kiosktoken: %v", err)
	}
	fmt.Println(token)
}
