// Command token mints an operator bearer token for the API.
//
//	token -operator ops@example.com [-channel 0x...]
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/notify-dapp/internal/config"
	jwtinfra "github.com/notify-dapp/internal/infrastructure/jwt"
	"github.com/notify-dapp/internal/pkg/validate"
)

func main() {
	operator := flag.String("operator", "", "operator name recorded in the token")
	channel := flag.String("channel", "", "restrict the token to one channel address")
	flag.Parse()

	if *operator == "" {
		log.Fatal("-operator is required")
	}
	if *channel != "" && !validate.Address(*channel) {
		log.Fatalf("-channel %q is not an address", *channel)
	}

	_ = godotenv.Load()
	p, err := jwtinfra.NewProvider(config.Load())
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}
	tok, err := p.Sign(*operator, *channel)
	if err != nil {
		log.Fatalf("sign: %v", err)
	}
	fmt.Println(tok)
}
