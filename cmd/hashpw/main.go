// Command hashpw prints the bcrypt hash to put in ADMIN_PASSWORD_HASH.
//
//	go run ./cmd/hashpw 's3cret'
//	echo 's3cret' | go run ./cmd/hashpw
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/cinema-management-api/internal/utils"
)

func main() {
	_ = godotenv.Load()

	var plain string
	if len(os.Args) > 1 {
		plain = os.Args[1]
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			log.Fatalf("read password: %v", err)
		}
		plain = strings.TrimRight(line, "\r\n")
	}
	if plain == "" {
		log.Fatal("empty password")
	}

	cost := 12
	if v, err := strconv.Atoi(os.Getenv("BCRYPT_COST")); err == nil {
		cost = v
	}
	hash, err := utils.HashPassword(plain, cost)
	if err != nil {
		log.Fatalf("hash: %v", err)
	}
	fmt.Println(hash)
}
