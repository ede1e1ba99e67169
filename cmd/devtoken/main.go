// Package main mints a staff bearer token for local development.  Tokens
// are signed with JWT_SECRET from the environment or a .env file.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/iliyamo/checkin-facility/internal/config"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/utils"
)

func main() {
	var staffID, deviceID, role string
	var ttl time.Duration
	flag.StringVar(&staffID, "staff", "", "staff id (token subject)")
	flag.StringVar(&deviceID, "device", "", "device id")
	flag.StringVar(&role, "role", string(model.RoleStaff), "staff or admin")
	flag.DurationVar(&ttl, "ttl", 0, "token lifetime (default: STAFF_SESSION_TTL_SECONDS)")
	flag.Parse()

	if staffID == "" || deviceID == "" {
		fmt.Fprintln(os.Stderr, "Error: -staff and -device are required")
		flag.Usage()
		os.Exit(2)
	}
	r := model.Role(role)
	if r != model.RoleStaff && r != model.RoleAdmin {
		fmt.Fprintf(os.Stderr, "Error: unknown role %q\n", role)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if ttl <= 0 {
		ttl = cfg.StaffSessionTTL()
	}
	tok, err := utils.NewAccessToken(cfg.JWTSecret, staffID, deviceID, r, ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
	fmt.Fprintf(os.Stderr, "expires %s\n", tok.Exp.Format(time.RFC3339))
}
