// Command admin-user creates an admin account or resets an existing one's
// password, email and role.
//
//	admin-user -username office@seiflawfirm.com -password '...'
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/seiflawfirm/site/libs/auth"
	"github.com/seiflawfirm/site/libs/config"
	"github.com/seiflawfirm/site/libs/db"
	"github.com/seiflawfirm/site/services/site-service/internal/storage"
)

const minPasswordLength = 8

type adminUpserter interface {
	Upsert(ctx context.Context, username, email, passwordHash, role string) (string, bool, error)
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fatal(err.Error())
	}
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		fatal(err.Error())
	}
	ctx := context.Background()
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: 1})
	if err != nil {
		fatal(err.Error())
	}
	defer pool.Close()

	if err := run(ctx, storage.NewAdminRepository(pool), os.Args[1:], os.Stdout); err != nil {
		pool.Close()
		fatal(err.Error())
	}
}

func run(ctx context.Context, admins adminUpserter, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("admin-user", flag.ContinueOnError)
	fs.SetOutput(out)
	var (
		username = fs.String("username", config.String("ADMIN_USERNAME", ""), "login name")
		password = fs.String("password", config.String("ADMIN_PASSWORD", ""), "new password")
		email    = fs.String("email", config.String("ADMIN_EMAIL", ""), "contact email; defaults to the username when it is an address")
		role     = fs.String("role", config.String("ADMIN_ROLE", "admin"), "role claim")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	name := strings.TrimSpace(*username)
	if name == "" {
		return errors.New("username is required")
	}
	if len(*password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	addr := strings.TrimSpace(*email)
	if addr == "" && strings.Contains(name, "@") {
		addr = name
	}
	if addr == "" {
		return errors.New("email is required")
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		return err
	}
	id, inserted, err := admins.Upsert(ctx, name, addr, hash, strings.TrimSpace(*role))
	if err != nil {
		return fmt.Errorf("save admin: %w", err)
	}
	if inserted {
		fmt.Fprintf(out, "created admin %s (%s)\n", name, id)
	} else {
		fmt.Fprintf(out, "reset password for admin %s (%s)\n", name, id)
	}
	return nil
}

func fatal(msg string) {
	_, _ = os.Stderr.WriteString(msg + "\n")
	os.Exit(1)
}
