// Command token issues an access token for a device or an operator, signed
// with the server's JWT secret. Sign-in is handled outside this service.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/config"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/auth"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/domain/user"
	"github.com/zeenabfoods/zeenab-appraisal-compass-sub003/internal/pkg/jwt"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("Token not issued", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet("token", flag.ContinueOnError)
	userID := flags.String("user", "", "user id")
	employeeID := flags.String("employee", "", "employee id")
	companyID := flags.String("company", "", "company id")
	role := flags.String("role", string(user.RoleEmployee), "owner, manager or employee")
	ttl := flags.String("ttl", "", "lifetime, defaults to JWT_ACCESS_EXPIRATION_TIME")
	if err := flags.Parse(args); err != nil {
		return err
	}

	identity := auth.Identity{
		UserID:     *userID,
		EmployeeID: *employeeID,
		CompanyID:  *companyID,
		Role:       user.Role(*role),
	}
	if identity.UserID == "" {
		return errors.New("-user is required")
	}
	if !identity.Role.IsValid() {
		return fmt.Errorf("invalid role %q", *role)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	expiration := cfg.JWT.AccessExpiration
	if *ttl != "" {
		expiration = *ttl
	}

	token, expiresAt, err := jwt.NewJWTService(cfg.JWT.Secret, expiration).GenerateAccessToken(identity)
	if err != nil {
		return err
	}

	fmt.Println(token)
	slog.Info("Token issued",
		"user_id", identity.UserID,
		"role", identity.Role,
		"expires_at", time.Unix(expiresAt, 0).UTC().Format(time.RFC3339),
	)
	return nil
}
