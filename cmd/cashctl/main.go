// cashctl 是維運用的命令列工具：
//
//	cashctl seed                       建立示範使用者與收支資料 (可重複執行)
//	cashctl set-role <email> <ADMIN|USER>
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"cashflow/internal/config"
	"cashflow/internal/database"
	"cashflow/internal/logging"
	"cashflow/internal/model"
	"cashflow/internal/store"

	"github.com/shopspring/decimal"
)

const usage = `usage:
  cashctl seed
  cashctl set-role <email> <ADMIN|USER>`

var errUsage = errors.New(usage)

var (
	loadConfig         = config.LoadCLI
	newPgxPool         = database.NewPgxPool
	runMigrationsFn    = database.RunMigrations
	upsertUser         = store.UpsertUser
	listAllMovements   = store.ListAllMovements
	createMovement     = store.CreateMovement
	setUserRoleByEmail = store.SetUserRoleByEmail
	exitFunc           = os.Exit

	stdout io.Writer = os.Stdout
)

type sampleMovement struct {
	concept     string
	amount      string
	date        string
	typ         model.MovementType
	category    string
	description string
}

var sampleMovements = []sampleMovement{
	{"Product A sale", "500000", "2024-01-15", model.MovementIncome, "sales", "First sale of January"},
	{"Office supplies", "150000", "2024-01-10", model.MovementExpense, "supplies", "Production materials"},
	{"Professional services", "1200000", "2024-01-20", model.MovementIncome, "services", "Systems consulting"},
	{"Office rent", "800000", "2024-01-05", model.MovementExpense, "rent", "Monthly office rent"},
	{"Software license sale", "2500000", "2024-01-25", model.MovementIncome, "software", "Annual enterprise license"},
	{"Marketing spend", "350000", "2024-01-12", model.MovementExpense, "marketing", "Social media campaign"},
}

// seed 以 email 與 concept+date 判斷是否已存在，重複執行不會產生重複資料
func seed(ctx context.Context, db database.DB) error {
	admin, err := upsertUser(ctx, db, "Admin User", "admin@test.com", model.RoleAdmin)
	if err != nil {
		return err
	}
	user, err := upsertUser(ctx, db, "Regular User", "user@test.com", model.RoleUser)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "users: %s (id %d), %s (id %d)\n", admin.Email, admin.ID, user.Email, user.ID)

	created := 0
	for _, s := range sampleMovements {
		date, err := time.Parse("2006-01-02", s.date)
		if err != nil {
			return err
		}
		existing, err := listAllMovements(ctx, db, model.MovementFilter{Search: s.concept, From: &date, To: &date})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}
		category, description := s.category, s.description
		if _, err := createMovement(ctx, db, &model.Movement{
			Concept:     s.concept,
			Amount:      decimal.RequireFromString(s.amount),
			Date:        date,
			Type:        s.typ,
			Category:    &category,
			Description: &description,
			UserID:      admin.ID,
		}); err != nil {
			return err
		}
		created++
	}
	fmt.Fprintf(stdout, "movements: %d created, %d already present\n", created, len(sampleMovements)-created)
	return nil
}

func setRole(ctx context.Context, db database.DB, email, role string) error {
	r := model.Role(strings.ToUpper(role))
	if !r.Valid() {
		return fmt.Errorf("invalid role %q: use ADMIN or USER", role)
	}
	if err := setUserRoleByEmail(ctx, db, email, r); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("user %s not found", email)
		}
		return err
	}
	fmt.Fprintf(stdout, "%s is now %s\n", email, r)
	return nil
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	switch {
	case args[0] == "seed" && len(args) == 1:
	case args[0] == "set-role" && len(args) == 3:
	default:
		return errUsage
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("設定載入失敗: %w", err)
	}
	logging.Setup(cfg.LogLevel)

	if err := runMigrationsFn(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("Migration 執行失敗: %w", err)
	}
	db, err := newPgxPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("DB 連線失敗: %w", err)
	}
	defer db.Close()

	if args[0] == "seed" {
		return seed(ctx, db)
	}
	return setRole(ctx, db, args[1], args[2])
}

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		slog.Error("cashctl failed", "error", err)
		exitFunc(1)
	}
}
