package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"resumegenius/internal/config"
	"resumegenius/internal/database"
	"resumegenius/internal/payment"
)

// 运营工具：为指定用户手工授予订阅（客服补偿、内部测试），或查看订阅台账。
func main() {
	var (
		email   = flag.String("email", "", "用户邮箱（必填）")
		action  = flag.String("action", "inspect", "操作：inspect 或 grant")
		plan    = flag.String("plan", "Starter", "grant 时使用的套餐名")
		dbHost  = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort  = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName  = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser  = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass  = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		sslMode = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	target := strings.ToLower(strings.TrimSpace(*email))
	if target == "" {
		log.Fatal("missing required flag: --email")
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	var user database.User
	if err := db.Where("email = ?", target).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Fatalf("user %q not found", target)
		}
		log.Fatalf("query user: %v", err)
	}

	switch strings.ToLower(strings.TrimSpace(*action)) {
	case "inspect":
		inspect(db, user)
	case "grant":
		grant(db, user, *plan)
	default:
		log.Fatalf("unknown action %q (want inspect or grant)", *action)
	}
}

func inspect(db *gorm.DB, user database.User) {
	var subs []database.Subscription
	if err := db.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&subs).Error; err != nil {
		log.Fatalf("list subscriptions: %v", err)
	}

	fmt.Printf("用户 #%d %s，共 %d 条订阅记录：\n", user.ID, user.Email, len(subs))
	for _, sub := range subs {
		fmt.Printf("  #%d plan=%s status=%s remaining=%d order=%s end=%s\n",
			sub.ID, sub.PlanName, sub.Status, sub.ResumesRemaining,
			sub.RazorpayOrderID, sub.EndDate.Format("2006-01-02"),
		)
	}
}

func grant(db *gorm.DB, user database.User, planName string) {
	plan, ok := payment.PlanByName(strings.TrimSpace(planName))
	if !ok {
		log.Fatalf("unknown plan %q", planName)
	}

	var active database.Subscription
	switch err := db.Where("user_id = ? AND status = ?", user.ID, database.SubscriptionStatusActive).
		First(&active).Error; {
	case err == nil:
		log.Fatalf("user already has active subscription #%d", active.ID)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		log.Fatalf("query active subscription: %v", err)
	}

	now := time.Now()
	sub := database.Subscription{
		UserID:           user.ID,
		PlanName:         plan.Name,
		Status:           database.SubscriptionStatusActive,
		ResumesRemaining: plan.ResumesPerDay,
		StartDate:        now,
		EndDate:          now.Add(30 * 24 * time.Hour),
		RazorpayOrderID:  "admin_" + uuid.NewString(),
	}
	if err := db.Create(&sub).Error; err != nil {
		log.Fatalf("create subscription: %v", err)
	}

	fmt.Printf("已为用户 #%d %s 授予 %s 订阅（配额 %d，订阅 #%d）。\n",
		user.ID, user.Email, plan.Name, plan.ResumesPerDay, sub.ID)
}

func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	if strings.TrimSpace(host) == "" {
		host = os.Getenv("DATABASE_HOST")
	}
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("POSTGRES_DB")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("POSTGRES_USER")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("POSTGRES_PASSWORD")
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = os.Getenv("DATABASE_SSLMODE")
	}

	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = 5432
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = "disable"
	}
	if strings.TrimSpace(name) == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if strings.TrimSpace(user) == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if strings.TrimSpace(password) == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}
