package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/qs3c/khip_server/config"
	"github.com/qs3c/khip_server/internal/database"
	"github.com/qs3c/khip_server/internal/model"
	"github.com/qs3c/khip_server/internal/repository"
)

var (
	dryRun    = flag.Bool("dry-run", true, "Dry run mode, don't actually write status changes (stop the server before writing)")
	listAll   = flag.Bool("list", false, "List all purchases")
	pending   = flag.Bool("pending", false, "List purchases waiting for a report")
	userID    = flag.String("user", "", "Only show purchases of this user")
	setStatus = flag.String("set-status", "", "Change a purchase status, format: <purchase-id>=<status>")
	reportURL = flag.String("report-url", "", "Report URL to store with -set-status")
)

func main() {
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	backend, err := openBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to open purchase store: %v", err)
	}
	repo, err := repository.NewPurchaseRepository(ctx, backend, nil,
		repository.WithStrictTransitions(cfg.Entitlement.StrictTransitions))
	if err != nil {
		log.Fatalf("Failed to load purchases: %v", err)
	}

	if *setStatus != "" {
		id, status, err := parseAssignment(*setStatus)
		if err != nil {
			log.Fatalf("Invalid -set-status: %v", err)
		}
		if err := updateStatus(ctx, repo, id, status, *reportURL, *dryRun); err != nil {
			log.Fatalf("Failed to update purchase: %v", err)
		}
		return
	}

	var purchases []*model.Purchase
	switch {
	case *pending:
		purchases = repo.GetPending()
	case *userID != "":
		purchases = repo.GetByUser(*userID)
	case *listAll:
		purchases = repo.GetAll()
	default:
		flag.Usage()
		os.Exit(2)
	}
	if *userID != "" {
		purchases = filterByUser(purchases, *userID)
	}

	printPurchases(os.Stdout, purchases)
}

// openBackend 只连接所选后端需要的存储
func openBackend(cfg *config.Config) (repository.PurchaseBackend, error) {
	var (
		db  *gorm.DB
		rdb *redis.Client
		err error
	)

	switch strings.ToLower(cfg.Store.Backend) {
	case repository.BackendGorm:
		if db, err = database.Open(&cfg.Database); err != nil {
			return nil, err
		}
	case repository.BackendRedis, "":
		if rdb, err = database.NewRedis(&cfg.Redis); err != nil {
			return nil, err
		}
	}

	return repository.NewBackendFromConfig(cfg.Store, db, rdb)
}

// parseAssignment 解析 <id>=<status>
func parseAssignment(s string) (string, model.PurchaseStatus, error) {
	id, status, ok := strings.Cut(s, "=")
	id = strings.TrimSpace(id)
	status = strings.TrimSpace(status)
	if !ok || id == "" || status == "" {
		return "", "", fmt.Errorf("expected <purchase-id>=<status>, got %q", s)
	}

	st := model.PurchaseStatus(status)
	if !st.IsValid() {
		return "", "", fmt.Errorf("unknown status %q", status)
	}
	return id, st, nil
}

type statusUpdater interface {
	GetByID(id string) (*model.Purchase, bool)
	UpdateStatus(ctx context.Context, id string, status model.PurchaseStatus, reportURL string) (*model.Purchase, error)
}

func updateStatus(ctx context.Context, repo statusUpdater, id string, status model.PurchaseStatus, url string, dryRun bool) error {
	p, ok := repo.GetByID(id)
	if !ok {
		return fmt.Errorf("purchase %s not found", id)
	}

	log.Printf("Purchase %s: %s -> %s", p.ID, p.Status, status)
	if url != "" {
		log.Printf("Report URL: %s", url)
	}

	if dryRun {
		log.Println("⚠️  DRY RUN MODE - nothing was written")
		log.Println("   Run with -dry-run=false to apply the change")
		return nil
	}

	if _, err := repo.UpdateStatus(ctx, id, status, url); err != nil {
		return err
	}
	log.Println("✅ Status updated")
	return nil
}

func filterByUser(purchases []*model.Purchase, userID string) []*model.Purchase {
	result := make([]*model.Purchase, 0, len(purchases))
	for _, p := range purchases {
		if p.UserID == userID {
			result = append(result, p)
		}
	}
	return result
}

func printPurchases(out io.Writer, purchases []*model.Purchase) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSER\tTYPE\tCOMPANY\tSTATUS\tAMOUNT\tPURCHASED")
	for _, p := range purchases {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\t%s\n",
			p.ID, p.UserID, p.Type, p.CompanyID, p.Status, p.Amount,
			p.PurchaseDate.Format(time.RFC3339))
	}
	w.Flush()
	fmt.Fprintf(out, "\nTotal: %d\n", len(purchases))
}
