package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/garka/garka-backend/config"
	"github.com/garka/garka-backend/internal/app/model"
	"github.com/garka/garka-backend/internal/app/repository"
	"github.com/garka/garka-backend/internal/db"
	"github.com/garka/garka-backend/pkg/util"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// property sheet columns
const (
	colAgentEmail = iota
	colTitle
	colState
	colCity
	colAddress
	colPrice
	colLandUse
	colLandSize
	propertyColumns
)

func main() {
	adminEmail := flag.String("admin-email", "admin@garka.ng", "email of the admin account")
	adminPassword := flag.String("admin-password", os.Getenv("SEED_ADMIN_PASSWORD"), "password for seeded accounts")
	propertiesFile := flag.String("properties", "", "optional XLSX sheet of land properties to import")
	flag.Parse()

	if *adminPassword == "" {
		log.Fatal("admin password is required (-admin-password or SEED_ADMIN_PASSWORD)")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	minimumFee := model.Amount(cfg.Commission.MinimumVerificationFee)
	if err := db.Migrate(minimumFee); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	fmt.Printf("Commission config ready (minimum fee %d)\n", minimumFee)

	ctx := context.Background()
	userRepo := repository.NewUserRepository(db.GetDB())
	profileRepo := repository.NewProfileRepository(db.GetDB())
	propertyRepo := repository.NewPropertyRepository(db.GetDB())

	admin, created, err := ensureUser(ctx, userRepo, *adminEmail, *adminPassword, model.RoleAdmin)
	if err != nil {
		log.Fatal("Failed to seed admin:", err)
	}
	if created {
		fmt.Printf("Created admin %s (id %d)\n", admin.Email, admin.ID)
	} else {
		fmt.Printf("Admin %s already exists\n", admin.Email)
	}

	if *propertiesFile == "" {
		return
	}

	fmt.Printf("Reading XLSX file: %s\n", *propertiesFile)
	rows, err := readPropertiesFromXLSX(*propertiesFile)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	agents := make(map[string]*model.Agent)
	imported := 0
	for _, row := range rows {
		agent, ok := agents[row.agentEmail]
		if !ok {
			agent, err = ensureAgent(ctx, userRepo, profileRepo, row.agentEmail, *adminPassword)
			if err != nil {
				log.Fatal("Failed to seed agent:", err)
			}
			agents[row.agentEmail] = agent
		}

		row.property.AgentID = agent.ID
		if err := propertyRepo.Create(ctx, &row.property); err != nil {
			log.Fatal("Failed to create property:", err)
		}
		imported++
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Properties imported: %d, agents: %d\n", imported, len(agents))
}

func ensureUser(ctx context.Context, repo repository.UserRepository, email, password string, role model.UserRole) (*model.User, bool, error) {
	existing, err := repo.FindByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.Split(email, "@")[0],
		Role:         role,
	}
	if err := repo.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func ensureAgent(ctx context.Context, userRepo repository.UserRepository, profileRepo repository.ProfileRepository, email, password string) (*model.Agent, error) {
	user, _, err := ensureUser(ctx, userRepo, email, password, model.RoleAgent)
	if err != nil {
		return nil, err
	}

	agent, err := profileRepo.FindAgentByUserID(ctx, user.ID)
	if err == nil {
		return agent, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	agent = &model.Agent{UserID: user.ID, Status: model.ProfileStatusApproved}
	if err := profileRepo.CreateAgent(ctx, agent); err != nil {
		return nil, err
	}
	fmt.Printf("Created agent %s (id %d)\n", email, agent.ID)
	return agent, nil
}

type propertyRow struct {
	agentEmail string
	property   model.LandProperty
}

func readPropertiesFromXLSX(filePath string) ([]propertyRow, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	var out []propertyRow
	skipped := 0
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < propertyColumns {
			skipped++
			continue
		}

		email := strings.ToLower(strings.TrimSpace(row[colAgentEmail]))
		title := strings.TrimSpace(row[colTitle])
		// sheet prices are in naira
		price, errPrice := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(row[colPrice]), ",", ""))
		if email == "" || title == "" || errPrice != nil || !price.IsPositive() {
			skipped++
			continue
		}
		size, _ := strconv.ParseFloat(strings.TrimSpace(row[colLandSize]), 64)

		out = append(out, propertyRow{
			agentEmail: email,
			property: model.LandProperty{
				Title: title,
				Location: model.Location{
					State:   strings.TrimSpace(row[colState]),
					City:    strings.TrimSpace(row[colCity]),
					Address: strings.TrimSpace(row[colAddress]),
				},
				Price:        model.AmountFromNaira(price),
				LandUseType:  parseLandUse(row[colLandUse]),
				LandSize:     size,
				Status:       model.PropertyStatusAvailable,
				VisibleOnMap: true,
			},
		})
	}

	fmt.Printf("Rows: %d, valid: %d, skipped: %d\n", len(rows)-1, len(out), skipped)
	return out, nil
}

func parseLandUse(v string) model.LandUseType {
	switch model.LandUseType(strings.ToLower(strings.TrimSpace(v))) {
	case model.LandUseCommercial:
		return model.LandUseCommercial
	case model.LandUseAgriculture:
		return model.LandUseAgriculture
	case model.LandUseMixed:
		return model.LandUseMixed
	default:
		return model.LandUseResidential
	}
}
