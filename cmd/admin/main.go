package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"ecosakshi/backend/internal/apikey"
	"ecosakshi/backend/internal/lifecycle"
	"ecosakshi/backend/internal/models"
	"ecosakshi/backend/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	storageSvc := storage.NewStorageService(db, nil) // No redis needed for admin CLI
	lifecycleSvc := lifecycle.NewService(storageSvc, nil)
	keySvc := apikey.NewService(storageSvc, nil, nil)

	// The CLI acts with full admin capability.
	operator := models.Actor{ID: "admin-cli", Role: models.RoleAdmin}

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <command> [args]")
		fmt.Println("Commands: verify|reject|resolve <report_id> [notes], bulk <action> <id,id,...>, expire-keys, seed-authority <email> <name>")
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "verify", "reject", "resolve":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: admin %s <report_id> [notes]\n", command)
			os.Exit(1)
		}
		reportID := os.Args[2]
		notes := ""
		if len(os.Args) > 3 {
			notes = strings.Join(os.Args[3:], " ")
		}
		status := map[string]models.ReportStatus{
			"verify":  models.StatusVerified,
			"reject":  models.StatusRejected,
			"resolve": models.StatusResolved,
		}[command]
		if _, err := lifecycleSvc.UpdateStatus(reportID, status, notes, operator); err != nil {
			log.Fatalf("Error updating report: %v", err)
		}
		fmt.Printf("Report %s is now %s.\n", reportID, status)

	case "bulk":
		if len(os.Args) != 4 {
			fmt.Println("Usage: admin bulk <verify|resolve|reject|delete> <id,id,...>")
			os.Exit(1)
		}
		action := lifecycle.BulkActionKind(os.Args[2])
		ids := strings.Split(os.Args[3], ",")
		results, affected, err := lifecycleSvc.BulkAction(ids, action, operator)
		if err != nil {
			log.Fatalf("Error running bulk action: %v", err)
		}
		for _, res := range results {
			if res.OK {
				fmt.Printf("  %s: ok\n", res.ReportID)
			} else {
				fmt.Printf("  %s: %s\n", res.ReportID, res.Error)
			}
		}
		fmt.Printf("%d of %d reports affected.\n", affected, len(ids))

	case "expire-keys":
		count, err := keySvc.ExpireDue()
		if err != nil {
			log.Fatalf("Error expiring keys: %v", err)
		}
		fmt.Printf("%d keys expired.\n", count)

	case "seed-authority":
		if len(os.Args) < 4 {
			fmt.Println("Usage: admin seed-authority <email> <name>")
			os.Exit(1)
		}
		user := &models.User{
			Email:    os.Args[2],
			Name:     strings.Join(os.Args[3:], " "),
			Role:     models.RoleAuthority,
			Language: "en",
		}
		if err := storageSvc.SaveUser(user); err != nil {
			log.Fatalf("Error creating authority user: %v", err)
		}
		fmt.Printf("Authority user %s created (%s).\n", user.Email, user.ID)

	default:
		fmt.Println("Unknown command")
		os.Exit(1)
	}
}
