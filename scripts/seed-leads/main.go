// Command seed-leads fills a running API with demo leads so the console
// has something to list. Submission dates are spread over the past days
// and appointments over the coming ones.
//
// Usage:
//
//	CRM_ADMIN_USER=admin CRM_ADMIN_PASSWORD=... go run ./scripts/seed-leads scripts/seed-leads/leads.json
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/muvance-crm/internal/apiclient"
	"github.com/wolfman30/muvance-crm/internal/leads"
	"github.com/wolfman30/muvance-crm/pkg/logging"
)

type seedLead struct {
	leads.Contact
	Status  string `json:"status"`
	DaysAgo int    `json:"daysAgo"`
	InDays  int    `json:"inDays"`
	Time    string `json:"time"`
}

func main() {
	_ = godotenv.Load()
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./scripts/seed-leads <leads.json>")
		os.Exit(1)
	}

	apiURL := os.Getenv("CRM_API_BASE_URL")
	if apiURL == "" {
		apiURL = "http://localhost:5000"
	}
	user := os.Getenv("CRM_ADMIN_USER")
	if user == "" {
		user = "admin"
	}

	data, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Printf("❌ Error reading file: %v\n", err)
		os.Exit(1)
	}
	var seeds []seedLead
	if err := json.Unmarshal(data, &seeds); err != nil {
		fmt.Printf("❌ Error parsing JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("🌱 Seeding %d leads into %s\n", len(seeds), apiURL)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	client := apiclient.New(apiURL, logging.New("warn"))
	cred, err := client.Login(ctx, user, os.Getenv("CRM_ADMIN_PASSWORD"))
	if err != nil {
		fmt.Printf("❌ Login failed: %v\n", err)
		os.Exit(1)
	}

	now := time.Now()
	created := 0
	for _, s := range seeds {
		raw, err := leads.NewManualLead(leads.ManualLeadInput{
			Contact: s.Contact,
			Date:    now.AddDate(0, 0, s.InDays),
			Time:    s.Time,
		}, now)
		if err != nil {
			fmt.Printf("   ⚠️  Skipping %q: %v\n", s.FullName, err)
			continue
		}
		raw.SubmissionDate = leads.FormatISO(now.AddDate(0, 0, -s.DaysAgo))
		if s.Status != "" {
			raw.Status = s.Status
		}
		out, err := client.CreateAppointment(ctx, cred, raw)
		if err != nil {
			fmt.Printf("   ❌ %s: %v\n", s.FullName, err)
			continue
		}
		created++
		fmt.Printf("   ✅ %s (%s) %s\n", out.FullName, out.ID, out.Status)
	}

	fmt.Printf("\n✅ Seeded %d of %d leads\n", created, len(seeds))
}
