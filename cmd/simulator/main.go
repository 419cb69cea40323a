package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// Global flags
	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "seed":
		seedCmd(apiURL, args)
	case "dashboard":
		dashboardCmd(apiURL, args)
	case "import":
		importCmd(apiURL, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Athlete Log Simulator - Development client for the activity API

USAGE:
  simulator <command> [options]

COMMANDS:
  seed       Register a user, log sample activities and print the dashboard
  dashboard  Print the monthly dashboard of an existing user
  import     Trigger a Strava import for an existing user
  help       Show this help message

ENVIRONMENT:
  API_URL   Backend API URL (default: http://localhost:8080)

EXAMPLES:
  # Register a fresh user with 12 activities spread over 3 months
  simulator seed

  # Log 30 activities
  simulator seed --count=30

  # Show the dashboard of an existing account
  simulator dashboard --email=me@example.com --password=secret

  # Import from Strava (the account must be connected in the UI first)
  simulator import --email=me@example.com --password=secret`)
}

// sampleActivities cycles through typical entries, including one with a
// malformed distance to show the lenient warnings.
var sampleActivities = []struct {
	activityType string
	distance     interface{}
	time         string
	calories     interface{}
}{
	{"Running", 5.0, "00:27:30", 320},
	{"Cycling", 22.4, "00:55:00", 610},
	{"Swimming", 1.5, "00:35:00", 280},
	{"Running", 10.0, "00:58:12", 640},
	{"Walking", "three", "00:40:00", nil},
	{"Gym", 0, "01:00:00", 350},
}

func seedCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	count := fs.Int("count", 12, "Number of activities to log")
	fs.Parse(args)

	if *count < 1 || *count > 500 {
		fmt.Println("Error: --count must be between 1 and 500")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)

	fmt.Println("=== Athlete Log Simulator: Seed ===")
	fmt.Println()

	fmt.Print("Creating user... ")
	user, token, err := client.RegisterUser("athlete")
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK (user: %s, email: %s, password: testpassword123)\n", user.Username, user.Email)

	fmt.Println()
	fmt.Printf("Logging %d activities:\n", *count)

	today := time.Now()
	for i := 0; i < *count; i++ {
		sample := sampleActivities[i%len(sampleActivities)]
		date := today.AddDate(0, 0, -i*7)

		result, err := client.CreateActivity(token, map[string]interface{}{
			"date":         date.Format("2006-01-02"),
			"activityType": sample.activityType,
			"distance":     sample.distance,
			"time":         sample.time,
			"calories":     sample.calories,
		})
		if err != nil {
			fmt.Printf("  [%d/%d] FAILED: %v\n", i+1, *count, err)
			os.Exit(1)
		}

		pace := "-"
		if result.Activity.Pace != nil {
			pace = *result.Activity.Pace + " /km"
		}
		fmt.Printf("  [%d/%d] %s %-9s pace %s\n", i+1, *count, result.Activity.Date[:10], result.Activity.ActivityType, pace)
		for _, w := range result.Warnings {
			fmt.Printf("         warning: %s %q %s\n", w.Field, w.Value, w.Reason)
		}
	}

	printDashboard(client, token)
}

func dashboardCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("dashboard", flag.ExitOnError)
	email := fs.String("email", "", "Account email (required)")
	password := fs.String("password", "", "Account password (required)")
	fs.Parse(args)

	token := mustLogin(apiURL, *email, *password, "dashboard")
	printDashboard(NewAPIClient(apiURL), token)
}

func importCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	email := fs.String("email", "", "Account email (required)")
	password := fs.String("password", "", "Account password (required)")
	fs.Parse(args)

	token := mustLogin(apiURL, *email, *password, "import")
	client := NewAPIClient(apiURL)

	fmt.Print("Importing from Strava... ")
	result, err := client.ImportStrava(token)
	if err != nil {
		fmt.Printf("FAILED\n  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK (imported %d, skipped %d, invalid %d)\n", result.Imported, result.Skipped, result.Invalid)

	printDashboard(client, token)
}

func mustLogin(apiURL, email, password, command string) string {
	if email == "" || password == "" {
		fmt.Println("Error: --email and --password are required")
		fmt.Printf("\nUsage: simulator %s --email=me@example.com --password=secret\n", command)
		os.Exit(1)
	}

	_, token, err := NewAPIClient(apiURL).Login(email, password)
	if err != nil {
		fmt.Printf("Login failed: %v\n", err)
		os.Exit(1)
	}
	return token
}

func printDashboard(client *APIClient, token string) {
	dashboard, err := client.GetDashboard(token)
	if err != nil {
		fmt.Printf("Failed to load dashboard: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("=========================================")
	fmt.Println("  MONTHLY DASHBOARD")
	fmt.Println("=========================================")
	fmt.Println()
	for _, month := range dashboard.Months {
		fmt.Printf("  %s  %3d activities  %8.2f km  %8.0f kcal\n",
			month.Month, len(month.Records), month.Distance, month.Calories)
	}
	fmt.Println()
	fmt.Printf("  Total: %.2f km, %.0f kcal\n", dashboard.TotalDistance, dashboard.TotalCalories)
	fmt.Printf("  Strava connected: %t\n", dashboard.StravaConnected)
	fmt.Println()
}
