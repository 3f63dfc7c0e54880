package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/easylease/sublease/internal/config"
	"github.com/easylease/sublease/internal/listing"
	"github.com/easylease/sublease/internal/platform"
)

// listingsCommand holds the parsed flags of "sublease listings".
type listingsCommand struct {
	api      string
	page     int
	pageSize int
	ranked   bool
	exact    bool
	criteria listing.Criteria
	weights  []listing.Weight
}

// parseListingsFlags builds the command from args. Every criteria field is a
// flag named after its key; only flags given on the command line are applied.
func parseListingsFlags(args []string, ranking *config.RankingConfig) (*listingsCommand, error) {
	fs := flag.NewFlagSet("listings", flag.ContinueOnError)
	cmd := &listingsCommand{weights: ranking.Weights}
	fs.StringVar(&cmd.api, "api", getEnv("SUBLEASE_API", "http://localhost:8080"), "HTTP API base URL")
	fs.IntVar(&cmd.page, "page", 1, "page number")
	fs.IntVar(&cmd.pageSize, "page-size", listing.DefaultPageSize, "listings per page")
	fs.BoolVar(&cmd.ranked, "ranked", false, "order by preference score instead of recency")
	fs.BoolVar(&cmd.exact, "exact-university", false, "match the university name exactly")

	raw := make(map[string]*string, len(listing.Fields))
	for _, f := range listing.Fields {
		raw[f.Key] = fs.String(f.Key, "", fmt.Sprintf("%s (%s)", f.Label, f.Kind))
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cmd.page < 1 || cmd.pageSize < 1 {
		return nil, fmt.Errorf("-page and -page-size must be positive")
	}

	// ranked results weigh against the configured preferences unless overridden
	if cmd.ranked {
		cmd.criteria.Preferences = ranking.Preferences
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	err := cmd.criteria.ApplyAll(func(key string) (string, bool) {
		if !set[key] {
			return "", false
		}
		return *raw[key], true
	})
	if err != nil {
		return nil, err
	}
	if cmd.exact {
		cmd.criteria.Filters.UniversityMode = listing.UniversityExact
	}
	return cmd, nil
}

func loadRanking() (*config.RankingConfig, error) {
	if path := os.Getenv("RANKING_CONFIG"); path != "" {
		return config.LoadRanking(path)
	}
	return &config.RankingConfig{
		Weights:     listing.DefaultWeights(),
		Preferences: listing.DefaultPreferences(),
	}, nil
}

func runListings(args []string, out io.Writer) error {
	ranking, err := loadRanking()
	if err != nil {
		return err
	}
	cmd, err := parseListingsFlags(args, ranking)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	all, err := platform.New(cmd.api, "").Listings(ctx)
	if err != nil {
		return err
	}

	return cmd.print(out, all)
}

// print writes the requested page. A page past the last one is an error
// naming the valid range.
func (cmd *listingsCommand) print(out io.Writer, all []listing.Listing) error {
	f, p := cmd.criteria.Filters, cmd.criteria.Preferences

	if cmd.ranked {
		page := listing.RankedView(all, f, p, cmd.weights, cmd.page, cmd.pageSize)
		if err := checkPage(cmd.page, page.TotalPages); err != nil {
			return err
		}
		for _, r := range page.Listings {
			fmt.Fprintf(out, "[%3d] %s\n", r.Score, describe(r.Listing))
		}
		footer(out, page.Number, page.TotalPages, page.Total)
		return nil
	}

	page := listing.View(all, f, p, cmd.page, cmd.pageSize)
	if err := checkPage(cmd.page, page.TotalPages); err != nil {
		return err
	}
	for _, l := range page.Listings {
		fmt.Fprintln(out, describe(l))
	}
	footer(out, page.Number, page.TotalPages, page.Total)
	if page.Total > 0 && (page.HasPrev() || page.HasNext()) {
		var nav []string
		if page.HasPrev() {
			nav = append(nav, fmt.Sprintf("-page %d for previous", page.Number-1))
		}
		if page.HasNext() {
			nav = append(nav, fmt.Sprintf("-page %d for next", page.Number+1))
		}
		fmt.Fprintln(out, strings.Join(nav, ", "))
	}
	return nil
}

func checkPage(page, totalPages int) error {
	if page > totalPages {
		return fmt.Errorf("page %d is past the last page (%d)", page, totalPages)
	}
	return nil
}

func describe(l listing.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s | $%d/mo | %d sqft | %s, %s", l.Title, l.Rent, l.SqFt, l.City, l.State)
	if !l.LeaseStart.IsZero() {
		fmt.Fprintf(&b, " | %s to %s", l.LeaseStart.Format(listing.DateLayout), l.LeaseEnd.Format(listing.DateLayout))
	}
	var extras []string
	if l.PetsAllowed {
		extras = append(extras, "pets")
	}
	if l.ParkingAvailable {
		extras = append(extras, "parking")
	}
	if l.Furnished {
		extras = append(extras, "furnished")
	}
	if len(extras) > 0 {
		fmt.Fprintf(&b, " | %s", strings.Join(extras, ", "))
	}
	if l.Owner != nil {
		fmt.Fprintf(&b, " | posted by %s %s", l.Owner.FirstName, l.Owner.LastName)
	}
	return b.String()
}

func footer(out io.Writer, number, totalPages, total int) {
	if total == 0 {
		fmt.Fprintln(out, "no listings match")
		return
	}
	fmt.Fprintf(out, "page %d of %d (%d listings)\n", number, totalPages, total)
}
