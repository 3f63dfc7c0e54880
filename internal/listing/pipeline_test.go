package listing

import (
	"fmt"
	"testing"
	"time"
)

var (
	t1 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 = time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	t3 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
)

func scenarioListings() []Listing {
	return []Listing{
		{ID: "1", Rent: 850, SqFt: 500, PetsAllowed: true, CreatedAt: t2},
		{ID: "2", Rent: 650, SqFt: 400, PetsAllowed: false, CreatedAt: t1},
		{ID: "3", Rent: 900, SqFt: 300, PetsAllowed: true, CreatedAt: t3},
	}
}

func ids(ls []Listing) string {
	out := ""
	for i, l := range ls {
		if i > 0 {
			out += ","
		}
		out += l.ID
	}
	return out
}

func TestView_NewestFirst(t *testing.T) {
	page := View(scenarioListings(), Filters{}, Preferences{MaxRent: 900}, 1, DefaultPageSize)

	if got := ids(page.Listings); got != "3,1,2" {
		t.Fatalf("expected order 3,1,2, got %s", got)
	}
	if page.Total != 3 || page.TotalPages != 1 {
		t.Fatalf("unexpected totals: %+v", page)
	}
	if page.HasPrev() || page.HasNext() {
		t.Fatalf("single page should have no neighbours")
	}
}

func TestView_PetsOnly(t *testing.T) {
	page := View(scenarioListings(), Filters{}, Preferences{Pets: true}, 1, DefaultPageSize)
	if got := ids(page.Listings); got != "3,1" {
		t.Fatalf("expected 3,1, got %s", got)
	}

	// equal scores keep input order; the pet-less listing sinks to the end
	ranked := RankedView(scenarioListings(), Filters{}, Preferences{Pets: true}, []Weight{{Key: WeightPets, Value: 3}}, 1, DefaultPageSize)
	if len(ranked.Listings) != 3 {
		t.Fatalf("ranked view should not drop listings, got %d", len(ranked.Listings))
	}
	if ranked.Listings[0].ID != "1" || ranked.Listings[1].ID != "3" || ranked.Listings[2].Score != 0 {
		t.Fatalf("expected ranked 1,3,2, got %+v", ranked.Listings)
	}
}

func TestFilter_University(t *testing.T) {
	all := []Listing{
		{ID: "uga", Universities: []string{"University of Georgia"}},
		{ID: "aub", Universities: []string{"Auburn"}},
	}

	got := Filter(all, Filters{University: "Georgia"}, Preferences{})
	if ids(got) != "uga" {
		t.Fatalf("expected only uga, got %s", ids(got))
	}

	got = Filter(all, Filters{University: "georgia"}, Preferences{})
	if ids(got) != "uga" {
		t.Fatalf("match should ignore case, got %s", ids(got))
	}

	got = Filter(all, Filters{University: "Georgia", UniversityMode: UniversityExact}, Preferences{})
	if len(got) != 0 {
		t.Fatalf("exact mode should not match a substring, got %s", ids(got))
	}

	got = Filter(all, Filters{University: "auburn", UniversityMode: UniversityExact}, Preferences{})
	if ids(got) != "aub" {
		t.Fatalf("exact mode should ignore case, got %s", ids(got))
	}
}

func sampleSet() []Listing {
	var out []Listing
	cities := []string{"Athens", "Atlanta", "Auburn", ""}
	for i := 0; i < 37; i++ {
		out = append(out, Listing{
			ID:               fmt.Sprintf("l%02d", i),
			City:             cities[i%len(cities)],
			State:            "GA",
			PostalCode:       fmt.Sprintf("306%02d", i),
			Rent:             500 + (i%7)*100,
			SqFt:             250 + (i%5)*100,
			Universities:     []string{"University of Georgia"},
			LeaseStart:       t1.AddDate(0, i%6, 0),
			LeaseEnd:         t2.AddDate(0, i%9, 0),
			PetsAllowed:      i%2 == 0,
			ParkingAvailable: i%3 == 0,
			Furnished:        i%4 == 0,
			CreatedAt:        t1.Add(time.Duration(i%5) * time.Hour),
		})
	}
	return out
}

func TestFilter_DefaultsAreIdentity(t *testing.T) {
	all := sampleSet()
	got := Filter(all, Filters{}, Preferences{})
	if len(got) != len(all) {
		t.Fatalf("expected %d listings, got %d", len(all), len(got))
	}
	for i := range all {
		if got[i].ID != all[i].ID {
			t.Fatalf("position %d: expected %s, got %s", i, all[i].ID, got[i].ID)
		}
	}
}

func TestFilter_Conjunction(t *testing.T) {
	all := sampleSet()
	f := Filters{
		City:             "at",
		PostalCode:       "306",
		LatestMoveIn:     t1.AddDate(0, 3, 0),
		EarliestLeaseEnd: t2.AddDate(0, 2, 0),
	}
	p := Preferences{MaxRent: 900, MinSqft: 300, Pets: true}

	got := Filter(all, f, p)
	if len(got) == 0 {
		t.Fatalf("expected some matches")
	}
	for _, l := range got {
		if l.City != "Athens" && l.City != "Atlanta" {
			t.Fatalf("%s: city %q does not contain filter", l.ID, l.City)
		}
		if l.LeaseStart.After(f.LatestMoveIn) {
			t.Fatalf("%s: lease starts too late", l.ID)
		}
		if l.LeaseEnd.Before(f.EarliestLeaseEnd) {
			t.Fatalf("%s: lease ends too early", l.ID)
		}
		if l.Rent > 900 || l.SqFt < 300 || !l.PetsAllowed {
			t.Fatalf("%s: violates preferences: %+v", l.ID, l)
		}
	}

	// every excluded listing violates at least one constraint
	kept := map[string]bool{}
	for _, l := range got {
		kept[l.ID] = true
	}
	for _, l := range all {
		if !kept[l.ID] && Matches(l, f, p) {
			t.Fatalf("%s matches but was dropped", l.ID)
		}
	}
}

func TestFilter_MissingFieldsDoNotMatch(t *testing.T) {
	sparse := Listing{ID: "sparse", Rent: 100, SqFt: 100}

	cases := []struct {
		name string
		f    Filters
	}{
		{"university", Filters{University: "Georgia"}},
		{"city", Filters{City: "Athens"}},
		{"zip", Filters{PostalCode: "30"}},
		{"move in", Filters{LatestMoveIn: t2}},
		{"lease end", Filters{EarliestLeaseEnd: t1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if Matches(sparse, tc.f, Preferences{}) {
				t.Fatalf("listing without the field should not match")
			}
		})
	}
}

func TestFilter_DoesNotModifyInput(t *testing.T) {
	all := scenarioListings()
	_ = View(all, Filters{}, Preferences{}, 1, DefaultPageSize)
	if ids(all) != "1,2,3" {
		t.Fatalf("input reordered: %s", ids(all))
	}
}

func TestPaginate_ConcatenationCoversEverything(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 11, 37} {
		all := sampleSet()[:n]
		first := View(all, Filters{}, Preferences{}, 1, DefaultPageSize)

		wantPages := (n + 9) / 10
		if wantPages < 1 {
			wantPages = 1
		}
		if first.TotalPages != wantPages {
			t.Fatalf("n=%d: expected %d pages, got %d", n, wantPages, first.TotalPages)
		}

		var joined []Listing
		for p := 1; p <= first.TotalPages; p++ {
			joined = append(joined, View(all, Filters{}, Preferences{}, p, DefaultPageSize).Listings...)
		}

		sorted := Filter(all, Filters{}, Preferences{})
		SortByRecency(sorted)
		if ids(joined) != ids(sorted) {
			t.Fatalf("n=%d: pages do not reproduce the sorted list", n)
		}
	}
}

func TestPaginate_OutOfRange(t *testing.T) {
	all := sampleSet()
	for _, p := range []int{0, -1, 5, 100} {
		if got := Paginate(all, p, DefaultPageSize); len(got) != 0 {
			t.Fatalf("page %d: expected empty, got %d", p, len(got))
		}
	}
	if got := Paginate([]int{}, 1, 0); len(got) != 0 {
		t.Fatalf("empty input should give empty page")
	}
}

func TestSortByRecency_Stable(t *testing.T) {
	ls := []Listing{
		{ID: "a", CreatedAt: t1},
		{ID: "b", CreatedAt: t2},
		{ID: "c", CreatedAt: t1},
		{ID: "d", CreatedAt: t2},
	}
	SortByRecency(ls)
	if got := ids(ls); got != "b,d,a,c" {
		t.Fatalf("expected b,d,a,c, got %s", got)
	}
}

func TestScore(t *testing.T) {
	p := DefaultPreferences()
	w := DefaultWeights()

	cases := []struct {
		name string
		l    Listing
		want int
	}{
		{"everything", Listing{PetsAllowed: true, ParkingAvailable: true, SqFt: 400, Rent: 800}, 7},
		{"nothing", Listing{SqFt: 100, Rent: 2000}, 0},
		{"rent only", Listing{SqFt: 100, Rent: 900}, 2},
		{"pets and sqft", Listing{PetsAllowed: true, SqFt: 350, Rent: 950}, 4},
	}
	for _, tc := range cases {
		if got := Score(tc.l, p, w); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}

	// amenity weights need the preference switched on
	off := Preferences{MaxRent: 900}
	if got := Score(Listing{PetsAllowed: true, Rent: 100}, off, []Weight{{Key: WeightPets, Value: 3}}); got != 0 {
		t.Fatalf("pets weight applied without preference: %d", got)
	}

	if got := Score(Listing{}, p, []Weight{{Key: "balcony", Value: 9}}); got != 0 {
		t.Fatalf("unknown key should score zero, got %d", got)
	}
}

func TestRankedView_OrdersByScore(t *testing.T) {
	all := []Listing{
		{ID: "low", SqFt: 100, Rent: 2000},
		{ID: "high", PetsAllowed: true, ParkingAvailable: true, SqFt: 400, Rent: 800},
		{ID: "mid", SqFt: 100, Rent: 800},
	}
	page := RankedView(all, Filters{}, DefaultPreferences(), DefaultWeights(), 1, DefaultPageSize)
	got := ""
	for i, r := range page.Listings {
		if i > 0 {
			got += ","
		}
		got += r.ID
	}
	if got != "high,mid,low" {
		t.Fatalf("expected high,mid,low, got %s", got)
	}
}

