package listing

// WeightKey names a scored attribute.
type WeightKey string

const (
	WeightPets      WeightKey = "pets"
	WeightParking   WeightKey = "parking"
	WeightFurnished WeightKey = "furnished"
	WeightSqft      WeightKey = "sqft"
	WeightRent      WeightKey = "rent"
)

// Weight is one entry of the ordered weight list.
type Weight struct {
	Key   WeightKey `yaml:"key"`
	Value int       `yaml:"value"`
}

// DefaultWeights returns the weights the original ranking shipped with.
func DefaultWeights() []Weight {
	return []Weight{
		{Key: WeightPets, Value: 3},
		{Key: WeightSqft, Value: 1},
		{Key: WeightRent, Value: 2},
		{Key: WeightParking, Value: 1},
	}
}

// DefaultPreferences are the preferences the legacy ranking used when the
// user had not set any.
func DefaultPreferences() Preferences {
	return Preferences{Pets: true, MinSqft: 350, MaxRent: 900, Parking: true}
}

// Score sums the weights whose condition the listing satisfies. Unknown keys
// contribute nothing.
func Score(l Listing, p Preferences, weights []Weight) int {
	score := 0
	for _, w := range weights {
		var hit bool
		switch w.Key {
		case WeightPets:
			hit = p.Pets && l.PetsAllowed
		case WeightParking:
			hit = p.Parking && l.ParkingAvailable
		case WeightFurnished:
			hit = p.Furnished && l.Furnished
		case WeightSqft:
			hit = l.SqFt >= p.MinSqft
		case WeightRent:
			hit = p.rentOK(l.Rent)
		}
		if hit {
			score += w.Value
		}
	}
	return score
}
