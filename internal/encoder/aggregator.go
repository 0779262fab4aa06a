package encoder

import "github.com/tonearm/tonearm/internal/models"

// defaultRatingWeight is used for qualifying interactions without a rating.
const defaultRatingWeight = 3.0

// defaultComponent is the value of every component of the default user
// vector, returned for users with no qualifying history.
const defaultComponent = 0.5

// RatedTrack pairs a track with the rating weight of the user's interaction.
// A nil Rating means the interaction qualifies but carries no explicit rating.
type RatedTrack struct {
	Track  *models.Track
	Rating *float64
}

// Aggregator is the user tower: it folds a user's rated history into one
// vector with the same dimensionality as the item tower.
type Aggregator struct {
	encoder *Encoder
}

// NewAggregator creates an aggregator over the given item encoder.
func NewAggregator(enc *Encoder) *Aggregator {
	return &Aggregator{encoder: enc}
}

// DefaultVector returns the fixed vector used when a user has no
// qualifying interactions.
func (a *Aggregator) DefaultVector() []float64 {
	out := make([]float64, a.encoder.Dimensions())
	for i := range out {
		out[i] = defaultComponent
	}
	return out
}

// UserVector returns the rating-weighted element-wise average of the
// encoded vectors of the user's tracks. An empty history, or one whose
// weights do not sum to a positive number, yields the default vector.
func (a *Aggregator) UserVector(history []RatedTrack) []float64 {
	dims := a.encoder.Dimensions()
	sum := make([]float64, dims)
	var totalWeight float64

	for _, rt := range history {
		if rt.Track == nil {
			continue
		}
		weight := defaultRatingWeight
		if rt.Rating != nil {
			weight = *rt.Rating
		}
		if weight <= 0 {
			continue
		}
		vec := a.encoder.Encode(rt.Track)
		for i := range sum {
			sum[i] += vec[i] * weight
		}
		totalWeight += weight
	}

	if totalWeight <= 0 {
		return a.DefaultVector()
	}
	for i := range sum {
		sum[i] /= totalWeight
	}
	return sum
}
