package directory

import (
	"sort"
	"strings"

	"medbot-server/internal/metrics"
	"medbot-server/internal/models"
)

// SpecialtyResolver maps free text to a specialty and lists the
// specialties it can resolve to.
type SpecialtyResolver interface {
	Resolve(symptom string) string
	Specialties() []string
}

// Recommendation is a ranked doctor list for one symptom or specialty.
type Recommendation struct {
	Specialty string          `json:"specialty"`
	Fallback  bool            `json:"fallback"`
	Doctors   []models.Doctor `json:"doctors"`
}

// Ranker recommends doctors from a directory.
type Ranker struct {
	dir      *Directory
	resolver SpecialtyResolver
	metrics  *metrics.Metrics
}

// NewRanker creates a ranker. m may be nil.
func NewRanker(dir *Directory, resolver SpecialtyResolver, m *metrics.Metrics) *Ranker {
	return &Ranker{dir: dir, resolver: resolver, metrics: m}
}

// Recommend returns at most topN doctors for input, best rated first.
// input is used as the specialty when it names a known specialty or one a
// directory entry practices, otherwise it is resolved as a symptom. When
// no doctor practices the specialty the whole directory is ranked instead.
func (r *Ranker) Recommend(input string, topN int) Recommendation {
	specialty, ok := r.knownSpecialty(input)
	if !ok {
		specialty = r.resolver.Resolve(input)
	}
	rec := Recommendation{Specialty: specialty, Doctors: []models.Doctor{}}
	if topN <= 0 {
		return rec
	}

	all := r.dir.List()
	var matched []models.Doctor
	for _, doc := range all {
		if strings.EqualFold(doc.Specialty, specialty) {
			matched = append(matched, doc)
		}
	}
	if len(matched) == 0 {
		matched = all
		rec.Fallback = len(all) > 0
	}

	rec.Doctors = TopRated(matched, topN)
	r.metrics.ObserveRecommendation(rec.Fallback)
	return rec
}

func (r *Ranker) knownSpecialty(input string) (string, bool) {
	name := strings.TrimSpace(input)
	if name == "" {
		return "", false
	}
	for _, s := range r.resolver.Specialties() {
		if strings.EqualFold(s, name) {
			return s, true
		}
	}
	return name, r.dir.HasSpecialty(name)
}

// TopRated sorts doctors by rating, highest first, keeping input order
// among equal ratings, and returns the first n.
func TopRated(doctors []models.Doctor, n int) []models.Doctor {
	ranked := make([]models.Doctor, len(doctors))
	copy(ranked, doctors)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Rating > ranked[j].Rating
	})
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	for i := range ranked {
		ranked[i].Username = ranked[i].ResolvedUsername()
	}
	return ranked
}
