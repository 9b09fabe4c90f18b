package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medbot-server/internal/logging"
	"medbot-server/internal/models"
	"medbot-server/internal/specialty"
)

func rankingDirectory() *Directory {
	return New([]models.Doctor{
		{Name: "Dr. Low GP", Specialty: "General Physician", Rating: 4.2},
		{Name: "Dr. Heart", Specialty: "Cardiologist", Rating: 4.9},
		{Name: "Dr. High GP", Specialty: "General Physician", Rating: 4.8, Slots: models.SlotList{"9:00 AM", "11:00 AM"}},
		{Name: "Dr. Skin", Specialty: "Dermatologist", Rating: 4.5},
		{Name: "Dr. Bones", Specialty: "Orthopedic", Rating: 3.9},
	}, nil, logging.Discard())
}

func TestRecommendFeverScenario(t *testing.T) {
	r := NewRanker(rankingDirectory(), specialty.Default(), nil)

	rec := r.Recommend("fever", 3)

	assert.Equal(t, "General Physician", rec.Specialty)
	assert.False(t, rec.Fallback)
	require.Len(t, rec.Doctors, 2)
	assert.Equal(t, 4.8, rec.Doctors[0].Rating)
	assert.Equal(t, 4.2, rec.Doctors[1].Rating)
	assert.Equal(t, "dr_high_gp", rec.Doctors[0].Username)
	assert.Equal(t, models.SlotList{"9:00 AM", "11:00 AM"}, rec.Doctors[0].Slots)
}

func TestRecommendBySpecialtyName(t *testing.T) {
	r := NewRanker(rankingDirectory(), specialty.Default(), nil)

	rec := r.Recommend("cardiologist", 3)

	require.Len(t, rec.Doctors, 1)
	assert.Equal(t, "Dr. Heart", rec.Doctors[0].Name)
}

func TestRecommendFallsBackToWholeDirectory(t *testing.T) {
	r := NewRanker(rankingDirectory(), specialty.Default(), nil)

	rec := r.Recommend("ear pain", 3)

	assert.Equal(t, "ENT", rec.Specialty)
	assert.True(t, rec.Fallback)
	require.Len(t, rec.Doctors, 3)
	assert.Equal(t, []float64{4.9, 4.8, 4.5}, []float64{rec.Doctors[0].Rating, rec.Doctors[1].Rating, rec.Doctors[2].Rating})
}

func TestRecommendUnpracticedSpecialtyFallsBack(t *testing.T) {
	dir := New([]models.Doctor{
		{Name: "Dr GP", Specialty: "General Physician", Rating: 3.0},
		{Name: "Dr Neuro", Specialty: "Neurologist", Rating: 4.9},
	}, nil, logging.Discard())
	r := NewRanker(dir, specialty.Default(), nil)

	rec := r.Recommend("Cardiologist", 3)

	assert.Equal(t, "Cardiologist", rec.Specialty)
	assert.True(t, rec.Fallback)
	require.Len(t, rec.Doctors, 2)
	assert.Equal(t, []string{"Dr Neuro", "Dr GP"}, []string{rec.Doctors[0].Name, rec.Doctors[1].Name})

	rec = r.Recommend(" cardiologist ", 3)
	assert.Equal(t, "Cardiologist", rec.Specialty)
	assert.True(t, rec.Fallback)
}

func TestRecommendEdges(t *testing.T) {
	r := NewRanker(rankingDirectory(), specialty.Default(), nil)
	assert.Empty(t, r.Recommend("fever", 0).Doctors)

	empty := NewRanker(New(nil, nil, logging.Discard()), specialty.Default(), nil)
	rec := empty.Recommend("fever", 3)
	assert.Empty(t, rec.Doctors)
	assert.False(t, rec.Fallback)
}

func TestTopRatedIsStable(t *testing.T) {
	docs := []models.Doctor{
		{Name: "A", Rating: 4},
		{Name: "B", Rating: 5},
		{Name: "C", Rating: 4},
		{Name: "D", Rating: 4},
	}

	ranked := TopRated(docs, 3)

	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"B", "A", "C"}, []string{ranked[0].Name, ranked[1].Name, ranked[2].Name})
	assert.Equal(t, "a", ranked[1].Username)
	assert.Equal(t, "A", docs[0].Name)
}
