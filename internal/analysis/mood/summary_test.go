package mood

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/mindbridge/companion/backend/internal/model/mood"
)

// entriesOldestFirst builds store-ordered (newest first) entries from ratings
// listed oldest to newest.
func entriesOldestFirst(ratings ...int) []model.Entry {
	entries := make([]model.Entry, len(ratings))
	for i, r := range ratings {
		entries[len(ratings)-1-i] = model.Entry{Rating: r}
	}
	return entries
}

func TestComputeTrendNeedsThreeEntries(t *testing.T) {
	assert.Nil(t, ComputeTrend(nil))
	assert.Nil(t, ComputeTrend(entriesOldestFirst(1)))
	assert.Nil(t, ComputeTrend(entriesOldestFirst(1, 10)))
}

func TestComputeTrendImproving(t *testing.T) {
	trend := ComputeTrend(entriesOldestFirst(3, 3, 8, 8))
	require.NotNil(t, trend)
	assert.Equal(t, Improving, trend.Direction)
	assert.Nil(t, trend.Mean)
	assert.Equal(t, "improving recently", trend.Describe())
}

func TestComputeTrendDeclining(t *testing.T) {
	trend := ComputeTrend(entriesOldestFirst(8, 8, 3, 3))
	require.NotNil(t, trend)
	assert.Equal(t, Declining, trend.Direction)
	assert.Equal(t, "declining recently", trend.Describe())
}

func TestComputeTrendSteadyReportsMean(t *testing.T) {
	trend := ComputeTrend(entriesOldestFirst(6, 7, 6, 7, 6))
	require.NotNil(t, trend)
	assert.Equal(t, Steady, trend.Direction)
	require.NotNil(t, trend.Mean)
	assert.InDelta(t, 6.4, *trend.Mean, 1e-9)
	assert.Equal(t, "fairly steady (around 6.4/10)", trend.Describe())
}

func TestComputeTrendOddCountFavorsRecentHalf(t *testing.T) {
	// earlier = [2], later = [4, 4]: +2.0
	trend := ComputeTrend(entriesOldestFirst(2, 4, 4))
	require.NotNil(t, trend)
	assert.Equal(t, Improving, trend.Direction)

	// earlier = [5, 5], later = [6, 6, 7]: +1.33
	trend = ComputeTrend(entriesOldestFirst(5, 5, 6, 6, 7))
	require.NotNil(t, trend)
	assert.Equal(t, Improving, trend.Direction)
}

func TestComputeTrendExactThresholdIsSteady(t *testing.T) {
	// earlier mean 4, later mean 5: exactly +1.0 is not above the threshold
	trend := ComputeTrend(entriesOldestFirst(4, 4, 5, 5))
	require.NotNil(t, trend)
	assert.Equal(t, Steady, trend.Direction)
}

func TestRecentEmotionsDedupAndCap(t *testing.T) {
	entries := []model.Entry{
		{EmotionTags: []string{"anxious", "tired"}},
		{EmotionTags: []string{"tired", "hopeful", ""}},
		{EmotionTags: []string{"calm", "grateful", "sad"}},
	}
	got := RecentEmotions(entries, 5)
	assert.Equal(t, []string{"anxious", "tired", "hopeful", "calm", "grateful"}, got)
}

func TestRecentEmotionsEmpty(t *testing.T) {
	got := RecentEmotions(nil, 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTimeOfDay(t *testing.T) {
	cases := map[int]string{
		0:  "late night",
		4:  "late night",
		5:  "morning",
		11: "morning",
		12: "afternoon",
		16: "afternoon",
		17: "evening",
		20: "evening",
		21: "late night",
		23: "late night",
	}
	for hour, want := range cases {
		assert.Equal(t, want, TimeOfDay(hour), "hour %d", hour)
	}
}

func TestStreak(t *testing.T) {
	day := func(d int, hour int) time.Time {
		return time.Date(2026, time.March, d, hour, 0, 0, 0, time.UTC)
	}

	assert.Equal(t, 0, Streak(nil))
	assert.Equal(t, 1, Streak([]time.Time{day(10, 9)}))
	assert.Equal(t, 3, Streak([]time.Time{day(10, 9), day(9, 20), day(8, 7), day(8, 22)}))
	// gap on the 7th breaks the run
	assert.Equal(t, 2, Streak([]time.Time{day(6, 9), day(9, 9), day(10, 9)}))
}
