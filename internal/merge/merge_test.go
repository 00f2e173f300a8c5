package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
)

var janeDoe = scraper.Query{Player: "Jane Doe", DraftYear: 2020, College: "Example University"}

func passing() scraper.SectionTable {
	return scraper.SectionTable{
		Section: "passing",
		Prefix:  "Pass_",
		Columns: []string{"Pass_Cmp", "Pass_Att"},
		Seasons: []string{"2018", "2019"},
		Rows: map[string]map[string]string{
			"2018": {"Pass_Cmp": "10", "Pass_Att": "20"},
			"2019": {"Pass_Cmp": "30", "Pass_Att": "40"},
		},
	}
}

func rushing() scraper.SectionTable {
	return scraper.SectionTable{
		Section: "rushing_and_receiving",
		Prefix:  "Rush_",
		Columns: []string{"Rush_Yds"},
		Seasons: []string{"2019", "2020"},
		Rows: map[string]map[string]string{
			"2019": {"Rush_Yds": "100"},
			"2020": {"Rush_Yds": "200"},
		},
	}
}

func TestMergeUnionsSeasons(t *testing.T) {
	t.Parallel()

	got := Merge(janeDoe, passing(), rushing())
	require.Len(t, got, 3)

	require.Equal(t, "2018", got[0].Season)
	assert.Equal(t, []string{"Pass_Cmp", "Pass_Att"}, got[0].Columns)
	assert.NotContains(t, got[0].Stats, "Rush_Yds")

	require.Equal(t, "2019", got[1].Season)
	assert.Equal(t, []string{"Pass_Cmp", "Pass_Att", "Rush_Yds"}, got[1].Columns)
	assert.Equal(t, "100", got[1].Stats["Rush_Yds"])
	assert.Equal(t, "30", got[1].Stats["Pass_Cmp"])

	require.Equal(t, "2020", got[2].Season)
	assert.Equal(t, []string{"Rush_Yds"}, got[2].Columns)

	for _, r := range got {
		assert.Equal(t, "Jane Doe", r.Player)
		assert.Equal(t, 2020, r.DraftYear)
		assert.Equal(t, "Example University", r.College)
	}
}

func TestMergeLaterSectionWins(t *testing.T) {
	t.Parallel()

	override := scraper.SectionTable{
		Columns: []string{"Pass_Cmp"},
		Rows:    map[string]map[string]string{"2018": {"Pass_Cmp": "99"}},
	}
	got := Merge(janeDoe, passing(), override)
	require.Len(t, got, 2)
	assert.Equal(t, "99", got[0].Stats["Pass_Cmp"])
	assert.Equal(t, []string{"Pass_Cmp", "Pass_Att"}, got[0].Columns)
}

func TestMergeNoTables(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Merge(janeDoe))
	assert.Empty(t, Merge(janeDoe, scraper.SectionTable{}))
}

func TestGroupBySeason(t *testing.T) {
	t.Parallel()

	recs := append(Merge(janeDoe, passing()), Merge(scraper.Query{Player: "John Roe"}, passing())...)
	groups := GroupBySeason(recs)
	require.Len(t, groups, 2)
	require.Len(t, groups["2018"], 2)
	assert.Equal(t, "Jane Doe", groups["2018"][0].Player)
	assert.Equal(t, "John Roe", groups["2018"][1].Player)
}
