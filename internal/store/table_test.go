package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/cfb-rookie-crawler/internal/scraper"
)

func record(player, season string, stats map[string]string, cols ...string) scraper.SeasonRecord {
	return scraper.SeasonRecord{
		Player:    player,
		DraftYear: 2020,
		College:   "Example University",
		Season:    season,
		Columns:   cols,
		Stats:     stats,
	}
}

func TestTableAppendWidensColumns(t *testing.T) {
	t.Parallel()

	var tbl Table
	require.Equal(t, 1, tbl.Append([]scraper.SeasonRecord{
		record("Jane Doe", "2019", map[string]string{"Pass_Cmp": "10"}, "Pass_Cmp"),
	}, false))
	require.Equal(t, 1, tbl.Append([]scraper.SeasonRecord{
		record("John Roe", "2019", map[string]string{"Rush_Yds": "55"}, "Rush_Yds"),
	}, false))

	assert.Equal(t, []string{"Player", "Draft Year", "Season", "College", "Pass_Cmp", "Rush_Yds"}, tbl.Columns)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, []string{"Jane Doe", "2020", "2019", "Example University", "10", ""}, tbl.Rows[0])
	assert.Equal(t, "55", tbl.Value(1, "Rush_Yds"))
	assert.Equal(t, "", tbl.Value(1, "Pass_Cmp"))
	assert.Equal(t, "", tbl.Value(7, "Player"))
}

func TestTableAppendAccumulatesDuplicates(t *testing.T) {
	t.Parallel()

	recs := []scraper.SeasonRecord{record("Jane Doe", "2019", map[string]string{"Pass_Cmp": "10"}, "Pass_Cmp")}
	var tbl Table
	tbl.Append(recs, false)
	tbl.Append(recs, false)
	assert.Len(t, tbl.Rows, 2)
}

func TestTableAppendDedup(t *testing.T) {
	t.Parallel()

	recs := []scraper.SeasonRecord{record("Jane Doe", "2019", map[string]string{"Pass_Cmp": "10"}, "Pass_Cmp")}
	var tbl Table
	require.Equal(t, 1, tbl.Append(recs, true))
	require.Equal(t, 0, tbl.Append(recs, true))
	assert.Len(t, tbl.Rows, 1)
}
