package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJournal(t *testing.T, j Journal) {
	r, err := j.Append(Record{Kind: FragmentSent, Subject: "f1", Alias: "alice"})
	require.NoError(t, err)
	assert.Equal(t, 0, r.Index)
	assert.False(t, r.Time.IsZero())

	ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = j.Append(Record{Kind: FragmentOutcome, Subject: "f1", Alias: "bob", Outcome: "InABlock", Time: ts})
	require.NoError(t, err)
	_, err = j.Append(Record{Kind: SyncMeasurement, Subject: "after bootstrap", Detail: "1.5s"})
	require.NoError(t, err)

	records, err := j.Records()
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, i, r.Index)
	}
	assert.Equal(t, "bob", records[1].Alias)
	assert.True(t, ts.Equal(records[1].Time))

	outcomes, err := j.Filter(FragmentOutcome)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, "InABlock", outcomes[0].Outcome)
}

func TestInmemJournal(t *testing.T) {
	j := NewInmemJournal()
	testJournal(t, j)
	assert.Equal(t, "", j.Path())
	assert.NoError(t, j.Close())
}

func TestBadgerJournal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal_db")

	j, err := NewBadgerJournal(dir)
	require.NoError(t, err)
	testJournal(t, j)
	assert.Equal(t, dir, j.Path())
	require.NoError(t, j.Close())
}

func TestLoadBadgerJournal(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal_db")

	j, err := NewBadgerJournal(dir)
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		_, err := j.Append(Record{Kind: NodeEvent, Alias: "node", Outcome: "Running"})
		require.NoError(t, err)
	}
	require.NoError(t, j.Close())

	j, err = LoadBadgerJournal(dir)
	require.NoError(t, err)
	defer j.Close()

	r, err := j.Append(Record{Kind: NodeEvent, Alias: "node", Outcome: "Stopped"})
	require.NoError(t, err)
	assert.Equal(t, 12, r.Index)

	records, err := j.Records()
	require.NoError(t, err)
	require.Len(t, records, 13)
	assert.Equal(t, "Stopped", records[12].Outcome)
}

func TestLoadBadgerJournal_Missing(t *testing.T) {
	_, err := LoadBadgerJournal(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
