package works

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(id string) Record {
	return Record{
		ID:                id,
		Author:            "author-" + id,
		CurrentHabits:     "habits",
		Reflection:        "reflection",
		ScorecardImageURL: "/uploads/" + id + "_scorecard.png",
		ComicImageURL:     "/uploads/" + id + "_comic.png",
	}
}

func TestStoreReplaceKeepsOrderAndFirstDuplicate(t *testing.T) {
	s := NewStore()
	first := sample("a")
	dup := sample("a")
	dup.Author = "second"

	require.NoError(t, s.Replace(context.Background(), []Record{sample("c"), first, sample("b"), dup}))

	snap := s.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{snap[0].ID, snap[1].ID, snap[2].ID})

	got, err := s.Find("a")
	require.NoError(t, err)
	assert.Equal(t, "author-a", got.Author)
}

func TestStoreReplaceDropsCachedImages(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Replace(context.Background(), []Record{sample("a")}))
	require.NoError(t, s.AttachImages("a", "data:image/png;base64,AA==", "data:image/png;base64,AQ=="))

	got, _ := s.Find("a")
	assert.True(t, got.HasImages())

	require.NoError(t, s.Replace(context.Background(), []Record{sample("a")}))
	got, _ = s.Find("a")
	assert.False(t, got.HasImages())
}

func TestStoreAttachImagesIsAllOrNothing(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Replace(context.Background(), []Record{sample("a")}))

	err := s.AttachImages("a", "data:image/png;base64,AA==", "")
	assert.ErrorIs(t, err, ErrIncompleteData)
	got, _ := s.Find("a")
	assert.Empty(t, got.ScorecardBase64)

	err = s.AttachImages("missing", "x", "y")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreFindUnknown(t *testing.T) {
	s := NewStore()
	_, err := s.Find("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Find("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreReplaceHonorsContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.Replace(ctx, []Record{sample("a")}))
	assert.Equal(t, 0, s.Len())
}

func TestRecordValidity(t *testing.T) {
	rec := sample("a")
	assert.True(t, rec.Valid())

	cases := map[string]func(*Record){
		"id":                func(r *Record) { r.ID = "" },
		"scorecardImageUrl": func(r *Record) { r.ScorecardImageURL = " " },
		"author":            func(r *Record) { r.Author = "" },
		"currentHabits":     func(r *Record) { r.CurrentHabits = "" },
		"reflection":        func(r *Record) { r.Reflection = "" },
	}
	for field, mutate := range cases {
		r := sample("a")
		mutate(&r)
		assert.False(t, r.Valid(), field)
		assert.Equal(t, field, MissingField(r))
	}

	noComic := sample("a")
	noComic.ComicImageURL = ""
	assert.True(t, noComic.Valid())
}
