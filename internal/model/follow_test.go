package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowTypeTags(t *testing.T) {
	assert.Equal(t, "", SocialFollow().Tag())
	assert.Equal(t, "user", SocialFollow().ObjectType())
	assert.Equal(t, "authors:podcast", AuthorFollow("podcast").Tag())
	assert.Equal(t, "author:podcast", AuthorFollow("podcast").ObjectType())
	assert.Equal(t, "category", TermFollow("category").Tag())
	assert.Equal(t, "term:category", TermFollow("category").ObjectType())
}

func TestParseFollowTypeRoundTrip(t *testing.T) {
	for _, ft := range []FollowType{
		SocialFollow(),
		AuthorFollow("post"),
		AuthorFollow("podcast"),
		TermFollow("category"),
		TermFollow("post_tag"),
	} {
		got, err := ParseFollowType(ft.Tag())
		require.NoError(t, err)
		assert.Equal(t, ft, got)
	}

	_, err := ParseFollowType("authors:")
	assert.Error(t, err, "author tag needs a post type")
}
