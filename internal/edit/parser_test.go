package edit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReplaceBlock(t *testing.T) {
	body := "<<<<<<< SEARCH\nold line\n=======\nnew line\n>>>>>>> REPLACE"

	blocks, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	assert.Equal(t, Replace, blocks[0].Op)
	assert.Equal(t, []string{"old line"}, blocks[0].Search)
	assert.Equal(t, []string{"new line"}, blocks[0].Replacement)
}

func TestParseDeleteBlock(t *testing.T) {
	body := "<<<<<<< SEARCH\nline to delete\n>>>>>>> DELETE"

	blocks, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, blocks, 1)

	assert.Equal(t, Delete, blocks[0].Op)
	assert.Equal(t, []string{"line to delete"}, blocks[0].Search)
	assert.Empty(t, blocks[0].Replacement)
}

func TestParseInsertInferred(t *testing.T) {
	t.Run("EmptySearchWithReplacement", func(t *testing.T) {
		body := "<<<<<<< SEARCH\n=======\ninserted\n>>>>>>> REPLACE"

		blocks, err := Parse(body)
		require.NoError(t, err)
		require.Len(t, blocks, 1)

		assert.Equal(t, Insert, blocks[0].Op)
		assert.Empty(t, blocks[0].Search)
		assert.Equal(t, []string{"inserted"}, blocks[0].Replacement)
	})

	t.Run("InsertCloseMarker", func(t *testing.T) {
		body := "<<<<<<< SEARCH\n=======\ninserted\n>>>>>>> INSERT"

		blocks, err := Parse(body)
		require.NoError(t, err)
		assert.Equal(t, Insert, blocks[0].Op)
	})
}

func TestParseMultipleBlocks(t *testing.T) {
	body := "<<<<<<< SEARCH\nfirst old\n=======\nfirst new\n>>>>>>> REPLACE\n" +
		"<<<<<<< SEARCH\nsecond old\n=======\nsecond new\n>>>>>>> REPLACE"

	blocks, err := Parse(body)
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, []string{"first old"}, blocks[0].Search)
	assert.Equal(t, []string{"second old"}, blocks[1].Search)
}

func TestParseMultilineBlocks(t *testing.T) {
	body := "<<<<<<< SEARCH\nline 1\nline 2\nline 3\n=======\nnew line 1\nnew line 2\n>>>>>>> REPLACE"

	blocks, err := Parse(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"line 1", "line 2", "line 3"}, blocks[0].Search)
	assert.Equal(t, []string{"new line 1", "new line 2"}, blocks[0].Replacement)
}

func TestParseBlankLines(t *testing.T) {
	t.Run("SkippedBetweenBlocks", func(t *testing.T) {
		body := "\n\n<<<<<<< SEARCH\nold\n=======\nnew\n>>>>>>> REPLACE\n\n"

		blocks, err := Parse(body)
		require.NoError(t, err)
		assert.Len(t, blocks, 1)
	})

	t.Run("SignificantInsideBlocks", func(t *testing.T) {
		body := "<<<<<<< SEARCH\nfirst\n\nthird\n=======\nnew\n>>>>>>> REPLACE"

		blocks, err := Parse(body)
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "", "third"}, blocks[0].Search)
	})
}

func TestParseTrailingWhitespaceTrimmed(t *testing.T) {
	body := "<<<<<<< SEARCH\nline with spaces   \n=======\nline with spaces\t\n>>>>>>> REPLACE"

	blocks, err := Parse(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"line with spaces"}, blocks[0].Search)
	assert.Equal(t, []string{"line with spaces"}, blocks[0].Replacement)
}

func TestParseErrors(t *testing.T) {
	t.Run("Unterminated", func(t *testing.T) {
		_, err := Parse("<<<<<<< SEARCH\nold\n=======\nnew")
		assert.ErrorIs(t, err, ErrUnterminatedBlock)
	})

	t.Run("UnterminatedInSearch", func(t *testing.T) {
		_, err := Parse("<<<<<<< SEARCH\nold")
		assert.ErrorIs(t, err, ErrUnterminatedBlock)
	})

	t.Run("EmptyBlock", func(t *testing.T) {
		_, err := Parse("<<<<<<< SEARCH\n=======\n>>>>>>> REPLACE")
		assert.ErrorIs(t, err, ErrEmptyBlock)
	})

	t.Run("ContentBeforeFirstBlock", func(t *testing.T) {
		_, err := Parse("stray line\n<<<<<<< SEARCH\nold\n>>>>>>> DELETE")
		var expErr *ExpectedSearchStartError
		require.True(t, errors.As(err, &expErr))
		assert.Equal(t, 1, expErr.LineNumber)
		assert.Equal(t, "stray line", expErr.Line)
	})

	t.Run("MalformedOpenMarker", func(t *testing.T) {
		_, err := Parse("<<<<<<< WRONG\nold\n>>>>>>> DELETE")
		var malErr *MalformedLineError
		require.True(t, errors.As(err, &malErr))
		assert.Equal(t, 1, malErr.LineNumber)
	})

	t.Run("EmptyBodyIsNoBlocks", func(t *testing.T) {
		blocks, err := Parse("")
		require.NoError(t, err)
		assert.Empty(t, blocks)
	})
}

func TestParseReplaceMarkerInsideSearchIsContent(t *testing.T) {
	// A REPLACE-close marker before the separator is not a terminator;
	// it is accumulated as search content.
	body := "<<<<<<< SEARCH\n>>>>>>> REPLACE\n=======\nnew\n>>>>>>> REPLACE"

	blocks, err := Parse(body)
	require.NoError(t, err)
	assert.Equal(t, []string{">>>>>>> REPLACE"}, blocks[0].Search)
}
