package archive

import (
	"errors"
	"testing"

	"emtar/internal/encoding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFileDetection(t *testing.T) {
	t.Run("UTF8IsText", func(t *testing.T) {
		f := NewFile("normal.txt", []byte("hello 世界"))
		assert.False(t, f.IsBinary)
		assert.Empty(t, f.BinaryReason)
	})

	t.Run("NonUTF8IsBinary", func(t *testing.T) {
		f := NewFile("image.jpg", []byte{0xFF, 0xD8, 0xFF, 0xE0})
		assert.True(t, f.IsBinary)
		assert.Equal(t, encoding.InvalidUTF8, f.BinaryReason)
	})

	t.Run("MarkerContentIsBinary", func(t *testing.T) {
		f := NewFile("test.txt", []byte("This is a file\n-- some_file.txt --\nrest"))
		assert.True(t, f.IsBinary)
		assert.Equal(t, encoding.ContentConflict, f.BinaryReason)
	})

	t.Run("ExplicitEncoding", func(t *testing.T) {
		f := NewFileWithEncoding("blob", []byte("plain text"), true)
		assert.True(t, f.IsBinary)
		assert.Equal(t, encoding.Explicit, f.BinaryReason)
	})
}

func TestArchiveName(t *testing.T) {
	text := NewFile("test.txt", []byte("hello"))
	assert.Equal(t, "test.txt", text.ArchiveName())

	bin := NewFileWithEncoding("image.jpg", []byte{0xFF, 0xD8}, true)
	assert.Equal(t, "image.jpg[.base64]", bin.ArchiveName())
}

func TestAddFile(t *testing.T) {
	t.Run("DuplicateNormalNameRejected", func(t *testing.T) {
		a := New()
		require.NoError(t, a.AddFile(NewFile("file.txt", []byte("one"))))

		err := a.AddFile(NewFile("file.txt", []byte("two")))
		var dupErr *DuplicateFileError
		require.True(t, errors.As(err, &dupErr))
		assert.Equal(t, "file.txt", dupErr.Name)
	})

	t.Run("SnippetFilesMayRepeatName", func(t *testing.T) {
		a := New()
		f1 := NewFile("file.txt", []byte("first"))
		f1.SnippetRef = &SnippetRef{Line: 10}
		f2 := NewFile("file.txt", []byte("second"))
		f2.SnippetRef = &SnippetRef{Line: 42}

		require.NoError(t, a.AddFile(f1))
		require.NoError(t, a.AddFile(f2))
		assert.Len(t, a.Files, 2)
	})

	t.Run("EditFileMayShadowNormalFile", func(t *testing.T) {
		a := New()
		require.NoError(t, a.AddFile(NewFile("target.txt", []byte("content"))))

		e := NewFile("target.txt", []byte(""))
		e.EditRef = &EditRef{}
		require.NoError(t, a.AddFile(e))
	})

	t.Run("EmptyNameRejected", func(t *testing.T) {
		a := New()
		assert.Error(t, a.AddFile(NewFile("", []byte("x"))))
	})
}

func TestParseCommands(t *testing.T) {
	t.Run("Simple", func(t *testing.T) {
		a := WithComment("[command: rg](#search1)")
		a.ParseCommands()

		require.Len(t, a.Commands, 1)
		assert.Equal(t, "rg", a.Commands[0].Name)
		assert.Equal(t, "search1", a.Commands[0].Href)
	})

	t.Run("NameTrimmedAndMultiWord", func(t *testing.T) {
		a := WithComment("see [command: git diff ](#change1) above")
		a.ParseCommands()

		require.Len(t, a.Commands, 1)
		assert.Equal(t, "git diff", a.Commands[0].Name)
		assert.Equal(t, "change1", a.Commands[0].Href)
	})

	t.Run("MultiplePreserveOrder", func(t *testing.T) {
		a := WithComment("[command: rg](#search1)\n[command: git diff](#change1)")
		a.ParseCommands()

		require.Len(t, a.Commands, 2)
		assert.Equal(t, "search1", a.Commands[0].Href)
		assert.Equal(t, "change1", a.Commands[1].Href)
	})

	t.Run("MalformedIgnored", func(t *testing.T) {
		a := WithComment("[command: rg]\n[command: rg](search1)\n[command: rg](#ok)")
		a.ParseCommands()

		require.Len(t, a.Commands, 1)
		assert.Equal(t, "ok", a.Commands[0].Href)
	})

	t.Run("LinkMustNotSpanLines", func(t *testing.T) {
		a := WithComment("[command: rg]\n(#search1)")
		a.ParseCommands()
		assert.Empty(t, a.Commands)
	})

	t.Run("IndexRebuilt", func(t *testing.T) {
		a := WithComment("[command: rg](#search1)")
		a.ParseCommands()

		cmd, ok := a.CommandByHref("search1")
		require.True(t, ok)
		assert.Equal(t, "rg", cmd.Name)

		a.Comment = "[command: sed](#edit1)"
		a.ParseCommands()

		_, ok = a.CommandByHref("search1")
		assert.False(t, ok)
		_, ok = a.CommandByHref("edit1")
		assert.True(t, ok)
	})
}

func TestParseSnippetRef(t *testing.T) {
	t.Run("LineOnly", func(t *testing.T) {
		ref, err := ParseSnippetRef("[.snippet:42]")
		require.NoError(t, err)
		assert.Empty(t, ref.CommandHref)
		assert.Equal(t, uint(42), ref.Line)
	})

	t.Run("FullHref", func(t *testing.T) {
		ref, err := ParseSnippetRef("[.snippet#search1:10]")
		require.NoError(t, err)
		assert.Equal(t, "search1", ref.CommandHref)
		assert.Equal(t, uint(10), ref.Line)
	})

	t.Run("ShorthandHref", func(t *testing.T) {
		ref, err := ParseSnippetRef("[.#search1:10]")
		require.NoError(t, err)
		assert.Equal(t, "search1", ref.CommandHref)
		assert.Equal(t, uint(10), ref.Line)
	})

	t.Run("InvalidFormat", func(t *testing.T) {
		_, err := ParseSnippetRef(".snippet:42")
		assert.ErrorIs(t, err, ErrSnippetFormat)

		_, err = ParseSnippetRef("search1:10")
		assert.ErrorIs(t, err, ErrSnippetFormat)
	})

	t.Run("MissingClosingBracket", func(t *testing.T) {
		_, err := ParseSnippetRef("[.snippet:42")
		assert.ErrorIs(t, err, ErrMissingClosingBracket)
	})

	t.Run("MissingColon", func(t *testing.T) {
		_, err := ParseSnippetRef("[.#search1]")
		assert.ErrorIs(t, err, ErrMissingColon)
	})

	t.Run("BadLineNumber", func(t *testing.T) {
		_, err := ParseSnippetRef("[.snippet:abc]")
		var lineErr *InvalidLineNumberError
		require.True(t, errors.As(err, &lineErr))
		assert.Equal(t, "abc", lineErr.Input)
	})
}

func TestParseEditRef(t *testing.T) {
	t.Run("Bare", func(t *testing.T) {
		ref, ok := ParseEditRef("[.edit]")
		require.True(t, ok)
		assert.Empty(t, ref.CommandHref)
		assert.Zero(t, ref.StartLine)
	})

	t.Run("WithHrefAndLine", func(t *testing.T) {
		ref, ok := ParseEditRef("[.edit#cmd1:42]")
		require.True(t, ok)
		assert.Equal(t, "cmd1", ref.CommandHref)
		assert.Equal(t, uint(42), ref.StartLine)
	})

	t.Run("NotAnEditTag", func(t *testing.T) {
		_, ok := ParseEditRef("[.snippet:42]")
		assert.False(t, ok)

		_, ok = ParseEditRef("[.edit#cmd1]")
		assert.False(t, ok)

		_, ok = ParseEditRef("[.edit#cmd1:xyz]")
		assert.False(t, ok)
	})
}

func TestValidateSnippetRefs(t *testing.T) {
	t.Run("AllResolve", func(t *testing.T) {
		a := WithComment("[command: rg](#search1)")
		a.ParseCommands()
		f := NewFile("file.txt", []byte("x"))
		f.SnippetRef = &SnippetRef{CommandHref: "search1", Line: 10}
		require.NoError(t, a.AddFile(f))

		assert.Empty(t, a.ValidateSnippetRefs())
	})

	t.Run("MissingCommandCollected", func(t *testing.T) {
		a := WithComment("[command: rg](#search1)")
		a.ParseCommands()
		f := NewFile("file.txt", []byte("x"))
		f.SnippetRef = &SnippetRef{CommandHref: "search2", Line: 10}
		require.NoError(t, a.AddFile(f))

		errs := a.ValidateSnippetRefs()
		require.Len(t, errs, 1)
		assert.Equal(t, "file.txt", errs[0].File)
		assert.Equal(t, "search2", errs[0].MissingCommand)
	})

	t.Run("HrefLessSnippetsSkipped", func(t *testing.T) {
		a := New()
		a.ParseCommands()
		f := NewFile("file.txt", []byte("x"))
		f.SnippetRef = &SnippetRef{Line: 7}
		require.NoError(t, a.AddFile(f))

		assert.Empty(t, a.ValidateSnippetRefs())
	})
}
