package extraction

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Locator:
// - Finds documentation blocks with offsets, line and column
// - Skips plain comments whole, including tags inside them
// - Treats "/***" banners and "/**/" as plain comments
// - Unterminated doc comment stops the scan with one location warning
// - Unterminated plain comment is silent
// - CRLF input is normalized before offsets are computed
// - Columns count runes, not bytes
// - Stopping the range stops the scan
// - Alternate syntax profiles (python, ruby)
// - Invalid profiles are rejected

func defaultLocator(t *testing.T) *Locator {
	t.Helper()
	loc, err := NewLocator(BuiltinSyntaxes()[0])
	require.NoError(t, err)
	return loc
}

func collect(loc *Locator, text string) ([]CommentBlock, []Warning) {
	var warnings []Warning
	blocks := slices.Collect(loc.Blocks("src", text, func(w Warning) {
		warnings = append(warnings, w)
	}))
	return blocks, warnings
}

func TestLocator_FindsBlocks(t *testing.T) {
	t.Parallel()

	loc := defaultLocator(t)

	// Test: Two doc blocks on different lines report positions
	text := "a /** x */\ncode()\n/**\n * y\n */\n"
	blocks, warnings := collect(loc, text)

	require.Len(t, blocks, 2)
	assert.Empty(t, warnings)

	assert.Equal(t, "/** x */", blocks[0].RawText)
	assert.Equal(t, 2, blocks[0].StartOffset)
	assert.Equal(t, 10, blocks[0].EndOffset)
	assert.Equal(t, 1, blocks[0].Line)
	assert.Equal(t, 3, blocks[0].Column)
	assert.Equal(t, "src", blocks[0].SourceID)
	assert.Equal(t, DefaultSyntax, blocks[0].Syntax)

	assert.Equal(t, "/**\n * y\n */", blocks[1].RawText)
	assert.Equal(t, 3, blocks[1].Line)
	assert.Equal(t, 1, blocks[1].Column)
	assert.Equal(t, text[blocks[1].StartOffset:blocks[1].EndOffset], blocks[1].RawText)
}

func TestLocator_SkipsPlainComments(t *testing.T) {
	t.Parallel()

	loc := defaultLocator(t)

	tests := []struct {
		name string
		text string
		want int
	}{
		{"plain comment with tag", "/* plain @apiName X */", 0},
		{"banner", "/*** banner ***/", 0},
		{"empty comment", "/**/", 0},
		{"plain then doc", "/* plain /** */\n/** doc */", 1},
		{"no comments", "func main() {}\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks, warnings := collect(loc, tt.text)
			assert.Len(t, blocks, tt.want)
			assert.Empty(t, warnings)
		})
	}
}

func TestLocator_PlainThenDocPosition(t *testing.T) {
	t.Parallel()

	loc := defaultLocator(t)

	// Test: A doc block after a plain comment tracks lines across the skip
	blocks, _ := collect(loc, "/* one\ntwo */\n  /** doc */")
	require.Len(t, blocks, 1)
	assert.Equal(t, 3, blocks[0].Line)
	assert.Equal(t, 3, blocks[0].Column)
}

func TestLocator_UnterminatedDocComment(t *testing.T) {
	t.Parallel()

	loc := defaultLocator(t)

	// Test: The terminated block is kept, the open one is reported and skipped
	text := "/** @apiName A */\n/** open\n * @apiName B\n"
	blocks, warnings := collect(loc, text)

	require.Len(t, blocks, 1)
	assert.Equal(t, "/** @apiName A */", blocks[0].RawText)

	require.Len(t, warnings, 1)
	assert.Equal(t, WarningLocation, warnings[0].Kind)
	assert.Equal(t, 18, warnings[0].Location.StartOffset)
	assert.Equal(t, len(text), warnings[0].Location.EndOffset)
	assert.Equal(t, 2, warnings[0].Location.Line)
	assert.Equal(t, 1, warnings[0].Location.Column)
}

func TestLocator_UnterminatedPlainCommentIsSilent(t *testing.T) {
	t.Parallel()

	loc := defaultLocator(t)

	blocks, warnings := collect(loc, "x := 1 /* open")
	assert.Empty(t, blocks)
	assert.Empty(t, warnings)
}

func TestLocator_NilWarnCallback(t *testing.T) {
	t.Parallel()

	loc := defaultLocator(t)

	// Test: A nil callback is allowed
	blocks := slices.Collect(loc.Blocks("src", "/** open", nil))
	assert.Empty(t, blocks)
}

func TestLocator_NormalizesCRLF(t *testing.T) {
	t.Parallel()

	loc := defaultLocator(t)

	blocks, _ := collect(loc, "x\r\n/**\r\n * a\r\n */")
	require.Len(t, blocks, 1)
	assert.Equal(t, "/**\n * a\n */", blocks[0].RawText)
	assert.Equal(t, 2, blocks[0].StartOffset)
	assert.Equal(t, 2, blocks[0].Line)
}

func TestLocator_RuneColumns(t *testing.T) {
	t.Parallel()

	loc := defaultLocator(t)

	blocks, _ := collect(loc, "é /** x */")
	require.Len(t, blocks, 1)
	assert.Equal(t, 3, blocks[0].StartOffset)
	assert.Equal(t, 3, blocks[0].Column)
}

func TestLocator_StopsEarly(t *testing.T) {
	t.Parallel()

	loc := defaultLocator(t)

	// Test: Breaking out of the range yields only the first block
	var got []CommentBlock
	for b := range loc.Blocks("src", "/** a */ /** b */ /** c */", nil) {
		got = append(got, b)
		break
	}
	require.Len(t, got, 1)
	assert.Equal(t, "/** a */", got[0].RawText)
}

func TestLocator_AlternateSyntaxes(t *testing.T) {
	t.Parallel()

	profiles := map[string]Syntax{}
	for _, s := range BuiltinSyntaxes() {
		profiles[s.Name] = s
	}

	tests := []struct {
		syntax string
		text   string
		raw    string
	}{
		{"python", "def f():\n    \"\"\"@apiName F\"\"\"\n", "\"\"\"@apiName F\"\"\""},
		{"ruby", "=begin\n@apiName R\n=end\n", "=begin\n@apiName R\n=end"},
		{"lua", "--[[ @apiName L ]]", "--[[ @apiName L ]]"},
	}

	for _, tt := range tests {
		t.Run(tt.syntax, func(t *testing.T) {
			loc, err := NewLocator(profiles[tt.syntax])
			require.NoError(t, err)

			blocks, warnings := collect(loc, tt.text)
			require.Len(t, blocks, 1)
			assert.Empty(t, warnings)
			assert.Equal(t, tt.raw, blocks[0].RawText)
			assert.Equal(t, tt.syntax, blocks[0].Syntax)
		})
	}
}

func TestNewLocator_InvalidSyntax(t *testing.T) {
	t.Parallel()

	_, err := NewLocator(Syntax{Name: "broken", Open: "/*"})
	require.ErrorIs(t, err, ErrInvalidSyntax)

	_, err = NewLocator(Syntax{Open: "/*", Close: "*/"})
	require.ErrorIs(t, err, ErrInvalidSyntax)
}
