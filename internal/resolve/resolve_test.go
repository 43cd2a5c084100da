package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/docblock/internal/extraction"
)

// Test Plan for Resolver:
// - A document using a define inherits its repeatable tags after its own
// - Singular tags already present on the user are not overwritten
// - Identity tags and the description are never inherited
// - Defines using defines expand transitively, in any source order
// - Unknown references produce reference warnings
// - Cycles and self references are reported and skipped
// - Duplicate defines keep the first definition
// - Inputs are not mutated and define documents stay in the output

func extract(t *testing.T, text string) []extraction.Document {
	t.Helper()

	p, err := extraction.New(extraction.DefaultOptions())
	require.NoError(t, err)

	res, err := p.Extract(t.Context(), []extraction.Source{{ID: "api.js", Text: text}})
	require.NoError(t, err)
	return res.Documents
}

func byName(t *testing.T, docs []extraction.Document, name string) extraction.Document {
	t.Helper()
	for _, d := range docs {
		if d.Name == name {
			return d
		}
	}
	require.Failf(t, "document not found", "name %q", name)
	return extraction.Document{}
}

func paramNames(doc extraction.Document, tag string) []string {
	var names []string
	for _, p := range doc.Fields.Get(tag) {
		names = append(names, p.Fields.String("name"))
	}
	return names
}

const sharedBlocks = `
/**
 * @apiDefine UserNotFound Not found
 * The user was not found.
 * @apiError UserNotFound The id of the user was not found.
 * @apiPermission admin
 */

/**
 * @api {get} /user/:id Read user
 * @apiName GetUser
 * @apiGroup User
 * @apiParam {Number} id Users unique ID.
 * @apiUse UserNotFound
 */
`

func TestResolve_InheritsTags(t *testing.T) {
	t.Parallel()

	docs := extract(t, sharedBlocks)
	resolved, warnings := New(DefaultOptions()).Resolve(docs)
	assert.Empty(t, warnings)
	require.Len(t, resolved, 2)

	user := byName(t, resolved, "GetUser")
	assert.Equal(t, []string{"id"}, paramNames(user, "apiParam"))

	errs := user.Fields.Get("apiError")
	require.Len(t, errs, 1)
	assert.Equal(t, "UserNotFound", errs[0].Fields.String("name"))
	assert.Equal(t, 0, errs[0].Occurrence)

	perms := user.Fields.Get("apiPermission")
	require.Len(t, perms, 1)
	assert.Equal(t, "admin", perms[0].Fields.String("text"))

	// Test: Identity and description stay the user's own
	assert.Equal(t, "GetUser", user.Name)
	assert.Equal(t, "User", user.Group)
	assert.False(t, user.Fields.Has("apiDefine"))
	assert.False(t, user.Fields.Has(extraction.DescriptionTag))

	// Test: The define document stays in the output
	def := byName(t, resolved, "UserNotFound")
	assert.True(t, def.Fields.Has("apiDefine"))
}

func TestResolve_SingularNotOverwritten(t *testing.T) {
	t.Parallel()

	docs := extract(t, `
/**
 * @apiDefine Shared
 * @apiPermission admin
 * @apiDeprecated use v2
 * @apiParam {String} token Auth token.
 */

/**
 * @apiName Legacy
 * @apiDeprecated gone soon
 * @apiParam {Number} id Identifier.
 * @apiUse Shared
 */
`)
	resolved, warnings := New(DefaultOptions()).Resolve(docs)
	assert.Empty(t, warnings)

	legacy := byName(t, resolved, "Legacy")
	deprecated := legacy.Fields.Get("apiDeprecated")
	require.Len(t, deprecated, 1)
	assert.Equal(t, "gone soon", deprecated[0].Fields.String("text"))

	// Test: Repeatable tags append in order with renumbered occurrences
	params := legacy.Fields.Get("apiParam")
	require.Len(t, params, 2)
	assert.Equal(t, []string{"id", "token"}, paramNames(legacy, "apiParam"))
	assert.Equal(t, 1, params[1].Occurrence)
}

func TestResolve_Transitive(t *testing.T) {
	t.Parallel()

	// Test: The user appears before both defines, and Outer before Inner
	docs := extract(t, `
/**
 * @apiName Endpoint
 * @apiUse Outer
 */

/**
 * @apiDefine Outer
 * @apiParam {String} outer Outer field.
 * @apiUse Inner
 */

/**
 * @apiDefine Inner
 * @apiParam {String} inner Inner field.
 */
`)
	resolved, warnings := New(DefaultOptions()).Resolve(docs)
	assert.Empty(t, warnings)

	endpoint := byName(t, resolved, "Endpoint")
	assert.Equal(t, []string{"outer", "inner"}, paramNames(endpoint, "apiParam"))

	outer := byName(t, resolved, "Outer")
	assert.Equal(t, []string{"outer", "inner"}, paramNames(outer, "apiParam"))
}

func TestResolve_UnknownReference(t *testing.T) {
	t.Parallel()

	docs := extract(t, `
/**
 * @apiName Endpoint
 * @apiUse Missing
 */
`)
	resolved, warnings := New(DefaultOptions()).Resolve(docs)
	require.Len(t, resolved, 1)
	require.Len(t, warnings, 1)

	w := warnings[0]
	assert.Equal(t, extraction.WarningReference, w.Kind)
	assert.Equal(t, "apiUse", w.Tag)
	assert.Contains(t, w.Message, `"Missing"`)
	assert.Equal(t, "api.js", w.Location.SourceID)
	assert.Equal(t, 2, w.Location.Line)
}

func TestResolve_Cycles(t *testing.T) {
	t.Parallel()

	docs := extract(t, `
/**
 * @apiDefine A
 * @apiParam {String} a A.
 * @apiUse B
 */

/**
 * @apiDefine B
 * @apiParam {String} b B.
 * @apiUse A
 */

/**
 * @apiDefine Self
 * @apiUse Self
 */

/**
 * @apiName Endpoint
 * @apiUse A
 */
`)
	resolved, warnings := New(DefaultOptions()).Resolve(docs)
	require.Len(t, resolved, 4)
	require.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.Equal(t, extraction.WarningReference, w.Kind)
		assert.Contains(t, w.Message, "reference cycle")
	}

	// Test: The edge that closed the cycle is dropped, the rest resolves
	endpoint := byName(t, resolved, "Endpoint")
	assert.Equal(t, []string{"a", "b"}, paramNames(endpoint, "apiParam"))
}

func TestResolve_DuplicateDefine(t *testing.T) {
	t.Parallel()

	docs := extract(t, `
/**
 * @apiDefine Shared
 * @apiParam {String} first First.
 */

/**
 * @apiDefine Shared
 * @apiParam {String} second Second.
 */

/**
 * @apiName Endpoint
 * @apiUse Shared
 */
`)
	resolved, warnings := New(DefaultOptions()).Resolve(docs)
	require.Len(t, warnings, 1)
	assert.Equal(t, "apiDefine", warnings[0].Tag)
	assert.Contains(t, warnings[0].Message, "duplicate")

	endpoint := byName(t, resolved, "Endpoint")
	assert.Equal(t, []string{"first"}, paramNames(endpoint, "apiParam"))
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	docs := extract(t, sharedBlocks)
	before := make([]extraction.Document, len(docs))
	for i, d := range docs {
		before[i] = d.Clone()
	}

	_, _ = New(DefaultOptions()).Resolve(docs)
	assert.Equal(t, before, docs)
}

func TestResolve_NoDefines(t *testing.T) {
	t.Parallel()

	resolved, warnings := New(DefaultOptions()).Resolve(nil)
	assert.Empty(t, resolved)
	assert.Empty(t, warnings)
}
